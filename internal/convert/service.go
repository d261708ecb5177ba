package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osbtools/form31-converter/internal/form31"
	"github.com/osbtools/form31-converter/internal/jobs"
)

// Options carries the settings the conversion pipeline needs.
type Options struct {
	ConverterPath string
	Timeout       time.Duration
	MaxFileSize   int64
	OutputDir     string
	TempDir       string
	SchemaPath    string
	SystemName    string
}

// Service runs uploaded Form 31 PDFs through the full conversion
// pipeline: input validation, the external converter, field extraction,
// XML generation, schema validation, and compliance enforcement. Files
// in a batch are processed one at a time; a failure stops that file and
// moves on to the next.
type Service struct {
	validator  *Validator
	inspector  *Inspector
	invoker    *Invoker
	schema     *form31.SchemaValidator
	enforcer   *form31.Enforcer
	jobs       *jobs.Store
	outputDir  string
	tempDir    string
	systemName string
	logger     zerolog.Logger
}

func NewService(opts Options, store *jobs.Store, logger zerolog.Logger) *Service {
	return &Service{
		validator:  NewValidator(opts.MaxFileSize),
		inspector:  NewInspector(logger),
		invoker:    NewInvoker(opts.ConverterPath, opts.Timeout, logger),
		schema:     form31.NewSchemaValidator(opts.SchemaPath, logger),
		enforcer:   form31.NewEnforcer(opts.SystemName, logger),
		jobs:       store,
		outputDir:  opts.OutputDir,
		tempDir:    opts.TempDir,
		systemName: opts.SystemName,
		logger:     logger.With().Str("component", "convert").Logger(),
	}
}

// ProcessBatch converts each upload in order and reports a per-file
// outcome. The batch itself succeeds whenever it ran to completion,
// even if every file failed.
func (s *Service) ProcessBatch(ctx context.Context, uploads []FileUpload) BatchResult {
	if len(uploads) == 0 {
		return BatchResult{Success: false, Message: "no files to process"}
	}

	results := make([]FileResult, 0, len(uploads))
	succeeded := 0
	for _, upload := range uploads {
		result := s.processFile(ctx, upload)
		if result.Success {
			succeeded++
		}
		results = append(results, result)
	}

	return BatchResult{
		Success: true,
		Message: fmt.Sprintf("processed %d file(s): %d succeeded, %d failed",
			len(uploads), succeeded, len(uploads)-succeeded),
		Results: results,
	}
}

func (s *Service) processFile(ctx context.Context, upload FileUpload) FileResult {
	jobID := s.jobs.Create(upload.OriginalName, string(StageReceived))
	log := s.logger.With().Str("job", jobID).Str("file", upload.OriginalName).Logger()
	log.Info().Int64("size", upload.Size).Msg("processing upload")

	if err := s.validator.ValidateFile(upload.Path); err != nil {
		return s.fail(jobID, upload, log, err)
	}
	info := s.inspector.Inspect(upload.Path)
	log.Debug().Int("pages", info.Pages).Bool("encrypted", info.Encrypted).Msg("input accepted")
	s.jobs.Advance(jobID, string(StageValidated))

	tempXML := filepath.Join(s.tempDir, "temp-"+uuid.NewString()+".xml")
	defer s.removeTemp(tempXML, log)

	if err := s.invoker.Convert(ctx, upload.Path, tempXML); err != nil {
		return s.fail(jobID, upload, log, err)
	}
	s.jobs.Advance(jobID, string(StageConverted))

	raw, err := os.ReadFile(tempXML)
	if err != nil {
		return s.fail(jobID, upload, log,
			WrapError(ErrorTypeConverterOutput, "cannot read converter output", err).WithFile(tempXML))
	}
	fields, err := form31.ExtractFields(raw, log)
	if err != nil {
		return s.fail(jobID, upload, log,
			WrapError(ErrorTypeExtraction, "cannot extract fields from converter output", err))
	}
	doc := form31.NewDocument(fields)
	doc.Metadata.SourceFile = upload.OriginalName
	if s.systemName != "" {
		doc.Metadata.GeneratedBy = s.systemName
	}
	if !doc.Validate() {
		return s.fail(jobID, upload, log,
			NewError(ErrorTypeExtraction, "extracted data is missing required debtor fields"))
	}
	s.jobs.Advance(jobID, string(StageExtracted))

	generated := form31.Generate(doc)
	log.Debug().Str("documentId", generated.DocumentID).Msg("XML generated")
	s.jobs.Advance(jobID, string(StageGenerated))

	xmlContent, err := s.ensureCompliant(jobID, generated.XML, log)
	if err != nil {
		return s.fail(jobID, upload, log, err)
	}
	s.jobs.Advance(jobID, string(StageCompliant))

	xmlName := outputName(upload.OriginalName)
	outputPath := filepath.Join(s.outputDir, xmlName)
	if err := writeOutput(outputPath, xmlContent); err != nil {
		return s.fail(jobID, upload, log, err)
	}

	s.jobs.Complete(jobID, string(StageDone), xmlName)
	log.Info().Str("output", xmlName).Msg("conversion finished")
	return FileResult{
		OriginalName: upload.OriginalName,
		XMLName:      xmlName,
		XMLPath:      outputPath,
		JobID:        jobID,
		Success:      true,
	}
}

// ensureCompliant validates the generated XML against the schema,
// repairs missing markers once, and validates again. A document that
// still fails after enforcement is rejected.
func (s *Service) ensureCompliant(jobID, xmlContent string, log zerolog.Logger) (string, error) {
	report := s.schema.Validate(xmlContent, "")
	s.jobs.Advance(jobID, string(StageSchemaChecked))
	if report.Valid {
		return xmlContent, nil
	}
	log.Warn().Int("violations", len(report.Diagnostics)).Msg("schema check failed, enforcing compliance")

	enforced := s.enforcer.Enforce(xmlContent)
	report = s.schema.Validate(enforced, "")
	if report.Valid {
		return enforced, nil
	}

	first := report.Diagnostics[0]
	return "", NewErrorf(ErrorTypeSchemaViolation,
		"generated XML violates the schema: %s (line %d, column %d)", first.Message, first.Line, first.Column)
}

func (s *Service) fail(jobID string, upload FileUpload, log zerolog.Logger, err error) FileResult {
	log.Error().Err(err).Msg("conversion failed")
	s.jobs.Fail(jobID, string(StageDone), err.Error())
	return FileResult{
		OriginalName: upload.OriginalName,
		JobID:        jobID,
		Success:      false,
		Error:        err.Error(),
	}
}

func (s *Service) removeTemp(path string, log zerolog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Str("path", path).Err(err).Msg("cannot remove temporary file")
	}
}

func outputName(originalName string) string {
	base := filepath.Base(originalName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xml"
}

func writeOutput(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return WrapError(ErrorTypeXMLGeneration, "cannot create output directory", err).WithFile(path)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return WrapError(ErrorTypeXMLGeneration, "cannot write XML file", err).WithFile(path)
	}
	return nil
}
