package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbtools/form31-converter/internal/jobs"
)

const goodConverterOutput = `<form>
  <content>
    <caseInfo>
      <courtFileNumber>31-2024-00123</courtFileNumber>
      <dateOfFiling>2024-03-01</dateOfFiling>
    </caseInfo>
    <personalInfo>
      <firstName>Jane</firstName>
      <lastName>Doe</lastName>
      <address>
        <street>Main Street</street>
        <city>Ottawa</city>
        <province>ON</province>
      </address>
    </personalInfo>
  </content>
</form>`

type serviceFixture struct {
	service   *Service
	store     *jobs.Store
	uploadDir string
	outputDir string
	tempDir   string
}

// newServiceFixture wires a Service against a fake converter that copies
// the sidecar file "<input>.xml" to its output path.
func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	skipWithoutShell(t)

	base := t.TempDir()
	f := &serviceFixture{
		store:     jobs.NewStore(),
		uploadDir: filepath.Join(base, "uploads"),
		outputDir: filepath.Join(base, "output"),
		tempDir:   filepath.Join(base, "temp"),
	}
	for _, dir := range []string{f.uploadDir, f.outputDir, f.tempDir} {
		require.NoError(t, os.MkdirAll(dir, 0o750))
	}

	converter := writeFakeConverter(t, base, "pdftoxml", `cp "$2.xml" "$4"`)
	f.service = NewService(Options{
		ConverterPath: converter,
		Timeout:       5 * time.Second,
		MaxFileSize:   10 << 20,
		OutputDir:     f.outputDir,
		TempDir:       f.tempDir,
		SchemaPath:    filepath.Join("..", "..", "schemas", "form31.xsd"),
		SystemName:    "form31-converter-test",
	}, f.store, zerolog.Nop())
	return f
}

// addUpload stores a PDF in the upload directory together with the XML
// the fake converter will emit for it.
func (f *serviceFixture) addUpload(t *testing.T, name string, pdf []byte, converterXML string) FileUpload {
	t.Helper()
	path := writeTestFile(t, f.uploadDir, name, pdf)
	if converterXML != "" {
		writeTestFile(t, f.uploadDir, name+".xml", []byte(converterXML))
	}
	info, err := os.Stat(path)
	require.NoError(t, err)
	return FileUpload{
		OriginalName: name,
		Path:         path,
		Size:         info.Size(),
		MediaType:    "application/pdf",
	}
}

func TestService_ProcessBatch_Success(t *testing.T) {
	f := newServiceFixture(t)
	upload := f.addUpload(t, "form31-jane-doe.pdf", []byte("%PDF-1.7\ncontent"), goodConverterOutput)

	batch := f.service.ProcessBatch(context.Background(), []FileUpload{upload})

	require.True(t, batch.Success)
	require.Len(t, batch.Results, 1)
	result := batch.Results[0]
	assert.True(t, result.Success, result.Error)
	assert.Equal(t, "form31-jane-doe.pdf", result.OriginalName)
	assert.Equal(t, "form31-jane-doe.xml", result.XMLName)
	assert.NotEmpty(t, result.JobID)

	data, err := os.ReadFile(result.XMLPath)
	require.NoError(t, err)
	xml := string(data)
	assert.Contains(t, xml, `xmlns="http://ised-isde.canada.ca/form31/schema/1.0"`)
	assert.Contains(t, xml, "<firstName>Jane</firstName>")
	assert.Contains(t, xml, "<courtFileNumber>31-2024-00123</courtFileNumber>")
	assert.Contains(t, xml, "<source-file>form31-jane-doe.pdf</source-file>")
	assert.Contains(t, xml, "<generation-system>form31-converter-test</generation-system>")
}

func TestService_ProcessBatch_RecordsJobStages(t *testing.T) {
	f := newServiceFixture(t)
	upload := f.addUpload(t, "in.pdf", []byte("%PDF-1.7\n"), goodConverterOutput)

	batch := f.service.ProcessBatch(context.Background(), []FileUpload{upload})
	require.True(t, batch.Results[0].Success, batch.Results[0].Error)

	job, ok := f.store.Get(batch.Results[0].JobID)
	require.True(t, ok)
	assert.True(t, job.Done)
	assert.True(t, job.Success)
	assert.Equal(t, "in.xml", job.XMLName)

	stages := make([]string, 0, len(job.History))
	for _, tr := range job.History {
		stages = append(stages, tr.Stage)
	}
	assert.Equal(t, []string{
		"received", "validated", "converted", "extracted",
		"generated", "schema-checked", "compliant", "done",
	}, stages)
}

func TestService_ProcessBatch_FailureDoesNotStopBatch(t *testing.T) {
	f := newServiceFixture(t)
	uploads := []FileUpload{
		f.addUpload(t, "first.pdf", []byte("%PDF-1.7\n"), goodConverterOutput),
		f.addUpload(t, "second.pdf", []byte("this is not a pdf"), ""),
		f.addUpload(t, "third.pdf", []byte("%PDF-1.5\n"), goodConverterOutput),
	}

	batch := f.service.ProcessBatch(context.Background(), uploads)

	assert.True(t, batch.Success, "the batch itself ran to completion")
	assert.Contains(t, batch.Message, "2 succeeded, 1 failed")
	require.Len(t, batch.Results, 3)

	assert.True(t, batch.Results[0].Success, batch.Results[0].Error)
	assert.False(t, batch.Results[1].Success)
	assert.Contains(t, batch.Results[1].Error, "header")
	assert.True(t, batch.Results[2].Success, batch.Results[2].Error)

	failed, ok := f.store.Get(batch.Results[1].JobID)
	require.True(t, ok)
	assert.True(t, failed.Done)
	assert.False(t, failed.Success)
	assert.NotEmpty(t, failed.ErrorMessage)
}

func TestService_ProcessBatch_Empty(t *testing.T) {
	f := newServiceFixture(t)

	batch := f.service.ProcessBatch(context.Background(), nil)

	assert.False(t, batch.Success)
	assert.Equal(t, "no files to process", batch.Message)
	assert.Empty(t, batch.Results)
}

func TestService_ProcessBatch_MissingRequiredFields(t *testing.T) {
	f := newServiceFixture(t)
	sparse := `<form><content><personalInfo><firstName>Jane</firstName></personalInfo></content></form>`
	upload := f.addUpload(t, "sparse.pdf", []byte("%PDF-1.7\n"), sparse)

	batch := f.service.ProcessBatch(context.Background(), []FileUpload{upload})

	require.Len(t, batch.Results, 1)
	assert.False(t, batch.Results[0].Success)
	assert.Contains(t, batch.Results[0].Error, "missing required debtor fields")
}

func TestService_ProcessBatch_ConverterFailure(t *testing.T) {
	f := newServiceFixture(t)
	broken := writeFakeConverter(t, t.TempDir(), "broken", "exit 3")
	f.service.invoker = NewInvoker(broken, time.Second, zerolog.Nop())
	upload := f.addUpload(t, "in.pdf", []byte("%PDF-1.7\n"), "")

	batch := f.service.ProcessBatch(context.Background(), []FileUpload{upload})

	require.Len(t, batch.Results, 1)
	assert.False(t, batch.Results[0].Success)
	assert.Contains(t, batch.Results[0].Error, "CONVERTER_EXECUTION")

	job, _ := f.store.Get(batch.Results[0].JobID)
	assert.Equal(t, "done", job.Stage)
	assert.False(t, job.Success)
}

func TestService_ProcessBatch_CleansTemporaryFiles(t *testing.T) {
	f := newServiceFixture(t)
	uploads := []FileUpload{
		f.addUpload(t, "ok.pdf", []byte("%PDF-1.7\n"), goodConverterOutput),
		f.addUpload(t, "bad.pdf", []byte("%PDF-1.7\n"), `<form><content>`),
	}

	f.service.ProcessBatch(context.Background(), uploads)

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary XML files must be removed after each file")
}
