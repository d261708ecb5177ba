package convert

import (
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
)

// Inspector collects non-fatal diagnostics about a validated input PDF.
// Everything here is best-effort: the pipeline never reads PDF bytes on its
// data path, and a document the libraries cannot open still converts.
type Inspector struct {
	logger zerolog.Logger
}

// NewInspector creates an inspector.
func NewInspector(logger zerolog.Logger) *Inspector {
	return &Inspector{logger: logger.With().Str("component", "inspector").Logger()}
}

// Inspect returns whatever diagnostics could be gathered. Fields the
// libraries cannot supply stay at their zero values.
func (in *Inspector) Inspect(filePath string) DocumentInfo {
	info := DocumentInfo{}

	if fi, err := os.Stat(filePath); err == nil {
		info.Size = fi.Size()
	}

	if pages, err := api.PageCountFile(filePath); err == nil {
		info.Pages = pages
	} else {
		in.logger.Debug().Err(err).Str("path", filePath).Msg("page count unavailable")
	}

	in.readDocInfo(filePath, &info)
	return info
}

// readDocInfo pulls title and encryption state out of the document trailer.
func (in *Inspector) readDocInfo(filePath string, info *DocumentInfo) {
	defer func() {
		// The trailer API panics on some malformed documents.
		if recover() != nil {
			in.logger.Debug().Str("path", filePath).Msg("document info extraction panicked")
		}
	}()

	f, r, err := pdf.Open(filePath)
	if err != nil {
		if strings.Contains(err.Error(), "encrypted") {
			info.Encrypted = true
		}
		in.logger.Debug().Err(err).Str("path", filePath).Msg("document info unavailable")
		return
	}
	defer f.Close()

	trailer := r.Trailer()
	if trailer.IsNull() {
		return
	}
	if !trailer.Key("Encrypt").IsNull() {
		info.Encrypted = true
	}
	docInfo := trailer.Key("Info")
	if docInfo.IsNull() {
		return
	}
	if title := docInfo.Key("Title"); !title.IsNull() {
		info.Title = strings.TrimSpace(title.String())
	}
}
