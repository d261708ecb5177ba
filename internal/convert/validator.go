package convert

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
)

// pdfSignature is the mandatory first five bytes of a PDF file.
var pdfSignature = []byte("%PDF-")

// Validator checks that an uploaded file is plausibly a well-formed PDF
// before any expensive work begins.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator enforcing the given size cap in bytes.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// ValidateFile runs the input checks in order and fails on the first one
// that does not hold: the path must name a readable regular file with a
// .pdf extension, within the size cap, starting with the %PDF- signature.
func (v *Validator) ValidateFile(filePath string) error {
	if filePath == "" {
		return NewError(ErrorTypeValidation, "path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return NewErrorf(ErrorTypeValidation, "file does not exist: %s", filePath).WithFile(filePath)
	}
	if err != nil {
		return WrapError(ErrorTypeValidation, "cannot access file", err).WithFile(filePath)
	}
	if !fileInfo.Mode().IsRegular() {
		return NewErrorf(ErrorTypeValidation, "path is not a regular file: %s", filePath).WithFile(filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return NewErrorf(ErrorTypeValidation, "file does not have a .pdf extension: %s", filePath).WithFile(filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return NewErrorf(ErrorTypeValidation, "file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize).WithFile(filePath)
	}

	header, err := readHeader(filePath, len(pdfSignature))
	if err != nil {
		return WrapError(ErrorTypeValidation, "file is not readable", err).WithFile(filePath)
	}
	if !bytes.Equal(header, pdfSignature) {
		return NewErrorf(ErrorTypeValidation, "missing %%PDF- header signature: %s", filePath).WithFile(filePath)
	}

	return nil
}

// IsValidPDF reports whether a file passes all input checks.
func (v *Validator) IsValidPDF(filePath string) bool {
	return v.ValidateFile(filePath) == nil
}

// readHeader reads exactly n bytes from the start of the file and closes it.
func readHeader(filePath string, n int) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	// A short read means the file cannot carry the signature; the caller
	// reports that as a signature mismatch, not a read failure.
	return buf[:read], nil
}
