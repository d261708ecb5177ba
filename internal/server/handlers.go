package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osbtools/form31-converter/internal/convert"
)

// allowedMediaTypes lists the upload content types accepted for PDF
// files. Browsers sometimes send octet-stream for drag-and-drop
// uploads; the validator checks the real header bytes either way.
var allowedMediaTypes = map[string]bool{
	"application/pdf":          true,
	"application/octet-stream": true,
	"application/x-pdf":        true,
	"":                         true,
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: s.cfg.Version})
}

// handleConvert accepts a multipart upload under the "files" field, runs
// each file through the pipeline, and reports a per-file outcome.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxFileSize); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "cannot parse multipart request"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "no files uploaded (use the 'files' field)"})
		return
	}

	uploads := make([]convert.FileUpload, 0, len(headers))
	for _, header := range headers {
		mediaType := strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0])
		if !allowedMediaTypes[mediaType] {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: fmt.Sprintf("unsupported media type %q for %s", mediaType, header.Filename),
			})
			return
		}

		upload, err := s.saveUpload(header, mediaType)
		if err != nil {
			s.logger.Error().Err(err).Str("file", header.Filename).Msg("cannot store upload")
			s.writeJSON(w, http.StatusInternalServerError, errorResponse{
				Message: fmt.Sprintf("cannot store uploaded file %s", header.Filename),
			})
			return
		}
		uploads = append(uploads, upload)
	}

	batch := s.service.ProcessBatch(r.Context(), uploads)
	s.writeJSON(w, http.StatusOK, batch)
}

// saveUpload copies one multipart part into the upload directory under a
// collision-free name.
func (s *Server) saveUpload(header *multipart.FileHeader, mediaType string) (convert.FileUpload, error) {
	src, err := header.Open()
	if err != nil {
		return convert.FileUpload{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + "-" + filepath.Base(header.Filename)
	path := filepath.Join(s.cfg.UploadDir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return convert.FileUpload{}, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, src)
	if err != nil {
		return convert.FileUpload{}, fmt.Errorf("write upload file: %w", err)
	}

	return convert.FileUpload{
		OriginalName: filepath.Base(header.Filename),
		Path:         path,
		Size:         size,
		MediaType:    mediaType,
	}, nil
}

// handleDownload serves a generated XML file from the output directory.
// The filename is reduced to its base name so the handler cannot be
// walked out of the output directory.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(chi.URLParam(r, "filename"))
	if filename == "." || filename == "/" || !strings.HasSuffix(filename, ".xml") {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "download name must be an XML file"})
		return
	}

	path := filepath.Join(s.cfg.OutputDir, filename)
	if _, err := os.Stat(path); err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Message: fmt.Sprintf("file %s not found", filename)})
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

// handleStatus returns the tracked state of one conversion job.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := s.store.Get(jobID)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Message: fmt.Sprintf("job %s not found", jobID)})
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("cannot encode response")
	}
}
