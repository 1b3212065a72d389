package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/segment"
)

// Response headers describing a partial conversion.
const (
	HeaderSkippedChunks   = "X-Docxflow-Skipped-Chunks"
	HeaderSkippedSections = "X-Docxflow-Skipped-Sections"
	HeaderSections        = "X-Docxflow-Sections"
)

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	res, err := s.converter.Convert(r.Context(), conversion.Request{
		Source:     data,
		SourceName: filename,
		PageSpec:   r.FormValue("pages"),
	}, nil)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Document)))
	w.Header().Set(HeaderSections, strconv.Itoa(res.Sections))
	w.Header().Set(HeaderSkippedChunks, strconv.Itoa(len(res.SkippedChunks())))
	w.Header().Set(HeaderSkippedSections, strconv.Itoa(len(res.Report.Skipped)))
	if _, err := w.Write(res.Document); err != nil {
		s.log.Warn("failed to write document", "filename", res.Filename, "error", err)
	}
}

// statusFor maps conversion errors to HTTP status codes.
func statusFor(err error) int {
	var segErr *segment.SegmentationError
	switch {
	case errors.Is(err, conversion.ErrSelectionEmpty), errors.As(err, &segErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed.pdf"
	}
	return name
}
