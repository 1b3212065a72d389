package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/extraction"
	"github.com/Lllllllleong/docxflow/internal/pdftest"
	"github.com/Lllllllleong/docxflow/internal/render"
	"github.com/Lllllllleong/docxflow/internal/segment"
)

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()
	s := extraction.StructurerFunc(func(_ context.Context, chunk segment.Chunk) ([]byte, error) {
		return []byte(`{"sections":[{"type":"paragraph","text":"pages ` + chunk.PageLabel() + `"}]}`), nil
	})
	return NewServer(conversion.New(s), nil, Config{APIKey: apiKey})
}

func uploadRequest(t *testing.T, filename string, data []byte, pages string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	if pages != "" {
		require.NoError(t, mw.WriteField("pages", pages))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, "secret").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestConvertReturnsDocument(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, "").ServeHTTP(rec, uploadRequest(t, "report.pdf", pdftest.Numbered(12), "1-5, 10"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, render.ContentType, rec.Header().Get("Content-Type"))

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "report_p1-5_10.docx", params["filename"])

	assert.Equal(t, "2", rec.Header().Get(HeaderSections))
	assert.Equal(t, "0", rec.Header().Get(HeaderSkippedChunks))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestConvertEmptySelection(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, "").ServeHTTP(rec, uploadRequest(t, "report.pdf", pdftest.Numbered(3), "8-9"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "no valid pages selected")
}

func TestConvertRejectsCorruptPDF(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, "").ServeHTTP(rec, uploadRequest(t, "broken.pdf", []byte("%PDF-1.4\nnot really"), ""))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConvertRejectsOtherFileTypes(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, "").ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("hello"), ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "unsupported file type")
}

func TestConvertRequiresFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("pages", "1"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	newTestServer(t, "").ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "secret")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, uploadRequest(t, "report.pdf", pdftest.Numbered(1), ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "report.pdf", pdftest.Numbered(1), "")
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid api key", errorMessage(t, rec))

	req = uploadRequest(t, "report.pdf", pdftest.Numbered(1), "")
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", sanitizeFilename(`C:\Users\me\report.pdf`))
	assert.Equal(t, "report.pdf", sanitizeFilename("../../report.pdf"))
	assert.Equal(t, "unnamed.pdf", sanitizeFilename(""))
}
