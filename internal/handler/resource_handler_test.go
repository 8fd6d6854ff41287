package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/models"
)

func multipartUpload(t *testing.T, title, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("title", title))
	require.NoError(t, writer.WriteField("subject", "Physics"))
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestResourceUpload(t *testing.T) {
	router, deps := newTestAPI(t)

	body, contentType := multipartUpload(t, "Notes", "notes.txt", []byte("ohm's law"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources/files", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, deps.resources.uploaded)
	assert.Equal(t, "Notes", deps.resources.uploaded.Title)
	assert.Equal(t, "notes.txt", deps.resources.uploaded.FileName)
	require.NotNil(t, deps.resources.uploaded.Subject)
	assert.Equal(t, "Physics", *deps.resources.uploaded.Subject)
	assert.Equal(t, []byte("ohm's law"), deps.resources.uploaded.Content)
	assert.Equal(t, int64(9), deps.resources.uploaded.Size)
}

func TestResourceUploadTooLarge(t *testing.T) {
	router, deps := newTestAPI(t)

	body, contentType := multipartUpload(t, "Big", "big.bin", bytes.Repeat([]byte("x"), 64))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resources/files", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, deps.resources.uploaded)
}

func TestResourceDownloadByToken(t *testing.T) {
	router, deps := newTestAPI(t)

	path := filepath.Join(t.TempDir(), "slides.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	name, mime := "slides.pdf", "application/pdf"
	deps.resources.file = file
	deps.resources.resource = &models.Resource{ID: "res-1", Kind: models.ResourceKindFile, FileName: &name, MimeType: &mime}

	w := doJSON(router, http.MethodGet, "/api/v1/downloads/good", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "slides.pdf")

	w = doJSON(router, http.MethodGet, "/api/v1/downloads/bad", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResourceDownloadURL(t *testing.T) {
	router, _ := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/resources/res-1/download-url", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "http://localhost/api/v1/downloads/token", data["url"])
}
