package middleware

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"levelup-marketplace/internal/storage"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

type formFile struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/umkm/create", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serveMultipart(t *testing.T, req *http.Request, limit int64, fn func(r *http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	handler := MultipartMiddleware(limit, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(r)
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestFormUploadAcceptsImagesAndPDF(t *testing.T) {
	req := multipartRequest(t, map[string]string{"nama_umkm": "Kopi Kenangan"}, map[string]formFile{
		"foto":            {"toko.PNG", pngHeader},
		"business_permit": {"izin.pdf", pdfHeader},
	})

	var photo, permit *storage.Upload
	var photoErr, permitErr error
	var name string
	w := serveMultipart(t, req, 1<<20, func(r *http.Request) {
		name = r.FormValue("nama_umkm")
		photo, photoErr = FormUpload(r, "foto", false)
		permit, permitErr = FormUpload(r, "business_permit", true)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Kopi Kenangan", name)
	require.NoError(t, photoErr)
	require.NoError(t, permitErr)
	assert.Equal(t, "image/png", photo.ContentType)
	assert.Equal(t, "application/pdf", permit.ContentType)
	assert.Equal(t, int64(len(pdfHeader)), permit.Size)

	body, err := io.ReadAll(photo.Body)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, body)
}

func TestFormUploadRejectsDisguisedFiles(t *testing.T) {
	req := multipartRequest(t, nil, map[string]formFile{
		"foto": {"script.png", []byte("#!/bin/sh\necho hi\n")},
	})

	var err error
	serveMultipart(t, req, 1<<20, func(r *http.Request) {
		_, err = FormUpload(r, "foto", false)
	})
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
	assert.True(t, IsUploadError(err))
}

func TestFormUploadRejectsMismatchedExtension(t *testing.T) {
	req := multipartRequest(t, nil, map[string]formFile{
		"foto": {"toko.gif", pngHeader},
	})

	var err error
	serveMultipart(t, req, 1<<20, func(r *http.Request) {
		_, err = FormUpload(r, "foto", false)
	})
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestFormUploadMissingFile(t *testing.T) {
	req := multipartRequest(t, map[string]string{"full_name": "Budi"}, nil)

	var optional *storage.Upload
	var optionalErr, requiredErr error
	serveMultipart(t, req, 1<<20, func(r *http.Request) {
		optional, optionalErr = FormUpload(r, "foto", false)
		_, requiredErr = FormUpload(r, "id_card", true)
	})
	assert.Nil(t, optional)
	assert.NoError(t, optionalErr)
	assert.ErrorIs(t, requiredErr, ErrMissingFile)
}

func TestMultipartMiddlewareRejectsOversizedBodies(t *testing.T) {
	const limit = 1024
	req := multipartRequest(t, nil, map[string]formFile{
		"foto": {"big.png", append(pngHeader, make([]byte, limit*MaxFilesPerRequest+multipartFormOverhead)...)},
	})

	called := false
	w := serveMultipart(t, req, limit, func(r *http.Request) { called = true })
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, called)
}

func TestFormUploadRejectsOversizedFile(t *testing.T) {
	req := multipartRequest(t, nil, map[string]formFile{
		"foto": {"big.png", append(pngHeader, make([]byte, 4096)...)},
	})

	var err error
	w := serveMultipart(t, req, 1024, func(r *http.Request) {
		_, err = FormUpload(r, "foto", false)
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Contains(t, err.Error(), "foto")
	assert.True(t, IsUploadError(err))
}

func TestMultipartMiddlewareLimitsEachFile(t *testing.T) {
	const limit = 5 << 20
	document := append(append([]byte{}, pngHeader...), make([]byte, 3<<20)...)
	req := multipartRequest(t, map[string]string{"full_name": "Siti Aminah"}, map[string]formFile{
		"id_card":         {"ktp.png", document},
		"business_permit": {"nib.png", document},
	})

	var idCard, permit *storage.Upload
	var idErr, permitErr error
	w := serveMultipart(t, req, limit, func(r *http.Request) {
		idCard, idErr = FormUpload(r, "id_card", true)
		permit, permitErr = FormUpload(r, "business_permit", true)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, idErr)
	require.NoError(t, permitErr)
	assert.Equal(t, int64(len(document)), idCard.Size)
	assert.Equal(t, int64(len(document)), permit.Size)
}

func TestMultipartMiddlewareIgnoresJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/order/create", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	called := false
	w := serveMultipart(t, req, 10, func(r *http.Request) { called = true })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}
