package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"levelup-marketplace/internal/storage"
)

var (
	ErrMissingFile         = errors.New("file is required")
	ErrUnsupportedFileType = errors.New("only jpeg, jpg, png, gif and pdf files are allowed")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
)

var allowedUploadTypes = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/gif":       {".gif"},
	"application/pdf": {".pdf"},
}

const (
	// MaxFilesPerRequest is how many full-size files a body has room for
	MaxFilesPerRequest = 3
	// multipartFormOverhead covers text fields and part headers
	multipartFormOverhead int64 = 1 << 20
)

type uploadLimitKey struct{}

// MultipartMiddleware parses multipart forms before the handler runs. Each
// file may hold up to maxFileBytes; the body as a whole is capped at room for
// MaxFilesPerRequest such files plus the text fields. JSON requests pass
// through untouched.
func MultipartMiddleware(maxFileBytes int64, logger *zap.Logger) func(http.Handler) http.Handler {
	bodyLimit := maxFileBytes*MaxFilesPerRequest + multipartFormOverhead
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
			if err := r.ParseMultipartForm(maxFileBytes); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					RespondWithError(w, http.StatusRequestEntityTooLarge, ErrFileTooLarge.Error())
					return
				}
				logger.Debug("Failed to parse multipart form", zap.Error(err))
				RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
				return
			}
			defer func() {
				_ = r.MultipartForm.RemoveAll()
			}()

			ctx := context.WithValue(r.Context(), uploadLimitKey{}, maxFileBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FormUpload reads one file field of a parsed multipart form. A missing field
// yields (nil, nil) unless required is set.
func FormUpload(r *http.Request, field string, required bool) (*storage.Upload, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		if required {
			return nil, fmt.Errorf("%s: %w", field, ErrMissingFile)
		}
		return nil, nil
	}
	limit, _ := r.Context().Value(uploadLimitKey{}).(int64)
	upload, err := readUpload(r.MultipartForm.File[field][0], limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return upload, nil
}

func readUpload(header *multipart.FileHeader, limit int64) (*storage.Upload, error) {
	if limit > 0 && header.Size > limit {
		return nil, ErrFileTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	contentType, err := detectUploadType(header.Filename, data)
	if err != nil {
		return nil, err
	}

	return &storage.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, nil
}

// detectUploadType sniffs the content and checks it against the filename
func detectUploadType(filename string, data []byte) (string, error) {
	detected := mimetype.Detect(data)
	for mime, exts := range allowedUploadTypes {
		if !detected.Is(mime) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(filename))
		for _, allowed := range exts {
			if ext == allowed {
				return mime, nil
			}
		}
	}
	return "", ErrUnsupportedFileType
}

// IsUploadError reports whether err came from reading a client upload
func IsUploadError(err error) bool {
	return errors.Is(err, ErrMissingFile) || errors.Is(err, ErrUnsupportedFileType) || errors.Is(err, ErrFileTooLarge)
}
