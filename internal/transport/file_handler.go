package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FileSource opens stored files by id
type FileSource interface {
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// FileHandler serves uploaded images
type FileHandler struct {
	files  FileSource
	logger *zap.Logger
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(files FileSource, logger *zap.Logger) *FileHandler {
	return &FileHandler{files: files, logger: logger}
}

// RegisterRoutes registers the file route
func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/files/{id}", h.Serve)
}

// Serve streams one file with its stored content type
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.files.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to open file")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("File stream interrupted", zap.Error(err))
	}
}
