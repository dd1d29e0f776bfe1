package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Envelope is the shape of every JSON response
type Envelope struct {
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Data    any          `json:"data"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string         `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// RespondWithData sends a successful envelope
func RespondWithData(w http.ResponseWriter, statusCode int, message string, data any) {
	writeEnvelope(w, statusCode, Envelope{
		Message: message,
		Status:  statusCode,
		Data:    data,
	})
}

// RespondWithError sends an error envelope
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends an error envelope with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]any) {
	writeEnvelope(w, statusCode, Envelope{
		Message: message,
		Status:  statusCode,
		Data:    nil,
		Error: &ErrorDetail{
			Code:      http.StatusText(statusCode),
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// RespondWithValidationErrors sends validation error response
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", map[string]any{
		"validation_errors": errors,
	})
}

func writeEnvelope(w http.ResponseWriter, statusCode int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
