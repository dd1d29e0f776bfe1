package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var standardErrorCodes = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusServiceUnavailable,
}

func TestProperty_ErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all error responses carry message, status, null data and error detail", prop.ForAll(
		func(message string, pick int) bool {
			if pick < 0 {
				pick = -pick
			}
			statusCode := standardErrorCodes[pick%len(standardErrorCodes)]

			w := httptest.NewRecorder()
			RespondWithError(w, statusCode, message)

			if w.Code != statusCode {
				return false
			}
			if w.Header().Get("Content-Type") != "application/json" {
				return false
			}

			var raw map[string]json.RawMessage
			if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
				return false
			}
			if string(raw["data"]) != "null" {
				return false
			}

			var response Envelope
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}
			if response.Message != message || response.Status != statusCode {
				return false
			}
			if response.Error == nil || response.Error.Code == "" {
				return false
			}
			if _, err := time.Parse(time.RFC3339, response.Error.Timestamp); err != nil {
				return false
			}

			return true
		},
		gen.RegexMatch("[a-zA-Z]{1,40}"),
		gen.Int(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ErrorDetailsAreIncluded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("error responses with details include them", prop.ForAll(
		func(detailKey string, detailValue string) bool {
			w := httptest.NewRecorder()
			RespondWithErrorDetails(w, http.StatusConflict, "conflict", map[string]any{detailKey: detailValue})

			var response Envelope
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}
			if response.Error == nil {
				return false
			}
			val, ok := response.Error.Details[detailKey]
			return ok && val == detailValue
		},
		gen.RegexMatch("[a-zA-Z]{1,40}"),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "email", Message: "Invalid email format"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation failed", response.Message)
	require.NotNil(t, response.Error)
	assert.Contains(t, response.Error.Details, "validation_errors")
}

func TestRespondWithData(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithData(w, http.StatusCreated, "created", map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"created","status":201,"data":{"id":"abc"}}`, w.Body.String())
}

func TestErrorHandlingMiddlewareRecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/umkm/all", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "internal server error", response.Message)
}
