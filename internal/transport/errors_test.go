package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"levelup-marketplace/internal/geo"
	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/service"
	"levelup-marketplace/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRespondServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("%w: price", service.ErrInvalidInput), http.StatusBadRequest},
		{"bad coordinates", geo.ErrLatitudeOutOfRange, http.StatusBadRequest},
		{"missing upload", fmt.Errorf("id_card: %w", middleware.ErrMissingFile), http.StatusBadRequest},
		{"oversized upload", fmt.Errorf("foto: %w", middleware.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{"not pending", repository.ErrVerificationNotPending, http.StatusBadRequest},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"listing missing", fmt.Errorf("load: %w", repository.ErrListingNotFound), http.StatusNotFound},
		{"no listing", service.ErrNoListing, http.StatusNotFound},
		{"duplicate email", repository.ErrUserAlreadyExists, http.StatusConflict},
		{"category referenced", repository.ErrCategoryInUse, http.StatusConflict},
		{"storage disabled", storage.ErrStorageDisabled, http.StatusServiceUnavailable},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondServiceError(w, zap.NewNop(), tt.err, "something failed")

			assert.Equal(t, tt.want, w.Code)
			envelope, data := decodeEnvelope(t, w)
			assert.Equal(t, tt.want, envelope.Status)
			assert.Equal(t, "null", string(data))
			require.NotNil(t, envelope.Error)
		})
	}
}

func TestRespondServiceErrorCategoryInUse(t *testing.T) {
	w := httptest.NewRecorder()
	respondServiceError(w, zap.NewNop(), &service.CategoryInUseError{ListingCount: 3, VerificationCount: 1}, "failed")

	require.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Error struct {
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.EqualValues(t, 3, body.Error.Details["umkmCount"])
	assert.EqualValues(t, 1, body.Error.Details["verificationCount"])
}

func TestRespondServiceErrorHidesInternalDetails(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := httptest.NewRecorder()
	respondServiceError(w, zap.New(core), errors.New("pq: password authentication failed"), "failed to list umkm")

	envelope, _ := decodeEnvelope(t, w)
	assert.Equal(t, "failed to list umkm", envelope.Message)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to list umkm", logs.All()[0].Message)
}
