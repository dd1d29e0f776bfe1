package transport

import (
	"errors"
	"net/http"

	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/search"
	"levelup-marketplace/internal/service"
	"levelup-marketplace/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var badRequestErrors = []error{
	service.ErrInvalidInput,
	service.ErrEmptySearchTerm,
	service.ErrEmptyOrder,
	service.ErrInvalidTransition,
	service.ErrAlreadySeller,
	service.ErrMissingDocument,
	service.ErrRejectionReasonMissing,
	service.ErrEmptyMessage,
	service.ErrMessageTooLong,
	service.ErrEmptySearchText,
	repository.ErrVerificationAlreadyPending,
	repository.ErrVerificationNotPending,
}

var notFoundErrors = []error{
	repository.ErrUserNotFound,
	repository.ErrCategoryNotFound,
	repository.ErrListingNotFound,
	repository.ErrProductNotFound,
	repository.ErrOrderNotFound,
	repository.ErrVerificationNotFound,
	service.ErrNoListing,
	storage.ErrFileNotFound,
}

var conflictErrors = []error{
	repository.ErrUserAlreadyExists,
	repository.ErrCategoryAlreadyExists,
	repository.ErrCategoryInUse,
	repository.ErrProductInUse,
	repository.ErrOrderStatusConflict,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondServiceError maps a service error to its HTTP status. Anything
// unrecognised is logged and reported as fallback with a 500.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var inUse *service.CategoryInUseError
	switch {
	case errors.As(err, &inUse):
		middleware.RespondWithErrorDetails(w, http.StatusConflict, inUse.Error(), map[string]any{
			"umkmCount":         inUse.ListingCount,
			"verificationCount": inUse.VerificationCount,
		})
	case errors.Is(err, middleware.ErrFileTooLarge):
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
	case search.IsValidationError(err), middleware.IsUploadError(err), isAny(err, badRequestErrors):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		middleware.RespondWithError(w, http.StatusForbidden, err.Error())
	case isAny(err, notFoundErrors):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case isAny(err, conflictErrors):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrStorageDisabled):
		middleware.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// currentUser reads the authenticated caller, answering 401 when absent
func currentUser(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return service.Actor{}, false
	}
	role, _ := middleware.GetUserRole(r.Context())
	return service.Actor{UserID: userID, Role: role}, true
}

// pathID parses the {id} route parameter, answering 400 when malformed
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// formValue returns a pointer to a submitted form field, nil when the field
// was not sent at all
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm != nil {
		if values, ok := r.MultipartForm.Value[key]; ok && len(values) > 0 {
			return &values[0]
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return nil
	}
	if values, ok := r.PostForm[key]; ok && len(values) > 0 {
		return &values[0]
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
