package transport

import (
	"net/http"

	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RejectRequest represents the rejection payload
type RejectRequest struct {
	Reason string `json:"rejection_reason" validate:"required,max=500"`
}

// VerificationHandler handles HTTP requests for seller verification
type VerificationHandler struct {
	verificationService service.VerificationService
	logger              *zap.Logger
}

// NewVerificationHandler creates a new VerificationHandler
func NewVerificationHandler(verificationService service.VerificationService, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService, logger: logger}
}

// RegisterRoutes registers all seller verification routes
func (h *VerificationHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/seller-verification", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/request", h.Request)
		r.Get("/my-status", h.MyStatus)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Get("/pending", h.List)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}/approve", h.Approve)
			r.Patch("/{id}/reject", h.Reject)
		})
	})
}

// Request submits a seller application with its documents
func (h *VerificationHandler) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var docs service.VerificationDocuments
	var err error
	if docs.IDCard, err = middleware.FormUpload(r, "id_card", false); err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}
	if docs.BusinessPermit, err = middleware.FormUpload(r, "business_permit", false); err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}
	if docs.Photo, err = middleware.FormUpload(r, "foto", false); err != nil {
		respondServiceError(w, h.logger, err, "failed to read upload")
		return
	}

	request, err := h.verificationService.Request(r.Context(), actor.UserID, service.VerificationInput{
		FullName:     deref(formValue(r, "full_name")),
		Phone:        deref(formValue(r, "phone")),
		BusinessName: deref(formValue(r, "nama_umkm")),
		Caption:      deref(formValue(r, "caption")),
		Latitude:     deref(formValue(r, "latitude")),
		Longitude:    deref(formValue(r, "longitude")),
		Address:      deref(formValue(r, "alamat")),
		CategoryID:   deref(formValue(r, "category_id")),
	}, docs)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to submit verification request")
		return
	}

	h.logger.Info("Verification requested",
		zap.String("user_id", actor.UserID.String()),
		zap.String("verification_id", request.ID.String()),
	)
	middleware.RespondWithData(w, http.StatusCreated, "verification request submitted", request)
}

func (h *VerificationHandler) MyStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	request, err := h.verificationService.MyStatus(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get verification status")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "verification status retrieved", request)
}

// List returns requests by status, pending by default
func (h *VerificationHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := h.verificationService.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to list verification requests")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "verification requests retrieved", requests)
}

func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	request, err := h.verificationService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get verification request")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "verification request retrieved", request)
}

func (h *VerificationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	approval, err := h.verificationService.Approve(r.Context(), actor.UserID, id)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to approve verification request")
		return
	}

	h.logger.Info("Verification approved",
		zap.String("verification_id", id.String()),
		zap.String("reviewed_by", actor.UserID.String()),
	)
	middleware.RespondWithData(w, http.StatusOK, "verification approved", approval)
}

func (h *VerificationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	request, err := h.verificationService.Reject(r.Context(), actor.UserID, id, req.Reason)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to reject verification request")
		return
	}
	middleware.RespondWithData(w, http.StatusOK, "verification rejected", request)
}
