package transport

import (
	"errors"
	"net/http"

	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	FullName string `json:"fullname" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/user", func(r chi.Router) {
		// Public routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.GetProfile)
		})
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	user, err := h.userService.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to register user")
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, "user registered", user)
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Debug("Login failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		respondServiceError(w, h.logger, err, "failed to login")
		return
	}

	h.logger.Info("User logged in", zap.String("user_id", result.User.ID.String()))
	middleware.RespondWithData(w, http.StatusOK, "login successful", result)
}

// Logout revokes the caller's refresh token in the body
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	if err := h.userService.Logout(r.Context(), actor.UserID, req.RefreshToken); err != nil {
		respondServiceError(w, h.logger, err, "failed to logout")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, "logged out successfully", nil)
}

// RefreshToken handles token refresh
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	accessToken, err := h.userService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrTokenExpired):
			middleware.RespondWithError(w, http.StatusUnauthorized, "refresh token expired")
		default:
			respondServiceError(w, h.logger, err, "failed to refresh token")
		}
		return
	}

	middleware.RespondWithData(w, http.StatusOK, "token refreshed", RefreshResponse{AccessToken: accessToken})
}

// GetProfile returns the caller's account
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err, "failed to get user profile")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, "profile retrieved", user)
}
