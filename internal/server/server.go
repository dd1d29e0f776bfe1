package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"levelup-marketplace/internal/config"
	"levelup-marketplace/internal/database"
	"levelup-marketplace/internal/events"
	"levelup-marketplace/internal/llm"
	custommiddleware "levelup-marketplace/internal/middleware"
	docstore "levelup-marketplace/internal/mongo"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/search"
	"levelup-marketplace/internal/service"
	"levelup-marketplace/internal/storage"
	"levelup-marketplace/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Dependencies are the connections and clients opened by main
type Dependencies struct {
	Database  database.Service
	Mongo     *mongo.Client
	MongoDB   *mongo.Database
	Redis     *redis.Client
	Images    storage.ImageStore
	Files     transport.FileSource // nil unless images live in GridFS
	Completer llm.Completer
	Publisher events.Publisher
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	isDev := cfg.Server.Env != "production"

	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, isDev))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.MultipartMiddleware(int64(cfg.Storage.MaxUploadMB)<<20, logger))

	passThrough := func(next http.Handler) http.Handler { return next }
	chatLimiter := passThrough
	if cfg.RateLimit.Enabled && deps.Redis != nil {
		window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		router.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            window,
			KeyPrefix:         "ratelimit:api",
		}, logger))
		// chatbot messages get a tighter budget
		chatLimiter = custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: max(cfg.RateLimit.Requests/5, 1),
			Window:            window,
			KeyPrefix:         "ratelimit:chatbot",
		}, logger)
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]any{"database": deps.Database.Health()}
		if deps.Mongo != nil {
			health["mongo"] = docstore.Health(r.Context(), deps.Mongo)
		}
		custommiddleware.RespondWithData(w, http.StatusOK, "ok", health)
	})

	db := deps.Database.DB()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	listingRepo := repository.NewListingRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	verificationRepo := repository.NewVerificationRepository(db)
	chatLogRepo := repository.NewChatLogRepository(deps.MongoDB)

	// Initialize services
	tokens := service.NewTokenIssuer(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour,
		refreshTokenRepo,
	)
	userService := service.NewUserService(userRepo, refreshTokenRepo, tokens, logger)
	categoryService := service.NewCategoryService(categoryRepo, cfg.Categories.AdminOnly, logger)
	listingService := service.NewListingService(listingRepo, categoryRepo, productRepo, userRepo, deps.Images, logger)
	productService := service.NewProductService(productRepo, listingRepo, deps.Images, logger)
	orderService := service.NewOrderService(orderRepo, listingRepo, productRepo, deps.Publisher, logger)
	verificationService := service.NewVerificationService(verificationRepo, userRepo, categoryRepo, deps.Images, tokens, deps.Publisher, logger)
	chatbotService := service.NewChatbotService(deps.Completer, chatLogRepo, userRepo, categoryRepo, listingRepo, productRepo, logger)
	resolver := search.NewResolver(listingRepo, categoryRepo, userRepo, search.Config{
		DefaultRadiusKm: cfg.Search.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Search.MaxRadiusKm,
		QueryTimeout:    cfg.Search.QueryTimeout,
	}, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewListingHandler(listingService, resolver, logger).RegisterRoutes(router, authMiddleware)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewVerificationHandler(verificationService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewChatbotHandler(chatbotService, logger).RegisterRoutes(router, authMiddleware, chatLimiter)
	if deps.Files != nil {
		transport.NewFileHandler(deps.Files, logger).RegisterRoutes(router)
	}

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if s.deps.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.Mongo.Disconnect(ctx); err != nil {
			s.logger.Error("Failed to disconnect from mongo", zap.Error(err))
		}
	}

	if s.deps.Database != nil {
		if err := s.deps.Database.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
