package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"levelup-marketplace/internal/config"
	"levelup-marketplace/internal/database"
	"levelup-marketplace/internal/events"
	"levelup-marketplace/internal/llm"
	"levelup-marketplace/internal/logger"
	docstore "levelup-marketplace/internal/mongo"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/server"
	"levelup-marketplace/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

// newImageStore picks the upload backend named in the config. The returned
// file source is non-nil only for GridFS, which serves files itself.
func newImageStore(ctx context.Context, cfg config.StorageConfig, db *mongo.Database) (storage.ImageStore, *storage.GridFSStore, error) {
	switch cfg.Backend {
	case "gridfs":
		store := storage.NewGridFSStore(db, cfg.PublicURL)
		return store, store, nil
	case "s3":
		store, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicURL)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case "none", "":
		return storage.NewDisabledStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newPublisher(cfg config.KafkaConfig, log *zap.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info("Kafka brokers not configured, events are discarded")
		return events.NewNopPublisher()
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic, log)
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(logger.Config{
		Env:     cfg.Server.Env,
		Level:   cfg.Server.LogLevel,
		Service: "levelup-marketplace",
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting marketplace API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	// Initialize database
	dbService := database.New(cfg.Database)
	db := dbService.DB()

	// Check database health
	health := dbService.Health()
	log.Info("Database health check", zap.Any("health", health))

	// Run migrations
	if err := database.RunMigrations(ctx, db, cfg.Server.MigrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	// Document store for chat history and GridFS images
	mongoClient, err := docstore.Connect(ctx, cfg.Mongo.URI, log)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	mongoDB := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureChatLogIndexes(ctx, mongoDB); err != nil {
		log.Fatal("Failed to create chat log indexes", zap.Error(err))
	}

	images, gridFS, err := newImageStore(ctx, cfg.Storage, mongoDB)
	if err != nil {
		log.Fatal("Failed to initialize image storage", zap.Error(err))
	}
	log.Info("Image storage ready", zap.String("backend", cfg.Storage.Backend))

	completer, err := llm.NewClient(llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	if cfg.LLM.APIKey == "" {
		log.Warn("LLM_API_KEY is empty, the chatbot will answer with a fallback message")
	}
	log.Info("LLM client ready", zap.String("provider", completer.Name()), zap.String("model", completer.Model()))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	deps := server.Dependencies{
		Database:  dbService,
		Mongo:     mongoClient,
		MongoDB:   mongoDB,
		Redis:     redisClient,
		Images:    images,
		Completer: completer,
		Publisher: newPublisher(cfg.Kafka, log),
	}
	if gridFS != nil {
		deps.Files = gridFS
	}

	// Create server
	srv := server.NewServer(cfg, log, deps)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}
