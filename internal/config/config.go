package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Search     SearchConfig
	Mongo      MongoConfig
	Storage    StorageConfig
	LLM        LLMConfig
	Kafka      KafkaConfig
	Categories CategoriesConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	MigrationsDir  string
	LogLevel       string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type RateLimitConfig struct {
	Enabled       bool
	Requests      int
	WindowSeconds int
}

type SearchConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
	QueryTimeout    time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

// StorageConfig selects where uploaded images go: "gridfs", "s3" or "none"
type StorageConfig struct {
	Backend     string
	S3Bucket    string
	S3Region    string
	S3PublicURL string
	PublicURL   string
	MaxUploadMB int
}

type LLMConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type CategoriesConfig struct {
	AdminOnly bool
}

func Load() *Config {
	// Export .env into the process environment as well, so libraries that
	// read it directly (the AWS credential chain) see the same values.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env into environment: %v", err)
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "*")
	viper.SetDefault("MIGRATIONS_DIR", "migrations")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("SEARCH_DEFAULT_RADIUS_KM", 5.0)
	viper.SetDefault("SEARCH_MAX_RADIUS_KM", 50.0)
	viper.SetDefault("SEARCH_QUERY_TIMEOUT", "5s")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "levelup")
	viper.SetDefault("STORAGE_BACKEND", "gridfs")
	viper.SetDefault("STORAGE_MAX_UPLOAD_MB", 5)
	viper.SetDefault("STORAGE_PUBLIC_URL", "/files")
	viper.SetDefault("S3_REGION", "ap-southeast-1")
	viper.SetDefault("LLM_PROVIDER", "groq")
	viper.SetDefault("LLM_TIMEOUT", "30s")
	viper.SetDefault("KAFKA_TOPIC", "levelup.events")
	viper.SetDefault("CATEGORY_ADMIN_ONLY", false)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("ALLOWED_ORIGINS")),
			MigrationsDir:  viper.GetString("MIGRATIONS_DIR"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			Requests:      viper.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Search: SearchConfig{
			DefaultRadiusKm: viper.GetFloat64("SEARCH_DEFAULT_RADIUS_KM"),
			MaxRadiusKm:     viper.GetFloat64("SEARCH_MAX_RADIUS_KM"),
			QueryTimeout:    viper.GetDuration("SEARCH_QUERY_TIMEOUT"),
		},
		Mongo: MongoConfig{
			URI:      viper.GetString("MONGO_URI"),
			Database: viper.GetString("MONGO_DATABASE"),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(viper.GetString("STORAGE_BACKEND")),
			S3Bucket:    viper.GetString("S3_BUCKET"),
			S3Region:    viper.GetString("S3_REGION"),
			S3PublicURL: viper.GetString("S3_PUBLIC_URL"),
			PublicURL:   viper.GetString("STORAGE_PUBLIC_URL"),
			MaxUploadMB: viper.GetInt("STORAGE_MAX_UPLOAD_MB"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(viper.GetString("LLM_PROVIDER")),
			APIKey:   viper.GetString("LLM_API_KEY"),
			BaseURL:  viper.GetString("LLM_BASE_URL"),
			Model:    viper.GetString("LLM_MODEL"),
			Timeout:  viper.GetDuration("LLM_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Categories: CategoriesConfig{
			AdminOnly: viper.GetBool("CATEGORY_ADMIN_ONLY"),
		},
	}
}

// splitList parses a comma separated setting, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
