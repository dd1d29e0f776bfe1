package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder and minimum level
type Config struct {
	Env     string
	Level   string
	Service string
}

// New creates a structured logger writing to stdout. Production uses JSON,
// everything else a colored console encoder.
func New(cfg Config) (*zap.Logger, error) {
	return newLogger(cfg, zapcore.Lock(os.Stdout))
}

func newLogger(cfg Config, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := parseLevel(cfg)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	if cfg.Env == "production" {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}
	return logger, nil
}

func parseLevel(cfg Config) (zapcore.Level, error) {
	if cfg.Level == "" {
		if cfg.Env == "production" {
			return zapcore.InfoLevel, nil
		}
		return zapcore.DebugLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	return level, nil
}

// NewWithDefaults creates a logger from SERVER_ENV and LOG_LEVEL
func NewWithDefaults() *zap.Logger {
	env := os.Getenv("SERVER_ENV")
	if env == "" {
		env = "development"
	}

	logger, err := New(Config{Env: env, Level: os.Getenv("LOG_LEVEL"), Service: "levelup-marketplace"})
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
