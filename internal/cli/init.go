// Package cli provides common CLI initialization utilities.
// This package consolidates the initialization shared by cmd/kharcha and
// cmd/kharcha-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"kharcha/internal/backend"
	"kharcha/internal/config"
	"kharcha/internal/currency"
	"kharcha/internal/inference"
	"kharcha/internal/log"
)

// ErrInferenceDisabled is returned by the placeholder inferrer used when no
// GEMINI_API_KEY is configured.
var ErrInferenceDisabled = errors.New("inference disabled: GEMINI_API_KEY is not set")

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads .env, reads the environment and validates the result.
// The logger is returned even when validation fails so the caller can
// report the problem.
func LoadConfig() (*config.Config, *log.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// OpenBackend creates the ledger store selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// LoadRates returns the conversion table: RATES_FILE when set, otherwise the
// built-in table for the configured canonical currency.
func LoadRates(cfg *config.Config, logger *log.Logger) (*currency.Table, error) {
	canonical := strings.ToUpper(strings.TrimSpace(cfg.CanonicalCurrency))

	if cfg.RatesFile != "" {
		table, err := currency.LoadFile(cfg.RatesFile)
		if err != nil {
			return nil, err
		}
		if table.CanonicalCode() != canonical {
			logger.Warn("Rates file canonical currency differs from CANONICAL_CURRENCY, using the file",
				"file", table.CanonicalCode(), "configured", canonical)
		}
		logger.Info("Loaded currency rates", "path", cfg.RatesFile, "currencies", len(table.Codes()))
		return table, nil
	}

	if canonical == currency.Canonical {
		return currency.Default(), nil
	}
	logger.Warn("No built-in rates for canonical currency, amounts will not be converted", "canonical", canonical)
	return currency.New(canonical, nil)
}

// NewInferrer returns a Gemini client when an API key is configured. Without
// one it returns an inferrer that always fails, so read-only commands still
// work. The returned close function is never nil.
func NewInferrer(ctx context.Context, cfg *config.Config, logger *log.Logger) (inference.Inferrer, func() error, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, submissions and reviews are disabled")
		disabled := inference.Func(func(context.Context, string) (string, error) {
			return "", ErrInferenceDisabled
		})
		return disabled, func() error { return nil }, nil
	}

	g, err := inference.NewGemini(ctx, inference.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.InferenceTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return g, g.Close, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
