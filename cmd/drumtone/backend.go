package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alkime/drumtone/internal/backend"
	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/health"
	"github.com/alkime/drumtone/internal/keyring"
	"github.com/alkime/drumtone/internal/prediction"
)

// newClient builds the backend client. The token comes from the environment
// and falls back to the system keychain.
func newClient(cfg *config.Config, logger *slog.Logger) (*backend.Client, error) {
	token, err := keyring.Resolve(keyring.APIToken, cfg.APIToken)
	if err != nil {
		logger.Debug("keychain lookup failed", "error", err)
	}

	client, err := backend.New(cfg.APIURL,
		backend.WithToken(token),
		backend.WithTimeout(cfg.RequestTimeout),
		backend.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	return client, nil
}

// unconfigured stands in for the client when no backend URL is set. The
// session never submits through it because the probe reports offline.
type unconfigured struct{}

func (unconfigured) Predict(context.Context, clip.File) (prediction.Result, error) {
	return prediction.Result{}, backend.ErrNotConfigured
}

func (unconfigured) ModelInfo(context.Context) (prediction.ModelInfo, error) {
	return prediction.ModelInfo{}, backend.ErrNotConfigured
}

func (unconfigured) Notes(context.Context) (prediction.NotesCatalog, error) {
	return prediction.NotesCatalog{}, backend.ErrNotConfigured
}

// sessionBackend is the client as the session needs it. The checker is nil
// when no backend is configured.
type sessionBackend interface {
	Predict(ctx context.Context, file clip.File) (prediction.Result, error)
	ModelInfo(ctx context.Context) (prediction.ModelInfo, error)
	Notes(ctx context.Context) (prediction.NotesCatalog, error)
}

func resolveBackend(cfg *config.Config, logger *slog.Logger) (sessionBackend, health.Checker, error) {
	client, err := newClient(cfg, logger)
	if errors.Is(err, backend.ErrNotConfigured) {
		logger.Warn("no backend configured, uploads stay disabled")
		return unconfigured{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return client, client, nil
}

// checkAvailable runs one availability check, bounded by the request timeout.
func checkAvailable(ctx context.Context, cfg *config.Config, checker health.Checker, logger *slog.Logger) prediction.Availability {
	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	return health.NewProbe(checker, logger).Check(ctx)
}

func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, cfg.RequestTimeout)
}
