package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"threadkeeper/internal/backend"
	"threadkeeper/internal/config"
	"threadkeeper/internal/domain"
	svc "threadkeeper/internal/domain/services/assistant"
	"threadkeeper/internal/repository"
	"threadkeeper/internal/repository/filestore"
	serviceAssistant "threadkeeper/internal/service/assistant"
	"threadkeeper/internal/session"
)

// app is everything one command invocation needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  svc.Backend
	services *serviceAssistant.Services
	session  *session.Session
	stores   *repository.Stores
}

func (a *app) Close() {
	a.stores.Close()
}

// setup loads configuration, resolves the thread for the session key and
// builds the services.
func setup(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(false); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	b, err := backend.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	state := filestore.NewStateFile(stateFile)
	threadID, err := resolveThread(ctx, cfg, b, state, logger)
	if err != nil {
		return nil, err
	}
	cfg.ThreadID = threadID

	stores, err := repository.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// the state file, not the database, is the CLI's binding store
	services := serviceAssistant.SetupServices(b, cfg, stores.Locks, state, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  b,
		services: services,
		session:  services.Sessions.GetOrCreate(ctx, sessionKey),
		stores:   stores,
	}, nil
}

// resolveThread prefers the state file, then THREAD_ID, then a new thread.
// Whatever is chosen is written back to the state file.
func resolveThread(ctx context.Context, cfg *config.Config, b svc.Backend, state *filestore.StateFile, logger *slog.Logger) (string, error) {
	threadID, err := state.Get(ctx, sessionKey)
	if err == nil {
		return threadID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	threadID = cfg.ThreadID
	if threadID == "" {
		thread, err := b.CreateThread(ctx)
		if err != nil {
			return "", fmt.Errorf("create thread: %w", err)
		}
		threadID = thread.ID
		logger.Info("created thread", "thread_id", threadID)
	}

	if err := state.Put(ctx, sessionKey, threadID); err != nil {
		return "", err
	}
	return threadID, nil
}
