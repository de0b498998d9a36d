// Package backend selects the hosted assistant implementation.
package backend

import (
	"fmt"
	"log/slog"

	"threadkeeper/internal/backend/lorem"
	"threadkeeper/internal/backend/openai"
	"threadkeeper/internal/config"
	svc "threadkeeper/internal/domain/services/assistant"
)

// New returns the backend named by cfg.Backend.
//
// Supported backends:
//   - "openai" - OpenAI Assistants API (requires OPENAI_API_KEY)
//   - "lorem" - in-memory mock for dev/test, answers with lorem ipsum
func New(cfg *config.Config, logger *slog.Logger) (svc.Backend, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return openai.NewBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger), nil

	case config.BackendLorem:
		logger.Warn("using lorem backend: replies are generated locally")
		return lorem.NewBackend(), nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
