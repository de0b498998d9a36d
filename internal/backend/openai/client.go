package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sethvargo/go-retry"

	"threadkeeper/internal/domain"
	services "threadkeeper/internal/domain/services/assistant"
)

// Backend implements the assistant backend against the OpenAI Assistants API.
type Backend struct {
	client openai.Client
	logger *slog.Logger
	reads  func() retry.Backoff
}

var _ services.Backend = (*Backend)(nil)

// NewBackend creates a backend for the given API key. baseURL may be empty.
//
// SDK-level retries are disabled: a resent create_message would append the
// message twice, since the API has no idempotency key. Idempotent reads are
// retried here instead.
func NewBackend(apiKey, baseURL string, logger *slog.Logger) *Backend {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Backend{
		client: openai.NewClient(opts...),
		logger: logger,
		reads: func() retry.Backoff {
			b := retry.NewExponential(250 * time.Millisecond)
			b = retry.WithCappedDuration(2*time.Second, b)
			return retry.WithMaxRetries(2, b)
		},
	}
}

// read runs an idempotent call, retrying rate limits and server errors.
func (b *Backend) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	return retry.Do(ctx, b.reads(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isTransient(err) {
			b.logger.Debug("retrying backend read", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// translateError maps SDK errors onto domain errors.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return &domain.NotFoundError{Message: fmt.Sprintf("%s: %s", op, apiErr.Message)}
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s: %s", domain.ErrValidation, op, apiErr.Message)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s: %s", domain.ErrConflict, op, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrUpstream, op, err)
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
