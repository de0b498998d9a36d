package config

import "time"

const (
	// DefaultHistoryLimit is the recency window loaded into a fresh session.
	// History is deliberately not paginated beyond this window.
	DefaultHistoryLimit = 20

	// MaxHistoryLimit is the largest page the backend serves in one call.
	MaxHistoryLimit = 100

	// DefaultRunPollInterval is the first delay between run status checks.
	// Later checks back off exponentially up to MaxRunPollInterval.
	DefaultRunPollInterval = 1 * time.Second

	// MaxRunPollInterval caps the backoff between run status checks.
	MaxRunPollInterval = 5 * time.Second

	// DefaultRunMaxWait bounds how long a turn waits for its run.
	// Exceeding it resolves the turn as a timeout.
	DefaultRunMaxWait = 5 * time.Minute

	// DefaultReconcilePollInterval is the delay between checks of a cancelled run.
	DefaultReconcilePollInterval = 1 * time.Second

	// DefaultReconcileSettleTimeout bounds the wait for cancelled runs to reach a terminal status.
	DefaultReconcileSettleTimeout = 10 * time.Second

	// MaxTurnTextLength is the longest user message accepted.
	MaxTurnTextLength = 32768

	// MaxImagesPerTurn is the most image references one turn may carry.
	MaxImagesPerTurn = 10

	// MaxUploadBytes is the largest image accepted before normalization.
	MaxUploadBytes = 20 << 20

	// MaxDisplayNameLength bounds uploaded display names.
	MaxDisplayNameLength = 255
)
