package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Backend names
const (
	BackendOpenAI = "openai"
	BackendLorem  = "lorem"
)

// Reconcile modes
const (
	// ReconcileAuto cancels live runs unconditionally before every submission.
	ReconcileAuto = "auto"
	// ReconcileManual refuses submission while live runs exist until the user unblocks.
	ReconcileManual = "manual"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	LogDir      string

	// Assistant backend
	Backend       string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	AssistantID   string
	ThreadID      string

	// Run lifecycle
	ReconcileMode          string
	HistoryLimit           int
	RunPollInterval        time.Duration
	RunMaxWait             time.Duration
	ReconcilePollInterval  time.Duration
	ReconcileSettleTimeout time.Duration

	// Optional persistence and auth
	DatabaseURL string
	TablePrefix string
	AuthJWKSURL string

	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogDir:      getEnv("LOG_DIR", ""),

		Backend:       getEnv("ASSISTANT_BACKEND", BackendOpenAI),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		AssistantID:   getEnv("ASSISTANT_ID", ""),
		ThreadID:      getEnv("THREAD_ID", ""),

		ReconcileMode:          getEnv("RECONCILE_MODE", ReconcileAuto),
		HistoryLimit:           getEnvInt("HISTORY_LIMIT", DefaultHistoryLimit),
		RunPollInterval:        getEnvDuration("RUN_POLL_INTERVAL", DefaultRunPollInterval),
		RunMaxWait:             getEnvDuration("RUN_MAX_WAIT", DefaultRunMaxWait),
		ReconcilePollInterval:  getEnvDuration("RECONCILE_POLL_INTERVAL", DefaultReconcilePollInterval),
		ReconcileSettleTimeout: getEnvDuration("RECONCILE_SETTLE_TIMEOUT", DefaultReconcileSettleTimeout),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),
		AuthJWKSURL: getEnv("AUTH_JWKS_URL", ""),

		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Validate checks everything the process cannot start without.
// requireThread is false for callers that can obtain a thread ID elsewhere (the CLI state file).
func (c *Config) Validate(requireThread bool) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendOpenAI, BackendLorem)),
		validation.Field(&c.OpenAIAPIKey,
			validation.When(c.Backend == BackendOpenAI, validation.Required.Error("OPENAI_API_KEY is required")),
		),
		validation.Field(&c.AssistantID, validation.Required.Error("ASSISTANT_ID is required")),
		validation.Field(&c.ThreadID,
			validation.When(requireThread, validation.Required.Error("THREAD_ID is required")),
		),
		validation.Field(&c.ReconcileMode, validation.In(ReconcileAuto, ReconcileManual)),
		validation.Field(&c.HistoryLimit, validation.Required, validation.Min(1), validation.Max(MaxHistoryLimit)),
		validation.Field(&c.RunPollInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RunMaxWait, validation.By(atLeast(c.RunPollInterval))),
		validation.Field(&c.ReconcilePollInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.ReconcileSettleTimeout, validation.By(atLeast(c.ReconcilePollInterval))),
		validation.Field(&c.Environment,
			validation.When(c.Backend == BackendLorem, validation.In("dev", "test").Error("lorem backend is only allowed in dev/test")),
		),
	)
}

// LeaseTTL bounds how long one turn may hold a thread.
func (c *Config) LeaseTTL() time.Duration {
	return c.RunMaxWait + c.ReconcileSettleTimeout + 30*time.Second
}

func atLeast(min time.Duration) validation.RuleFunc {
	return func(value interface{}) error {
		d, _ := value.(time.Duration)
		if d < min {
			return errors.New("must not be shorter than its poll interval")
		}
		return nil
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go duration strings ("750ms", "5m").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
