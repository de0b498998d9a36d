package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"threadkeeper/internal/auth"
	"threadkeeper/internal/backend"
	"threadkeeper/internal/config"
	"threadkeeper/internal/handler"
	"threadkeeper/internal/middleware"
	"threadkeeper/internal/repository"
	serviceAssistant "threadkeeper/internal/service/assistant"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(true); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLog, err := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"backend", cfg.Backend,
		"thread_id", cfg.ThreadID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	assistantBackend, err := backend.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create assistant backend: %v", err)
	}

	stores, err := repository.Setup(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}
	defer stores.Close()

	var verifier auth.TokenVerifier
	if cfg.AuthJWKSURL != "" {
		jwks, err := auth.NewJWKSVerifier(ctx, cfg.AuthJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwks.Close()
		verifier = jwks
	}

	services := serviceAssistant.SetupServices(assistantBackend, cfg, stores.Locks, stores.Bindings, logger)
	go services.Sessions.StartCleanup(ctx)

	chatHandler := handler.NewChatHandler(services.Chat, services.Sessions, logger)
	fileHandler := handler.NewFileHandler(services.Files, logger)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	api := http.NewServeMux()

	api.HandleFunc("GET /api/session", chatHandler.GetSession)
	api.HandleFunc("GET /api/history", chatHandler.GetHistory)
	api.HandleFunc("POST /api/history/refresh", chatHandler.RefreshHistory)
	api.HandleFunc("POST /api/turns", chatHandler.SendTurn)
	api.HandleFunc("POST /api/runs/unblock", chatHandler.Unblock)
	api.HandleFunc("POST /api/thread/reset", chatHandler.ResetThread)

	api.HandleFunc("POST /api/files", fileHandler.UploadFile)
	api.HandleFunc("GET /api/files", fileHandler.ListFiles)
	api.HandleFunc("DELETE /api/files/{id}", fileHandler.DeleteFile)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("/api/", middleware.Session(verifier, logger)(api))

	// Order: CORS → Recovery → Session → Routes
	var h http.Handler = mux
	h = middleware.Recovery(logger)(h)

	// CORS - outermost so pre-flight requests never reach the session check
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.SessionHeader},
		ExposedHeaders:   []string{middleware.SessionHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     h,
		ReadTimeout: 15 * time.Second,
		// a turn blocks until its run resolves, bounded by RUN_MAX_WAIT
		WriteTimeout: cfg.LeaseTTL(),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
