package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackrx-cloud/docqa/internal/config"
	logpkg "github.com/hackrx-cloud/docqa/internal/logger"
	"github.com/hackrx-cloud/docqa/internal/metrics"
	"github.com/hackrx-cloud/docqa/internal/pdf"
	chiTransport "github.com/hackrx-cloud/docqa/internal/transport/chi"
	"github.com/hackrx-cloud/docqa/internal/transport/fetch"
	openaiCompletion "github.com/hackrx-cloud/docqa/internal/transport/openai"
	chunkeruc "github.com/hackrx-cloud/docqa/internal/usecase/chunker"
	healthuc "github.com/hackrx-cloud/docqa/internal/usecase/health"
	qauc "github.com/hackrx-cloud/docqa/internal/usecase/qa"
	retrieveruc "github.com/hackrx-cloud/docqa/internal/usecase/retriever"
	"github.com/hackrx-cloud/docqa/internal/version"
)

func main() {
	// Local development keeps credentials in a .env file.
	_ = godotenv.Load()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docqa API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("model", cfg.Completion.Model),
	)

	// Register completion metrics explicitly (no init())
	metrics.RegisterCompletionMetrics()

	// Completion client — disabled when no credentials are present.
	var completer *openaiCompletion.Completer
	apiKeys := config.CompletionAPIKeys()
	if len(apiKeys) > 0 {
		completer, err = openaiCompletion.NewCompleter(&openaiCompletion.Config{
			APIKeys:    apiKeys,
			BaseURL:    cfg.Completion.BaseURL,
			Model:      cfg.Completion.Model,
			MaxRetries: cfg.Completion.MaxRetries,
			Timeout:    time.Duration(cfg.Completion.TimeoutSec) * time.Second,
			Logger:     logger,
		})
		if err != nil {
			logger.Fatal("Failed to create completion client", zap.Error(err))
		}
		logger.Info("Completion client created",
			zap.String("model", cfg.Completion.Model),
			zap.Int("key_pool", completer.PoolSize()),
		)
	} else {
		logger.Warn("No completion API keys configured, AI answering disabled")
	}

	chunker, err := chunkeruc.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		logger.Fatal("Failed to create chunker", zap.Error(err))
	}

	// Pass nil interface (not typed nil pointer!) if the completer is
	// not configured. Go gotcha: (*Completer)(nil) wrapped in the
	// interface != nil.
	var qaCompleter qauc.Completer
	var healthCompleter healthuc.CompletionChecker
	if completer != nil {
		qaCompleter = completer
		healthCompleter = completer
	}

	qaSvc := qauc.New(
		pdf.NewExtractor(logger),
		chunker,
		retrieveruc.New(),
		qaCompleter,
		logger,
	).
		WithTopK(cfg.Ingest.TopK).
		WithMaxAnswerTokens(cfg.Completion.MaxAnswerTokens)

	downloader := fetch.NewClient(
		time.Duration(cfg.Ingest.DownloadTimeoutSec)*time.Second,
		cfg.Ingest.MaxDocumentBytes,
		logger,
	)

	healthSvc := healthuc.New(healthCompleter)

	server := chiTransport.NewServer(downloader, qaSvc, healthSvc)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.Tokens))
	r.Use(metrics.Middleware())

	r.Get("/", server.Root)
	r.Get("/health", server.HealthCheck)
	r.Get("/metrics", server.Metrics)
	r.Post("/hackrx/run", server.RunQuestions)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
