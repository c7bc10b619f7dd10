// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trivium-ai/bot-platform/internal/config"
	"github.com/trivium-ai/bot-platform/internal/handler"
	"github.com/trivium-ai/bot-platform/internal/llm"
	"github.com/trivium-ai/bot-platform/internal/middleware"
	natsclient "github.com/trivium-ai/bot-platform/internal/nats"
	"github.com/trivium-ai/bot-platform/internal/service"
	"github.com/trivium-ai/bot-platform/internal/store"
	"github.com/trivium-ai/bot-platform/pkg/logger"
	"github.com/trivium-ai/bot-platform/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "bot-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open thread store
	threadStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open thread store", zap.Error(err))
		os.Exit(1)
	}
	defer threadStore.Close()

	// Connect to NATS when enabled
	var natsConn *natsclient.Client
	var events service.EventPublisher
	if cfg.NATSEnabled {
		natsConn, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsConn.Close()

		publisher := natsclient.NewPublisher(natsConn)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		events = publisher
	}

	// Register LLM providers
	registry := llm.NewRegistry()
	if ollama, err := llm.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel); err != nil {
		log.Warn("failed to create Ollama client", zap.Error(err))
	} else {
		registry.Register(ollama)
	}
	if cfg.OpenAIAPIKey != "" {
		if openAI, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel); err != nil {
			log.Warn("failed to create OpenAI client", zap.Error(err))
		} else {
			registry.Register(openAI)
		}
	}
	if cfg.AnthropicAPIKey != "" {
		if anthropicClient, err := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel); err != nil {
			log.Warn("failed to create Anthropic client", zap.Error(err))
		} else {
			registry.Register(anthropicClient)
		}
	}

	// Initialize services
	botSvc := service.NewBotService(threadStore, registry, events, log, cfg.DefaultProvider)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(threadStore, natsConn)
	botHandler := handler.NewBotHandler(botSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1/bot", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", botHandler.Chat)
		r.Post("/switch_response", botHandler.SwitchResponse)
		r.Get("/config", botHandler.Config)
		r.Get("/conversation_stats", botHandler.Stats)

		r.Route("/threads", func(r chi.Router) {
			r.Get("/", botHandler.ListThreads)
			r.Get("/{threadID}", botHandler.GetThread)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
