// Package main is the entry point for the support agents API server.
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

	"github.com/swadesai/support-agents/internal/agent"
	"github.com/swadesai/support-agents/internal/config"
	"github.com/swadesai/support-agents/internal/events"
	"github.com/swadesai/support-agents/internal/handler"
	"github.com/swadesai/support-agents/internal/llm"
	"github.com/swadesai/support-agents/internal/middleware"
	"github.com/swadesai/support-agents/internal/orchestrator"
	"github.com/swadesai/support-agents/internal/store"
	"github.com/swadesai/support-agents/pkg/logger"
	"github.com/swadesai/support-agents/pkg/tracing"
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
		tp, err := tracing.InitTracer(ctx, "support-agents", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the database and seed demo data
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	if cfg.SeedDemoData {
		if err := st.Seed(ctx); err != nil {
			log.Error("failed to seed demo data", zap.Error(err))
			os.Exit(1)
		}
	}

	// Initialize LLM client
	apiKey := cfg.AnthropicAPIKey
	if llm.Provider(cfg.Provider) == llm.ProviderOpenAI {
		apiKey = cfg.OpenAIAPIKey
	}
	llmClient, err := llm.NewClient(llm.Provider(cfg.Provider), apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Connect turn event publisher if NATS is configured
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.Connect(cfg.NATSURL, log)
		if err != nil {
			log.Warn("NATS unavailable, turn events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
		}
	}

	// Wire the agent pipeline
	registry := agent.NewRegistry(st)
	router := agent.NewRouter(llmClient, cfg.RouterModel, log)
	orch := orchestrator.New(st, llmClient, cfg.ChatModel, router, registry, publisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(st)
	chatHandler := handler.NewChatHandler(st, orch, log)
	agentsHandler := handler.NewAgentsHandler(registry)
	recordsHandler := handler.NewRecordsHandler(st, log)

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
		ExposedHeaders:   []string{"X-Correlation-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}

		r.Get("/health", healthHandler.Health)

		r.Route("/chat", func(r chi.Router) {
			r.Post("/messages", chatHandler.SendMessage)
			r.Get("/conversations", chatHandler.ListConversations)
			r.Get("/conversations/{id}", chatHandler.GetConversation)
			r.Delete("/conversations/{id}", chatHandler.DeleteConversation)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", agentsHandler.List)
			r.Get("/{type}/capabilities", agentsHandler.Capabilities)
		})

		r.Get("/users", recordsHandler.ListUsers)
		r.Get("/users/{id}", recordsHandler.GetUser)
		r.Get("/orders", recordsHandler.ListOrders)
		r.Get("/orders/{id}", recordsHandler.GetOrder)
		r.Get("/payments", recordsHandler.ListPayments)
		r.Get("/payments/{id}", recordsHandler.GetPayment)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
