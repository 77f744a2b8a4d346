package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowdeck/be-approval-workflows/internal/config"
	"github.com/flowdeck/be-approval-workflows/internal/database"
	"github.com/flowdeck/be-approval-workflows/internal/handler"
	"github.com/flowdeck/be-approval-workflows/internal/logger"
	"github.com/flowdeck/be-approval-workflows/internal/middleware"
	"github.com/flowdeck/be-approval-workflows/internal/repository"
	"github.com/flowdeck/be-approval-workflows/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Approval Workflows Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	workflowRepo := repository.NewWorkflowRepository(db)
	stepsRepo := repository.NewApprovalStepsRepository(db)
	historyRepo := repository.NewApprovalHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	workflowService := service.NewWorkflowService(
		workflowRepo, stepsRepo, historyRepo, userRepo, db, cfg.Workflow, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(workflowService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Workflow routes (all behind auth)
	api := http.NewServeMux()
	api.HandleFunc("/api/v1/workflows", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListByStatus(w, r)
		case http.MethodPost:
			httpHandler.CreateWorkflow(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	api.HandleFunc("/api/v1/workflows/get", httpHandler.GetWorkflow)
	api.HandleFunc("/api/v1/workflows/my", httpHandler.MyWorkflows)
	api.HandleFunc("/api/v1/workflows/assigned", httpHandler.AssignedWorkflows)
	api.HandleFunc("/api/v1/workflows/pending", httpHandler.PendingApprovals)
	api.HandleFunc("/api/v1/workflows/submit", httpHandler.SubmitWorkflow)
	api.HandleFunc("/api/v1/workflows/approve", httpHandler.ProcessApproval)
	api.HandleFunc("/api/v1/workflows/cancel", httpHandler.CancelWorkflow)
	api.HandleFunc("/api/v1/workflows/history", httpHandler.GetHistory)

	mux.Handle("/api/", middleware.Auth(cfg.Auth.JWTSecret)(api))

	// Apply middleware, innermost first. RequestID runs before Logger so
	// request logs carry the id.
	var h http.Handler = mux
	h = middleware.Timeout(30 * time.Second)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.RequestID(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
