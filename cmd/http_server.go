package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/reimbursement-management/internal/application"
	"github.com/frahmantamala/reimbursement-management/internal/auth"
	"github.com/frahmantamala/reimbursement-management/internal/category"
	"github.com/frahmantamala/reimbursement-management/internal/metrics"
	"github.com/frahmantamala/reimbursement-management/internal/payment"
	"github.com/frahmantamala/reimbursement-management/internal/transport"
	"github.com/frahmantamala/reimbursement-management/internal/transport/rest"
	"github.com/frahmantamala/reimbursement-management/internal/transport/swagger"
	"github.com/frahmantamala/reimbursement-management/internal/user"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	deps, err := initializeDependencies(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router, err := setupRoutes(deps)
	if err != nil {
		slog.Error("Failed to set up routes", "error", err)
		return
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	base := transport.NewBaseHandler(deps.Logger)

	handlers := rest.Handlers{
		Health:      rest.NewHealthHandler(deps.DB.DB, deps.healthComponents()),
		Auth:        auth.NewHandler(base, deps.Auth),
		User:        user.NewHandler(base, deps.Users),
		Category:    category.NewHandler(base, deps.Categories),
		Application: application.NewHandler(base, deps.Applications),
		Payment:     payment.NewHandler(base, deps.Payments),
	}

	if cfg.Observability.Metrics.Enabled {
		handlers.Metrics = metrics.Handler()
	}

	if path := cfg.Server.OpenAPISpecPath; path != "" {
		// the document must parse before it is served
		if _, err := swagger.LoadSpec(context.Background(), path); err != nil {
			return nil, fmt.Errorf("failed to load openapi spec: %w", err)
		}
		handlers.OpenAPIPath = path
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, handlers, deps.Logger)
	return router, nil
}
