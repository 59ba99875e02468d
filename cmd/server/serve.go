package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	httpRouter "currency-tracker/internal/adapter/http"
	"currency-tracker/internal/domain/model"
	"currency-tracker/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the ingestion scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Info("Starting currency tracker")

	a, err := buildApp(cmd.Context(), prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			log.Error("Failed to close resources", "error", err)
		}
	}()

	sched, err := scheduler.New(a.service, cfg.Scheduler.Cron, cfg.Scheduler.Location(), log)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handler := httpRouter.NewHandler(a.service, sched, log, a.metrics)
	router := httpRouter.NewRouter(handler, log, a.metrics, httpRouter.RouterConfig{
		RateLimit:          cfg.HTTP.RateLimit,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
	})
	routes, err := router.SetupRoutes()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info("Tracking currencies", "currencies", a.service.TrackedCurrencies(), "reference", model.ReferenceCurrency, "schedule", cfg.Scheduler.Cron)
	sched.Start(context.Background(), cfg.Scheduler.RunOnStart)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("HTTP server error", "error", err)
		sched.Stop()
		return err
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}
