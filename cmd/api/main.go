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

	"github.com/timmy/videoqa/internal/api"
	"github.com/timmy/videoqa/internal/api/handler"
	"github.com/timmy/videoqa/internal/app"
	"github.com/timmy/videoqa/internal/config"
	"github.com/timmy/videoqa/internal/logger"
)

func main() {
	bootLogger := logger.NewFromEnv()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootLogger.WithError(err).Fatal("Failed to load config")
	}

	log := app.NewLogger(&cfg.Log)
	logger.SetDefault(log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer a.Close()

	admin := handler.NewAdminHandler(a.Videos, log)
	router := api.SetupRouter(api.Handlers{
		Health: handler.NewHealthHandler(a.HealthChecks()),
		Video:  handler.NewVideoHandler(a.Videos),
		QA:     handler.NewQAHandler(a.QA),
		Admin:  admin,
	}, &cfg.Server, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.WithError(err).Error("Server failed")
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	admin.Wait()

	log.Info("Server exited")
}
