package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voxlabs/interviewd/internal/app"
	"github.com/voxlabs/interviewd/internal/config"
	"github.com/voxlabs/interviewd/internal/server"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

// Entry point for the interview server.
// Loads configuration, wires the engine, exposes the HTTP/WebSocket surface.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("no config file found (%v), using defaults", err)
		cfg = config.Default()
	}

	logger := Logger.New(cfg.Debug)
	defer logger.Sync()
	logger.Info("Logger initialized")

	engine, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to assemble application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	dep := server.NewServerDependencies(
		engine.Registry,
		engine.WSHandler,
		engine.Transcripts,
		logger,
		cfg,
	)
	server.InitializeRoutes(router, dep)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router.Handler(),
	}
	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server exiting: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP shutdown error: %v", err)
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Engine shutdown error: %v", err)
	}
	logger.Info("Shutdown complete")
}
