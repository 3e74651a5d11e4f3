// cmd/voice-server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"voice-assistant/internal/app"
	"voice-assistant/internal/common/config"
	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/observability"
	"voice-assistant/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	obs := observability.New("voice-server")
	defer obs.Shutdown()

	ctx := context.Background()

	components, err := app.Build(ctx, cfg, log, obs)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer components.Close()

	readiness := make([]server.ReadinessCheck, 0, len(components.Checks))
	for _, c := range components.Checks {
		readiness = append(readiness, server.ReadinessCheck{Name: c.Name, Check: c.Probe})
	}

	srv := server.New(server.Dependencies{
		Engine:        components.Engine,
		Machine:       components.Machine,
		Orchestrator:  components.Orchestrator,
		Logger:        log,
		Observability: obs,
		Readiness:     readiness,
	})
	httpServer := srv.HTTPServer(cfg.Server)

	go func() {
		log.Info("voice server listening", map[string]interface{}{
			"addr":           httpServer.Addr,
			"classifierMode": cfg.Services.NLU.Mode,
			"cacheEnabled":   cfg.Cache.Enabled,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("voice server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining requests", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	log.Info("voice server stopped", nil)
}
