// cmd/worker-manager/main.go
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

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"voice-assistant/internal/app"
	"voice-assistant/internal/common/camunda"
	"voice-assistant/internal/common/config"
	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/observability"

	ad "voice-assistant/internal/workers/dialog/advance-dialog"
	pt "voice-assistant/internal/workers/nlu/parse-transcript"
	ct "voice-assistant/internal/workers/voice/converse-turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}
	if err := config.ValidateForWorkers(cfg); err != nil {
		logger.New("info", "console").Fatal("worker config invalid", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{"broker": cfg.Camunda.BrokerAddress})

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe Client (retries transient failures) ---
	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("zeebe client connected", nil)

	components, err := app.Build(ctx, cfg, log, obs)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer components.Close()

	// --- Register Workers ---
	client := zeebe.GetClient()
	var workers []worker.JobWorker

	start := func(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
		if jw := camunda.StartWorker(client, taskType, wcfg, handler, obs, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	if config.IsWorkerEnabled(cfg, pt.TaskType) {
		wcfg := config.GetWorkerConfigWithTimeout(cfg, pt.TaskType, pt.LoadConfig().Timeout)
		handler := pt.NewHandler(&pt.Config{Timeout: config.GetDuration(wcfg.Timeout)}, components.Engine, log)
		start(pt.TaskType, wcfg, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, ad.TaskType) {
		wcfg := config.GetWorkerConfigWithTimeout(cfg, ad.TaskType, ad.LoadConfig().Timeout)
		handler := ad.NewHandler(&ad.Config{Timeout: config.GetDuration(wcfg.Timeout)}, components.Machine, log)
		start(ad.TaskType, wcfg, handler.Handle)
	}

	if config.IsWorkerEnabled(cfg, ct.TaskType) {
		wcfg := config.GetWorkerConfigWithTimeout(cfg, ct.TaskType, ct.LoadConfig().Timeout)
		handler := ct.NewHandler(&ct.Config{Timeout: config.GetDuration(wcfg.Timeout)}, components.Orchestrator, log)
		start(ct.TaskType, wcfg, handler.Handle)
	}

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failures := map[string]string{}
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			failures["zeebe"] = err.Error()
		}
		for _, c := range components.Checks {
			if err := c.Probe(checkCtx); err != nil {
				failures[c.Name] = err.Error()
			}
		}
		if len(failures) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "not ready", "failures": failures})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Camunda.HealthPort),
		Handler: mux,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": healthServer.Addr})
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping workers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error stopping health server", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("error closing Zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped gracefully", nil)
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
