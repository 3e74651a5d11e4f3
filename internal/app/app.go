// Package app assembles the NLU engine, dialog machine and orchestrator from
// configuration. The voice server and the worker manager share it.
package app

import (
	"context"
	"fmt"

	"voice-assistant/internal/common/config"
	"voice-assistant/internal/common/database"
	apperrors "voice-assistant/internal/common/errors"
	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/observability"
	"voice-assistant/internal/dialog"
	"voice-assistant/internal/nlu"
	"voice-assistant/internal/orchestrator"
)

// Check is a named dependency probe for readiness endpoints.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Components are the long-lived pieces built from config.
type Components struct {
	Engine       *nlu.Engine
	Machine      *dialog.Machine
	Orchestrator *orchestrator.Orchestrator
	Checks       []Check

	redis *database.RedisClient
}

// Build wires the components described by cfg. A Redis outage at startup
// is logged, not fatal: the cache falls through to the classifier.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability) (*Components, error) {
	engine, err := nlu.NewDefaultEngine()
	if err != nil {
		return nil, apperrors.NewInvalidRuleError(err)
	}

	machine, err := buildMachine(cfg.Dialog, log)
	if err != nil {
		return nil, err
	}

	c := &Components{Engine: engine, Machine: machine}

	classifier, err := c.buildClassifier(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var prewarmer orchestrator.Prewarmer = orchestrator.NopPrewarmer{}
	if cfg.Services.Dashboard.BaseURL != "" {
		prewarmer = orchestrator.NewHTTPPrewarmer(cfg.Services.Dashboard.BaseURL, config.GetDuration(cfg.Services.Dashboard.Timeout))
	} else {
		log.Info("dashboard pre-warm disabled", map[string]interface{}{"reason": "services.dashboard.base_url not set"})
	}

	c.Orchestrator = orchestrator.New(classifier, prewarmer, log, orchestrator.WithObservability(obs))
	return c, nil
}

func buildMachine(cfg config.DialogConfig, log logger.Logger) (*dialog.Machine, error) {
	if cfg.GraphFile == "" {
		return dialog.NewDefaultMachine()
	}

	graph, err := dialog.LoadGraphFile(cfg.GraphFile)
	if err != nil {
		return nil, apperrors.NewInvalidGraphError(err)
	}
	log.Info("dialog graph loaded", map[string]interface{}{
		"path":    cfg.GraphFile,
		"initial": graph.Initial(),
	})
	return dialog.NewMachine(graph), nil
}

func (c *Components) buildClassifier(ctx context.Context, cfg *config.Config, log logger.Logger) (orchestrator.IntentClassifier, error) {
	var classifier orchestrator.IntentClassifier
	switch cfg.Services.NLU.Mode {
	case config.ClassifierModeHTTP:
		classifier = orchestrator.NewHTTPClassifier(cfg.Services.NLU.BaseURL, config.GetDuration(cfg.Services.NLU.Timeout))
	case config.ClassifierModeLocal, "":
		classifier = orchestrator.NewLocalClassifier(c.Engine)
	default:
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("unknown classifier mode %q", cfg.Services.NLU.Mode))
	}
	log.Info("intent classifier configured", map[string]interface{}{
		"mode":    cfg.Services.NLU.Mode,
		"baseUrl": cfg.Services.NLU.BaseURL,
	})

	if !cfg.Cache.Enabled {
		return classifier, nil
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return nil, apperrors.NewCacheUnavailableError(err)
	}
	if err := rdb.Ping(ctx); err != nil {
		log.Warn("classification cache unreachable at startup", map[string]interface{}{
			"address": cfg.Database.Redis.Address,
			"error":   err.Error(),
		})
	}
	if cfg.Cache.FlushOnStart {
		n, err := rdb.DeletePrefix(ctx, cfg.Cache.KeyPrefix)
		if err != nil {
			log.Warn("classification cache flush failed", map[string]interface{}{"error": err.Error()})
		} else {
			log.Info("classification cache flushed", map[string]interface{}{"keys": n, "prefix": cfg.Cache.KeyPrefix})
		}
	}
	c.redis = rdb
	c.Checks = append(c.Checks, Check{Name: "redis", Probe: rdb.Ping})

	return orchestrator.NewCachedClassifier(classifier, rdb.GetClient(), config.GetDuration(cfg.Cache.TTL), cfg.Cache.KeyPrefix, log), nil
}

// Close releases connections opened by Build.
func (c *Components) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
