package main

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/0Reliance/Maeple-sub002/internal/compare"
	"github.com/0Reliance/Maeple-sub002/internal/config"
	"github.com/0Reliance/Maeple-sub002/internal/history"
	"github.com/0Reliance/Maeple-sub002/internal/normalize"
	"github.com/0Reliance/Maeple-sub002/internal/provider"
	"github.com/0Reliance/Maeple-sub002/internal/quality"
	"github.com/0Reliance/Maeple-sub002/internal/resilience"
	"github.com/0Reliance/Maeple-sub002/internal/session"
)

// app holds the wired pipeline and its collaborators for one CLI invocation.
type app struct {
	client     *provider.Client
	adapter    *provider.Adapter
	normalizer *normalize.Normalizer
	pipeline   *session.Pipeline
	store      *history.Store
}

// buildApp wires the full capture pipeline from configuration: HTTP client
// behind a rate limiter, a per-endpoint breaker with retries, the vision
// adapter, and the sqlite journal. Breaker transitions are journaled
// alongside analyses. The caller owns Close.
func buildApp(cfg config.Config, logger *log.Logger) (*app, error) {
	client := provider.NewClient(provider.ClientConfig{
		BaseURL:           cfg.Service.BaseURL,
		APIKey:            cfg.Service.APIKey,
		TimeoutSeconds:    cfg.Service.TimeoutSeconds,
		RequestsPerSecond: cfg.Service.RequestsPerSecond,
	}, logger)

	breaker := resilience.NewBreaker("vision", resilience.BreakerConfig{
		FailureThreshold: cfg.Resilience.FailureThreshold,
		SuccessThreshold: cfg.Resilience.SuccessThreshold,
		CoolDown:         cfg.Resilience.CoolDown,
	})
	exec := resilience.NewExecutor(breaker, resilience.ExecutorConfig{
		MaxAttempts: cfg.Resilience.MaxAttempts,
		BaseDelay:   cfg.Resilience.BaseDelay,
	}, logger)
	adapter := provider.NewVisionAdapter(client, exec, logger)

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	breaker.Subscribe(func(change resilience.StateChange) {
		if err := store.RecordStateChange(context.Background(), change); err != nil {
			logger.Warn("failed to journal breaker event", "err", err)
		}
	})

	normalizer := normalize.New(logger)
	pipeline := session.NewPipeline(
		adapter,
		normalizer,
		quality.NewAssessor(quality.DefaultAssessorConfig()),
		compare.NewEngine(compare.DefaultEngineConfig()),
		store,
		session.PipelineConfig{
			Deadline:       cfg.Session.Deadline,
			FallbackOnOpen: cfg.Session.FallbackOnOpen,
		},
		logger,
	)
	return &app{
		client:     client,
		adapter:    adapter,
		normalizer: normalizer,
		pipeline:   pipeline,
		store:      store,
	}, nil
}

// Close releases the journal.
func (a *app) Close() error {
	return a.store.Close()
}
