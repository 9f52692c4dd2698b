// Package crank is the scheduled permissionless caller. On every tick it
// triggers each enabled yield strategy, so hooks fire without a user
// happening to call in. Governance proposals are left alone: their expiry
// is resolved on the next vote.
package crank

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/roach88/neobank/internal/hooks"
	"github.com/roach88/neobank/internal/metrics"
	"github.com/roach88/neobank/internal/model"
)

// JobHooks is the job label used in logs and metrics.
const JobHooks = "hooks"

// Report summarizes one pass.
type Report struct {
	Triggered []hooks.TriggerResult `json:"triggered"`
	// Skipped counts strategies whose condition was not met or that were
	// refused for another domain reason.
	Skipped  int `json:"skipped"`
	Failures int `json:"failures"`
}

// Crank runs passes on a cron schedule.
type Crank struct {
	hooks   *hooks.Engine
	metrics *metrics.Metrics
	logger  *slog.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

// New creates a Crank.
func New(h *hooks.Engine, m *metrics.Metrics, logger *slog.Logger) *Crank {
	return &Crank{
		hooks:   h,
		metrics: m,
		logger:  logger,
	}
}

// RunOnce performs a single pass. Domain rejections of individual
// strategies are expected and only counted; storage failures abort.
func (c *Crank) RunOnce(ctx context.Context) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rep := Report{Triggered: []hooks.TriggerResult{}}

	strategies, err := c.hooks.Strategies(ctx)
	if err != nil {
		return rep, fmt.Errorf("list strategies: %w", err)
	}
	for _, s := range strategies {
		if !s.Enabled {
			continue
		}
		res, err := c.hooks.Trigger(ctx, s.Agent)
		switch {
		case err == nil:
			rep.Triggered = append(rep.Triggered, res)
		case model.CodeOf(err) == model.CodeBankPaused:
			c.logger.Info("crank stopped: bank paused")
			return rep, nil
		case model.CodeOf(err) != "":
			c.logger.Debug("hook not triggered", "agent", s.Agent.String(), "code", string(model.CodeOf(err)))
			rep.Skipped++
		default:
			c.logger.Error("hook trigger failed", "agent", s.Agent.String(), "error", err)
			rep.Failures++
		}
	}
	c.metrics.CrankRun(JobHooks)

	c.logger.Info("crank pass",
		"triggered", len(rep.Triggered),
		"skipped", rep.Skipped,
		"failures", rep.Failures,
	)
	return rep, nil
}

// Start schedules RunOnce on spec (robfig cron syntax, descriptors
// allowed) and starts the scheduler.
func (c *Crank) Start(ctx context.Context, spec string) error {
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(spec, func() {
		if _, err := c.RunOnce(ctx); err != nil {
			c.logger.Error("crank pass failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register crank: %w", err)
	}
	c.cron.Start()
	c.logger.Info("crank started", "schedule", spec)
	return nil
}

// Stop stops the scheduler and waits for a running pass to finish.
func (c *Crank) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.logger.Info("crank stopped")
}

// MetricsServer returns an HTTP server exposing gatherer on /metrics.
func MetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
