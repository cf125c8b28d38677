package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/engine"
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
	"github.com/mediacloud/sous-chef-kitchen/internal/service/serving"
)

// worker polls the engine for runs tagged to this system, claims scheduled
// runs by transitioning them to RUNNING, executes the bound recipe body, and
// publishes the filtered output as artifacts.
type worker struct {
	engine    engine.API
	recipes   *recipe.Registry
	publisher *serving.Publisher
	logger    *slog.Logger
	baseTags  []string
	interval  time.Duration
}

func (w *worker) run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.sweepCancelling(ctx)
		w.claimScheduled(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// sweepCancelling acknowledges cancellation requests. The kitchen moves runs
// to CANCELLING; a worker must confirm the transition to CANCELLED so the
// engine stops counting them.
func (w *worker) sweepCancelling(ctx context.Context) {
	runs, err := w.engine.ListRuns(ctx, engine.RunFilter{
		TagsAll:  w.baseTags,
		StateAny: []domain.RunState{domain.StateCancelling},
	})
	if err != nil {
		w.logger.Warn("cancelling sweep failed", "error", err)
		return
	}
	for _, run := range runs {
		result, err := w.engine.SetRunState(ctx, run.ID, domain.StateCancelled)
		if err != nil {
			w.logger.Warn("cancel confirmation failed", "run_id", run.ID, "error", err)
			continue
		}
		if !result.Accepted() {
			w.logger.Warn("cancel confirmation rejected", "run_id", run.ID, "reason", result.Reason)
			continue
		}
		w.logger.Info("run cancelled", "run_id", run.ID, "run", run.Name)
	}
}

// claimScheduled lists scheduled runs and races other workers by moving each
// one to RUNNING. Only the worker whose transition the engine accepts
// executes the run; everyone else skips it.
func (w *worker) claimScheduled(ctx context.Context) {
	runs, err := w.engine.ListRuns(ctx, engine.RunFilter{
		TagsAll:  w.baseTags,
		StateAny: []domain.RunState{domain.StateScheduled},
	})
	if err != nil {
		w.logger.Warn("scheduled run listing failed", "error", err)
		return
	}
	for _, run := range runs {
		if ctx.Err() != nil {
			return
		}
		result, err := w.engine.SetRunState(ctx, run.ID, domain.StateRunning)
		if err != nil {
			w.logger.Warn("run claim failed", "run_id", run.ID, "error", err)
			continue
		}
		if !result.Accepted() {
			continue
		}
		w.execute(ctx, run)
	}
}

func (w *worker) execute(ctx context.Context, run domain.Run) {
	recipeName, _ := run.Parameters["recipe_name"].(string)
	returnRestricted, _ := run.Parameters["return_restricted_artifacts"].(bool)

	params := domain.Params{}
	if raw, ok := run.Parameters["parameters"].(map[string]any); ok {
		params = domain.Params(raw)
	}

	logger := w.logger.With("run_id", run.ID, "run", run.Name, "recipe", recipeName)
	logger.Info("run claimed")

	meta, ok := w.recipes.Get(recipeName)
	if !ok {
		w.fail(ctx, logger, run, "recipe is not in this worker's book")
		return
	}
	if meta.Executable == nil {
		w.fail(ctx, logger, run, "recipe has no executable bound in this worker")
		return
	}

	raw, err := meta.Executable(ctx, params)
	if err != nil {
		w.fail(ctx, logger, run, err.Error())
		return
	}

	out := serving.FilterRestricted(serving.Normalize(raw, meta), returnRestricted)
	w.publisher.Publish(ctx, run.ID, run.Name, out)

	result, err := w.engine.SetRunState(ctx, run.ID, domain.StateCompleted)
	if err != nil {
		logger.Error("completion transition failed", "error", err)
		return
	}
	if !result.Accepted() {
		logger.Warn("completion transition rejected", "reason", result.Reason)
		return
	}
	logger.Info("run completed", "artifacts", len(out))
}

func (w *worker) fail(ctx context.Context, logger *slog.Logger, run domain.Run, reason string) {
	logger.Error("run failed", "reason", reason)
	if _, err := w.engine.SetRunState(ctx, run.ID, domain.StateFailed); err != nil {
		logger.Error("failure transition failed", "error", err)
	}
}
