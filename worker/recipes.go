package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
	"github.com/mediacloud/sous-chef-kitchen/internal/service/serving"
)

// builtinExecutables are the recipe bodies compiled into this worker. A book
// entry with no matching executable here can still be started through the
// kitchen, but this worker will fail it on claim.
var builtinExecutables = map[string]recipe.Executable{
	"smoke-test": runSmokeTest,
	"echo":       runEcho,
}

func bindBuiltinRecipes(registry *recipe.Registry, logger *slog.Logger) {
	for name, fn := range builtinExecutables {
		if err := registry.Bind(name, fn); err != nil {
			logger.Warn("executable not bound", "recipe", name, "error", err)
		}
	}
}

// runSmokeTest exercises the whole publish path, including the restricted
// filter, without touching any external data source.
func runSmokeTest(ctx context.Context, params domain.Params) (any, error) {
	started := time.Now().UTC()
	return serving.Output{
		"summary": {Data: []map[string]any{{
			"checked_at": started.Format(time.RFC3339),
			"status":     "ok",
		}}},
		"full-text-sample": {
			Data:       []map[string]any{{"text": "restricted sample row"}},
			Restricted: true,
		},
	}, nil
}

// runEcho mirrors its parameters back as a single-row table.
func runEcho(ctx context.Context, params domain.Params) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("nothing to echo")
	}
	row := make(map[string]any, len(params))
	for key, value := range params {
		row[key] = value
	}
	return []map[string]any{row}, nil
}
