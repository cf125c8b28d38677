package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediacloud/sous-chef-kitchen/internal/platform/engine"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/env"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/objectstore"
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
	"github.com/mediacloud/sous-chef-kitchen/internal/service/chef"
	"github.com/mediacloud/sous-chef-kitchen/internal/service/serving"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineClient, err := engine.NewClient(engine.Config{
		APIURL: env.String("SC_ENGINE_API_URL", ""),
		APIKey: env.String("SC_ENGINE_API_KEY", ""),
	})
	if err != nil {
		logger.Error("invalid engine config", "error", err)
		os.Exit(2)
	}

	bookPath := env.String("SC_RECIPE_BOOK", "recipes.yaml")
	registry, err := recipe.LoadBook(bookPath)
	if err != nil {
		logger.Error("recipe book load failed", "path", bookPath, "error", err)
		os.Exit(2)
	}
	bindBuiltinRecipes(registry, logger)

	var store *objectstore.Store
	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	if storeCfg.Enabled() {
		store, err = objectstore.NewStore(storeCfg)
		if err != nil {
			logger.Error("object store client init failed", "error", err)
			os.Exit(2)
		}
		startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = store.EnsureBucket(startupCtx, storeCfg.Region)
		cancel()
		if err != nil {
			logger.Error("object store unavailable", "error", err)
			os.Exit(1)
		}
	}

	publisher := serving.NewPublisher(engineClient, store, logger)
	if publisher == nil {
		logger.Error("publisher init failed")
		os.Exit(2)
	}

	interval, err := env.Duration("SC_WORKER_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	w := &worker{
		engine:    engineClient,
		recipes:   registry,
		publisher: publisher,
		logger:    logger,
		baseTags:  env.List("SC_BASE_TAGS", chef.DefaultBaseTags()),
		interval:  interval,
	}

	logger.Info("worker starting",
		"poll_interval", interval.String(),
		"base_tags", w.baseTags,
		"object_store", storeCfg.Enabled(),
	)
	if err := w.run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker loop failed", "error", err)
		os.Exit(1)
	}
}
