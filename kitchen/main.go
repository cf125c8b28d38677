package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediacloud/sous-chef-kitchen/internal/platform/auth"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/engine"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/env"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/httpserver"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/mediacloud"
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
	"github.com/mediacloud/sous-chef-kitchen/internal/service/chef"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("SC_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("SC_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	maxUserRuns, err := env.Int("SC_MAX_USER_FLOWS", chef.DefaultMaxUserRuns)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	engineClient, err := engine.NewClient(engine.Config{
		APIURL: env.String("SC_ENGINE_API_URL", ""),
		APIKey: env.String("SC_ENGINE_API_KEY", ""),
	})
	if err != nil {
		logger.Error("invalid engine config", "error", err)
		os.Exit(2)
	}

	identity, err := mediacloud.NewClient(mediacloud.Config{
		BaseURL: env.String("SC_MEDIACLOUD_API_URL", "https://search.mediacloud.org"),
	})
	if err != nil {
		logger.Error("invalid mediacloud config", "error", err)
		os.Exit(2)
	}
	resolver := auth.NewResolver(identity, logger)

	bookPath := env.String("SC_RECIPE_BOOK", "recipes.yaml")
	registry, err := recipe.LoadBook(bookPath)
	if err != nil {
		logger.Error("recipe book load failed", "path", bookPath, "error", err)
		os.Exit(2)
	}

	service := chef.New(engineClient, registry, logger, chef.Config{
		Deployment:  env.String("SC_PREFECT_DEPLOYMENT", chef.DefaultDeployment),
		WorkPool:    env.String("SC_PREFECT_WORK_POOL", chef.DefaultWorkPool),
		MaxUserRuns: maxUserRuns,
		BaseTags:    env.List("SC_BASE_TAGS", chef.DefaultBaseTags()),
	})
	if service == nil {
		logger.Error("chef service init failed")
		os.Exit(2)
	}

	api := newKitchenAPI(logger, service, resolver, registry)
	mux := http.NewServeMux()
	api.register(mux)
	mux.HandleFunc("GET /healthz", httpserver.Healthz("kitchen"))
	mux.HandleFunc("GET /readyz", httpserver.Readyz("kitchen", map[string]func(context.Context) error{
		"engine": engineClient.Hello,
	}))
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := httpserver.Wrap(logger, "kitchen", mux)
	err = httpserver.Run(ctx, logger, httpserver.Config{
		Service:         "kitchen",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}, handler)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
}
