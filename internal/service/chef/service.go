package chef

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/engine"
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
)

const (
	DefaultDeployment  = "kitchen-base"
	DefaultWorkPool    = "bly"
	DefaultMaxUserRuns = 1
)

// DefaultBaseTags identifies every run this system creates.
func DefaultBaseTags() []string { return []string{"kitchen"} }

type Config struct {
	Deployment  string
	WorkPool    string
	MaxUserRuns int
	BaseTags    []string
}

// Service is the run orchestration core: admission control, dispatch,
// queries, and lifecycle transitions, all expressed against the engine port.
// It holds no local run state.
type Service struct {
	engine  engine.API
	recipes *recipe.Registry
	logger  *slog.Logger
	cfg     Config
}

func New(engineAPI engine.API, recipes *recipe.Registry, logger *slog.Logger, cfg Config) *Service {
	if engineAPI == nil || recipes == nil || logger == nil {
		return nil
	}
	if cfg.Deployment == "" {
		cfg.Deployment = DefaultDeployment
	}
	if cfg.WorkPool == "" {
		cfg.WorkPool = DefaultWorkPool
	}
	if cfg.MaxUserRuns <= 0 {
		cfg.MaxUserRuns = DefaultMaxUserRuns
	}
	if len(cfg.BaseTags) == 0 {
		cfg.BaseTags = DefaultBaseTags()
	}
	return &Service{
		engine:  engineAPI,
		recipes: recipes,
		logger:  logger,
		cfg:     cfg,
	}
}

func (s *Service) BaseTags() []string { return append([]string(nil), s.cfg.BaseTags...) }

func (s *Service) MaxUserRuns() int { return s.cfg.MaxUserRuns }

// StartOrder carries everything needed to dispatch one recipe run.
type StartOrder struct {
	Recipe             string
	Tags               []string
	Parameters         domain.Params
	TagSlug            string
	Email              string
	FullTextAuthorized bool
	Admin              bool
}

// Start validates and dispatches a recipe run. Order matters: registry
// lookup, admin gate, parameter validation, then admission: a rejected
// parameter set must never count against quota or create a run. The
// admission check and the run creation are two separate engine round-trips
// with no lock between them, so two concurrent starts can both pass the
// quota; the quota is advisory, not a hard guarantee.
func (s *Service) Start(ctx context.Context, order StartOrder) (domain.Run, error) {
	meta, ok := s.recipes.Get(order.Recipe)
	if !ok {
		return domain.Run{}, &domain.NotFoundError{Resource: "recipe", ID: order.Recipe}
	}
	if meta.AdminOnly && !order.Admin {
		return domain.Run{}, fmt.Errorf("recipe %q is restricted to admin users: %w", order.Recipe, domain.ErrForbidden)
	}

	params, err := recipe.ValidateParams(meta, order.Parameters, order.Email)
	if err != nil {
		return domain.Run{}, err
	}

	if err := s.admit(ctx, order.TagSlug); err != nil {
		return domain.Run{}, err
	}

	tags := domain.MergeTags(s.cfg.BaseTags, []string{order.Recipe}, order.Tags, []string{order.TagSlug})

	deployment, err := s.engine.FindDeployment(ctx, s.cfg.Deployment)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return domain.Run{}, &domain.EngineUnavailableError{
				Op: fmt.Sprintf("deployment %q is not registered with the engine", s.cfg.Deployment),
			}
		}
		return domain.Run{}, err
	}

	payload := domain.Params{
		"recipe_name":                 order.Recipe,
		"tags":                        tags,
		"parameters":                  params,
		"return_restricted_artifacts": order.FullTextAuthorized,
	}
	run, err := s.engine.CreateRunFromDeployment(ctx, deployment.ID, engine.CreateRun{
		Parameters: payload,
		Tags:       tags,
	})
	if err != nil {
		return domain.Run{}, err
	}

	s.logger.Info("recipe run dispatched",
		"recipe", order.Recipe,
		"run_id", run.ID,
		"tag_slug", order.TagSlug,
	)
	return run, nil
}
