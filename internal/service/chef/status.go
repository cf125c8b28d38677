package chef

import (
	"context"

	"github.com/mediacloud/sous-chef-kitchen/internal/platform/engine"
)

// SystemStatus reports readiness of the kitchen's backend collaborators.
type SystemStatus struct {
	ConnectionReady bool `json:"connection_ready"`
	KitchenAPIReady bool `json:"kitchen_api_ready"`
	EngineReady     bool `json:"engine_ready"`
	WorkPoolReady   bool `json:"work_pool_ready"`
	WorkersReady    bool `json:"workers_ready"`
	MaxUserRuns     int  `json:"max_user_runs"`
}

func (s SystemStatus) Ready() bool {
	return s.ConnectionReady && s.KitchenAPIReady && s.EngineReady && s.WorkPoolReady && s.WorkersReady
}

// Status checks the engine, the configured work pool, and its workers. A
// request that reaches this code proves the API itself is up, so those two
// flags are set unconditionally.
func (s *Service) Status(ctx context.Context) SystemStatus {
	status := SystemStatus{
		ConnectionReady: true,
		KitchenAPIReady: true,
		MaxUserRuns:     s.cfg.MaxUserRuns,
	}

	if err := s.engine.Hello(ctx); err != nil {
		s.logger.Warn("engine hello failed", "error", err)
		return status
	}
	status.EngineReady = true

	pool, err := s.engine.WorkPool(ctx, s.cfg.WorkPool)
	if err != nil {
		s.logger.Warn("work pool lookup failed", "work_pool", s.cfg.WorkPool, "error", err)
	} else {
		status.WorkPoolReady = pool.Status == engine.WorkPoolReady
	}

	workers, err := s.engine.Workers(ctx, s.cfg.WorkPool)
	if err != nil {
		s.logger.Warn("worker listing failed", "work_pool", s.cfg.WorkPool, "error", err)
		return status
	}
	for _, w := range workers {
		if w.Status == engine.WorkerOnline {
			status.WorkersReady = true
			break
		}
	}
	return status
}
