package chef

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/engine"
)

// ListRuns fetches runs carrying the base tags plus any extra tags, newest
// first. With parentOnly, child runs (those with a parent reference) are
// dropped.
func (s *Service) ListRuns(ctx context.Context, tags []string, parentOnly bool) ([]domain.Run, error) {
	runs, err := s.engine.ListRuns(ctx, engine.RunFilter{
		TagsAll: domain.MergeTags(s.cfg.BaseTags, tags),
	})
	if err != nil {
		return nil, err
	}
	if parentOnly {
		parents := runs[:0]
		for _, run := range runs {
			if run.ParentRef == nil {
				parents = append(parents, run)
			}
		}
		runs = parents
	}
	domain.SortRunsNewestFirst(runs)
	return runs, nil
}

// ListRunsByState fetches runs matching the tag set and any of the states.
func (s *Service) ListRunsByState(ctx context.Context, tags []string, states []domain.RunState) ([]domain.Run, error) {
	return s.engine.ListRuns(ctx, engine.RunFilter{
		TagsAll:  domain.MergeTags(s.cfg.BaseTags, tags),
		StateAny: states,
	})
}

// ListActiveRuns fetches runs that count against the user's quota.
func (s *Service) ListActiveRuns(ctx context.Context, tags []string) ([]domain.Run, error) {
	return s.ListRunsByState(ctx, tags, domain.ActiveStates())
}

func (s *Service) ListPausedRuns(ctx context.Context, tags []string) ([]domain.Run, error) {
	return s.ListRunsByState(ctx, tags, []domain.RunState{domain.StatePaused})
}

// GetRun fetches a run by id. A string that does not parse as a UUID is a
// validation error, reported distinctly from "not found".
func (s *Service) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return domain.Run{}, &domain.ValidationError{
			Fields: map[string]string{"run_id": "not a valid UUID"},
		}
	}
	run, err := s.engine.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return domain.Run{}, &domain.NotFoundError{Resource: "run", ID: runID}
		}
		return domain.Run{}, err
	}
	return run, nil
}

// RunArtifacts fetches the persisted artifacts for a run.
func (s *Service) RunArtifacts(ctx context.Context, runID string) ([]domain.ArtifactEntry, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, &domain.ValidationError{
			Fields: map[string]string{"run_id": "not a valid UUID"},
		}
	}
	return s.engine.ListArtifacts(ctx, id)
}
