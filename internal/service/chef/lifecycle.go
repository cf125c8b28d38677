package chef

import (
	"context"
	"fmt"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

// ownerTags builds the tag set a caller must prove on a run. Admin callers
// pass an empty slug, which reduces the check to the base tags and lets them
// act on any kitchen run.
func (s *Service) ownerTags(tagSlug string) []string {
	if tagSlug == "" {
		return s.BaseTags()
	}
	return domain.MergeTags(s.cfg.BaseTags, []string{tagSlug})
}

// fetchOwned loads a run and verifies ownership by tag-set containment. A
// missing run and a run owned by someone else produce the same NotFoundError
// so that existence of other users' runs is never leaked.
func (s *Service) fetchOwned(ctx context.Context, runID, tagSlug string) (domain.Run, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return domain.Run{}, err
	}
	if !run.HasTags(s.ownerTags(tagSlug)) {
		return domain.Run{}, &domain.NotFoundError{Resource: "run", ID: runID}
	}
	return run, nil
}

// Cancel requests the CANCELLING transition on an owned run. If the engine
// aborts the transition its reason is surfaced to the caller.
func (s *Service) Cancel(ctx context.Context, runID, tagSlug string) error {
	run, err := s.fetchOwned(ctx, runID, tagSlug)
	if err != nil {
		return err
	}
	result, err := s.engine.SetRunState(ctx, run.ID, domain.StateCancelling)
	if err != nil {
		return err
	}
	if !result.Accepted() {
		return fmt.Errorf("unable to cancel run %s: %s", runID, result.Reason)
	}
	s.logger.Info("run cancellation requested", "run_id", runID)
	return nil
}

// Pause pauses an owned run that is currently active.
func (s *Service) Pause(ctx context.Context, runID, tagSlug string) error {
	run, err := s.fetchOwned(ctx, runID, tagSlug)
	if err != nil {
		return err
	}
	if !run.State.Active() {
		return &domain.NotFoundError{Resource: "active run", ID: runID}
	}
	if err := s.engine.PauseRun(ctx, run.ID); err != nil {
		return err
	}
	s.logger.Info("run paused", "run_id", runID)
	return nil
}

// Resume resumes an owned run that is currently paused.
func (s *Service) Resume(ctx context.Context, runID, tagSlug string) error {
	run, err := s.fetchOwned(ctx, runID, tagSlug)
	if err != nil {
		return err
	}
	if run.State != domain.StatePaused {
		return &domain.NotFoundError{Resource: "paused run", ID: runID}
	}
	if err := s.engine.ResumeRun(ctx, run.ID); err != nil {
		return err
	}
	s.logger.Info("run resumed", "run_id", runID)
	return nil
}
