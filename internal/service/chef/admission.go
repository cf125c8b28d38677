package chef

import (
	"context"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/engine"
)

// admit counts the user's active runs against the per-user quota. The count
// is a tag-set membership query against the engine; there is no local index.
// Check-then-act: a concurrent start can slip in between this count and the
// run creation, which is an accepted bounded race.
func (s *Service) admit(ctx context.Context, tagSlug string) error {
	tags := domain.MergeTags(s.cfg.BaseTags, []string{tagSlug})
	active, err := s.engine.ListRuns(ctx, engine.RunFilter{
		TagsAll:  tags,
		StateAny: domain.ActiveStates(),
	})
	if err != nil {
		return err
	}
	if len(active) >= s.cfg.MaxUserRuns {
		return &domain.CapacityExceededError{Active: len(active), Quota: s.cfg.MaxUserRuns}
	}
	return nil
}
