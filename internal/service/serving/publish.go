package serving

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/platform/objectstore"
)

// ArtifactWriter is the slice of the engine port the publisher needs.
type ArtifactWriter interface {
	CreateTableArtifact(ctx context.Context, artifact domain.ArtifactEntry) error
}

// offloadThreshold is the row count above which a table also goes to the
// object store, leaving a reference row in the engine artifact.
const offloadThreshold = 1000

// Publisher materializes filtered output entries as engine table artifacts.
type Publisher struct {
	writer ArtifactWriter
	store  *objectstore.Store
	logger *slog.Logger
}

// NewPublisher builds a publisher. The object store is optional; pass nil to
// keep every table inline in the engine.
func NewPublisher(writer ArtifactWriter, store *objectstore.Store, logger *slog.Logger) *Publisher {
	if writer == nil || logger == nil {
		return nil
	}
	return &Publisher{writer: writer, store: store, logger: logger}
}

// Publish creates one artifact per surviving entry (two for a Pair with a
// side artifact). A failure on one entry is logged and skipped; it never
// aborts the run or the remaining entries.
func (p *Publisher) Publish(ctx context.Context, runID uuid.UUID, runName string, out Output) {
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := out[name]
		key := fmt.Sprintf("%s-%s", runName, sanitizeKey(name))

		if pair, ok := entry.Data.(Pair); ok {
			if pair.Side != nil {
				p.publishOne(ctx, domain.ArtifactEntry{
					Key:         key + "-artifact",
					Table:       pair.Side.Table(),
					Description: fmt.Sprintf("%s - %s", name, pair.Side.ArtifactKind()),
					RunID:       runID,
				})
			}
			if pair.Result != nil {
				p.publishOne(ctx, domain.ArtifactEntry{
					Key:         key,
					Table:       classify(pair.Result).rows(),
					Description: name,
					RunID:       runID,
				})
			}
			continue
		}

		p.publishOne(ctx, domain.ArtifactEntry{
			Key:         key,
			Table:       classify(entry.Data).rows(),
			Description: name,
			RunID:       runID,
		})
	}
}

func (p *Publisher) publishOne(ctx context.Context, artifact domain.ArtifactEntry) {
	if p.store != nil && len(artifact.Table) > offloadThreshold {
		objectKey := artifact.Key + ".json"
		if err := p.store.UploadTable(ctx, objectKey, artifact.Table); err != nil {
			p.logger.Warn("artifact table offload failed, keeping table inline",
				"key", artifact.Key, "error", err)
		} else {
			artifact.Table = []map[string]any{{
				"object_key": objectKey,
				"bucket":     p.store.Bucket(),
				"rows":       len(artifact.Table),
			}}
		}
	}

	if err := p.writer.CreateTableArtifact(ctx, artifact); err != nil {
		publishErr := &domain.ArtifactPublishError{Key: artifact.Key, Err: err}
		p.logger.Warn("artifact publish failed, continuing", "key", artifact.Key, "error", publishErr)
	}
}

var keyUnsafe = regexp.MustCompile(`[^0-9a-z]+`)

func sanitizeKey(name string) string {
	return keyUnsafe.ReplaceAllString(strings.ToLower(name), "-")
}
