package serving

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
)

func TestNormalizeOutputPassthrough(t *testing.T) {
	out := Output{"stories": {Data: []map[string]any{{"id": 1}}}}
	if got := Normalize(out, recipe.Meta{}); !reflect.DeepEqual(got, out) {
		t.Fatalf("Output must pass through unchanged, got %v", got)
	}
}

func TestNormalizeMappingUsesRestrictedFields(t *testing.T) {
	meta := recipe.Meta{RestrictedFields: map[string]bool{"full_text": true}}
	got := Normalize(map[string]any{
		"stories":   []map[string]any{{"id": 1}},
		"full_text": []map[string]any{{"text": "..."}},
	}, meta)

	if got["full_text"].Restricted != true {
		t.Fatalf("full_text must be marked restricted: %+v", got["full_text"])
	}
	if got["stories"].Restricted {
		t.Fatalf("stories must not be restricted: %+v", got["stories"])
	}
}

func TestNormalizeMappingIgnoresInlineFlags(t *testing.T) {
	// A plain mapping value shaped like an entry is still wrapped whole;
	// restriction comes from the recipe book, never the payload.
	inline := map[string]any{"data": "secret", "restricted": true}
	got := Normalize(map[string]any{"full_text": inline}, recipe.Meta{})

	entry := got["full_text"]
	if entry.Restricted {
		t.Fatalf("payload must not restrict its own entries: %+v", entry)
	}
	if !reflect.DeepEqual(entry.Data, inline) {
		t.Fatalf("value must be wrapped whole, got %v", entry.Data)
	}
}

func TestNormalizeScalarWrapsAsResult(t *testing.T) {
	got := Normalize(42, recipe.Meta{})
	if len(got) != 1 || got["result"].Data != 42 || got["result"].Restricted {
		t.Fatalf("scalar must wrap as unrestricted result, got %v", got)
	}
}

func TestFilterRestricted(t *testing.T) {
	out := Output{
		"stories":   {Data: "public"},
		"full_text": {Data: "secret", Restricted: true},
	}

	filtered := FilterRestricted(out, false)
	if _, ok := filtered["full_text"]; ok {
		t.Fatalf("restricted entry must be dropped: %v", filtered)
	}
	if _, ok := filtered["stories"]; !ok {
		t.Fatalf("unrestricted entry must survive: %v", filtered)
	}

	granted := FilterRestricted(out, true)
	if len(granted) != 2 {
		t.Fatalf("full-text grant must keep everything: %v", granted)
	}
}

func TestClassifyShapes(t *testing.T) {
	rows := classify([]map[string]any{{"a": 1}, {"a": 2}}).rows()
	if len(rows) != 2 {
		t.Fatalf("row slice must keep its rows, got %v", rows)
	}

	rows = classify(map[string]any{"count": 10}).rows()
	if len(rows) != 1 || rows[0]["count"] != 10 {
		t.Fatalf("mapping must become a one-row table, got %v", rows)
	}

	rows = classify("done").rows()
	if len(rows) != 1 || rows[0]["value"] != "done" {
		t.Fatalf("scalar must become a value row, got %v", rows)
	}

	rows = classify([]any{map[string]any{"a": 1}, "loose"}).rows()
	if len(rows) != 2 || rows[1]["value"] != "loose" {
		t.Fatalf("mixed slice must wrap loose items, got %v", rows)
	}
}

type fakeWriter struct {
	artifacts []domain.ArtifactEntry
	failKeys  map[string]bool
}

func (f *fakeWriter) CreateTableArtifact(ctx context.Context, artifact domain.ArtifactEntry) error {
	if f.failKeys[artifact.Key] {
		return errors.New("artifact store rejected the table")
	}
	f.artifacts = append(f.artifacts, artifact)
	return nil
}

type fakeTabular struct{ kind string }

func (f fakeTabular) ArtifactKind() string    { return f.kind }
func (f fakeTabular) Table() []map[string]any { return []map[string]any{{"side": true}} }

func testPublisher(t *testing.T, writer *fakeWriter) *Publisher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	publisher := NewPublisher(writer, nil, logger)
	if publisher == nil {
		t.Fatalf("NewPublisher() returned nil")
	}
	return publisher
}

func TestPublishCreatesArtifactsPerEntry(t *testing.T) {
	writer := &fakeWriter{}
	publisher := testPublisher(t, writer)
	runID := uuid.New()

	publisher.Publish(context.Background(), runID, "brave-otter", Output{
		"Story Count": {Data: map[string]any{"count": 12}},
	})

	if len(writer.artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(writer.artifacts))
	}
	artifact := writer.artifacts[0]
	if artifact.Key != "brave-otter-story-count" {
		t.Fatalf("artifact key = %q", artifact.Key)
	}
	if artifact.RunID != runID {
		t.Fatalf("artifact must carry the run id")
	}
	if len(artifact.Table) != 1 || artifact.Table[0]["count"] != 12 {
		t.Fatalf("artifact table = %v", artifact.Table)
	}
}

func TestPublishPairEmitsSideArtifact(t *testing.T) {
	writer := &fakeWriter{}
	publisher := testPublisher(t, writer)

	publisher.Publish(context.Background(), uuid.New(), "run", Output{
		"sample": {Data: Pair{
			Result: map[string]any{"total": 3},
			Side:   fakeTabular{kind: "csv preview"},
		}},
	})

	if len(writer.artifacts) != 2 {
		t.Fatalf("expected result and side artifacts, got %d", len(writer.artifacts))
	}
	if writer.artifacts[0].Key != "run-sample-artifact" {
		t.Fatalf("side artifact key = %q", writer.artifacts[0].Key)
	}
	if writer.artifacts[1].Key != "run-sample" {
		t.Fatalf("result artifact key = %q", writer.artifacts[1].Key)
	}
}

func TestPublishFailureSkipsEntryOnly(t *testing.T) {
	writer := &fakeWriter{failKeys: map[string]bool{"run-bad": true}}
	publisher := testPublisher(t, writer)

	publisher.Publish(context.Background(), uuid.New(), "run", Output{
		"bad":  {Data: "will fail"},
		"good": {Data: "will land"},
	})

	if len(writer.artifacts) != 1 || writer.artifacts[0].Key != "run-good" {
		t.Fatalf("one failed entry must not block the rest: %v", writer.artifacts)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"Story Count":     "story-count",
		"full_text/dump":  "full-text-dump",
		"already-clean":   "already-clean",
		"Weird   spacing": "weird-spacing",
	}
	for in, want := range cases {
		if got := sanitizeKey(in); got != want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}
