package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{APIURL: server.URL, APIKey: "engine-key"})
	if err != nil {
		t.Fatalf("NewClient() err=%v", err)
	}
	return client, server
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected config error for empty url")
	}
}

func TestListRunsFilterBody(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/flow_runs/filter" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer engine-key" {
			t.Fatalf("missing bearer credential, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode filter body: %v", err)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}))

	_, err := client.ListRuns(context.Background(), RunFilter{
		TagsAll:  []string{"kitchen", "user-paige-1a2b3c4d"},
		StateAny: []domain.RunState{domain.StateRunning, domain.StateScheduled},
	})
	if err != nil {
		t.Fatalf("ListRuns() err=%v", err)
	}

	flowRuns, ok := captured["flow_runs"].(map[string]any)
	if !ok {
		t.Fatalf("filter body missing flow_runs: %v", captured)
	}
	tags, ok := flowRuns["tags"].(map[string]any)
	if !ok || tags["all_"] == nil {
		t.Fatalf("tags filter must be an all-of match: %v", flowRuns["tags"])
	}
	state, ok := flowRuns["state"].(map[string]any)
	if !ok {
		t.Fatalf("state filter missing: %v", flowRuns)
	}
	stateType, ok := state["type"].(map[string]any)
	if !ok || stateType["any_"] == nil {
		t.Fatalf("state filter must be an any-of match: %v", state)
	}
}

func TestListRunsDecodesWireShape(t *testing.T) {
	runID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"id":         runID,
			"name":       "brave-otter",
			"state_name": "Running",
			"state_type": "RUNNING",
			"tags":       []string{"kitchen"},
		}})
	}))

	runs, err := client.ListRuns(context.Background(), RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns() err=%v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	if runs[0].ID != runID || runs[0].State != domain.StateRunning {
		t.Fatalf("unexpected run %+v", runs[0])
	}
}

func TestGetRunNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetRun(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorIsEngineUnavailable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := client.Hello(context.Background())
	var unavailable *domain.EngineUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected EngineUnavailableError, got %v", err)
	}
}

func TestConnectionErrorIsEngineUnavailable(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	err := client.Hello(context.Background())
	var unavailable *domain.EngineUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected EngineUnavailableError, got %v", err)
	}
}

func TestFindDeploymentEmptyResult(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{})
	}))

	_, err := client.FindDeployment(context.Background(), "kitchen-base")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty filter result, got %v", err)
	}
}

func TestSetRunStateDecodesAbortReason(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ABORT",
			"details": map[string]any{"reason": "already terminal"},
		})
	}))

	result, err := client.SetRunState(context.Background(), uuid.New(), domain.StateCancelling)
	if err != nil {
		t.Fatalf("SetRunState() err=%v", err)
	}
	if result.Accepted() || result.Reason != "already terminal" {
		t.Fatalf("unexpected state result %+v", result)
	}
}

func TestCreateTableArtifactValidates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("invalid artifact must not reach the engine")
	}))

	err := client.CreateTableArtifact(context.Background(), domain.ArtifactEntry{})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}
