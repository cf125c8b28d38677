package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

type Config struct {
	APIURL string
	APIKey string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("engine api url is required")
	}
	return nil
}

// Client is the REST implementation of the engine port. One pooled client is
// owned per process; every call borrows the shared transport for exactly the
// duration of that call.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpc:   &http.Client{Transport: newTransport()},
	}, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// flowRun is the engine's wire shape for a run.
type flowRun struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Parameters      map[string]any `json:"parameters"`
	StateName       string         `json:"state_name"`
	StateType       string         `json:"state_type"`
	Tags            []string       `json:"tags"`
	Created         time.Time      `json:"created"`
	ParentTaskRunID *uuid.UUID     `json:"parent_task_run_id"`
}

func (f flowRun) toDomain() domain.Run {
	return domain.Run{
		ID:         f.ID,
		Name:       f.Name,
		Parameters: domain.Params(f.Parameters),
		StateName:  f.StateName,
		State:      domain.NormalizeRunState(f.StateType),
		Tags:       f.Tags,
		Created:    f.Created,
		ParentRef:  f.ParentTaskRunID,
	}
}

type wireArtifact struct {
	Key         string           `json:"key"`
	Type        string           `json:"type"`
	Data        []map[string]any `json:"data"`
	Description string           `json:"description"`
	FlowRunID   uuid.UUID        `json:"flow_run_id"`
}

type anyOf[T any] struct {
	Any []T `json:"any_"`
}

type allOf[T any] struct {
	All []T `json:"all_"`
}

func (c *Client) Hello(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/hello", nil, nil)
}

func (c *Client) FindDeployment(ctx context.Context, name string) (Deployment, error) {
	body := map[string]any{
		"deployments": map[string]any{
			"name": anyOf[string]{Any: []string{name}},
		},
	}
	var deployments []struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, "/deployments/filter", body, &deployments); err != nil {
		return Deployment{}, err
	}
	if len(deployments) == 0 {
		return Deployment{}, ErrNotFound
	}
	return Deployment{ID: deployments[0].ID, Name: deployments[0].Name}, nil
}

func (c *Client) CreateRunFromDeployment(ctx context.Context, deploymentID uuid.UUID, req CreateRun) (domain.Run, error) {
	body := map[string]any{
		"parameters": req.Parameters,
		"tags":       req.Tags,
	}
	var run flowRun
	path := fmt.Sprintf("/deployments/%s/create_flow_run", deploymentID)
	if err := c.do(ctx, http.MethodPost, path, body, &run); err != nil {
		return domain.Run{}, err
	}
	return run.toDomain(), nil
}

func (c *Client) ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	runFilter := map[string]any{}
	if len(filter.TagsAll) > 0 {
		runFilter["tags"] = allOf[string]{All: filter.TagsAll}
	}
	if len(filter.StateAny) > 0 {
		states := make([]string, 0, len(filter.StateAny))
		for _, s := range filter.StateAny {
			states = append(states, string(s))
		}
		runFilter["state"] = map[string]any{
			"type": anyOf[string]{Any: states},
		}
	}
	if len(filter.IDAny) > 0 {
		runFilter["id"] = anyOf[uuid.UUID]{Any: filter.IDAny}
	}

	body := map[string]any{"flow_runs": runFilter}
	var runs []flowRun
	if err := c.do(ctx, http.MethodPost, "/flow_runs/filter", body, &runs); err != nil {
		return nil, err
	}
	out := make([]domain.Run, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) GetRun(ctx context.Context, id uuid.UUID) (domain.Run, error) {
	var run flowRun
	if err := c.do(ctx, http.MethodGet, "/flow_runs/"+id.String(), nil, &run); err != nil {
		return domain.Run{}, err
	}
	return run.toDomain(), nil
}

func (c *Client) SetRunState(ctx context.Context, id uuid.UUID, state domain.RunState) (StateResult, error) {
	body := map[string]any{
		"state": map[string]any{"type": string(state)},
	}
	var result struct {
		Status  string `json:"status"`
		Details struct {
			Reason string `json:"reason"`
		} `json:"details"`
	}
	path := fmt.Sprintf("/flow_runs/%s/set_state", id)
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return StateResult{}, err
	}
	return StateResult{Status: result.Status, Reason: result.Details.Reason}, nil
}

func (c *Client) PauseRun(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/flow_runs/%s/pause", id), map[string]any{}, nil)
}

func (c *Client) ResumeRun(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/flow_runs/%s/resume", id), map[string]any{}, nil)
}

func (c *Client) ListArtifacts(ctx context.Context, runID uuid.UUID) ([]domain.ArtifactEntry, error) {
	body := map[string]any{
		"artifacts": map[string]any{
			"flow_run_id": anyOf[uuid.UUID]{Any: []uuid.UUID{runID}},
		},
	}
	var artifacts []wireArtifact
	if err := c.do(ctx, http.MethodPost, "/artifacts/filter", body, &artifacts); err != nil {
		return nil, err
	}
	out := make([]domain.ArtifactEntry, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, domain.ArtifactEntry{
			Key:         a.Key,
			Type:        a.Type,
			Table:       a.Data,
			Description: a.Description,
			RunID:       a.FlowRunID,
		})
	}
	return out, nil
}

func (c *Client) CreateTableArtifact(ctx context.Context, artifact domain.ArtifactEntry) error {
	if err := artifact.Validate(); err != nil {
		return err
	}
	body := wireArtifact{
		Key:         artifact.Key,
		Type:        "table",
		Data:        artifact.Table,
		Description: artifact.Description,
		FlowRunID:   artifact.RunID,
	}
	return c.do(ctx, http.MethodPost, "/artifacts/", body, nil)
}

func (c *Client) WorkPool(ctx context.Context, name string) (WorkPool, error) {
	var pool struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/work_pools/"+name, nil, &pool); err != nil {
		return WorkPool{}, err
	}
	return WorkPool{Name: pool.Name, Status: pool.Status}, nil
}

func (c *Client) Workers(ctx context.Context, pool string) ([]Worker, error) {
	var workers []struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/work_pools/%s/workers/filter", pool)
	if err := c.do(ctx, http.MethodPost, path, map[string]any{}, &workers); err != nil {
		return nil, err
	}
	out := make([]Worker, 0, len(workers))
	for _, w := range workers {
		out = append(out, Worker{Name: w.Name, Status: w.Status})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &domain.EngineUnavailableError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return &domain.EngineUnavailableError{
			Op:  method + " " + path,
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode >= 400:
		return fmt.Errorf("engine %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
