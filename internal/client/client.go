// Package client is the Go client for the kitchen HTTP API. kitchenctl is
// built on it; other Go programs can use it directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/service/chef"
)

const emailHeader = "Mediacloud-Email"

// APIError is a non-2xx answer from the kitchen, carrying the decoded error
// envelope when the body held one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("kitchen: %s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("kitchen: unexpected status %d", e.StatusCode)
}

type Config struct {
	BaseURL string
	Email   string
	APIKey  string
	Timeout time.Duration
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("kitchen base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid kitchen base URL: %w", err)
	}
	return nil
}

type Client struct {
	baseURL string
	email   string
	apiKey  string
	httpc   *http.Client
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		email:   cfg.Email,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

// ValidateAuth reports the caller's authorization status. A 403 still carries
// a status body; it is returned alongside a nil error so callers can show
// which grant is missing.
func (c *Client) ValidateAuth(ctx context.Context) (domain.AuthStatus, error) {
	var status domain.AuthStatus
	err := c.do(ctx, http.MethodGet, "/auth/validate", nil, nil, &status)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		return status, nil
	}
	return status, err
}

// SystemStatus reports readiness of the engine, work pool, and workers. The
// kitchen answers 503 when any component is down; the body is still decoded.
func (c *Client) SystemStatus(ctx context.Context) (chef.SystemStatus, error) {
	var status chef.SystemStatus
	err := c.do(ctx, http.MethodGet, "/system/status", nil, nil, &status)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return status, nil
	}
	return status, err
}

// RecipeInfo is a catalogue row from /recipes/list.
type RecipeInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
}

func (c *Client) Recipes(ctx context.Context) ([]RecipeInfo, error) {
	var out []RecipeInfo
	if err := c.do(ctx, http.MethodGet, "/recipes/list", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RecipeSchema(ctx context.Context, name string) (map[string]string, error) {
	var out map[string]string
	query := url.Values{"recipe_name": {name}}
	if err := c.do(ctx, http.MethodGet, "/recipes/schema", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type startRequest struct {
	RecipeName string        `json:"recipe_name"`
	Tags       []string      `json:"tags,omitempty"`
	Parameters domain.Params `json:"parameters,omitempty"`
}

func (c *Client) StartRecipe(ctx context.Context, name string, params domain.Params, tags []string) (domain.Run, error) {
	var run domain.Run
	body := startRequest{RecipeName: name, Tags: tags, Parameters: params}
	if err := c.do(ctx, http.MethodPost, "/recipe/start", nil, body, &run); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (c *Client) AllRuns(ctx context.Context, parentOnly bool) ([]domain.Run, error) {
	query := url.Values{"parent_only": {fmt.Sprintf("%t", parentOnly)}}
	return c.listRuns(ctx, "/runs/all", query)
}

func (c *Client) ActiveRuns(ctx context.Context) ([]domain.Run, error) {
	return c.listRuns(ctx, "/runs/active", nil)
}

func (c *Client) PausedRuns(ctx context.Context) ([]domain.Run, error) {
	return c.listRuns(ctx, "/runs/paused", nil)
}

func (c *Client) listRuns(ctx context.Context, path string, query url.Values) ([]domain.Run, error) {
	var runs []domain.Run
	if err := c.do(ctx, http.MethodGet, path, query, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Client) Run(ctx context.Context, runID string) (domain.Run, error) {
	var run domain.Run
	if err := c.do(ctx, http.MethodGet, "/run/"+url.PathEscape(runID), nil, nil, &run); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (c *Client) RunArtifacts(ctx context.Context, runID string) ([]domain.ArtifactEntry, error) {
	var artifacts []domain.ArtifactEntry
	path := "/run/" + url.PathEscape(runID) + "/artifacts"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (c *Client) Cancel(ctx context.Context, runID string) error {
	return c.lifecycle(ctx, "/runs/cancel", runID)
}

func (c *Client) Pause(ctx context.Context, runID string) error {
	return c.lifecycle(ctx, "/runs/pause", runID)
}

func (c *Client) Resume(ctx context.Context, runID string) error {
	return c.lifecycle(ctx, "/runs/resume", runID)
}

func (c *Client) lifecycle(ctx context.Context, path, runID string) error {
	query := url.Values{"run_id": {runID}}
	return c.do(ctx, http.MethodPost, path, query, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.email != "" {
		req.Header.Set(emailHeader, c.email)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("kitchen request %s %s: %w", method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Error
			apiErr.Message = envelope.Message
		}
		if out != nil {
			_ = json.Unmarshal(raw, out)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode kitchen response: %w", err)
	}
	return nil
}
