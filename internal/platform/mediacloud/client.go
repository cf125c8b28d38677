// Package mediacloud is the identity port: profile lookups against the Media
// Cloud search API, keyed by a user's API key.
package mediacloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUserNotFound is the sentinel for the API's "User Not Found" payload.
var ErrUserNotFound = errors.New("mediacloud: user not found")

// Profile is the subset of the Media Cloud user profile the kitchen reads.
type Profile struct {
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

// API is implemented by the real client and by test fakes.
type API interface {
	UserProfile(ctx context.Context, apiKey string) (Profile, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("mediacloud base url is required")
	}
	return nil
}

type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

type profileResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

// UserProfile looks up the profile bound to an API key. The "User Not Found"
// sentinel payload comes back as ErrUserNotFound; everything else unexpected
// is a plain error for the caller's fail-closed handling.
func (c *Client) UserProfile(ctx context.Context, apiKey string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/profile", nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("mediacloud profile lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return Profile{}, ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("mediacloud profile lookup: unexpected status %d", resp.StatusCode)
	}

	var body profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Profile{}, fmt.Errorf("mediacloud profile decode: %w", err)
	}
	if body.Message == "User Not Found" {
		return Profile{}, ErrUserNotFound
	}
	return Profile{Email: body.Email, IsStaff: body.IsStaff}, nil
}
