package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
	"github.com/mediacloud/sous-chef-kitchen/internal/recipe"
	"github.com/mediacloud/sous-chef-kitchen/internal/service/chef"
)

const emailHeader = "Mediacloud-Email"

type chefService interface {
	Start(ctx context.Context, order chef.StartOrder) (domain.Run, error)
	ListRuns(ctx context.Context, tags []string, parentOnly bool) ([]domain.Run, error)
	ListActiveRuns(ctx context.Context, tags []string) ([]domain.Run, error)
	ListPausedRuns(ctx context.Context, tags []string) ([]domain.Run, error)
	GetRun(ctx context.Context, runID string) (domain.Run, error)
	RunArtifacts(ctx context.Context, runID string) ([]domain.ArtifactEntry, error)
	Cancel(ctx context.Context, runID, tagSlug string) error
	Pause(ctx context.Context, runID, tagSlug string) error
	Resume(ctx context.Context, runID, tagSlug string) error
	Status(ctx context.Context) chef.SystemStatus
}

type authResolver interface {
	Validate(ctx context.Context, email, apiKey string) domain.AuthStatus
}

type kitchenAPI struct {
	logger   *slog.Logger
	chef     chefService
	resolver authResolver
	recipes  *recipe.Registry
}

func newKitchenAPI(logger *slog.Logger, service chefService, resolver authResolver, recipes *recipe.Registry) *kitchenAPI {
	return &kitchenAPI{
		logger:   logger,
		chef:     service,
		resolver: resolver,
		recipes:  recipes,
	}
}

func (api *kitchenAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", api.handleRoot)
	mux.HandleFunc("GET /auth/validate", api.handleValidateAuth)
	mux.HandleFunc("GET /system/status", api.handleSystemStatus)

	mux.HandleFunc("GET /recipes/list", api.handleListRecipes)
	mux.HandleFunc("GET /recipes/schema", api.handleRecipeSchema)
	mux.HandleFunc("POST /recipe/start", api.handleStartRecipe)

	mux.HandleFunc("GET /runs/all", api.handleAllRuns)
	mux.HandleFunc("GET /runs/active", api.handleActiveRuns)
	mux.HandleFunc("GET /runs/paused", api.handlePausedRuns)
	mux.HandleFunc("GET /run/{run_id}", api.handleGetRun)
	mux.HandleFunc("GET /run/{run_id}/artifacts", api.handleRunArtifacts)
	mux.HandleFunc("POST /runs/cancel", api.handleCancelRun)
	mux.HandleFunc("POST /runs/pause", api.handlePauseRun)
	mux.HandleFunc("POST /runs/resume", api.handleResumeRun)
}

// authenticate derives the caller's AuthStatus from the email header and
// bearer credential. Unauthorized callers get a 403 carrying the status body,
// mirroring what /auth/validate would report.
func (api *kitchenAPI) authenticate(w http.ResponseWriter, r *http.Request) (domain.AuthStatus, string, bool) {
	email := strings.TrimSpace(r.Header.Get(emailHeader))
	apiKey := bearerToken(r)

	status := api.resolver.Validate(r.Context(), email, apiKey)
	if !status.Authorized() {
		authFailures.Inc()
		api.writeJSON(w, http.StatusForbidden, status)
		return status, email, false
	}
	return status, email, true
}

func bearerToken(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return ""
}

// scopeTags returns the tag filter for run queries: staff see every kitchen
// run, everyone else only their own.
func scopeTags(status domain.AuthStatus) []string {
	if status.MediaCloudStaff {
		return nil
	}
	return []string{status.TagSlug}
}

// scopeSlug returns the ownership slug for lifecycle calls; staff pass an
// empty slug and may act on any run.
func scopeSlug(status domain.AuthStatus) string {
	if status.MediaCloudStaff {
		return ""
	}
	return status.TagSlug
}

func (api *kitchenAPI) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (api *kitchenAPI) handleValidateAuth(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.Header.Get(emailHeader))
	status := api.resolver.Validate(r.Context(), email, bearerToken(r))
	if !status.Authorized() {
		authFailures.Inc()
		api.writeJSON(w, http.StatusForbidden, status)
		return
	}
	api.writeJSON(w, http.StatusOK, status)
}

func (api *kitchenAPI) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := api.chef.Status(r.Context())
	code := http.StatusOK
	if !status.Ready() {
		code = http.StatusServiceUnavailable
	}
	api.writeJSON(w, code, status)
}

type recipeInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

func (api *kitchenAPI) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	status, _, ok := api.authenticate(w, r)
	if !ok {
		return
	}
	metas := api.recipes.List(status.MediaCloudStaff)
	out := make([]recipeInfo, 0, len(metas))
	for _, meta := range metas {
		out = append(out, recipeInfo{
			Name:        meta.Name,
			Description: meta.Description,
			Params:      meta.Schema.FieldNames(),
		})
	}
	api.writeJSON(w, http.StatusOK, out)
}

func (api *kitchenAPI) handleRecipeSchema(w http.ResponseWriter, r *http.Request) {
	status, _, ok := api.authenticate(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("recipe_name")
	meta, found := api.recipes.Get(name)
	// Admin-only recipes are reported as missing to non-admins so their
	// existence is not leaked through the schema endpoint.
	if !found || (meta.AdminOnly && !status.MediaCloudStaff) {
		api.writeError(w, r, &domain.NotFoundError{Resource: "recipe", ID: name})
		return
	}
	api.writeJSON(w, http.StatusOK, meta.Schema.Describe())
}

type startRequest struct {
	RecipeName string        `json:"recipe_name"`
	Tags       []string      `json:"tags"`
	Parameters domain.Params `json:"parameters"`
}

func (api *kitchenAPI) handleStartRecipe(w http.ResponseWriter, r *http.Request) {
	status, email, ok := api.authenticate(w, r)
	if !ok {
		return
	}

	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, &domain.ValidationError{Fields: map[string]string{"body": err.Error()}})
		return
	}
	if req.RecipeName == "" {
		req.RecipeName = r.URL.Query().Get("recipe_name")
	}

	run, err := api.chef.Start(r.Context(), chef.StartOrder{
		Recipe:             req.RecipeName,
		Tags:               req.Tags,
		Parameters:         req.Parameters,
		TagSlug:            status.TagSlug,
		Email:              email,
		FullTextAuthorized: status.MediaCloudFullTextAuthorized,
		Admin:              status.MediaCloudStaff,
	})
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	runsStarted.Inc()
	api.writeJSON(w, http.StatusCreated, run)
}

func (api *kitchenAPI) handleAllRuns(w http.ResponseWriter, r *http.Request) {
	status, _, ok := api.authenticate(w, r)
	if !ok {
		return
	}
	parentOnly := true
	if raw := r.URL.Query().Get("parent_only"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			parentOnly = parsed
		}
	}
	runs, err := api.chef.ListRuns(r.Context(), scopeTags(status), parentOnly)
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, runs)
}

func (api *kitchenAPI) handleActiveRuns(w http.ResponseWriter, r *http.Request) {
	status, _, ok := api.authenticate(w, r)
	if !ok {
		return
	}
	runs, err := api.chef.ListActiveRuns(r.Context(), scopeTags(status))
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, runs)
}

func (api *kitchenAPI) handlePausedRuns(w http.ResponseWriter, r *http.Request) {
	status, _, ok := api.authenticate(w, r)
	if !ok {
		return
	}
	runs, err := api.chef.ListPausedRuns(r.Context(), scopeTags(status))
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, runs)
}

func (api *kitchenAPI) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := api.authenticate(w, r); !ok {
		return
	}
	run, err := api.chef.GetRun(r.Context(), r.PathValue("run_id"))
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, run)
}

func (api *kitchenAPI) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := api.authenticate(w, r); !ok {
		return
	}
	artifacts, err := api.chef.RunArtifacts(r.Context(), r.PathValue("run_id"))
	if err != nil {
		api.writeError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, artifacts)
}

func (api *kitchenAPI) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	api.handleLifecycle(w, r, api.chef.Cancel)
}

func (api *kitchenAPI) handlePauseRun(w http.ResponseWriter, r *http.Request) {
	api.handleLifecycle(w, r, api.chef.Pause)
}

func (api *kitchenAPI) handleResumeRun(w http.ResponseWriter, r *http.Request) {
	api.handleLifecycle(w, r, api.chef.Resume)
}

func (api *kitchenAPI) handleLifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	status, _, ok := api.authenticate(w, r)
	if !ok {
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		api.writeError(w, r, &domain.ValidationError{Fields: map[string]string{"run_id": "parameter required"}})
		return
	}
	if err := op(r.Context(), runID, scopeSlug(status)); err != nil {
		api.writeError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "ok": true})
}

func decodeJSON(r *http.Request, out any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (api *kitchenAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

// writeError maps the closed error taxonomy onto HTTP statuses, exactly once.
func (api *kitchenAPI) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-Id")

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		validationFailures.Inc()
		api.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":           "validation_failed",
			"fields":          validation.Fields,
			"expected_schema": validation.Schema,
			"request_id":      requestID,
		})
		return
	}

	var capacity *domain.CapacityExceededError
	if errors.As(err, &capacity) {
		admissionDenied.Inc()
		api.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      "capacity_exceeded",
			"active":     capacity.Active,
			"quota":      capacity.Quota,
			"request_id": requestID,
		})
		return
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		api.writeJSON(w, http.StatusNotFound, map[string]any{
			"error":      "not_found",
			"message":    notFound.Error(),
			"request_id": requestID,
		})
		return
	}

	if errors.Is(err, domain.ErrForbidden) {
		api.writeJSON(w, http.StatusForbidden, map[string]any{
			"error":      "forbidden",
			"request_id": requestID,
		})
		return
	}

	var unavailable *domain.EngineUnavailableError
	if errors.As(err, &unavailable) {
		api.logger.Error("engine unavailable", "request_id", requestID, "error", err)
		api.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":      "engine_unavailable",
			"request_id": requestID,
		})
		return
	}

	api.logger.Error("request failed", "request_id", requestID, "error", err)
	api.writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":      "internal_error",
		"request_id": requestID,
	})
}
