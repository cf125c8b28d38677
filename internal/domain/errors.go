package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// The kitchen reports failures through a closed set of error variants. The
// HTTP boundary maps each variant to a status code exactly once; nothing in
// this package retries.

// ErrForbidden marks requests whose credentials are valid but whose grants do
// not cover the operation (admin-only recipes, for one).
var ErrForbidden = errors.New("forbidden")

// NotFoundError covers unknown recipes, unknown runs, and runs owned by
// someone else. Foreign and missing runs produce the same error so that run
// existence is never leaked across users.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError carries per-field failures plus the expected schema so that
// callers can render field-level diagnostics rather than a single string.
type ValidationError struct {
	Recipe string
	Fields map[string]string
	Schema map[string]string
}

func (e *ValidationError) Error() string {
	paths := make([]string, 0, len(e.Fields))
	for path := range e.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		parts = append(parts, fmt.Sprintf("%s: %s", path, e.Fields[path]))
	}
	if e.Recipe == "" {
		return fmt.Sprintf("parameter validation failed: %s", strings.Join(parts, "; "))
	}
	return fmt.Sprintf("parameter validation failed for %q: %s", e.Recipe, strings.Join(parts, "; "))
}

// CapacityExceededError reports a denied admission check. Safe to retry once
// an active run finishes.
type CapacityExceededError struct {
	Active int
	Quota  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("cannot start a new recipe run: %d/%d allocated runs active", e.Active, e.Quota)
}

// EngineUnavailableError marks connectivity, configuration, and health
// failures against the remote engine, distinct from user errors.
type EngineUnavailableError struct {
	Op  string
	Err error
}

func (e *EngineUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("engine unavailable: %s", e.Op)
	}
	return fmt.Sprintf("engine unavailable: %s: %v", e.Op, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// ArtifactPublishError is always non-fatal: the publisher logs it, skips the
// entry, and keeps going.
type ArtifactPublishError struct {
	Key string
	Err error
}

func (e *ArtifactPublishError) Error() string {
	return fmt.Sprintf("publish artifact %q: %v", e.Key, e.Err)
}

func (e *ArtifactPublishError) Unwrap() error { return e.Err }
