package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ArtifactEntry is a tabular output object persisted in the engine's artifact
// store and associated with a completed run.
type ArtifactEntry struct {
	Key         string           `json:"key"`
	Type        string           `json:"type"`
	Table       []map[string]any `json:"data"`
	Description string           `json:"description"`
	Restricted  bool             `json:"restricted,omitempty"`
	RunID       uuid.UUID        `json:"flow_run_id,omitempty"`
}

func (a ArtifactEntry) Validate() error {
	if strings.TrimSpace(a.Key) == "" {
		return errors.New("artifact key is required")
	}
	if a.Table == nil {
		return errors.New("artifact table is required")
	}
	return nil
}
