package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle state of a recipe run as reported by the engine.
type RunState string

const (
	StatePending    RunState = "PENDING"
	StateScheduled  RunState = "SCHEDULED"
	StateRunning    RunState = "RUNNING"
	StatePaused     RunState = "PAUSED"
	StateCancelling RunState = "CANCELLING"
	StateCancelled  RunState = "CANCELLED"
	StateCompleted  RunState = "COMPLETED"
	StateFailed     RunState = "FAILED"
)

// ActiveStates are the states that count against a user's run quota.
func ActiveStates() []RunState {
	return []RunState{StateRunning, StateScheduled, StatePending}
}

func (s RunState) Active() bool {
	switch s {
	case StateRunning, StateScheduled, StatePending:
		return true
	}
	return false
}

func (s RunState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// NormalizeRunState maps an engine-reported state string onto the known set.
// Unknown strings come back empty.
func NormalizeRunState(raw string) RunState {
	switch RunState(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatePending:
		return StatePending
	case StateScheduled:
		return StateScheduled
	case StateRunning:
		return StateRunning
	case StatePaused:
		return StatePaused
	case StateCancelling:
		return StateCancelling
	case StateCancelled:
		return StateCancelled
	case StateCompleted:
		return StateCompleted
	case StateFailed:
		return StateFailed
	}
	return ""
}

// Run is one execution instance of a recipe, tracked by the remote engine.
// Runs are never created or mutated locally; every field mirrors engine state.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Parameters Params     `json:"parameters"`
	StateName  string     `json:"state_name"`
	State      RunState   `json:"state_type"`
	Tags       []string   `json:"tags"`
	Created    time.Time  `json:"created"`
	ParentRef  *uuid.UUID `json:"parent_ref,omitempty"`
}

// HasTags reports whether every required tag is present on the run.
// Ownership checks are always expressed this way; there is no local index.
func (r Run) HasTags(required []string) bool {
	if len(required) == 0 {
		return true
	}
	present := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		present[t] = struct{}{}
	}
	for _, t := range required {
		if _, ok := present[t]; !ok {
			return false
		}
	}
	return true
}

// MergeTags unions tag sets, preserving first-seen order and dropping blanks.
func MergeTags(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, set := range sets {
		for _, t := range set {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}

// SortRunsNewestFirst orders runs by creation time, most recent first.
func SortRunsNewestFirst(runs []Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Created.After(runs[j].Created)
	})
}
