// Package engine is the port onto the remote workflow engine. The kitchen
// never executes flows itself; it creates, queries, and transitions runs
// through this API, and the worker claims scheduled runs from it.
package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mediacloud/sous-chef-kitchen/internal/domain"
)

// ErrNotFound is returned when the engine reports an object as missing.
var ErrNotFound = errors.New("engine: object not found")

// RunFilter narrows run listings. TagsAll is an all-of match against the
// run's tag set; StateAny and IDAny are any-of matches.
type RunFilter struct {
	TagsAll  []string
	StateAny []domain.RunState
	IDAny    []uuid.UUID
}

// CreateRun is the submission payload for a new run of a deployment.
type CreateRun struct {
	Parameters domain.Params
	Tags       []string
}

// StateResult is the engine's answer to a requested state transition.
type StateResult struct {
	Status string
	Reason string
}

const (
	StateAccept = "ACCEPT"
	StateAbort  = "ABORT"
	StateReject = "REJECT"
)

func (r StateResult) Accepted() bool { return r.Status == StateAccept }

type Deployment struct {
	ID   uuid.UUID
	Name string
}

type WorkPool struct {
	Name   string
	Status string
}

const WorkPoolReady = "READY"

type Worker struct {
	Name   string
	Status string
}

const WorkerOnline = "ONLINE"

// API is the full engine surface the kitchen and worker consume. Connectivity
// failures surface as *domain.EngineUnavailableError; missing objects as
// ErrNotFound. No call has a built-in timeout beyond the transport's.
type API interface {
	Hello(ctx context.Context) error
	FindDeployment(ctx context.Context, name string) (Deployment, error)
	CreateRunFromDeployment(ctx context.Context, deploymentID uuid.UUID, req CreateRun) (domain.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (domain.Run, error)
	SetRunState(ctx context.Context, id uuid.UUID, state domain.RunState) (StateResult, error)
	PauseRun(ctx context.Context, id uuid.UUID) error
	ResumeRun(ctx context.Context, id uuid.UUID) error
	ListArtifacts(ctx context.Context, runID uuid.UUID) ([]domain.ArtifactEntry, error)
	CreateTableArtifact(ctx context.Context, artifact domain.ArtifactEntry) error
	WorkPool(ctx context.Context, name string) (WorkPool, error)
	Workers(ctx context.Context, pool string) ([]Worker, error)
}
