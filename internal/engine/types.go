package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/plantline/internal/command"
)

// Backend is an execution back-end family.
type Backend string

// Back-ends.
const (
	Physical Backend = "physical"
	Virtual  Backend = "virtual"
)

// State is the lifecycle state of a lane.
type State int

// Lane states.
const (
	Disconnected State = iota
	Standby
	Processing
)

func (s State) String() string {
	switch s {
	case Standby:
		return "standby"
	case Processing:
		return "processing"
	default:
		return "disconnected"
	}
}

// Completion is what a lane reported when a command finished.
// Tokens holds the '_' separated payload of discovery responses.
type Completion struct {
	Opcode string
	Tokens []string
}

// Channel is one execution lane on one back-end.
//
// Send issues opcode and moves the lane to Processing. Await blocks until
// the lane reports completion of opcode and is Standby again. The engine
// never calls Send on a lane that is not Standby.
type Channel interface {
	State() State
	Send(ctx context.Context, opcode string) error
	Await(ctx context.Context, opcode string) (Completion, error)
}

// Lanes holds the arm and sledge lanes of one back-end.
type Lanes struct {
	Arm    Channel
	Sledge Channel
}

// For returns the lane that executes class, or nil.
func (l Lanes) For(c command.Class) Channel {
	switch c {
	case command.Arm:
		return l.Arm
	case command.Sledge:
		return l.Sledge
	}
	return nil
}

// RunKind distinguishes command playback from discovery.
type RunKind string

// Run kinds.
const (
	KindSimulate RunKind = "simulate"
	KindScan     RunKind = "scan"
)

// RunStatus is the lifecycle status of a run.
type RunStatus string

// Run statuses.
const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// Run is the audit record of one simulate or scan.
type Run struct {
	ID          string     `json:"id"`
	Kind        RunKind    `json:"kind"`
	Backends    []Backend  `json:"backends"`
	Status      RunStatus  `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  *int       `json:"duration_ms,omitempty"`
}

// CommandRecord is one command completed on one back-end.
type CommandRecord struct {
	RunID       string        `json:"run_id"`
	Index       int           `json:"index"`
	Opcode      string        `json:"opcode"`
	Class       command.Class `json:"class"`
	Backend     Backend       `json:"backend"`
	DurationMS  int64         `json:"duration_ms"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Progress is reported after every command that completed on all active back-ends.
type Progress struct {
	RunID     string  `json:"run_id"`
	Kind      RunKind `json:"kind"`
	Index     int     `json:"index"`
	Opcode    string  `json:"opcode"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// ProgressFunc receives progress updates. It is called from the run goroutine
// and must not block for long.
type ProgressFunc func(Progress)

// GenerateID returns a new run id.
func GenerateID() string {
	return uuid.New().String()
}

type runIDKey struct{}

// WithRunID makes the next run started with ctx use id instead of a
// generated one, so a caller can hand out the id before the run starts.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return GenerateID()
}
