package engine

import (
	"context"
	"time"

	"github.com/nerrad567/plantline/internal/topology"
)

// Logger is the logging interface the engine needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// MQTTClient is the interface for publishing run progress.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Metrics receives engine measurements.
type Metrics interface {
	ObserveCommand(backend, class, status string, d time.Duration)
	ObserveRun(kind, status string)
	SetRunProgress(percent float64)
	SetChannelState(backend, class string, state int)
}

// Telemetry writes time-series points for commands and runs.
type Telemetry interface {
	WriteCommandLatency(backend, class, verb string, d time.Duration)
	WriteRun(kind, status string, total, completed int)
}

// Repository persists runs, command records and scan results.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	RecordCommand(ctx context.Context, rec *CommandRecord) error
	SaveScanResults(ctx context.Context, runID string, rows []topology.SlotRow) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListCommands(ctx context.Context, runID string) ([]CommandRecord, error)
	GetScanResults(ctx context.Context, runID string) ([]topology.SlotRow, error)
}
