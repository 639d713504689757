package engine

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/plantline/internal/command"
)

// progressTopicPrefix is the MQTT topic root for run progress.
const progressTopicPrefix = "plantline/runs/"

// Options holds engine timing.
type Options struct {
	// PollInterval is how often lane state is sampled while waiting for Standby.
	PollInterval time.Duration

	// CompletionTimeout bounds Send+Await of one command. Zero waits forever.
	CompletionTimeout time.Duration

	// StandbyTimeout bounds the wait for Standby before dispatch. Zero waits forever.
	StandbyTimeout time.Duration
}

// Deps are the optional collaborators of an Engine. Nil fields are skipped.
type Deps struct {
	Repo      Repository
	Hub       WSHub
	MQTT      MQTTClient
	Metrics   Metrics
	Telemetry Telemetry
	Tracer    trace.Tracer
	Logger    Logger
}

// Engine dispatches command lists to the connected back-ends.
type Engine struct {
	opts Options
	deps Deps

	mu      sync.Mutex
	lanes   map[Backend]Lanes
	running bool
}

// New creates an Engine with no back-ends attached.
func New(deps Deps, opts Options) *Engine {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("plantline/engine")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	return &Engine{
		opts:  opts,
		deps:  deps,
		lanes: make(map[Backend]Lanes),
	}
}

// Attach registers the lanes of a connected back-end, replacing earlier ones.
func (e *Engine) Attach(b Backend, l Lanes) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lanes[b] = l
}

// Detach forgets the lanes of a back-end.
func (e *Engine) Detach(b Backend) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lanes, b)
}

// Backends returns the attached back-ends in a stable order.
func (e *Engine) Backends() []Backend {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Backend
	for _, b := range []Backend{Physical, Virtual} {
		if _, ok := e.lanes[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Running reports whether a run is executing.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Simulate plays cmds on every back-end in backends. With two back-ends each
// command is issued on both concurrently and joined before the next one.
//
// The returned Run is never nil once the run has started; its Status tells
// how it ended. err is the reason a run failed or was cancelled.
func (e *Engine) Simulate(ctx context.Context, cmds []command.Command, backends []Backend, progress ProgressFunc) (*Run, error) {
	return e.execute(ctx, KindSimulate, cmds, backends, progress, nil)
}

// completionHook sees every completion of a run, per back-end.
type completionHook func(index int, cmd command.Command, b Backend, c Completion)

// target is one lane resolved for one command.
type target struct {
	backend Backend
	ch      Channel
}

func (e *Engine) execute(ctx context.Context, kind RunKind, cmds []command.Command, backends []Backend, progress ProgressFunc, hook completionHook) (*Run, error) { //nolint:gocognit // run loop: records, progress and abort handling
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	backends = slices.Compact(slices.Clone(backends))

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrRunInProgress
	}
	e.running = true
	lanes := make(map[Backend]Lanes, len(e.lanes))
	for b, l := range e.lanes {
		lanes[b] = l
	}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	run := &Run{
		ID:        runIDFrom(ctx),
		Kind:      kind,
		Backends:  backends,
		Status:    StatusPending,
		Total:     len(cmds),
		StartedAt: time.Now().UTC(),
	}
	if e.deps.Repo != nil {
		if err := e.deps.Repo.CreateRun(ctx, run); err != nil {
			// The run log is an audit trail; the machine run is more important.
			e.deps.Logger.Error("failed to create run record", "run_id", run.ID, "error", err)
		}
	}

	spanName := "engine.run"
	if kind == KindScan {
		spanName = "engine.scan"
	}
	ctx, span := e.deps.Tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.total", run.Total),
		attribute.Int("run.backends", len(backends)),
	)

	run.Status = StatusRunning
	e.deps.Logger.Info("run started",
		"run_id", run.ID,
		"kind", kind,
		"backends", backends,
		"commands", len(cmds),
	)

	var runErr error
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			run.Status = StatusCancelled
			runErr = err
			break
		}

		if err := e.dispatch(ctx, run.ID, i, cmd, backends, lanes, hook); err != nil {
			run.Status = StatusFailed
			runErr = err
			break
		}

		run.Completed++
		e.report(run, i, cmd, progress)
	}

	if runErr == nil {
		run.Status = StatusCompleted
	}
	e.finish(ctx, run, runErr)

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	} else {
		span.SetStatus(codes.Ok, "run completed")
	}
	return run, runErr
}

// dispatch runs one command on every back-end and returns once all completed.
func (e *Engine) dispatch(ctx context.Context, runID string, index int, cmd command.Command, backends []Backend, lanes map[Backend]Lanes, hook completionHook) error {
	targets := make([]target, 0, len(backends))
	for _, b := range backends {
		l, ok := lanes[b]
		var ch Channel
		if ok {
			ch = l.For(cmd.Class)
		}
		if ch == nil {
			return &ChannelUnavailableError{Backend: b, Class: cmd.Class, Index: index}
		}
		targets = append(targets, target{backend: b, ch: ch})
	}

	// The command may not be abandoned once issued, so only the timeouts bound it.
	inflight := context.WithoutCancel(ctx)

	for _, t := range targets {
		waitCtx, cancel := bounded(inflight, e.opts.StandbyTimeout)
		err := waitStandby(waitCtx, t.ch, e.opts.PollInterval)
		cancel()
		if errors.Is(err, ErrChannelUnavailable) {
			return &ChannelUnavailableError{Backend: t.backend, Class: cmd.Class, Index: index}
		}
		if err != nil {
			return &DispatchError{Index: index, Opcode: cmd.Opcode, Backend: t.backend, Err: err}
		}
	}

	if len(targets) == 1 {
		return e.issue(inflight, runID, index, cmd, targets[0], hook)
	}

	// A failure on one back-end does not cut short the wait on the other.
	var g errgroup.Group
	for _, t := range targets {
		g.Go(func() error {
			return e.issue(inflight, runID, index, cmd, t, hook)
		})
	}
	return g.Wait()
}

// issue sends cmd on one lane and waits for its completion.
func (e *Engine) issue(ctx context.Context, runID string, index int, cmd command.Command, t target, hook completionHook) error {
	ctx, span := e.deps.Tracer.Start(ctx, "engine.command")
	defer span.End()
	span.SetAttributes(
		attribute.Int("command.index", index),
		attribute.String("command.opcode", cmd.Opcode),
		attribute.String("command.class", string(cmd.Class)),
		attribute.String("command.backend", string(t.backend)),
	)

	ctx, cancel := bounded(ctx, e.opts.CompletionTimeout)
	defer cancel()

	started := time.Now()
	e.deps.Logger.Debug("command dispatched",
		"run_id", runID,
		"index", index,
		"opcode", cmd.Opcode,
		"backend", t.backend,
	)

	if err := t.ch.Send(ctx, cmd.Opcode); err != nil {
		return e.fail(span, index, cmd, t, started, err)
	}
	e.channelState(t, cmd.Class, Processing)

	completion, err := t.ch.Await(ctx, cmd.Opcode)
	if err != nil {
		if ctx.Err() != nil {
			err = ctxErr(ctx, "completion of "+cmd.Opcode)
		}
		return e.fail(span, index, cmd, t, started, err)
	}
	elapsed := time.Since(started)
	e.channelState(t, cmd.Class, Standby)

	if hook != nil {
		hook(index, cmd, t.backend, completion)
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveCommand(string(t.backend), string(cmd.Class), "completed", elapsed)
	}
	if e.deps.Telemetry != nil {
		e.deps.Telemetry.WriteCommandLatency(string(t.backend), string(cmd.Class), cmd.Verb(), elapsed)
	}
	if e.deps.Repo != nil {
		rec := &CommandRecord{
			RunID:       runID,
			Index:       index,
			Opcode:      cmd.Opcode,
			Class:       cmd.Class,
			Backend:     t.backend,
			DurationMS:  elapsed.Milliseconds(),
			CompletedAt: time.Now().UTC(),
		}
		if err := e.deps.Repo.RecordCommand(ctx, rec); err != nil {
			e.deps.Logger.Error("failed to record command", "run_id", runID, "index", index, "error", err)
		}
	}
	span.SetStatus(codes.Ok, "completed")
	return nil
}

func (e *Engine) fail(span trace.Span, index int, cmd command.Command, t target, started time.Time, err error) error {
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveCommand(string(t.backend), string(cmd.Class), "failed", time.Since(started))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &DispatchError{Index: index, Opcode: cmd.Opcode, Backend: t.backend, Err: err}
}

func (e *Engine) channelState(t target, class command.Class, s State) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.SetChannelState(string(t.backend), string(class), int(s))
	}
}

// report publishes progress after a command completed on all back-ends.
func (e *Engine) report(run *Run, index int, cmd command.Command, progress ProgressFunc) {
	p := Progress{
		RunID:     run.ID,
		Kind:      run.Kind,
		Index:     index,
		Opcode:    cmd.Opcode,
		Completed: run.Completed,
		Total:     run.Total,
		Percent:   percent(run.Completed, run.Total),
	}
	if progress != nil {
		progress(p)
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.SetRunProgress(p.Percent)
	}
	if e.deps.Hub != nil {
		e.deps.Hub.Broadcast("run.progress", p)
	}
	if e.deps.MQTT != nil {
		payload, err := json.Marshal(p)
		if err == nil {
			err = e.deps.MQTT.Publish(progressTopicPrefix+run.ID+"/progress", payload, 0, false)
		}
		if err != nil {
			e.deps.Logger.Warn("failed to publish progress", "run_id", run.ID, "error", err)
		}
	}
}

func (e *Engine) finish(ctx context.Context, run *Run, runErr error) {
	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	duration := int(completedAt.Sub(run.StartedAt).Milliseconds())
	run.DurationMS = &duration
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if e.deps.Repo != nil {
		// The run context may be cancelled; the record must still be closed.
		if err := e.deps.Repo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
			e.deps.Logger.Error("failed to update run record", "run_id", run.ID, "error", err)
		}
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.ObserveRun(string(run.Kind), string(run.Status))
	}
	if e.deps.Telemetry != nil {
		e.deps.Telemetry.WriteRun(string(run.Kind), string(run.Status), run.Total, run.Completed)
	}

	logArgs := []any{
		"run_id", run.ID,
		"kind", run.Kind,
		"status", run.Status,
		"completed", run.Completed,
		"total", run.Total,
		"duration_ms", duration,
	}
	if runErr != nil {
		e.deps.Logger.Warn("run ended", append(logArgs, "error", runErr)...)
	} else {
		e.deps.Logger.Info("run completed", logArgs...)
	}

	if e.deps.Hub != nil {
		e.deps.Hub.Broadcast("run.completed", map[string]any{
			"run_id":      run.ID,
			"kind":        string(run.Kind),
			"status":      string(run.Status),
			"completed":   run.Completed,
			"total":       run.Total,
			"duration_ms": duration,
			"error":       run.Error,
		})
	}
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
