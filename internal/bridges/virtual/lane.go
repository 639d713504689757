package virtual

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/engine"
)

// stateSuffix names the state variable that belongs to a command variable.
const stateSuffix = "State"

// defaultPollInterval is the state variable read interval.
const defaultPollInterval = 10 * time.Millisecond

// StateVariable returns the state variable paired with command variable name.
func StateVariable(name string) string { return name + stateSuffix }

// Ensure Lane implements engine.Channel.
var _ engine.Channel = (*Lane)(nil)

// Lane executes commands of one class by forcing a command variable.
type Lane struct {
	vars     *Variables
	variable string
	class    command.Class
	poll     time.Duration
	logger   Logger

	mu      sync.Mutex
	pending string
	sentRev uint64
}

// NewLane returns the lane driving variable. A zero poll uses 10ms.
func NewLane(vars *Variables, class command.Class, variable string, poll time.Duration, logger Logger) *Lane {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Lane{vars: vars, variable: variable, class: class, poll: poll, logger: logger}
}

// Variable returns the command variable of the lane.
func (l *Lane) Variable() string { return l.variable }

// State is Disconnected while the transport is down and Processing while
// the command variable is forced. A completion that arrives after Await
// gave up still returns the lane to Standby.
func (l *Lane) State() engine.State {
	if !l.vars.Connected() {
		return engine.Disconnected
	}
	l.mu.Lock()
	pending := l.pending
	l.mu.Unlock()
	if pending == "" {
		return engine.Standby
	}
	if _, ok := l.finished(pending); !ok {
		return engine.Processing
	}
	if err := l.settle(pending); err != nil {
		l.logger.Warn("twin release failed", "variable", l.variable, "error", err)
		return engine.Processing
	}
	l.logger.Debug("late twin completion", "variable", l.variable, "opcode", pending)
	return engine.Standby
}

// Send forces the command variable to opcode.
func (l *Lane) Send(_ context.Context, opcode string) error {
	if !l.vars.Connected() {
		return ErrNotConnected
	}

	l.mu.Lock()
	if l.pending != "" {
		l.mu.Unlock()
		return ErrNotReady
	}
	_, rev := l.vars.revision(StateVariable(l.variable))
	l.pending, l.sentRev = opcode, rev
	l.mu.Unlock()

	if err := l.vars.Force(l.variable, opcode); err != nil {
		l.clear()
		return err
	}
	l.logger.Debug("twin command forced", "variable", l.variable, "opcode", opcode)
	return nil
}

// Await polls the state variable until it reports opcode as finished, then
// releases the command variable. Reports older than the Send are ignored.
func (l *Lane) Await(ctx context.Context, opcode string) (engine.Completion, error) {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		if c, ok := l.finished(opcode); ok {
			if err := l.settle(opcode); err != nil {
				return engine.Completion{}, err
			}
			l.logger.Debug("twin command finished", "variable", l.variable, "opcode", opcode)
			return c, nil
		}

		select {
		case <-ctx.Done():
			return engine.Completion{}, ctx.Err()
		case <-ticker.C:
			if !l.vars.Connected() {
				return engine.Completion{}, ErrNotConnected
			}
		}
	}
}

// finished reports whether the state variable, updated since the Send,
// marks opcode as done.
func (l *Lane) finished(opcode string) (engine.Completion, bool) {
	l.mu.Lock()
	sentRev := l.sentRev
	l.mu.Unlock()

	value, rev := l.vars.revision(StateVariable(l.variable))
	if rev <= sentRev {
		return engine.Completion{}, false
	}
	return matchState(opcode, value)
}

// settle releases the command variable and frees the lane if opcode is
// still the pending command.
func (l *Lane) settle(opcode string) error {
	if err := l.vars.Release(l.variable); err != nil {
		return err
	}
	l.mu.Lock()
	if l.pending == opcode {
		l.pending, l.sentRev = "", 0
	}
	l.mu.Unlock()
	return nil
}

func (l *Lane) clear() {
	l.mu.Lock()
	l.pending, l.sentRev = "", 0
	l.mu.Unlock()
}

// matchState reports whether a state value finishes opcode. The twin logic
// may decorate the value, so containment is enough. Discovery reports carry
// the slot properties as '_' separated tokens.
func matchState(opcode, value string) (engine.Completion, bool) {
	if strings.HasPrefix(opcode, command.ReadPropertiesVerb) && strings.HasPrefix(value, command.DiscoveryMarker) {
		return engine.Completion{Opcode: opcode, Tokens: strings.Split(value, "_")}, true
	}
	if strings.Contains(value, opcode+command.CompletionSuffix) {
		return engine.Completion{Opcode: opcode}, true
	}
	return engine.Completion{}, false
}
