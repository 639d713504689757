package serial

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/engine"
)

// Handshake protocol.
const (
	handshakeRequest = "handshake"
	handshakeAck     = "ok"
	armIdentity      = "ar_arduino"
	sledgeIdentity   = "ss_arduino"

	// defaultWriteTimeout bounds writes on links that support deadlines.
	defaultWriteTimeout = 5 * time.Second

	// handshakeQueueSize buffers lines read before the controller identified itself.
	handshakeQueueSize = 16
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// LinkStats holds operational statistics of one link.
type LinkStats struct {
	Port         string
	Class        command.Class
	State        string
	LinesTx      uint64
	LinesRx      uint64
	LinesIgnored uint64
	LastActivity time.Time
}

// Ensure Link implements engine.Channel.
var _ engine.Channel = (*Link)(nil)

// Link is one controller on one port. It becomes a lane once the
// controller has identified itself.
type Link struct {
	port   string
	conn   io.ReadWriteCloser
	logger Logger

	state atomic.Int32
	class atomic.Value // command.Class

	// pending is the opcode in flight, guarded by mu.
	mu      sync.Mutex
	pending string

	writeMu sync.Mutex

	handshake   chan string
	completions chan engine.Completion

	done *closeOnce
	wg   sync.WaitGroup

	linesTx      atomic.Uint64
	linesRx      atomic.Uint64
	linesIgnored atomic.Uint64
	lastActivity atomic.Int64
}

// NewLink wraps an open port and starts reading from it. The link is
// Disconnected until Handshake succeeds.
func NewLink(port string, conn io.ReadWriteCloser, logger Logger) *Link {
	if logger == nil {
		logger = noopLogger{}
	}
	l := &Link{
		port:        port,
		conn:        conn,
		logger:      logger,
		handshake:   make(chan string, handshakeQueueSize),
		completions: make(chan engine.Completion, 1),
		done:        newCloseOnce(),
	}
	l.state.Store(int32(engine.Disconnected))
	l.class.Store(command.Class(""))
	l.lastActivity.Store(time.Now().Unix())

	l.wg.Add(1)
	go l.readLoop()
	return l
}

// Port returns the port URL the link was opened on.
func (l *Link) Port() string { return l.port }

// Class returns the lane the controller identified as, or "" before the handshake.
func (l *Link) Class() command.Class {
	c, _ := l.class.Load().(command.Class) //nolint:errcheck // only command.Class is stored
	return c
}

// Handshake writes "handshake" every interval until the controller answers
// with its identity, then acknowledges it and moves the link to Standby.
func (l *Link) Handshake(ctx context.Context, interval time.Duration) (command.Class, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := l.writeLine(ctx, handshakeRequest); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrHandshakeFailed, l.port, err)
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %s: %w", ErrHandshakeFailed, l.port, ctx.Err())
			case <-l.done.Done():
				return "", fmt.Errorf("%w: %s: %w", ErrHandshakeFailed, l.port, ErrNotConnected)
			case line := <-l.handshake:
				class, ok := identify(line)
				if !ok {
					continue
				}
				if err := l.writeLine(ctx, handshakeAck); err != nil {
					return "", fmt.Errorf("%w: %s: %w", ErrHandshakeFailed, l.port, err)
				}
				l.class.Store(class)
				l.state.Store(int32(engine.Standby))
				l.logger.Info("controller identified", "port", l.port, "lane", class)
				return class, nil
			case <-ticker.C:
				break wait
			}
		}
	}
}

func identify(line string) (command.Class, bool) {
	switch {
	case strings.Contains(line, armIdentity):
		return command.Arm, true
	case strings.Contains(line, sledgeIdentity):
		return command.Sledge, true
	}
	return "", false
}

// State returns the lane state.
func (l *Link) State() engine.State {
	return engine.State(l.state.Load())
}

// Send writes opcode and moves the lane to Processing.
func (l *Link) Send(ctx context.Context, opcode string) error {
	if !l.state.CompareAndSwap(int32(engine.Standby), int32(engine.Processing)) {
		if l.State() == engine.Disconnected {
			return ErrNotConnected
		}
		return ErrNotReady
	}

	l.mu.Lock()
	l.pending = opcode
	l.mu.Unlock()

	if err := l.writeLine(ctx, opcode); err != nil {
		l.mu.Lock()
		l.pending = ""
		l.mu.Unlock()
		l.state.CompareAndSwap(int32(engine.Processing), int32(engine.Standby))
		return err
	}
	return nil
}

// Await blocks until the controller reports completion of opcode.
func (l *Link) Await(ctx context.Context, opcode string) (engine.Completion, error) {
	for {
		select {
		case c := <-l.completions:
			if c.Opcode != opcode {
				l.logger.Warn("stale completion", "port", l.port, "got", c.Opcode, "want", opcode)
				continue
			}
			return c, nil
		case <-l.done.Done():
			return engine.Completion{}, ErrNotConnected
		case <-ctx.Done():
			return engine.Completion{}, ctx.Err()
		}
	}
}

// Stats returns current operational statistics.
func (l *Link) Stats() LinkStats {
	return LinkStats{
		Port:         l.port,
		Class:        l.Class(),
		State:        l.State().String(),
		LinesTx:      l.linesTx.Load(),
		LinesRx:      l.linesRx.Load(),
		LinesIgnored: l.linesIgnored.Load(),
		LastActivity: time.Unix(l.lastActivity.Load(), 0),
	}
}

// Close closes the port and waits for the reader to stop.
func (l *Link) Close() error {
	l.done.Close()
	l.state.Store(int32(engine.Disconnected))
	err := l.conn.Close()
	l.wg.Wait()
	return err
}

func (l *Link) writeLine(ctx context.Context, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done.Done():
		return ErrNotConnected
	default:
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if nc, ok := l.conn.(net.Conn); ok {
		deadline := time.Now().Add(defaultWriteTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := nc.SetWriteDeadline(deadline); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	if _, err := io.WriteString(l.conn, text+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", text, err)
	}
	l.linesTx.Add(1)
	l.lastActivity.Store(time.Now().Unix())
	l.logger.Debug("line sent", "port", l.port, "line", text)
	return nil
}

// readLoop reads response lines until the port is closed or lost.
func (l *Link) readLoop() {
	defer l.wg.Done()
	defer func() {
		l.state.Store(int32(engine.Disconnected))
		l.done.Close()
	}()

	scanner := bufio.NewScanner(l.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.linesRx.Add(1)
		l.lastActivity.Store(time.Now().Unix())
		l.handleLine(line)
	}

	select {
	case <-l.done.Done():
	default:
		l.logger.Warn("controller link lost", "port", l.port, "lane", l.Class(), "error", scanner.Err())
	}
}

func (l *Link) handleLine(line string) {
	if l.Class() == "" {
		select {
		case l.handshake <- line:
		default:
			l.linesIgnored.Add(1)
		}
		return
	}

	l.mu.Lock()
	pending := l.pending
	completion, ok := matchCompletion(pending, line)
	if ok {
		l.pending = ""
	}
	l.mu.Unlock()

	if !ok {
		l.linesIgnored.Add(1)
		l.logger.Debug("ignoring line", "port", l.port, "line", line, "pending", pending)
		return
	}

	l.state.Store(int32(engine.Standby))
	l.completions <- completion
}

// matchCompletion reports whether line completes the pending opcode.
// Discovery responses carry their payload as '_' separated tokens.
func matchCompletion(pending, line string) (engine.Completion, bool) {
	if pending == "" {
		return engine.Completion{}, false
	}
	if line == pending+command.CompletionSuffix {
		return engine.Completion{Opcode: pending}, true
	}
	if strings.HasPrefix(pending, command.ReadPropertiesVerb) && strings.HasPrefix(line, command.DiscoveryMarker) {
		return engine.Completion{Opcode: pending, Tokens: strings.Split(line, "_")}, true
	}
	return engine.Completion{}, false
}
