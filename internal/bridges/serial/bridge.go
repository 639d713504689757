package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"slices"
	"sync"
	"time"

	goserial "go.bug.st/serial"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/engine"
)

// Connection defaults.
const (
	DefaultBaud              = 115200
	defaultHandshakeInterval = 100 * time.Millisecond
	defaultHandshakeTimeout  = 30 * time.Second
	defaultDialTimeout       = 10 * time.Second
)

// Config holds the physical back-end connection settings.
type Config struct {
	// Ports lists port URLs, or the single entry "auto" for USB discovery.
	Ports []string

	// Baud is the serial line speed. Default: 115200.
	Baud int

	// HandshakeInterval is the delay between handshake requests. Default: 100ms.
	HandshakeInterval time.Duration

	// HandshakeTimeout bounds the handshake of one port. Default: 30s.
	HandshakeTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.HandshakeInterval == 0 {
		c.HandshakeInterval = defaultHandshakeInterval
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
}

// Bridge owns the arm and sledge links of the physical back-end.
type Bridge struct {
	mu    sync.RWMutex
	links map[command.Class]*Link
}

// Connect opens every configured port, runs the handshakes concurrently and
// assigns the links to lanes. Both lanes must be identified.
func Connect(ctx context.Context, cfg Config, logger Logger) (*Bridge, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = noopLogger{}
	}

	ports := cfg.Ports
	if len(ports) == 0 || (len(ports) == 1 && ports[0] == AutoPorts) {
		found, err := Discover()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}
		logger.Info("controller ports discovered", "ports", found)
		ports = found
	}

	links := make([]*Link, len(ports))
	g, gctx := errgroup.WithContext(ctx)
	for i, portURL := range ports {
		g.Go(func() error {
			conn, err := open(gctx, portURL, cfg.Baud)
			if err != nil {
				return err
			}
			link := NewLink(portURL, conn, logger)
			links[i] = link

			hctx, cancel := context.WithTimeout(gctx, cfg.HandshakeTimeout)
			defer cancel()
			_, err = link.Handshake(hctx, cfg.HandshakeInterval)
			return err
		})
	}
	err := g.Wait()

	b := &Bridge{links: make(map[command.Class]*Link)}
	for _, l := range links {
		if l == nil || err != nil {
			continue
		}
		class := l.Class()
		if prev, ok := b.links[class]; ok {
			err = fmt.Errorf("%w: %s on %s and %s", ErrLaneConflict, class, prev.Port(), l.Port())
			continue
		}
		b.links[class] = l
	}
	if err == nil {
		for _, class := range command.Classes {
			if _, ok := b.links[class]; !ok {
				err = fmt.Errorf("%w: no controller identified as %s", ErrHandshakeFailed, class)
			}
		}
	}
	if err != nil {
		for _, l := range links {
			if l != nil {
				l.Close() //nolint:errcheck // best effort cleanup on error path
			}
		}
		return nil, err
	}
	return b, nil
}

// open dials a port URL.
func open(ctx context.Context, portURL string, baud int) (io.ReadWriteCloser, error) {
	network, address, err := parsePortURL(portURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	switch network {
	case networkTCP:
		dctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
		var dialer net.Dialer
		conn, err := dialer.DialContext(dctx, "tcp", address)
		if err != nil {
			return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailed, address, err)
		}
		return conn, nil
	default:
		port, err := goserial.Open(address, &goserial.Mode{BaudRate: baud})
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", ErrConnectionFailed, address, err)
		}
		return port, nil
	}
}

// Lanes returns the identified links as engine lanes.
func (b *Bridge) Lanes() engine.Lanes {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var lanes engine.Lanes
	if l, ok := b.links[command.Arm]; ok {
		lanes.Arm = l
	}
	if l, ok := b.links[command.Sledge]; ok {
		lanes.Sledge = l
	}
	return lanes
}

// Stats returns the statistics of every link, arm first.
func (b *Bridge) Stats() []LinkStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []LinkStats
	for _, class := range command.Classes {
		if l, ok := b.links[class]; ok {
			out = append(out, l.Stats())
		}
	}
	return out
}

// HealthCheck fails when a lane has lost its controller.
func (b *Bridge) HealthCheck(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, class := range command.Classes {
		l, ok := b.links[class]
		if !ok || l.State() == engine.Disconnected {
			return fmt.Errorf("%w: %s lane", ErrNotConnected, class)
		}
	}
	return nil
}

// Close closes every link.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, class := range slices.Sorted(maps.Keys(b.links)) {
		if err := b.links[class].Close(); err != nil {
			errs = append(errs, err)
		}
		delete(b.links, class)
	}
	return errors.Join(errs...)
}
