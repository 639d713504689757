package virtual

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/plantline/internal/infrastructure/mqtt"
)

// MQTTClient is the subset of the MQTT client the twin bridge needs.
// *mqtt.Client satisfies it.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
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

// variable is one cached state value. rev increases with every update so
// readers can tell a fresh report from a stale one with the same text.
type variable struct {
	value string
	rev   uint64
}

// Variables caches the symbolic variables of the twin and forces or
// releases them.
//
// Thread Safety: all methods are safe for concurrent use.
type Variables struct {
	client MQTTClient
	qos    byte
	logger Logger

	mu     sync.RWMutex
	values map[string]variable
	rev    uint64
}

// NewVariables subscribes to every twin state topic and starts caching.
func NewVariables(client MQTTClient, qos byte, logger Logger) (*Variables, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: MQTT client is required", ErrNotConnected)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	v := &Variables{
		client: client,
		qos:    qos,
		logger: logger,
		values: make(map[string]variable),
	}
	if err := client.Subscribe(mqtt.Topics{}.AllVirtualStates(), qos, v.handleState); err != nil {
		return nil, fmt.Errorf("subscribe to twin states: %w", err)
	}
	return v, nil
}

func (v *Variables) handleState(topic string, payload []byte) error {
	prefix := mqtt.Topics{}.VirtualState("")
	name, ok := strings.CutPrefix(topic, prefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("unexpected state topic %q", topic)
	}

	v.mu.Lock()
	v.rev++
	v.values[name] = variable{value: string(payload), rev: v.rev}
	v.mu.Unlock()

	v.logger.Debug("twin variable updated", "name", name, "value", string(payload))
	return nil
}

// Value returns the last reported value of name.
func (v *Variables) Value(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[name]
	return val.value, ok
}

// revision returns the value of name and its update revision.
func (v *Variables) revision(name string) (string, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val := v.values[name]
	return val.value, val.rev
}

// Force sets name to value until Release is called.
func (v *Variables) Force(name, value string) error {
	if !v.client.IsConnected() {
		return ErrNotConnected
	}
	if err := v.client.Publish(mqtt.Topics{}.VirtualSet(name), []byte(value), v.qos, false); err != nil {
		return fmt.Errorf("force %s: %w", name, err)
	}
	return nil
}

// Release hands name back to the twin logic.
func (v *Variables) Release(name string) error {
	if !v.client.IsConnected() {
		return ErrNotConnected
	}
	if err := v.client.Publish(mqtt.Topics{}.VirtualRelease(name), nil, v.qos, false); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

// Connected reports whether the MQTT transport is up.
func (v *Variables) Connected() bool {
	return v.client.IsConnected()
}
