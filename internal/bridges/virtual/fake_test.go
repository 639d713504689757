package virtual

import (
	"strings"
	"sync"

	"github.com/nerrad567/plantline/internal/infrastructure/mqtt"
)

type published struct {
	topic   string
	payload string
}

// fakeTwin is an in-memory broker plus twin logic: forcing a command
// variable answers on its state variable unless silent is set.
type fakeTwin struct {
	mu        sync.Mutex
	connected bool
	silent    bool
	handler   mqtt.MessageHandler
	log       []published
}

func newFakeTwin() *fakeTwin { return &fakeTwin{connected: true} }

func (f *fakeTwin) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	f.log = append(f.log, published{topic: topic, payload: string(payload)})
	silent, handler := f.silent, f.handler
	f.mu.Unlock()

	name, ok := strings.CutPrefix(topic, mqtt.Topics{}.VirtualSet(""))
	if ok && !silent && handler != nil {
		go f.report(StateVariable(name), string(payload)+"f")
	}
	return nil
}

func (f *fakeTwin) Subscribe(_ string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return nil
}

func (f *fakeTwin) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTwin) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeTwin) setSilent(v bool) {
	f.mu.Lock()
	f.silent = v
	f.mu.Unlock()
}

// report delivers a state update as the broker would.
func (f *fakeTwin) report(name, value string) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	_ = handler(mqtt.Topics{}.VirtualState(name), []byte(value)) //nolint:errcheck // test topics are valid
}

func (f *fakeTwin) published() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.log...)
}
