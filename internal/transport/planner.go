package transport

import (
	"errors"
	"fmt"

	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
)

// ErrUnknownPolicy is returned for a policy name other than automatic or custom.
var ErrUnknownPolicy = errors.New("transport: unknown policy")

// Policy selects how sinks and sources are matched.
type Policy string

// Matching policies.
const (
	Automatic Policy = "automatic"
	Custom    Policy = "custom"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case Automatic, Custom:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Pair is one transport from a source slot to a sink slot of the same color.
type Pair struct {
	Source *plant.Element
	Sink   *plant.Element
}

// Color returns the station color shared by both slots.
func (p Pair) Color() string { return colorOf(p.Source) }

// SourceID returns the id of the source slot.
func (p Pair) SourceID() int {
	id, _ := p.Source.Int(plant.AttrID)
	return id
}

// SinkID returns the id of the sink slot.
func (p Pair) SinkID() int {
	id, _ := p.Sink.Int(plant.AttrID)
	return id
}

// Candidates returns the sink and source slots of a topology graph in discovery order.
func Candidates(g *plant.Graph) (sinks, sources []*plant.Element) {
	for _, slot := range topology.Slots(g) {
		station := topology.StationOf(slot)
		if station == nil {
			continue
		}
		switch t, _ := station.Str(plant.AttrType); t {
		case topology.TypeSink:
			sinks = append(sinks, slot)
		case topology.TypeSource:
			sources = append(sources, slot)
		}
	}
	return sinks, sources
}

// Plan matches sinks to sources under policy. colors is only read by the
// custom policy. Neither input slice is modified.
func Plan(sinks, sources []*plant.Element, policy Policy, colors []string) ([]Pair, error) {
	switch policy {
	case Automatic:
		return planAutomatic(sinks, sources), nil
	case Custom:
		return planCustom(sinks, sources, colors), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
}

func planAutomatic(sinks, sources []*plant.Element) []Pair {
	pool := newPool(sources)
	var pairs []Pair
	for _, sink := range sinks {
		if source := pool.take(colorOf(sink)); source != nil {
			pairs = append(pairs, Pair{Source: source, Sink: sink})
		}
	}
	return pairs
}

func planCustom(sinks, sources []*plant.Element, colors []string) []Pair {
	sinkPool := newPool(sinks)
	sourcePool := newPool(sources)
	var pairs []Pair
	for _, color := range colors {
		if !sinkPool.has(color) || !sourcePool.has(color) {
			continue
		}
		pairs = append(pairs, Pair{
			Source: sourcePool.take(color),
			Sink:   sinkPool.take(color),
		})
	}
	return pairs
}

// pool is an ordered set of slots consumed first-match-first.
type pool struct {
	slots []*plant.Element
	used  []bool
}

func newPool(slots []*plant.Element) *pool {
	return &pool{slots: slots, used: make([]bool, len(slots))}
}

func (p *pool) index(color string) int {
	for i, s := range p.slots {
		if !p.used[i] && colorOf(s) == color {
			return i
		}
	}
	return -1
}

func (p *pool) has(color string) bool { return p.index(color) >= 0 }

func (p *pool) take(color string) *plant.Element {
	i := p.index(color)
	if i < 0 {
		return nil
	}
	p.used[i] = true
	return p.slots[i]
}

func colorOf(slot *plant.Element) string {
	if station := topology.StationOf(slot); station != nil {
		c, _ := station.Str(plant.AttrColor)
		return c
	}
	return ""
}
