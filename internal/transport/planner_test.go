package transport

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
)

// graphFrom builds a topology graph from rows.
func graphFrom(t testing.TB, rows []topology.SlotRow) *plant.Graph {
	t.Helper()
	g, err := topology.Build("PlantProject", rows)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func rowsOf(specs ...[2]string) []topology.SlotRow {
	rows := make([]topology.SlotRow, len(specs))
	for i, s := range specs {
		rows[i] = topology.SlotRow{ID: i + 1, Color: s[0], Type: s[1]}
	}
	return rows
}

func pairIDs(pairs []Pair) [][2]int {
	out := make([][2]int, len(pairs))
	for i, p := range pairs {
		out[i] = [2]int{p.SourceID(), p.SinkID()}
	}
	return out
}

func equalIDs(a, b [][2]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const (
	src  = topology.TypeSource
	sink = topology.TypeSink
)

func TestPlan_Automatic(t *testing.T) {
	tests := []struct {
		name  string
		slots []topology.SlotRow
		want  [][2]int
	}{
		{
			name:  "single red pair",
			slots: rowsOf([2]string{"red", src}, [2]string{"red", sink}),
			want:  [][2]int{{1, 2}},
		},
		{
			name: "first source wins",
			slots: rowsOf(
				[2]string{"red", sink},
				[2]string{"red", src},
				[2]string{"red", src},
			),
			want: [][2]int{{2, 1}},
		},
		{
			name: "unmatched sink dropped silently",
			slots: rowsOf(
				[2]string{"blue", sink},
				[2]string{"red", sink},
				[2]string{"red", src},
			),
			want: [][2]int{{3, 2}},
		},
		{
			name: "order follows sinks",
			slots: rowsOf(
				[2]string{"green", src},
				[2]string{"red", src},
				[2]string{"red", sink},
				[2]string{"green", sink},
			),
			want: [][2]int{{2, 3}, {1, 4}},
		},
		{
			name:  "no stations",
			slots: rowsOf([2]string{"", ""}, [2]string{"red", topology.TypeEmpty}),
			want:  [][2]int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sinks, sources := Candidates(graphFrom(t, tt.slots))
			pairs, err := Plan(sinks, sources, Automatic, nil)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if got := pairIDs(pairs); !equalIDs(got, tt.want) {
				t.Errorf("Plan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_Custom(t *testing.T) {
	slots := rowsOf(
		[2]string{"red", src},
		[2]string{"red", sink},
		[2]string{"blue", src},
		[2]string{"blue", sink},
		[2]string{"red", src},
		[2]string{"red", sink},
	)
	tests := []struct {
		name   string
		colors []string
		want   [][2]int
	}{
		{"sequence order", []string{"blue", "red"}, [][2]int{{3, 4}, {1, 2}}},
		{"repeat for more", []string{"red", "red"}, [][2]int{{1, 2}, {5, 6}}},
		{"bounded by stations", []string{"red", "red", "red"}, [][2]int{{1, 2}, {5, 6}}},
		{"unknown color skipped", []string{"green", "blue"}, [][2]int{{3, 4}}},
		{"empty sequence", nil, [][2]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sinks, sources := Candidates(graphFrom(t, slots))
			pairs, err := Plan(sinks, sources, Custom, tt.colors)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if got := pairIDs(pairs); !equalIDs(got, tt.want) {
				t.Errorf("Plan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlan_UnknownPolicy(t *testing.T) {
	if _, err := Plan(nil, nil, Policy("greedy"), nil); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("Plan() error = %v, want ErrUnknownPolicy", err)
	}
	if _, err := ParsePolicy("custom"); err != nil {
		t.Errorf("ParsePolicy(custom) error = %v", err)
	}
	if _, err := ParsePolicy("random"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("ParsePolicy(random) error = %v, want ErrUnknownPolicy", err)
	}
}

// decode maps generated codes to rows: 0..2 empty, 3..5 sources, 6..8 sinks.
func decode(codes []int) []topology.SlotRow {
	rows := make([]topology.SlotRow, len(codes))
	for i, c := range codes {
		rows[i].ID = i + 1
		if c < 3 {
			continue
		}
		rows[i].Color = topology.Colors[c%3]
		if c < 6 {
			rows[i].Type = topology.TypeSource
		} else {
			rows[i].Type = topology.TypeSink
		}
	}
	return rows
}

func countByColor(slots []*plant.Element) map[string]int {
	m := make(map[string]int)
	for _, s := range slots {
		m[colorOf(s)]++
	}
	return m
}

func TestPlan_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("automatic pairs each color min(sinks, sources) times, slots used once", prop.ForAll(
		func(codes []int) bool {
			g, err := topology.Build("PlantProject", decode(codes))
			if err != nil {
				return false
			}
			sinks, sources := Candidates(g)
			pairs, err := Plan(sinks, sources, Automatic, nil)
			if err != nil {
				return false
			}
			sinkN, sourceN := countByColor(sinks), countByColor(sources)
			want := 0
			for _, c := range topology.Colors {
				want += min(sinkN[c], sourceN[c])
			}
			if len(pairs) != want {
				return false
			}
			used := make(map[*plant.Element]bool)
			for _, p := range pairs {
				if used[p.Source] || used[p.Sink] || colorOf(p.Sink) != p.Color() {
					return false
				}
				used[p.Source], used[p.Sink] = true, true
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(0, 8)),
	))

	properties.Property("automatic pair count ignores source order", prop.ForAll(
		func(codes []int, rot int) bool {
			g, err := topology.Build("PlantProject", decode(codes))
			if err != nil {
				return false
			}
			sinks, sources := Candidates(g)
			rotated := sources
			if n := len(sources); n > 0 {
				k := rot % n
				rotated = append(append([]*plant.Element{}, sources[k:]...), sources[:k]...)
			}
			a, _ := Plan(sinks, sources, Automatic, nil)
			b, _ := Plan(sinks, rotated, Automatic, nil)
			return len(a) == len(b)
		},
		gen.SliceOfN(12, gen.IntRange(0, 8)),
		gen.IntRange(0, 11),
	))

	properties.Property("custom [c]*k yields at most min(k, sinks(c), sources(c)) pairs of c", prop.ForAll(
		func(codes []int, colorIdx int, k int) bool {
			g, err := topology.Build("PlantProject", decode(codes))
			if err != nil {
				return false
			}
			color := topology.Colors[colorIdx]
			seq := make([]string, k)
			for i := range seq {
				seq[i] = color
			}
			sinks, sources := Candidates(g)
			pairs, err := Plan(sinks, sources, Custom, seq)
			if err != nil {
				return false
			}
			for _, p := range pairs {
				if p.Color() != color {
					return false
				}
			}
			return len(pairs) == min(k, countByColor(sinks)[color], countByColor(sources)[color])
		},
		gen.SliceOfN(12, gen.IntRange(0, 8)),
		gen.IntRange(0, 2),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}
