package document

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/compiler"
	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
	"github.com/nerrad567/plantline/internal/transport"
)

// plantGraph builds a compiled plant graph with links on every layer.
func plantGraph(t *testing.T) *plant.Graph {
	t.Helper()
	g, err := topology.Build("PlantProject", []topology.SlotRow{
		{ID: 1, Color: "red", Type: topology.TypeSource},
		{ID: 2, Color: "red", Type: topology.TypeSink},
		{ID: 3, Color: "blue", Type: topology.TypeSource},
		{ID: 4, Color: "blue", Type: topology.TypeSink},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := topology.AddProducts(g); err != nil {
		t.Fatalf("AddProducts() error = %v", err)
	}
	sinks, sources := transport.Candidates(g)
	pairs, err := transport.Plan(sinks, sources, transport.Automatic, nil)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if err := compiler.Compile(g, pairs); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return g
}

func TestGraphRoundTrip(t *testing.T) {
	g := plantGraph(t)
	d := New("Demonstrator")
	d.PutGraph(g)

	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	loaded, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	got, err := loaded.Graph("PlantProject")
	if err != nil {
		t.Fatalf("Graph() error = %v", err)
	}

	if !reflect.DeepEqual(FromGraph(got), FromGraph(g)) {
		t.Error("hierarchy changed across write and read")
	}

	want, err := command.Extract(g)
	if err != nil {
		t.Fatalf("Extract(original) error = %v", err)
	}
	cmds, err := command.Extract(got)
	if err != nil {
		t.Fatalf("Extract(loaded) error = %v", err)
	}
	if !reflect.DeepEqual(cmds, want) {
		t.Errorf("loaded graph extracts %d commands, original %d", len(cmds), len(want))
	}
}

func TestSaveLoadGraph(t *testing.T) {
	g := plantGraph(t)
	path := filepath.Join(t.TempDir(), "plant.yaml")

	if err := SaveGraph(g, path); err != nil {
		t.Fatalf("SaveGraph() error = %v", err)
	}
	got, err := LoadGraph(path, g.Name)
	if err != nil {
		t.Fatalf("LoadGraph() error = %v", err)
	}
	if len(got.Links()) != len(g.Links()) {
		t.Errorf("links = %d, want %d", len(got.Links()), len(g.Links()))
	}

	if _, err := LoadGraph(path, "Other"); !errors.Is(err, ErrHierarchyNotFound) {
		t.Errorf("LoadGraph(Other) error = %v, want ErrHierarchyNotFound", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestPutGraph_Replaces(t *testing.T) {
	d := New("p")
	d.PutGraph(plant.NewGraph("A"))
	d.PutGraph(plant.NewGraph("B"))

	g := plant.NewGraph("A")
	if err := g.AddRoot(plant.NewElement("Resources", plant.RoleResources)); err != nil {
		t.Fatal(err)
	}
	d.PutGraph(g)

	if len(d.InstanceHierarchies) != 2 {
		t.Fatalf("hierarchies = %d, want 2", len(d.InstanceHierarchies))
	}
	if d.InstanceHierarchies[0].Name != "A" || len(d.InstanceHierarchies[0].Elements) != 1 {
		t.Errorf("hierarchy A = %+v", d.InstanceHierarchies[0])
	}
}

func TestRead_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: ErrInvalidDocument},
		{name: "unknown field", input: "header: {writer: x}\nbogus: 1\n", wantErr: ErrInvalidDocument},
		{name: "future version", input: "header: {writer: x, version: \"9\"}\n", wantErr: ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.input)); !errors.Is(err, tt.wantErr) {
				t.Errorf("Read() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGraph_Rejects(t *testing.T) {
	tests := []struct {
		name string
		h    Hierarchy
	}{
		{
			name: "dangling link",
			h: Hierarchy{
				Name:     "X",
				Elements: []ElementNode{{ID: "e1", Name: "A"}},
				Links:    []LinkNode{{Name: "l", A: "missing", B: "also-missing"}},
			},
		},
		{
			name: "bad number",
			h: Hierarchy{
				Name:     "X",
				Elements: []ElementNode{{Name: "A", Attributes: []AttributeNode{{Name: "id", Kind: "number", Value: "one"}}}},
			},
		},
		{
			name: "duplicate sibling",
			h: Hierarchy{
				Name:     "X",
				Elements: []ElementNode{{Name: "A", Children: []ElementNode{{Name: "B"}, {Name: "B"}}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.h.Graph(); !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Graph() error = %v, want ErrInvalidDocument", err)
			}
		})
	}
}
