package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/compiler"
	"github.com/nerrad567/plantline/internal/document"
	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
	"github.com/nerrad567/plantline/internal/transport"
)

var demoRows = []topology.SlotRow{
	{ID: 1, Color: "red", Type: topology.TypeSource},
	{ID: 2, Color: "blue", Type: topology.TypeSink},
	{ID: 3, Color: "blue", Type: topology.TypeSource},
	{ID: 4, Color: "red", Type: topology.TypeSink},
	{ID: 5},
}

// wantCommands is the command count of a line with k transports and s stations.
func wantCommands(k, s int) int { return 4 + k*compiler.TransportSteps + 3 + s }

func TestExportTopologyThenPlant(t *testing.T) {
	topo, err := ExportTopology(demoRows, "", nil)
	if err != nil {
		t.Fatalf("ExportTopology() error = %v", err)
	}
	for cat, names := range document.BlueprintLibraries {
		for _, name := range names {
			if topo.Library(cat, name) == nil {
				t.Errorf("topology document lacks %s %s", cat, name)
			}
		}
	}

	plantDoc, err := ExportPlant(topo, "", PlanOptions{Policy: transport.Automatic})
	if err != nil {
		t.Fatalf("ExportPlant() error = %v", err)
	}
	if topo.Hierarchy(DefaultHierarchy) == nil || len(topo.InstanceHierarchies) != 1 {
		t.Fatal("ExportPlant() modified the topology document")
	}

	cmds, err := Commands(plantDoc, "")
	if err != nil {
		t.Fatalf("Commands() error = %v", err)
	}
	if got, want := len(cmds), wantCommands(2, 4); got != want {
		t.Errorf("len(cmds) = %d, want %d", got, want)
	}
	if cmds[0] != (command.Command{Opcode: "moveToSide_SLOT0", Class: command.Arm}) {
		t.Errorf("first command = %v", cmds[0])
	}
}

func TestExportPlant_Reexport(t *testing.T) {
	topo, err := ExportTopology(demoRows, "", nil)
	if err != nil {
		t.Fatalf("ExportTopology() error = %v", err)
	}
	first, err := ExportPlant(topo, "", PlanOptions{Policy: transport.Custom, Colors: []string{"red"}})
	if err != nil {
		t.Fatalf("ExportPlant() error = %v", err)
	}
	second, err := ExportPlant(first, "", PlanOptions{Policy: transport.Custom, Colors: []string{"red", "blue"}})
	if err != nil {
		t.Fatalf("ExportPlant(plant) error = %v", err)
	}

	cmds, err := Commands(second, "")
	if err != nil {
		t.Fatalf("Commands() error = %v", err)
	}
	if got, want := len(cmds), wantCommands(2, 4); got != want {
		t.Errorf("re-export has %d commands, want %d", got, want)
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		opts PlanOptions
		want int
	}{
		{name: "default policy", opts: PlanOptions{}, want: wantCommands(2, 4)},
		{name: "custom one color", opts: PlanOptions{Policy: transport.Custom, Colors: []string{"blue"}}, want: wantCommands(1, 4)},
		{name: "custom unknown color", opts: PlanOptions{Policy: transport.Custom, Colors: []string{"green"}}, want: wantCommands(0, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, err := Plan(demoRows, tt.opts)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if len(cmds) != tt.want {
				t.Errorf("len(cmds) = %d, want %d", len(cmds), tt.want)
			}
		})
	}
}

func TestPipelineErrors(t *testing.T) {
	if _, err := ExportTopology([]topology.SlotRow{{ID: 1, Color: "pink", Type: topology.TypeSink}}, "", nil); !errors.Is(err, topology.ErrUnknownColorOrType) {
		t.Errorf("ExportTopology(pink) error = %v, want ErrUnknownColorOrType", err)
	}
	if _, err := Plan(nil, PlanOptions{}); !errors.Is(err, topology.ErrMalformedInput) {
		t.Errorf("Plan(nil) error = %v, want ErrMalformedInput", err)
	}
	if _, err := Plan(demoRows, PlanOptions{Policy: "greedy"}); !errors.Is(err, transport.ErrUnknownPolicy) {
		t.Errorf("Plan(greedy) error = %v, want ErrUnknownPolicy", err)
	}
	if _, err := ExportPlant(document.New("empty"), "", PlanOptions{}); !errors.Is(err, document.ErrSubtreeNotFound) {
		t.Errorf("ExportPlant(empty) error = %v, want ErrSubtreeNotFound", err)
	}
	if _, err := Commands(document.New("empty"), ""); !errors.Is(err, document.ErrHierarchyNotFound) {
		t.Errorf("Commands(empty) error = %v, want ErrHierarchyNotFound", err)
	}
}

// editedTopology exports demoRows, lets edit change slot ids in the graph
// and reloads the document from its YAML form.
func editedTopology(t *testing.T, edit func(slots []*plant.Element)) *document.Document {
	t.Helper()
	topo, err := ExportTopology(demoRows, "", nil)
	if err != nil {
		t.Fatalf("ExportTopology() error = %v", err)
	}
	g, err := topo.Graph(DefaultHierarchy)
	if err != nil {
		t.Fatal(err)
	}
	edit(topology.Slots(g))
	topo.PutGraph(g)

	var buf bytes.Buffer
	if err := topo.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	loaded, err := document.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return loaded
}

func TestExportPlant_RejectsBadSlotIDs(t *testing.T) {
	tests := []struct {
		name string
		edit func(slots []*plant.Element)
	}{
		{name: "gap", edit: func(slots []*plant.Element) { slots[1].Set(plant.AttrID, plant.Number(6)) }},
		{name: "duplicate", edit: func(slots []*plant.Element) { slots[1].Set(plant.AttrID, plant.Number(1)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo := editedTopology(t, tt.edit)
			if _, err := ExportPlant(topo, "", PlanOptions{}); !errors.Is(err, topology.ErrMalformedInput) {
				t.Errorf("ExportPlant() error = %v, want ErrMalformedInput", err)
			}
		})
	}
}
