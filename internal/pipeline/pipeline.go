package pipeline

import (
	"fmt"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/compiler"
	"github.com/nerrad567/plantline/internal/document"
	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
	"github.com/nerrad567/plantline/internal/transport"
)

// DefaultHierarchy is the instance hierarchy name of exported documents.
const DefaultHierarchy = "PlantProject"

// PlanOptions selects how transports are planned.
type PlanOptions struct {
	Policy transport.Policy
	Colors []string
}

// ExportTopology builds the topology hierarchy for rows and stores it in a
// new document together with the blueprint libraries. A nil blueprint uses
// the built-in one.
func ExportTopology(rows []topology.SlotRow, hierarchy string, blueprint *document.Document) (*document.Document, error) {
	if blueprint == nil {
		blueprint = document.Blueprint()
	}
	g, err := topology.Build(hierarchyName(hierarchy), rows)
	if err != nil {
		return nil, err
	}

	d := document.New(g.Name)
	if err := document.ImportNamedSubtrees(d, blueprint, document.BlueprintLibraries); err != nil {
		return nil, fmt.Errorf("import blueprint libraries: %w", err)
	}
	d.PutGraph(g)
	return d, nil
}

// ExportPlant copies the topology hierarchy and libraries of topo into a
// new document, then adds products and the compiled Job.
func ExportPlant(topo *document.Document, hierarchy string, opts PlanOptions) (*document.Document, error) {
	name := hierarchyName(hierarchy)
	d := document.New(name)

	names := map[document.Category][]string{document.InstanceHierarchies: {name}}
	for cat, libs := range document.BlueprintLibraries {
		for _, lib := range libs {
			if topo.Library(cat, lib) != nil {
				names[cat] = append(names[cat], lib)
			}
		}
	}
	if err := document.ImportNamedSubtrees(d, topo, names); err != nil {
		return nil, err
	}

	g, err := d.Graph(name)
	if err != nil {
		return nil, err
	}
	if err := BuildPlant(g, opts); err != nil {
		return nil, err
	}
	d.PutGraph(g)
	return d, nil
}

// BuildPlant adds products and the Job to a topology graph in place.
// The slot table is read back from the graph and validated first.
func BuildPlant(g *plant.Graph, opts PlanOptions) error {
	rows := topology.Rows(g)
	if len(rows) == 0 {
		return &topology.MalformedInputError{Reason: "graph has no slots"}
	}
	if n := len(topology.Slots(g)); n != len(rows) {
		return &topology.MalformedInputError{Reason: fmt.Sprintf("%d of %d slots carry no id", n-len(rows), n)}
	}
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if err := topology.CheckIDs(rows); err != nil {
		return err
	}

	if err := topology.AddProducts(g); err != nil {
		return err
	}
	policy := opts.Policy
	if policy == "" {
		policy = transport.Automatic
	}
	sinks, sources := transport.Candidates(g)
	pairs, err := transport.Plan(sinks, sources, policy, opts.Colors)
	if err != nil {
		return err
	}
	return compiler.Compile(g, pairs)
}

// Commands extracts the command list from the plant hierarchy of d.
func Commands(d *document.Document, hierarchy string) ([]command.Command, error) {
	g, err := d.Graph(hierarchyName(hierarchy))
	if err != nil {
		return nil, err
	}
	return command.Extract(g)
}

// Plan runs the whole pipeline in memory: rows to command list.
func Plan(rows []topology.SlotRow, opts PlanOptions) ([]command.Command, error) {
	g, err := topology.Build(DefaultHierarchy, rows)
	if err != nil {
		return nil, err
	}
	if err := BuildPlant(g, opts); err != nil {
		return nil, err
	}
	return command.Extract(g)
}

func hierarchyName(name string) string {
	if name == "" {
		return DefaultHierarchy
	}
	return name
}
