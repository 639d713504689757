package compiler

import (
	"errors"
	"fmt"

	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
	"github.com/nerrad567/plantline/internal/transport"
)

// Element names of the process subtree.
const (
	ProcessesName = "Processes"
	JobName       = "Job"
	InitName      = "Init"
	OrderName     = "Order"
	ParkName      = "Park"
)

// TransportName returns the name of the n-th (1-based) transport process.
func TransportName(n int) string { return fmt.Sprintf("Transport%d", n) }

// pendingLink is a link to create once the whole subtree is valid.
type pendingLink struct {
	name string
	a, b *plant.InterfacePoint
}

// compilation holds the resources looked up once per Compile call.
type compilation struct {
	arm      *plant.Element
	sledge   *plant.Element
	products *plant.Element
	links    []pendingLink
}

// Compile replaces the Processes subtree of g with the Job for pairs.
// g must already hold the resource subtree and the Products root.
func Compile(g *plant.Graph, pairs []transport.Pair) error {
	c := &compilation{}
	var err error
	if c.arm, err = plant.One(g.Find(plant.WithRole(plant.RoleArm)), "arm"); err != nil {
		return err
	}
	if c.sledge, err = plant.One(g.Find(plant.WithRole(plant.RoleSledge)), "sledge"); err != nil {
		return err
	}
	c.products = g.Root(topology.ProductsName)

	processes := plant.NewElement(ProcessesName, plant.RoleProcesses)
	job := plant.NewElement(JobName, plant.RoleJob)
	if err := processes.AddChild(job); err != nil {
		return err
	}

	initProc, err := c.process(InitName, initTemplate(), nil)
	if err != nil {
		return err
	}

	order := plant.NewElement(OrderName, plant.RoleOrder)
	for i, pair := range pairs {
		proc, err := c.transport(i+1, pair)
		if err != nil {
			return err
		}
		if err := order.AddChild(proc); err != nil {
			return err
		}
	}

	parkProc, err := c.park(g)
	if err != nil {
		return err
	}

	for _, child := range []*plant.Element{initProc, order, parkProc} {
		if err := job.AddChild(child); err != nil {
			return err
		}
	}

	for _, l := range c.links {
		if l.a == nil || l.b == nil {
			return fmt.Errorf("%w: %s has no matching interface", plant.ErrInvalidLink, l.name)
		}
	}

	g.RemoveRoot(ProcessesName)
	if err := g.AddRoot(processes); err != nil {
		return err
	}
	for _, l := range c.links {
		if _, err := g.Link(l.name, l.a, l.b); err != nil {
			return err
		}
	}
	return nil
}

// pairContext is the per-transport data a template step may refer to.
type pairContext struct {
	color       string
	departure   *plant.Element
	destination *plant.Element
	workpiece   *plant.Element
}

func (c *compilation) transport(n int, pair transport.Pair) (*plant.Element, error) {
	departure := topology.StationOf(pair.Source)
	destination := topology.StationOf(pair.Sink)
	if departure == nil || destination == nil {
		return nil, fmt.Errorf("%w: transport %d (slot %d to slot %d)", ErrInvalidPair, n, pair.SourceID(), pair.SinkID())
	}

	color := pair.Color()
	workpiece, err := c.product(plant.RoleWorkpiece, color)
	if err != nil {
		return nil, err
	}
	endproduct, err := c.product(plant.RoleEndproduct, color)
	if err != nil {
		return nil, err
	}

	ctx := &pairContext{
		color:       color,
		departure:   departure,
		destination: destination,
		workpiece:   workpiece,
	}
	proc, err := c.process(TransportName(n), transportTemplate(pair.SourceID(), pair.SinkID()), ctx)
	if err != nil {
		return nil, err
	}
	proc.Set(plant.AttrDepartureID, plant.Number(float64(pair.SourceID())))
	proc.Set(plant.AttrDestinationID, plant.Number(float64(pair.SinkID())))
	proc.Set(plant.AttrColor, plant.Enum(color))

	c.link(proc.Name+"_"+endproduct.Name,
		proc.AddInterface("EndproductProcess", plant.EndproductProcess),
		endproduct.Interface(plant.EndproductProcess))
	return proc, nil
}

func (c *compilation) park(g *plant.Graph) (*plant.Element, error) {
	proc, err := c.process(ParkName, parkTemplate(), nil)
	if err != nil {
		return nil, err
	}
	for _, slot := range topology.Slots(g) {
		station := topology.StationOf(slot)
		if station == nil {
			continue
		}
		id, _ := slot.Int(plant.AttrID)
		spec := stepSpec{role: plant.RoleDropProductAsStation, on: onStation, slotID: id}
		if err := c.step(proc, len(proc.Children())+1, spec, &pairContext{departure: station}); err != nil {
			return nil, err
		}
	}
	return proc, nil
}

func (c *compilation) process(name string, specs []stepSpec, ctx *pairContext) (*plant.Element, error) {
	proc := plant.NewElement(name, plant.RoleProductionProcess)
	for i, spec := range specs {
		if err := c.step(proc, i+1, spec, ctx); err != nil {
			return nil, err
		}
	}
	return proc, nil
}

func (c *compilation) step(proc *plant.Element, n int, spec stepSpec, ctx *pairContext) error {
	step := plant.NewElement(fmt.Sprintf("%s_%02d_%s", proc.Name, n, spec.role), spec.role)
	if spec.slotID >= 0 {
		step.Set(plant.AttrSlotID, plant.Number(float64(spec.slotID)))
	}
	if spec.color {
		step.Set(plant.AttrColor, plant.Enum(ctx.color))
	}

	var executor *plant.Element
	switch spec.on {
	case onArm:
		executor = c.arm
	case onSledge:
		executor = c.sledge
	case onStation:
		executor = ctx.departure
	case onDestinationStation:
		executor = ctx.destination
	}
	c.link(step.Name+"_"+executor.Name,
		step.AddInterface("ResourceProcess", plant.ResourceProcess),
		executor.Interface(plant.ResourceProcess))

	if spec.withItem {
		c.link(step.Name+"_"+ctx.workpiece.Name,
			step.AddInterface("WorkpieceProcess", plant.WorkpieceProcess),
			ctx.workpiece.Interface(plant.WorkpieceProcess))
	}

	return proc.AddChild(step)
}

func (c *compilation) link(name string, a, b *plant.InterfacePoint) {
	c.links = append(c.links, pendingLink{name: name, a: a, b: b})
}

// product finds the single product of role and color under the Products root.
func (c *compilation) product(role plant.Role, color string) (*plant.Element, error) {
	if c.products == nil {
		return nil, &MissingProductError{Color: color, Kind: string(role)}
	}
	e, err := plant.One(plant.Filter(plant.Subtree(c.products),
		plant.And(plant.WithRole(role), plant.AttrIs(plant.AttrColor, plant.Enum(color)))),
		fmt.Sprintf("%s %s", color, role))
	if err != nil {
		if errors.Is(err, plant.ErrLookupNotFound) {
			return nil, &MissingProductError{Color: color, Kind: string(role)}
		}
		return nil, err
	}
	return e, nil
}
