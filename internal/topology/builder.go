package topology

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nerrad567/plantline/internal/plant"
)

// Element names of the resource subtree.
const (
	ResourcesName     = "Resources"
	LineName          = "Demonstrator"
	FrameName         = "Frame"
	TransportUnitName = "TransportUnit"
	SledgeName        = "Sledge"
	ArmName           = "Arm"
)

// Slot placement constants, in millimetres.
const (
	SlotPitch     = 62.5
	SlotXBase     = 150.0
	LeftY         = 413.2
	RightY        = 186.8
	SlotZ         = 99.0
	StationZ      = 109.0
	SideLeft      = "left"
	SideRight     = "right"
	interfaceName = "ResourceProcess"
)

// Frame and carriage rest positions, in millimetres.
var (
	FramePosition         = [3]float64{0, 0, 0}
	TransportUnitPosition = [3]float64{SlotXBase, (LeftY + RightY) / 2, SlotZ}
)

// SlotName returns the element name of slot id.
func SlotName(id int) string { return fmt.Sprintf("Slot%d", id) }

// StationName returns the element name of the station in slot id.
func StationName(id int) string { return fmt.Sprintf("Station%d", id) }

// Placement returns the side and position of slot id.
// Even ids sit on the left rail, odd ids on the right. Opposite slots share x.
func Placement(id int) (side string, x, y, z float64) {
	var factor int
	if id%2 == 0 {
		side, y, factor = SideLeft, LeftY, id-2
	} else {
		side, y, factor = SideRight, RightY, id-1
	}
	return side, SlotXBase + float64(factor)*SlotPitch, y, SlotZ
}

// Build creates a graph named hierarchy holding the resource subtree for rows.
//
// Rows may arrive in any order; their ids must be exactly 1..N. Slots are
// created in ascending id order, which is the discovery order used by the
// transport planner. No partial graph is returned on error.
func Build(hierarchy string, rows []SlotRow) (*plant.Graph, error) {
	sorted, err := normalize(rows)
	if err != nil {
		return nil, err
	}

	g := plant.NewGraph(hierarchy)
	resources := plant.NewElement(ResourcesName, plant.RoleResources)
	line := plant.NewElement(LineName, plant.RoleProductionLine)
	if err := g.AddRoot(resources); err != nil {
		return nil, err
	}
	if err := resources.AddChild(line); err != nil {
		return nil, err
	}

	frame := plant.NewElement(FrameName, plant.RoleFrame)
	setPosition(frame, FramePosition[0], FramePosition[1], FramePosition[2])

	unit := plant.NewElement(TransportUnitName, plant.RoleTransportUnit)
	setPosition(unit, TransportUnitPosition[0], TransportUnitPosition[1], TransportUnitPosition[2])
	sledge := plant.NewElement(SledgeName, plant.RoleSledge)
	sledge.AddInterface(interfaceName, plant.ResourceProcess)
	arm := plant.NewElement(ArmName, plant.RoleArm)
	arm.AddInterface(interfaceName, plant.ResourceProcess)

	for _, step := range []struct{ parent, child *plant.Element }{
		{line, frame},
		{line, unit},
		{unit, sledge},
		{unit, arm},
	} {
		if err := step.parent.AddChild(step.child); err != nil {
			return nil, err
		}
	}

	for _, r := range sorted {
		slot := plant.NewElement(SlotName(r.ID), plant.RoleSlot)
		side, x, y, z := Placement(r.ID)
		slot.Set(plant.AttrID, plant.Number(float64(r.ID)))
		slot.Set(plant.AttrSide, plant.Enum(side))
		setPosition(slot, x, y, z)

		if r.HasStation() {
			station := plant.NewElement(StationName(r.ID), plant.RoleStation)
			station.Set(plant.AttrColor, plant.Enum(r.Color))
			station.Set(plant.AttrType, plant.Enum(r.Type))
			setPosition(station, x, y, StationZ)
			station.AddInterface(interfaceName, plant.ResourceProcess)
			if err := slot.AddChild(station); err != nil {
				return nil, err
			}
		}
		if err := line.AddChild(slot); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// normalize validates rows and returns a trimmed copy sorted by id.
func normalize(rows []SlotRow) ([]SlotRow, error) {
	if len(rows) == 0 {
		return nil, &MalformedInputError{Reason: "slot table is empty"}
	}

	sorted := make([]SlotRow, len(rows))
	for i, r := range rows {
		r.Color = strings.TrimSpace(r.Color)
		r.Type = strings.TrimSpace(r.Type)
		if err := r.Validate(); err != nil {
			return nil, err
		}
		sorted[i] = r
	}
	slices.SortStableFunc(sorted, func(a, b SlotRow) int { return a.ID - b.ID })
	if err := checkSorted(sorted); err != nil {
		return nil, err
	}
	return sorted, nil
}

func setPosition(e *plant.Element, x, y, z float64) {
	e.Set(plant.AttrX, plant.Number(x))
	e.Set(plant.AttrY, plant.Number(y))
	e.Set(plant.AttrZ, plant.Number(z))
}

// Line returns the production line element of a topology graph.
func Line(g *plant.Graph) (*plant.Element, error) {
	return plant.One(g.Find(plant.WithRole(plant.RoleProductionLine)), "production line")
}

// Slots returns the slots of a topology graph in document order.
func Slots(g *plant.Graph) []*plant.Element {
	return slices.Collect(g.Find(plant.WithRole(plant.RoleSlot)))
}

// StationOf returns the station child of slot, or nil.
func StationOf(slot *plant.Element) *plant.Element {
	station, _ := plant.First(plant.Filter(slices.Values(slot.Children()), plant.WithRole(plant.RoleStation)))
	return station
}

// CheckIDs verifies that the slot ids are unique and form 1..N, in any order.
func CheckIDs(rows []SlotRow) error {
	if len(rows) == 0 {
		return &MalformedInputError{Reason: "slot table is empty"}
	}
	sorted := slices.SortedStableFunc(slices.Values(rows), func(a, b SlotRow) int { return a.ID - b.ID })
	return checkSorted(sorted)
}

func checkSorted(sorted []SlotRow) error {
	for i, r := range sorted {
		want := i + 1
		switch {
		case i > 0 && r.ID == sorted[i-1].ID:
			return &MalformedInputError{SlotID: r.ID, Reason: "duplicate id"}
		case r.ID != want:
			return &MalformedInputError{SlotID: want, Reason: fmt.Sprintf("ids are not contiguous, next id is %d", r.ID)}
		}
	}
	return nil
}
