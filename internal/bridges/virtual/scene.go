package virtual

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
)

// mmPerMetre converts document positions to scene units.
const mmPerMetre = 1000

// leftRotation turns objects on the left rail to face the carriage.
const leftRotation = 180

// Vec3 is a position or rotation in scene units.
type Vec3 [3]float64

// Placement inserts one library object into the twin scene.
type Placement struct {
	Object    string `json:"object"`
	LibraryID string `json:"library_id"`
	Name      string `json:"name"`
	Position  Vec3   `json:"position"`
	Rotation  Vec3   `json:"rotation"`
}

// Variable types of the symbolic interface.
const (
	TypeString = "string"
	TypeReal   = "real"
)

// Declaration declares one symbolic variable with its initial value.
type Declaration struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Initial string `json:"initial"`
}

// Scene is everything the twin needs to mirror one topology.
type Scene struct {
	Placements []Placement   `json:"placements"`
	Variables  []Declaration `json:"variables"`
}

// BuildScene places the frame, transport unit, slots, stations and the two
// controller logic objects of a topology graph, and declares the symbolic
// variables of the kinematics and controller logic.
func BuildScene(g *plant.Graph, lib Library, cfg Config) (*Scene, error) {
	cfg.applyDefaults()
	s := &Scene{}

	for _, fixed := range []struct {
		role   plant.Role
		object string
	}{
		{plant.RoleFrame, ObjectFrame},
		{plant.RoleTransportUnit, ObjectTransportUnit},
	} {
		e, err := plant.One(g.Find(plant.WithRole(fixed.role)), string(fixed.role))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
		}
		p, err := place(lib, fixed.object, fixed.object, e, 0)
		if err != nil {
			return nil, err
		}
		s.Placements = append(s.Placements, p)
	}

	slots := topology.Slots(g)
	for _, slot := range slots {
		id, ok := slot.Int(plant.AttrID)
		if !ok {
			return nil, fmt.Errorf("%w: slot %s has no id", ErrInvalidScene, slot.Name)
		}
		var zRot float64
		if side, _ := slot.Str(plant.AttrSide); side == topology.SideLeft {
			zRot = leftRotation
		}
		p, err := place(lib, ObjectSlot, ObjectSlot+strconv.Itoa(id), slot, zRot)
		if err != nil {
			return nil, err
		}
		s.Placements = append(s.Placements, p)

		station := topology.StationOf(slot)
		if station == nil {
			continue
		}
		typ, _ := station.Str(plant.AttrType)
		color, _ := station.Str(plant.AttrColor)
		name := typ + "_" + color
		// Stations sit on their slot's library anchor.
		p, err = place(lib, name, name, slot, zRot)
		if err != nil {
			return nil, err
		}
		s.Placements = append(s.Placements, p)
	}

	for _, object := range []string{ObjectSledgeLogic, ObjectArmLogic} {
		id, err := lib.Lookup(object)
		if err != nil {
			return nil, err
		}
		s.Placements = append(s.Placements, Placement{Object: object, LibraryID: id, Name: object})
	}

	s.Variables = declarations(cfg, len(slots))
	return s, nil
}

func place(lib Library, object, name string, e *plant.Element, zRot float64) (Placement, error) {
	id, err := lib.Lookup(object)
	if err != nil {
		return Placement{}, err
	}
	var pos Vec3
	for i, attr := range []string{plant.AttrX, plant.AttrY, plant.AttrZ} {
		v, ok := e.Float(attr)
		if !ok {
			return Placement{}, fmt.Errorf("%w: %s has no %s", ErrInvalidScene, e.Name, attr)
		}
		pos[i] = v / mmPerMetre
	}
	return Placement{
		Object:    object,
		LibraryID: id,
		Name:      name,
		Position:  pos,
		Rotation:  Vec3{0, 0, zRot},
	}, nil
}

// declarations lists the kinematic variables, then the sledge and arm
// controller variables. A name declared twice keeps its first declaration.
func declarations(cfg Config, slots int) []Declaration {
	all := []Declaration{
		{"sledge_pos", TypeReal, "0"},
		{"sledge_targetPos", TypeReal, "0"},
		{"sledge_defaultVel", TypeReal, "0.1"},
		{"sledge_posTol", TypeReal, "0.004"},
		{"arm_pos", TypeReal, "0"},
		{"arm_targetPos", TypeReal, "0"},
		{"arm_defaultVel", TypeReal, "100"},
		{"arm_posTol", TypeReal, "1"},

		{StateVariable(cfg.SledgeVariable), TypeString, "undefined"},
		{cfg.SledgeVariable, TypeString, "standby"},
		{"sledge_posTol", TypeReal, "0.01"},
	}
	for id := 1; id <= slots; id++ {
		all = append(all, Declaration{fmt.Sprintf("slot%d_color", id), TypeString, "off"})
	}
	all = append(all,
		Declaration{StateVariable(cfg.ArmVariable), TypeString, "undefined"},
		Declaration{cfg.ArmVariable, TypeString, "standby"},
		Declaration{"arm_color", TypeString, "undefined"},
	)

	seen := make(map[string]bool, len(all))
	out := all[:0]
	for _, d := range all {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}
