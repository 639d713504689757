package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/plantline/internal/plant"
)

// Class is the execution lane a command runs on.
type Class string

// Execution classes.
const (
	Arm    Class = "arm"
	Sledge Class = "sledge"
)

// Classes lists both lanes in a stable order.
var Classes = []Class{Arm, Sledge}

// CompletionSuffix is appended to an opcode by a back-end that finished it.
const CompletionSuffix = "f"

// Command is one opcode bound to the lane that executes it.
type Command struct {
	Opcode string `json:"opcode"`
	Class  Class  `json:"class"`
}

// CompletionToken is the response value that marks the command as done.
func (c Command) CompletionToken() string { return c.Opcode + CompletionSuffix }

// Verb returns the opcode without its parameter suffix.
func (c Command) Verb() string {
	verb, _, _ := strings.Cut(c.Opcode, "_")
	return verb
}

func (c Command) String() string { return string(c.Class) + ":" + c.Opcode }

// entry is one row of the role table.
type entry struct {
	verb  string
	class Class
	slot  bool
	color bool
}

var table = map[plant.Role]entry{
	plant.RoleReference:            {verb: "reference", class: Sledge},
	plant.RoleHome:                 {verb: "home", class: Sledge},
	plant.RolePark:                 {verb: "park", class: Sledge},
	plant.RoleMoveTo:               {verb: "moveTo", class: Sledge, slot: true},
	plant.RoleTakeProductAsStation: {verb: "takeProductAsStation", class: Sledge, slot: true, color: true},
	plant.RoleDropProductAsStation: {verb: "dropProductAsStation", class: Sledge, slot: true},
	plant.RoleMoveToSide:           {verb: "moveToSide", class: Arm, slot: true},
	plant.RoleLEDCheck:             {verb: "ledCheck", class: Arm},
	plant.RoleTakeProductAsGripper: {verb: "takeProductAsGripper", class: Arm, color: true},
	plant.RoleDropProductAsGripper: {verb: "dropProductAsGripper", class: Arm},
}

// verbs is the reverse index of table.
var verbs = func() map[string]plant.Role {
	m := make(map[string]plant.Role, len(table))
	for role, e := range table {
		m[e.verb] = role
	}
	return m
}()

// ClassOf returns the lane that executes role.
func ClassOf(role plant.Role) (Class, bool) {
	e, ok := table[role]
	return e.class, ok
}

// Encode builds the command for role. slotID is used when the opcode takes a
// slot, color when it takes a color.
func Encode(role plant.Role, slotID int, color string) (Command, error) {
	e, ok := table[role]
	if !ok {
		return Command{}, fmt.Errorf("%w: role %q", ErrUnknownOpcode, role)
	}
	var b strings.Builder
	b.WriteString(e.verb)
	if e.slot {
		fmt.Fprintf(&b, "_SLOT%d", slotID)
	}
	if e.color {
		if color == "" {
			return Command{}, fmt.Errorf("%w: %s needs a color", ErrMissingParameter, role)
		}
		b.WriteString("_COLOR" + color)
	}
	return Command{Opcode: b.String(), Class: e.class}, nil
}

// Spec is a parsed opcode.
type Spec struct {
	Role   plant.Role
	Class  Class
	SlotID int
	Color  string
}

// Parse maps an opcode back to its step role and parameters.
func Parse(opcode string) (Spec, error) {
	parts := strings.Split(opcode, "_")
	role, ok := verbs[parts[0]]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownOpcode, opcode)
	}
	e := table[role]
	spec := Spec{Role: role, Class: e.class}

	rest := parts[1:]
	if e.slot {
		if len(rest) == 0 || !strings.HasPrefix(rest[0], "SLOT") {
			return Spec{}, fmt.Errorf("%w: %q lacks a slot", ErrUnknownOpcode, opcode)
		}
		id, err := strconv.Atoi(strings.TrimPrefix(rest[0], "SLOT"))
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %q has a bad slot", ErrUnknownOpcode, opcode)
		}
		spec.SlotID = id
		rest = rest[1:]
	}
	if e.color {
		if len(rest) == 0 || !strings.HasPrefix(rest[0], "COLOR") {
			return Spec{}, fmt.Errorf("%w: %q lacks a color", ErrUnknownOpcode, opcode)
		}
		spec.Color = strings.TrimPrefix(rest[0], "COLOR")
		rest = rest[1:]
	}
	if len(rest) != 0 {
		return Spec{}, fmt.Errorf("%w: %q has trailing parameters", ErrUnknownOpcode, opcode)
	}
	return spec, nil
}
