package compiler

import (
	"github.com/nerrad567/plantline/internal/plant"
)

// CenterSlot is the pseudo slot id of the arm's centre position.
const CenterSlot = 0

// resource selects which element executes a step.
type resource int

const (
	onArm resource = iota
	onSledge
	onDestinationStation
	onStation
)

// stepSpec is one entry of a process template.
type stepSpec struct {
	role     plant.Role
	on       resource
	slotID   int  // -1 when the step has no slot parameter
	color    bool // step carries the departure color
	withItem bool // step is linked to the departure color's Workpiece
}

// initTemplate prepares the carriage: centre the arm, reference and home the sledge, test the LEDs.
func initTemplate() []stepSpec {
	return []stepSpec{
		{role: plant.RoleMoveToSide, on: onArm, slotID: CenterSlot},
		{role: plant.RoleReference, on: onSledge, slotID: -1},
		{role: plant.RoleHome, on: onSledge, slotID: -1},
		{role: plant.RoleLEDCheck, on: onArm, slotID: -1},
	}
}

// transportTemplate moves one product from departure to destination.
func transportTemplate(departure, destination int) []stepSpec {
	return []stepSpec{
		{role: plant.RoleMoveTo, on: onSledge, slotID: departure},
		{role: plant.RoleMoveTo, on: onSledge, slotID: destination},
		{role: plant.RoleMoveToSide, on: onArm, slotID: departure},
		{role: plant.RoleMoveToSide, on: onArm, slotID: destination},
		{role: plant.RoleTakeProductAsGripper, on: onArm, slotID: -1, color: true, withItem: true},
		{role: plant.RoleDropProductAsGripper, on: onArm, slotID: -1, withItem: true},
		{role: plant.RoleTakeProductAsStation, on: onDestinationStation, slotID: destination, color: true, withItem: true},
		// Parameterised by the departure slot but executed by the destination station.
		{role: plant.RoleDropProductAsStation, on: onDestinationStation, slotID: departure, withItem: true},
		{role: plant.RoleMoveToSide, on: onArm, slotID: CenterSlot},
	}
}

// TransportSteps is the length of the transport template.
var TransportSteps = len(transportTemplate(1, 2))

// parkTemplate empties the gripper, parks the carriage and releases every
// station. Station steps are appended per slot by the compiler.
func parkTemplate() []stepSpec {
	return []stepSpec{
		{role: plant.RoleDropProductAsGripper, on: onArm, slotID: -1},
		{role: plant.RoleMoveToSide, on: onArm, slotID: CenterSlot},
		{role: plant.RolePark, on: onSledge, slotID: -1},
	}
}
