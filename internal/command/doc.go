// Package command linearizes a compiled Job into the ordered list of opcodes
// the execution engine plays back.
//
// Every process step maps to exactly one Command through a fixed table of
// opcode templates and execution classes:
//
//	Reference, Home, Park, MoveTo, TakeProductAsStation, DropProductAsStation → sledge
//	MoveToSide, LEDCheck, TakeProductAsGripper, DropProductAsGripper          → arm
//
// Parse maps an opcode back to its step role, so an extracted list can be
// checked against the process graph it came from.
package command
