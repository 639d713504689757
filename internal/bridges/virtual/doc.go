// Package virtual drives the virtual twin of the line.
//
// The twin runs in a simulation host that exposes symbolic variables over
// MQTT. Each lane has a command variable (ar_command, ss_command) and a
// state variable with the "State" suffix. A command is executed by forcing
// the command variable to the opcode and waiting until the state variable
// reports the opcode followed by "f":
//
//	host                                   twin
//	 │ ── virtual/set/ar_command = mvToSlot3 ──► │
//	 │ ◄── virtual/state/ar_commandState ─────── │  mvToSlot3f
//	 │ ── virtual/release/ar_command ──────────► │
//
// State values arrive retained on plantline/virtual/state/<name> and are
// cached by Variables, so polling never touches the broker.
//
// # Scene Import
//
// Importer places the library objects of a topology graph in the twin scene
// and declares the symbolic variables the controller logic needs.
package virtual
