// Package compiler expands a transport plan into the process subtree of a
// plant graph.
//
// The subtree is Processes → Job → {Init, Order → Transport1..k, Park}. Every
// process is a fixed template of steps; every step is linked to the resource
// that executes it (Arm, Sledge or a Station) and, when a color is known, to
// the Workpiece of that color. Transport processes are linked to the
// Endproduct they deliver.
//
// Compile validates everything before it touches the graph, so a failed
// compile leaves the graph unchanged.
package compiler
