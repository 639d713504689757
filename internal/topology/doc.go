// Package topology turns a slot property table into the resource subtree of
// a plant graph.
//
// The table is an ordered list of (id, color, type) rows, read from a ';'
// separated file with a header row. Build places one Slot per row, with side
// and position derived from the id alone. A Station is added under every row
// whose type names a station. AddProducts then creates the Workpiece and
// Endproduct elements for every station color.
//
// Rows reads the table back out of a graph. It is used when a document is
// re-exported and when a scan result is turned into a topology.
package topology
