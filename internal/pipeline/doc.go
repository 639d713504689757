// Package pipeline runs the synchronous plan-building steps end to end:
//
//	slot table ──► ExportTopology ──► topology document
//	topology document ──► ExportPlant ──► plant document (products + Job)
//	plant document ──► Commands ──► command list for the engine
//
// Every step fails fast; no partially built document is returned.
package pipeline
