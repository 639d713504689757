// Package transport matches source stations to sink stations by color.
//
// Two policies are supported. Automatic walks the sinks in discovery order
// and takes the first remaining source of the same color. Custom walks a
// caller supplied color sequence and emits at most one pair per entry.
// Unmatched colors are skipped without error under both policies.
package transport
