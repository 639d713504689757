// Package engine plays an ordered command list back on one or two execution
// back-ends and runs the discovery scan.
//
// Each back-end (physical controller, virtual twin) exposes two lanes, arm
// and sledge, through the Channel contract. A lane is Standby when idle and
// Processing while a command is in flight; a command completes when the lane
// reports the opcode followed by "f".
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                    Engine (engine.go)                    │
//	│  for each command, in order:                             │
//	│    1. resolve the lane on every active back-end          │
//	│    2. poll until every lane is Standby  (wait.go)        │
//	│    3. Send + Await on every back-end, concurrently       │
//	│       in dual mode (errgroup), joined before step 4      │
//	│    4. record command, report progress                    │
//	│  ┌──────────────┐  ┌───────────┐  ┌────────────────────┐ │
//	│  │  Repository  │  │  Metrics  │  │ Telemetry / Tracer │ │
//	│  └──────────────┘  └───────────┘  └────────────────────┘ │
//	└──────────────────────────────────────────────────────────┘
//
// Command i+1 is never sent on any lane before command i has completed on
// every active back-end. Cancellation is honoured between commands only; a
// command in flight is awaited until it completes or the completion timeout
// expires.
//
// # Thread Safety
//
// Engine is safe for concurrent use, but only one run (simulate or scan)
// executes at a time; a second one fails with ErrRunInProgress.
package engine
