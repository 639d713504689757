package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/topology"
)

// Scan plays the discovery script on the physical back-end and returns the
// slot property table it read. Rows the hardware did not report keep an
// empty color and type.
//
// Scan is separate from Simulate: only readProperties completions are
// parsed, and only the physical lanes take part.
func (e *Engine) Scan(ctx context.Context, progress ProgressFunc) ([]topology.SlotRow, *Run, error) {
	rows := topology.EmptyTable(command.ScanSlots)

	hook := func(_ int, cmd command.Command, _ Backend, c Completion) {
		if cmd.Verb() != command.ReadPropertiesVerb {
			return
		}
		id, color, typ, ok := parseProperties(c.Tokens)
		if !ok {
			e.deps.Logger.Warn("unparseable discovery response", "opcode", cmd.Opcode, "tokens", c.Tokens)
			return
		}
		if id < 1 || id > len(rows) {
			e.deps.Logger.Warn("discovery response for unknown slot", "slot_id", id)
			return
		}
		rows[id-1].Color = color
		rows[id-1].Type = typ
	}

	run, err := e.execute(ctx, KindScan, command.ScanScript(command.ScanSlots), []Backend{Physical}, progress, hook)
	if err != nil {
		return nil, run, err
	}

	if e.deps.Repo != nil {
		if err := e.deps.Repo.SaveScanResults(ctx, run.ID, rows); err != nil {
			e.deps.Logger.Error("failed to save scan results", "run_id", run.ID, "error", err)
		}
	}
	return rows, run, nil
}

// parseProperties reads the marker, id, color and type tokens of a
// discovery response. A missing color or type means no station.
func parseProperties(tokens []string) (id int, color, typ string, ok bool) {
	if len(tokens) < 2 || tokens[0] != command.DiscoveryMarker {
		return 0, "", "", false
	}
	id, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
	if err != nil {
		return 0, "", "", false
	}
	if len(tokens) > 2 {
		color = strings.TrimSpace(tokens[2])
	}
	if len(tokens) > 3 {
		typ = strings.TrimSpace(tokens[3])
	}
	if typ == topology.TypeEmpty {
		color, typ = "", ""
	}
	return id, color, typ, true
}
