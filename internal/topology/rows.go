package topology

import (
	"github.com/nerrad567/plantline/internal/plant"
)

// Rows reads the slot property table back out of a topology graph, in
// document order. Slots without an id attribute are skipped.
func Rows(g *plant.Graph) []SlotRow {
	var rows []SlotRow
	for _, slot := range Slots(g) {
		id, ok := slot.Int(plant.AttrID)
		if !ok {
			continue
		}
		row := SlotRow{ID: id}
		if station := StationOf(slot); station != nil {
			row.Color, _ = station.Str(plant.AttrColor)
			row.Type, _ = station.Str(plant.AttrType)
		}
		rows = append(rows, row)
	}
	return rows
}

// EmptyTable returns n rows with ids 1..n and no stations. It is the
// starting point of a scan.
func EmptyTable(n int) []SlotRow {
	rows := make([]SlotRow, n)
	for i := range rows {
		rows[i].ID = i + 1
	}
	return rows
}
