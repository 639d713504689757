package topology

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const delimiter = ';'

// ReadCSV parses a slot property table. The first line is a header and is skipped.
// Missing trailing fields are read as empty. Rows are returned in file order
// and are not validated beyond the id being an integer.
func ReadCSV(r io.Reader) ([]SlotRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []SlotRow
	line := 0
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &MalformedInputError{Row: line, Reason: err.Error()}
		}
		line++
		if line == 1 {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		row := line - 1
		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, &MalformedInputError{Row: row, Reason: fmt.Sprintf("id %q is not an integer", record[0])}
		}
		if len(record) > 3 {
			return nil, &MalformedInputError{Row: row, Reason: fmt.Sprintf("%d fields, want at most 3", len(record))}
		}
		sr := SlotRow{ID: id}
		if len(record) > 1 {
			sr.Color = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			sr.Type = strings.TrimSpace(record[2])
		}
		rows = append(rows, sr)
	}
	return rows, nil
}

// WriteCSV writes rows with the standard header.
func WriteCSV(w io.Writer, rows []SlotRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write([]string{"id", "color", "type"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{strconv.Itoa(r.ID), r.Color, r.Type}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
