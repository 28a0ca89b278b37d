package ledger

import (
	"fmt"

	"conciliador/pkg/models"
)

// Location is one place a UUID appears in the workbook.
type Location struct {
	Sheet string
	Row   int
}

// UUIDIndex maps every normalized UUID in the workbook to the ordered list
// of locations it appears at. A UUID with more than one location is a
// duplicate group.
type UUIDIndex map[string][]Location

// uuidColumn is the zero-based position of the UUID column in the header.
const uuidColumn = 4

// BuildUUIDIndex scans every sheet whose header matches the ledger columns
// and records the location of each non-empty UUID cell. The index is the
// sole source of truth for "already present" decisions during a run.
func (w *Workbook) BuildUUIDIndex() (UUIDIndex, error) {
	const op = "BuildUUIDIndex"

	index := make(UUIDIndex)
	for _, sheet := range w.f.GetSheetList() {
		rows, err := w.f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("%s: reading sheet %s: %w", op, sheet, err)
		}
		if len(rows) < 2 || !headerMatches(rows[0]) {
			continue
		}
		for i, row := range rows[1:] {
			if len(row) <= uuidColumn {
				continue
			}
			key := models.NormalizeUUID(row[uuidColumn])
			if key == "" {
				continue
			}
			index[key] = append(index[key], Location{Sheet: sheet, Row: i + 2})
		}
	}

	w.log.Debug().Int("uuids", len(index)).Msg("UUID index built")
	return index, nil
}

// PaintDuplicates merges the pre-existing locations of every UUID with its
// locations inserted this run and paints every location of each group with
// more than one member, red winning over any month-mismatch paint. Groups
// made up purely of pre-existing rows are flagged too, so duplicates pasted
// into the ledger by hand surface on the next run. Returns the number of
// duplicate groups, counted once per UUID, not once per location.
func (w *Workbook) PaintDuplicates(existing, inserted UUIDIndex) (int, error) {
	const op = "PaintDuplicates"

	merged := make(UUIDIndex, len(existing)+len(inserted))
	for uuid, locs := range existing {
		merged[uuid] = append(merged[uuid], locs...)
	}
	for uuid, locs := range inserted {
		merged[uuid] = append(merged[uuid], locs...)
	}

	groups := 0
	for uuid, all := range merged {
		if len(all) < 2 {
			continue
		}
		groups++
		for _, loc := range all {
			if err := w.PaintRow(loc.Sheet, loc.Row, HighlightDuplicate); err != nil {
				return groups, fmt.Errorf("%s: painting %s row %d: %w", op, loc.Sheet, loc.Row, err)
			}
		}
		w.log.Warn().
			Str("uuid", uuid).
			Int("locations", len(all)).
			Msg("Duplicate UUID group painted")
	}
	return groups, nil
}

// headerMatches reports whether a sheet's first row is exactly the ledger
// header, which is what qualifies it for indexing and sorting.
func headerMatches(header []string) bool {
	if len(header) < len(Columns) {
		return false
	}
	for i, want := range Columns {
		if header[i] != want {
			return false
		}
	}
	return true
}
