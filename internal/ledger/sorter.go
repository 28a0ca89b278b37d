package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// sortKey orders rows within a sheet: employee first, then issue date.
type sortKey struct {
	employee string
	date     time.Time
}

// sortableRow is one data row lifted out of a sheet before rewriting.
type sortableRow struct {
	key       sortKey
	values    []string
	highlight Highlight
}

// dateLayouts are tried in order when coercing a Fecha cell back to a
// timestamp. Rows written by this program use DateLayout; older rows may
// carry ISO or date-only strings typed in by hand, or genuine date cells
// whose values read back as their rendered number format (m/d/yy shapes).
var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/06 15:04",
	"1/2/06",
	"1-2-06",
}

// SortYearSheets stable-sorts every sheet whose name ends with the target
// year by (employee, issue date), rewriting rows in order and reapplying
// the highlight each row carried before the sort. Highlight state is
// relocated, never recomputed: the sort is a pure permutation of the
// sheet's (values, highlight) pairs.
//
// A Fecha cell that cannot be coerced to a date is reported through status
// and sorted last; it never aborts the sort.
func (w *Workbook) SortYearSheets(year int, status func(string)) error {
	const op = "SortYearSheets"

	suffix := fmt.Sprintf(" %d", year)
	for _, sheet := range w.f.GetSheetList() {
		if !strings.HasSuffix(sheet, suffix) {
			continue
		}
		if err := w.sortSheet(sheet, status); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

func (w *Workbook) sortSheet(sheet string, status func(string)) error {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	// Nothing to order with fewer than two data rows; a foreign header
	// means the sheet is not part of the ledger despite its name.
	if len(rows) < 3 || !headerMatches(rows[0]) {
		return nil
	}

	data := make([]sortableRow, 0, len(rows)-1)
	for r := 2; r <= len(rows); r++ {
		values := make([]string, len(Columns))
		for c := range Columns {
			cell, err := cellName(c+1, r)
			if err != nil {
				return err
			}
			v, err := w.f.GetCellValue(sheet, cell)
			if err != nil {
				return fmt.Errorf("reading %s!%s: %w", sheet, cell, err)
			}
			values[c] = v
		}

		highlight, err := w.RowHighlight(sheet, r)
		if err != nil {
			return fmt.Errorf("detecting highlight on %s row %d: %w", sheet, r, err)
		}

		data = append(data, sortableRow{
			key: sortKey{
				employee: strings.ToLower(values[len(Columns)-1]),
				date:     w.coerceDate(values[0], sheet, r, status),
			},
			values:    values,
			highlight: highlight,
		})
	}

	sort.SliceStable(data, func(i, j int) bool {
		if data[i].key.employee != data[j].key.employee {
			return data[i].key.employee < data[j].key.employee
		}
		return data[i].key.date.Before(data[j].key.date)
	})

	// Clear the data region, values and fills alike, then rewrite in
	// sorted order with each row's original highlight.
	for r := 2; r <= len(rows); r++ {
		blanks := make([]interface{}, len(Columns))
		if err := w.f.SetSheetRow(sheet, fmt.Sprintf("A%d", r), &blanks); err != nil {
			return fmt.Errorf("clearing %s row %d: %w", sheet, r, err)
		}
		if err := w.PaintRow(sheet, r, HighlightNone); err != nil {
			return fmt.Errorf("clearing fill on %s row %d: %w", sheet, r, err)
		}
	}

	for i, row := range data {
		r := i + 2
		if err := w.f.SetSheetRow(sheet, fmt.Sprintf("A%d", r), typedValues(row.values)); err != nil {
			return fmt.Errorf("rewriting %s row %d: %w", sheet, r, err)
		}
		if row.highlight != HighlightNone {
			if err := w.PaintRow(sheet, r, row.highlight); err != nil {
				return fmt.Errorf("repainting %s row %d: %w", sheet, r, err)
			}
		}
	}

	w.log.Info().Str("sheet", sheet).Int("rows", len(data)).Msg("Sheet sorted")
	return nil
}

// coerceDate parses a Fecha cell. An empty or unparseable cell is reported
// and replaced with a maximum sentinel so the row sorts last.
func (w *Workbook) coerceDate(value, sheet string, row int, status func(string)) time.Time {
	if value == "" {
		status(fmt.Sprintf("ADVERTENCIA fecha vacía en hoja '%s' fila %d; se ordena al final", sheet, row))
		return maxDate()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	status(fmt.Sprintf("ADVERTENCIA fecha inválida '%s' en hoja '%s' fila %d; se ordena al final", value, sheet, row))
	return maxDate()
}

func maxDate() time.Time {
	return time.Unix(1<<62, 0)
}

// typedValues restores the cell types the insertion path writes: amount
// columns become numbers again, everything else stays a string.
func typedValues(values []string) *[]interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
		if i >= 6 && i <= 9 && v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				out[i] = f
			}
		}
	}
	return &out
}

func cellName(col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("building cell reference: %w", err)
	}
	return cell, nil
}
