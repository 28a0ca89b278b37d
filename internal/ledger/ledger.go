package ledger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"conciliador/internal/logger"
	"conciliador/pkg/models"
)

// Columns is the fixed header of every ledger sheet. A sheet only
// participates in indexing and sorting when its first row matches this
// exactly, which keeps unrelated sheets out of the reconciliation.
var Columns = []string{
	"Fecha",
	"Proveedor",
	"Proveedor RFC",
	"Folio Factura",
	"UUID",
	"Concepto",
	"Importe",
	"IVA",
	"Otros Impuestos",
	"Total",
	"Comentarios",
	"Empleado",
}

// DateLayout is how issue timestamps are written into the Fecha column.
const DateLayout = "2006-01-02 15:04:05"

// Highlight is the single highlight tag a data row may carry.
type Highlight int

const (
	// HighlightNone marks an unremarkable row.
	HighlightNone Highlight = iota

	// HighlightMonthMismatch marks a row whose invoice month differs from
	// the folder month it was filed under (light yellow).
	HighlightMonthMismatch

	// HighlightDuplicate marks a row whose UUID appears at more than one
	// location (light red). Always wins over HighlightMonthMismatch.
	HighlightDuplicate
)

// Recognized fill colors for the two highlight states.
const (
	yellowRGB = "FFF59D"
	redRGB    = "EF9A9A"
)

// Workbook wraps one open ledger file. The caller holds exclusive
// read-modify-write access for the duration of a run; the file is read
// once on Open and written once on Save.
type Workbook struct {
	f    *excelize.File
	path string
	log  zerolog.Logger

	// styles caches excelize style IDs per highlight tag.
	styles map[Highlight]int

	// lastRow caches the last used row per sheet so appends do not rescan.
	lastRow map[string]int
}

// Open loads the ledger workbook from disk.
func Open(path string) (*Workbook, error) {
	const op = "Open"

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: opening ledger %s: %w", op, path, err)
	}

	return &Workbook{
		f:       f,
		path:    path,
		log:     logger.WithComponent("ledger"),
		styles:  make(map[Highlight]int),
		lastRow: make(map[string]int),
	}, nil
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string {
	return w.path
}

// Save writes the workbook back to the path it was opened from.
func (w *Workbook) Save() error {
	const op = "Save"
	if err := w.f.Save(); err != nil {
		return fmt.Errorf("%s: saving ledger %s: %w", op, w.path, err)
	}
	w.log.Info().Str("path", w.path).Msg("Ledger saved")
	return nil
}

// Close releases the underlying file resources without saving.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// EnsureSheet creates the named sheet with the standard header when it does
// not exist yet, and reasserts the header row and its autofilter otherwise.
func (w *Workbook) EnsureSheet(name string) error {
	const op = "EnsureSheet"

	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if idx == -1 {
		if _, err := w.f.NewSheet(name); err != nil {
			return fmt.Errorf("%s: creating sheet %s: %w", op, name, err)
		}
		w.log.Info().Str("sheet", name).Msg("Sheet created")
	}

	first, err := w.f.GetCellValue(name, "A1")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if first != Columns[0] {
		header := make([]interface{}, len(Columns))
		for i, c := range Columns {
			header[i] = c
		}
		if err := w.f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("%s: writing header on %s: %w", op, name, err)
		}
	}

	// The filter always spans the header row, even on pre-existing sheets.
	ref := fmt.Sprintf("A1:%s1", lastColumn())
	if err := w.f.AutoFilter(name, ref, nil); err != nil {
		return fmt.Errorf("%s: applying filter on %s: %w", op, name, err)
	}
	return nil
}

// AppendInvoice writes a record as the next data row of the sheet and
// returns the row number it landed on.
func (w *Workbook) AppendInvoice(sheet string, inv *models.Invoice) (int, error) {
	const op = "AppendInvoice"

	last, err := w.sheetLastRow(sheet)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	row := last + 1

	values := []interface{}{
		inv.IssueDate.Format(DateLayout),
		inv.Issuer,
		inv.IssuerRFC,
		inv.Folio,
		inv.UUID,
		inv.Category,
		inv.SubTotal.InexactFloat64(),
		inv.IVA.InexactFloat64(),
		inv.OtherTaxes.InexactFloat64(),
		inv.Total.InexactFloat64(),
		inv.Comments,
		inv.Employee,
	}
	if err := w.f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
		return 0, fmt.Errorf("%s: writing row %d on %s: %w", op, row, sheet, err)
	}
	w.lastRow[sheet] = row
	return row, nil
}

// PaintRow applies the fill of the given highlight across the row's twelve
// columns. HighlightNone restores the default fill.
func (w *Workbook) PaintRow(sheet string, row int, h Highlight) error {
	styleID, err := w.styleFor(h)
	if err != nil {
		return err
	}
	top := fmt.Sprintf("A%d", row)
	bottom := fmt.Sprintf("%s%d", lastColumn(), row)
	return w.f.SetCellStyle(sheet, top, bottom, styleID)
}

// RowHighlight inspects the fill of the row's first cell and reports which
// highlight tag it carries. Used by the sorter to carry highlight state of
// rows written in earlier runs, where no in-memory state exists.
func (w *Workbook) RowHighlight(sheet string, row int) (Highlight, error) {
	styleID, err := w.f.GetCellStyle(sheet, fmt.Sprintf("A%d", row))
	if err != nil {
		return HighlightNone, err
	}
	style, err := w.f.GetStyle(styleID)
	if err != nil || style == nil {
		return HighlightNone, err
	}
	for _, color := range style.Fill.Color {
		switch {
		case containsRGB(color, redRGB):
			return HighlightDuplicate, nil
		case containsRGB(color, yellowRGB):
			return HighlightMonthMismatch, nil
		}
	}
	return HighlightNone, nil
}

// styleFor returns the cached excelize style ID for a highlight tag,
// creating it on first use.
func (w *Workbook) styleFor(h Highlight) (int, error) {
	if id, ok := w.styles[h]; ok {
		return id, nil
	}

	var style excelize.Style
	switch h {
	case HighlightMonthMismatch:
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{yellowRGB}}
	case HighlightDuplicate:
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{redRGB}}
	}

	id, err := w.f.NewStyle(&style)
	if err != nil {
		return 0, fmt.Errorf("creating highlight style: %w", err)
	}
	w.styles[h] = id
	return id, nil
}

// sheetLastRow returns the last non-empty row of a sheet, scanning it once
// and serving subsequent appends from the cache.
func (w *Workbook) sheetLastRow(sheet string) (int, error) {
	if last, ok := w.lastRow[sheet]; ok {
		return last, nil
	}
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("scanning sheet %s: %w", sheet, err)
	}
	w.lastRow[sheet] = len(rows)
	return len(rows), nil
}

// lastColumn returns the column letter of the final ledger column.
func lastColumn() string {
	name, _ := excelize.ColumnNumberToName(len(Columns))
	return name
}

// containsRGB matches a fill color against one of the recognized highlight
// colors, tolerating an alpha prefix and either case.
func containsRGB(color, rgb string) bool {
	return strings.Contains(strings.ToUpper(color), rgb)
}
