package processor

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"conciliador/internal/category"
	"conciliador/internal/cfdi"
	"conciliador/internal/config"
	"conciliador/internal/ledger"
	"conciliador/internal/logger"
	"conciliador/internal/scanner"
)

// StatusFunc receives one human-readable line per notable event. It is
// called synchronously from the run and must not block; the presentation
// layer classifies severity by inspecting the text for the ERROR,
// ADVERTENCIA and OMITIDO markers.
type StatusFunc func(line string)

// Options selects what one run operates on.
type Options struct {
	// SourceDir is the root of the <Month>/<Employee>/*.xml tree.
	SourceDir string

	// LedgerPath is the workbook the run reads and, unless DryRun, saves.
	LedgerPath string

	// DryRun runs every classification, validation and status line without
	// creating, modifying or saving any sheet.
	DryRun bool
}

// Result summarizes one completed run.
type Result struct {
	Inserted   int  // Rows inserted (or that would be, under DryRun)
	Warnings   int  // Month-mismatch warnings
	Errors     int  // Per-document errors (parse, validation, sort failure)
	Duplicates int  // Duplicate UUID groups painted, one per UUID
	DryRun     bool // Echo of Options.DryRun
}

// Processor is the reconciliation engine. One instance performs one finite
// synchronous batch per Run call; it holds no workbook state between runs.
// It must not be invoked twice concurrently against the same ledger file.
type Processor struct {
	targetYear int
	parser     *cfdi.Parser
	scanner    *scanner.Scanner
	status     StatusFunc
	log        zerolog.Logger
}

// New creates a processor from configuration. A nil status callback is
// replaced with a no-op.
func New(cfg *config.Config, status StatusFunc) *Processor {
	if status == nil {
		status = func(string) {}
	}
	return &Processor{
		targetYear: cfg.TargetYear,
		parser:     cfdi.NewParser(cfg.ExpectedRecipientRFC, category.NewClassifier()),
		scanner:    scanner.New(),
		status:     status,
		log:        logger.WithComponent("processor"),
	}
}

// Run processes the whole source tree against the ledger and returns the
// run counters. Per-document problems are counted and reported through the
// status callback; only conditions that make the entire run meaningless
// (unreadable source tree or ledger, failed save) return an error.
func (p *Processor) Run(opts Options) (*Result, error) {
	const op = "Run"

	wb, err := ledger.Open(opts.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer wb.Close()

	existing, err := wb.BuildUUIDIndex()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	seen := make(map[string]bool, len(existing))
	for uuid := range existing {
		seen[uuid] = true
	}

	files, err := p.scanner.Scan(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p.log.Info().
		Str("source", opts.SourceDir).
		Str("ledger", opts.LedgerPath).
		Bool("dry_run", opts.DryRun).
		Int("documents", len(files)).
		Int("existing_uuids", len(existing)).
		Msg("Run started")

	result := &Result{DryRun: opts.DryRun}
	inserted := make(ledger.UUIDIndex)

	for _, file := range files {
		p.processFile(wb, file, seen, inserted, opts.DryRun, result)
	}

	if !opts.DryRun {
		dups, err := wb.PaintDuplicates(existing, inserted)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.Duplicates = dups
		if dups > 0 {
			p.status(fmt.Sprintf("ADVERTENCIA UUIDs duplicados detectados y marcados en rojo: %d", dups))
		}

		if err := wb.SortYearSheets(p.targetYear, p.status); err != nil {
			// A sort failure loses only the ordering, not the inserted
			// rows, so the run keeps going and saves.
			result.Errors++
			p.status(fmt.Sprintf("ERROR ordenando hojas: %v", err))
		}

		if err := wb.Save(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	mode := ""
	if opts.DryRun {
		mode = " [SIMULACIÓN]"
	}
	p.status(fmt.Sprintf(
		"✓ Finalizado%s — Insertadas: %d | Advertencias: %d | Errores: %d | Duplicados: %d",
		mode, result.Inserted, result.Warnings, result.Errors, result.Duplicates))

	p.log.Info().
		Int("inserted", result.Inserted).
		Int("warnings", result.Warnings).
		Int("errors", result.Errors).
		Int("duplicates", result.Duplicates).
		Bool("dry_run", result.DryRun).
		Msg("Run finished")

	return result, nil
}

// processFile runs one document through parse, validation, dedup and
// insertion. Failures are counted on result and never abort the batch.
func (p *Processor) processFile(
	wb *ledger.Workbook,
	file scanner.InvoiceFile,
	seen map[string]bool,
	inserted ledger.UUIDIndex,
	dryRun bool,
	result *Result,
) {
	name := filepath.Base(file.Path)

	inv, err := p.parser.ParseFile(file.Path, file.Employee, file.Month)
	if err != nil {
		result.Errors++
		p.status(fmt.Sprintf("ERROR parseando %s: %v", name, err))
		return
	}

	if inv.IssueDate.Year() != p.targetYear {
		result.Errors++
		p.status(fmt.Sprintf("ERROR fecha fuera de %d (%s) en %s",
			p.targetYear, inv.IssueDate.Format("2006-01-02"), name))
		return
	}

	if inv.UUID == "" {
		result.Errors++
		p.status(fmt.Sprintf("ERROR UUID vacío en %s", name))
		return
	}

	if seen[inv.UUID] {
		// Already in the ledger, or already inserted earlier this run: not
		// an error, not a warning, just reported and skipped.
		p.status(fmt.Sprintf("OMITIDO UUID ya existente: %s (%s)", inv.UUID, name))
		return
	}

	// The destination sheet follows the invoice's own issue month, not the
	// folder it was filed under.
	issueMonth := scanner.MonthName(inv.IssueDate.Month())
	targetSheet := fmt.Sprintf("%s %d", issueMonth, p.targetYear)

	if !dryRun {
		if err := wb.EnsureSheet(targetSheet); err != nil {
			result.Errors++
			p.status(fmt.Sprintf("ERROR preparando hoja %s: %v", targetSheet, err))
			return
		}
		row, err := wb.AppendInvoice(targetSheet, inv)
		if err != nil {
			result.Errors++
			p.status(fmt.Sprintf("ERROR insertando %s en %s: %v", name, targetSheet, err))
			return
		}
		inserted[inv.UUID] = append(inserted[inv.UUID], ledger.Location{Sheet: targetSheet, Row: row})

		if file.Month != issueMonth {
			result.Warnings++
			if err := wb.PaintRow(targetSheet, row, ledger.HighlightMonthMismatch); err != nil {
				p.log.Error().Err(err).Str("sheet", targetSheet).Int("row", row).
					Msg("Failed to paint month-mismatch row")
			}
			p.status(fmt.Sprintf("ADVERTENCIA mes distinto: %s en carpeta '%s' pero fecha %s",
				name, file.Month, inv.IssueDate.Format("2006-01-02")))
		}
	} else if file.Month != issueMonth {
		// Simulation still surfaces what a real run would flag.
		result.Warnings++
		p.status(fmt.Sprintf("ADVERTENCIA mes distinto: %s en carpeta '%s' pero fecha %s",
			name, file.Month, inv.IssueDate.Format("2006-01-02")))
	}

	result.Inserted++
	seen[inv.UUID] = true
}
