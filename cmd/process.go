package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"conciliador/internal/config"
	"conciliador/internal/logger"
	"conciliador/internal/processor"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Reconcile a folder tree of CFDI invoices into the control ledger",
	Long: `Process every CFDI 4.0 XML invoice under the source folder and insert
the ones not yet recorded into the control ledger workbook.

The source folder is expected to contain month folders (Enero..Diciembre,
any casing) with one subfolder per employee holding the XML documents.
Invoices already present in the ledger (by fiscal UUID) are skipped; rows
filed under the wrong month folder are highlighted yellow; UUIDs appearing
more than once are highlighted red across every occurrence. Each month
sheet is re-sorted by employee and date at the end of the run.

When --ledger is omitted, the ledger workbook is autodetected inside the
source folder by its configured filename.`,
	Example: `  # Reconcile a year folder, autodetecting the ledger inside it
  conciliador process --source ./2026

  # Explicit ledger path
  conciliador process --source ./2026 --ledger ./2026/FICHERO_CONTROL_2026.xlsx

  # Simulation: log everything, modify nothing
  conciliador process --source ./2026 --dry-run`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("source", "s", "", "Source folder with <Month>/<Employee>/*.xml (required)")
	processCmd.Flags().StringP("ledger", "l", "", "Ledger workbook path (default: autodetect in source folder)")
	processCmd.Flags().Bool("dry-run", false, "Run without modifying or saving the ledger")
	_ = processCmd.MarkFlagRequired("source")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	source, _ := cmd.Flags().GetString("source")
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("source must be an existing folder: %s", source)
	}

	if ledgerPath == "" {
		candidate := filepath.Join(source, cfg.LedgerFilename)
		if _, err := os.Stat(candidate); err != nil {
			return fmt.Errorf("no %s found in %s; pass --ledger explicitly", cfg.LedgerFilename, source)
		}
		ledgerPath = candidate
		log.Info().Str("ledger", ledgerPath).Msg("✓ Ledger autodetected")
	}
	if !strings.EqualFold(filepath.Ext(ledgerPath), ".xlsx") {
		return fmt.Errorf("ledger must be an .xlsx workbook: %s", ledgerPath)
	}
	if _, err := os.Stat(ledgerPath); err != nil {
		return fmt.Errorf("ledger not found: %s", ledgerPath)
	}

	log.Info().
		Str("source", source).
		Str("ledger", ledgerPath).
		Bool("dry_run", dryRun).
		Msg("Starting invoice reconciliation")

	proc := processor.New(cfg, statusLine(log))
	result, err := proc.Run(processor.Options{
		SourceDir:  source,
		LedgerPath: ledgerPath,
		DryRun:     dryRun,
	})
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	mode := ""
	if result.DryRun {
		mode = " [SIMULACIÓN]"
	}
	fmt.Printf("\nProcesamiento finalizado.%s\n\n", mode)
	fmt.Printf("  Insertadas:    %d\n", result.Inserted)
	fmt.Printf("  Advertencias:  %d\n", result.Warnings)
	fmt.Printf("  Errores:       %d\n", result.Errors)
	fmt.Printf("  Duplicados:    %d\n", result.Duplicates)

	return nil
}

// statusLine adapts engine status lines to log levels by inspecting the
// designated severity markers.
func statusLine(log zerolog.Logger) processor.StatusFunc {
	return func(line string) {
		upper := strings.ToUpper(line)
		switch {
		case strings.Contains(upper, "ERROR"):
			log.Error().Msg(line)
		case strings.Contains(upper, "ADVERTENCIA"):
			log.Warn().Msg(line)
		default:
			log.Info().Msg(line)
		}
	}
}
