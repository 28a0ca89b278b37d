package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"conciliador/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "conciliador",
	Short: "Conciliador - consolidates CFDI invoices into a control ledger",
	Long: `Conciliador walks a <Month>/<Employee> folder tree of CFDI 4.0 XML
invoices and consolidates them into a single Excel control ledger, one sheet
per month, skipping invoices whose fiscal UUID is already recorded and
highlighting month mismatches and duplicate UUIDs.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Use 'conciliador process' to reconcile a folder tree, or --help for options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
