package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"apdash/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "apdash",
	Short: "apdash - accounts-payable analytics for the store ledger",
	Long: `apdash reads the supplier invoice ledger kept in Google Sheets and answers
three questions for the buyers and the accountant: what is still unpaid,
how long each vendor usually waits for its check, and how much money has to
go out before Sunday.

Reports are available as a JSON HTTP API (serve), as one-shot JSON output
(report), or written back to a tab of the spreadsheet (publish).`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("apdash executed without subcommand")

		_ = cmd.Help()
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
