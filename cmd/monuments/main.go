package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/team-monumental/monuments-and-memorials-sub000/cmd/monuments/commands"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
)

var rootCmd = &cobra.Command{
	Use:   "monuments",
	Short: "Monuments - bulk ingestion of monument and memorial records",
	Long: `Monuments - bulk ingestion of monument and memorial records.

Validates spreadsheets of candidate monuments (optionally bundled with a
.zip of images), reports every row's errors and warnings, and ingests the
valid rows into the catalog in the background.

Available commands:
  validate - Validate a spreadsheet or zip without saving anything
  ingest   - Validate and ingest a batch, showing progress
  jobs     - Poll ingestion jobs on a running server
  server   - Start the HTTP API
  db       - Manage the catalog database
  am       - Show and validate configuration ("I am")
  version  - Show build information

Examples:
  monuments validate batch.csv --archive images.zip
  monuments ingest batch.zip
  monuments server --port 8080
  monuments jobs get 3 --server http://localhost:8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.InitializeWithLevel(jsonLogs, logger.VerbosityToLevel(verbosity)); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.ServerCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hints := errors.FlattenHints(err); hints != "" {
			fmt.Fprintln(os.Stderr, "hint:", hints)
		}
		os.Exit(1)
	}
}
