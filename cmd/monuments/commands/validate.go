package commands

import (
	"github.com/spf13/cobra"

	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
)

// ValidateCmd validates a batch without touching the database
var ValidateCmd = &cobra.Command{
	Use:   "validate <spreadsheet.csv|batch.zip>",
	Short: "Validate a bulk upload without saving anything",
	Long: `Validate a spreadsheet of candidate monuments.

Each row is converted and checked; errors make a row invalid, warnings are
advisory. Image names in the spreadsheet are resolved against --archive, or
against the zip itself when a zip carrying the .csv is given.

Examples:
  monuments validate batch.csv
  monuments validate batch.csv --archive images.zip --mapping columns.yaml
  monuments validate batch.zip --json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var (
	archiveFlag string
	mappingFlag string
	jsonFlag    bool
)

func init() {
	ValidateCmd.Flags().StringVar(&archiveFlag, "archive", "", "Zip archive of images referenced by the spreadsheet")
	ValidateCmd.Flags().StringVar(&mappingFlag, "mapping", "", "YAML/JSON file mapping spreadsheet headers to fields")
	ValidateCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the report as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	up, err := readUpload(cfg, args[0], archiveFlag, mappingFlag)
	if err != nil {
		return err
	}

	report, err := newValidator(cfg, logger.Logger).ValidateUpload(up)
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), report)
	}
	renderReport(report)
	return nil
}
