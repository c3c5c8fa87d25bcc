package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/ingest"
	"github.com/team-monumental/monuments-and-memorials-sub000/pulse/async"
)

// IngestCmd validates a batch and ingests its valid rows
var IngestCmd = &cobra.Command{
	Use:   "ingest <spreadsheet.csv|batch.zip>",
	Short: "Validate a bulk upload and ingest its valid rows",
	Long: `Validate a spreadsheet and save every valid row as a monument.

Invalid rows are reported and skipped. Images are uploaded to the configured
storage directory; a failed image upload is reported but never stops the
batch. Possible duplicates of existing monuments are listed, not blocked.

Examples:
  monuments ingest batch.csv --archive images.zip
  monuments ingest batch.zip --db /var/lib/monuments/catalog.db`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var (
	ingestArchiveFlag      string
	ingestMappingFlag      string
	ingestDBFlag           string
	ingestJSONFlag         bool
	ingestAllOrNothingFlag bool
)

func init() {
	IngestCmd.Flags().StringVar(&ingestArchiveFlag, "archive", "", "Zip archive of images referenced by the spreadsheet")
	IngestCmd.Flags().StringVar(&ingestMappingFlag, "mapping", "", "YAML/JSON file mapping spreadsheet headers to fields")
	IngestCmd.Flags().StringVar(&ingestDBFlag, "db", "", "Database path (default: database.path)")
	IngestCmd.Flags().BoolVar(&ingestJSONFlag, "json", false, "Print the final job snapshot as JSON")
	IngestCmd.Flags().BoolVar(&ingestAllOrNothingFlag, "all-or-nothing", false, "Refuse to ingest when any row is invalid")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, ingestDBFlag)
	if err != nil {
		return err
	}
	defer a.Close()

	up, err := readUpload(cfg, args[0], ingestArchiveFlag, ingestMappingFlag)
	if err != nil {
		return err
	}
	report, err := a.pipeline.Validate(up)
	if err != nil {
		return err
	}
	if !ingestJSONFlag {
		renderReport(report)
	}
	if invalid := len(report.Invalid()); invalid > 0 && ingestAllOrNothingFlag {
		return errors.WithHint(
			errors.Newf("%d rows are invalid, nothing was ingested", invalid),
			"fix the rows listed above or drop --all-or-nothing to skip them")
	}

	id, err := a.pipeline.Submit(report)
	if err != nil {
		return err
	}

	final, err := followJob(ctx, a, id, len(report.Valid()), !ingestJSONFlag)
	if err != nil {
		return err
	}

	if ingestJSONFlag {
		return printJSON(cmd.OutOrStdout(), final)
	}
	if final.Error != "" {
		return errors.Newf("ingestion stopped: %s", final.Error)
	}
	if result, ok := final.Result.(*ingest.Result); ok {
		renderResult(result)
	}
	return nil
}

// followJob streams job snapshots to a progress bar until the job completes,
// stalls on a handler error, or ctx is cancelled.
func followJob(ctx context.Context, a *app, id int64, total int, progress bool) (async.Snapshot, error) {
	updates, unsubscribe, err := a.pipeline.Subscribe(id)
	if err != nil {
		return async.Snapshot{}, err
	}
	defer unsubscribe()

	var bar *pterm.ProgressbarPrinter
	if progress && total > 0 {
		bar, _ = pterm.DefaultProgressbar.WithTotal(total).WithTitle("Ingesting").Start()
		defer func() {
			if bar != nil {
				bar.Stop()
			}
		}()
	}

	var last async.Snapshot
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return last, nil
			}
			if bar != nil && snap.Current > bar.Current {
				bar.Add(snap.Current - bar.Current)
			}
			last = snap
			if snap.Final() {
				return snap, nil
			}
		case <-ctx.Done():
			return last, errors.Wrapf(ctx.Err(), "stopped following job %d", id)
		}
	}
}
