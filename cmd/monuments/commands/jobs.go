package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/team-monumental/monuments-and-memorials-sub000/am"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/pulse/async"
)

// JobsCmd polls ingestion jobs on a running server
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Poll ingestion jobs on a running server",
	Long: `Inspect ingestion jobs submitted to a running 'monuments server'.

Examples:
  monuments jobs ls
  monuments jobs get 3
  monuments jobs get 3 --wait`,
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsGet,
}

var jobsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List jobs",
	RunE:    runJobsList,
}

var (
	jobsServerFlag string
	jobsWaitFlag   bool
	jobsPollFlag   time.Duration
)

func init() {
	JobsCmd.PersistentFlags().StringVar(&jobsServerFlag, "server", "", "Server base URL (default: http://localhost:<server.port>)")
	jobsGetCmd.Flags().BoolVar(&jobsWaitFlag, "wait", false, "Poll until the job completes")
	jobsGetCmd.Flags().DurationVar(&jobsPollFlag, "interval", time.Second, "Polling interval with --wait")

	JobsCmd.AddCommand(jobsGetCmd)
	JobsCmd.AddCommand(jobsListCmd)
}

func serverURL() string {
	if jobsServerFlag != "" {
		return strings.TrimRight(jobsServerFlag, "/")
	}
	return fmt.Sprintf("http://localhost:%d", am.GetServerPort())
}

// getJSON fetches a server endpoint. The server is usually local, so this
// uses a plain client rather than the SSRF-guarded one.
func getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "GET %s", url), "is 'monuments server' running?")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if resp.StatusCode == http.StatusNotFound {
			return errors.NewNotFoundError("%s", body.Error)
		}
		return errors.Newf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode response")
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.Newf("invalid job id %q", args[0])
	}
	url := fmt.Sprintf("%s/api/monuments/bulk/jobs/%d", serverURL(), id)

	for {
		var snap async.Snapshot
		if err := getJSON(cmd.Context(), url, &snap); err != nil {
			return err
		}
		if !jobsWaitFlag || snap.Completed || snap.Error != "" {
			return printJSON(cmd.OutOrStdout(), snap)
		}
		pterm.Info.Printfln("job %d: %s %.0f%% (%d/%d)", id, snap.Status, snap.Progress*100, snap.Current, snap.Total)

		select {
		case <-time.After(jobsPollFlag):
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	}
}

func runJobsList(cmd *cobra.Command, args []string) error {
	var body struct {
		Jobs []async.Snapshot `json:"jobs"`
	}
	if err := getJSON(cmd.Context(), serverURL()+"/api/monuments/bulk/jobs", &body); err != nil {
		return err
	}
	if len(body.Jobs) == 0 {
		pterm.Info.Println("No jobs")
		return nil
	}

	data := pterm.TableData{{"ID", "Status", "Progress", "Rows", "Created", "Error"}}
	for _, j := range body.Jobs {
		data = append(data, []string{
			strconv.FormatInt(j.ID, 10),
			string(j.Status),
			fmt.Sprintf("%.0f%%", j.Progress*100),
			fmt.Sprintf("%d/%d", j.Current, j.Total),
			j.CreatedAt.Local().Format(time.DateTime),
			j.Error,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
