package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/bulk"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/ingest"
)

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to format JSON")
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// renderReport prints a validation summary and one table row per finding
func renderReport(report *bulk.Report) {
	valid, invalid := report.Valid(), report.Invalid()

	pterm.DefaultSection.Println("Validation report")
	pterm.Info.Printfln("%d rows: %d valid, %d invalid", report.Len(), len(valid), len(invalid))

	data := pterm.TableData{{"Row", "Title", "Severity", "Message"}}
	for _, res := range report.Results {
		title := res.Suggestion.Title
		if title == "" {
			title = "-"
		}
		for _, msg := range res.ErrorMessages() {
			data = append(data, []string{strconv.Itoa(res.Row), title, pterm.Red("error"), msg})
		}
		for _, msg := range res.WarningMessages() {
			data = append(data, []string{strconv.Itoa(res.Row), title, pterm.Yellow("warning"), msg})
		}
	}
	if len(data) > 1 {
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	if len(invalid) == 0 {
		pterm.Success.Println("Every row is valid")
	}
}

// renderResult prints the outcome of an ingestion job
func renderResult(result *ingest.Result) {
	pterm.DefaultSection.Println("Ingestion result")
	pterm.Info.Printfln("%d of %d rows inserted, %d images attached", result.Inserted, result.Total, result.ImagesAttached)

	data := pterm.TableData{{"Row", "Title", "Record", "Images", "Notes"}}
	for _, o := range result.Rows {
		record := "-"
		if o.Inserted {
			record = strconv.FormatInt(o.RecordID, 10)
		}
		notes := append([]string{}, o.Notes...)
		if o.Error != "" {
			notes = append(notes, pterm.Red(o.Error))
		}
		for _, dup := range o.Duplicates {
			notes = append(notes, fmt.Sprintf("possible duplicate of #%d %s", dup.ID, dup.Title))
		}
		data = append(data, []string{
			strconv.Itoa(o.Row),
			o.Title,
			record,
			strconv.Itoa(o.ImagesAttached),
			strings.Join(notes, "; "),
		})
	}
	if len(result.Rows) > 0 {
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}

	for _, advisory := range result.Advisories {
		pterm.Warning.Println(advisory)
	}
	if result.Failed > 0 {
		pterm.Error.Printfln("%d rows could not be saved", result.Failed)
	}
}
