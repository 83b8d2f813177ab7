package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pairmux/internal/conflict"
	"pairmux/internal/discovery"
	"pairmux/internal/merge"
	"pairmux/internal/pipeline"
)

type reportView struct {
	RunID           string                      `json:"run_id"`
	Collection      string                      `json:"collection"`
	OutputDir       string                      `json:"output_dir"`
	Summary         pipeline.Summary            `json:"summary"`
	FailuresByKind  map[string]int              `json:"failures_by_kind,omitempty"`
	DurationMS      int64                       `json:"duration_ms"`
	Cancelled       bool                        `json:"cancelled"`
	Outcomes        []outcomeView               `json:"outcomes"`
	Conflicts       []conflictView              `json:"conflicts,omitempty"`
	DiscoveryErrors []*discovery.DiscoveryError `json:"discovery_errors,omitempty"`
}

type outcomeView struct {
	Title      string `json:"title"`
	Output     string `json:"output"`
	Succeeded  bool   `json:"succeeded"`
	ExitCode   *int   `json:"exit_code"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type conflictView struct {
	conflict.Record
	Decision string `json:"decision,omitempty"`
}

func newReportView(report *pipeline.Report) reportView {
	view := reportView{
		RunID:           report.RunID,
		Collection:      report.CollectionTitle,
		OutputDir:       report.OutputDir,
		Summary:         report.Summary,
		FailuresByKind:  outcomesByKind(report.Outcomes),
		DurationMS:      report.Duration.Milliseconds(),
		Cancelled:       report.Cancelled,
		Outcomes:        make([]outcomeView, 0, len(report.Outcomes)),
		DiscoveryErrors: report.DiscoveryErrors,
	}
	if len(view.FailuresByKind) == 0 {
		view.FailuresByKind = nil
	}
	for _, o := range report.Outcomes {
		view.Outcomes = append(view.Outcomes, newOutcomeView(o))
	}
	for i, record := range report.Conflicts {
		cv := conflictView{Record: record}
		if i < len(report.Decisions) {
			cv.Decision = report.Decisions[i].String()
		}
		view.Conflicts = append(view.Conflicts, cv)
	}
	return view
}

func newOutcomeView(o merge.Outcome) outcomeView {
	view := outcomeView{
		Title:      o.Task.Title,
		Output:     o.Task.OutputPath,
		Succeeded:  o.Succeeded,
		ExitCode:   o.ExitCode,
		ErrorKind:  merge.ErrorKind(o.Err),
		DurationMS: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		view.Error = o.Err.Error()
	}
	return view
}

func renderDiscoveryErrors(out io.Writer, errs []*discovery.DiscoveryError) {
	if len(errs) == 0 {
		return
	}
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		detail := e.Detail()
		switch {
		case e.Path != "":
			detail = e.Path
		case detail == "" && e.Field != "":
			detail = "missing " + e.Field
		}
		rows = append(rows, []string{e.Dir, e.Kind, e.Field, truncate(detail, 80)})
	}
	fmt.Fprintf(out, "Discovery problems (%d):\n", len(errs))
	fmt.Fprintln(out, renderTable([]string{"Directory", "Problem", "Field", "Detail"}, rows, nil))
}

// writeJSON encodes v as indented JSON to the command's stdout. Paths keep
// their characters unescaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
