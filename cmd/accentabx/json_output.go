package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"accentabx/internal/batch"
	"accentabx/internal/history"
	"accentabx/internal/layout"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type outcomeView struct {
	Category   string       `json:"category"`
	Status     string       `json:"status"`
	ExitCode   int          `json:"exit_code"`
	Error      string       `json:"error,omitempty"`
	Started    time.Time    `json:"started"`
	DurationMS int64        `json:"duration_ms"`
	Paths      layout.Paths `json:"paths"`
}

type runView struct {
	RunID            string        `json:"run_id"`
	Started          time.Time     `json:"started"`
	Finished         time.Time     `json:"finished"`
	Total            int           `json:"total"`
	Succeeded        int           `json:"succeeded"`
	Failed           int           `json:"failed"`
	FailedCategories []string      `json:"failed_categories"`
	RunLog           string        `json:"run_log,omitempty"`
	Outcomes         []outcomeView `json:"outcomes"`
}

func newOutcomeViews(outcomes []batch.Outcome) []outcomeView {
	views := make([]outcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, outcomeView{
			Category:   o.Category,
			Status:     string(o.Status),
			ExitCode:   o.ExitCode,
			Error:      o.Error,
			Started:    o.Started,
			DurationMS: o.Duration.Milliseconds(),
			Paths:      o.Paths,
		})
	}
	return views
}

func newRunView(result batch.Result, runLogPath string) runView {
	failed := result.FailedCategories()
	if failed == nil {
		failed = []string{}
	}
	return runView{
		RunID:            result.RunID,
		Started:          result.Started,
		Finished:         result.Finished,
		Total:            len(result.Outcomes),
		Succeeded:        result.Succeeded(),
		Failed:           result.Failed(),
		FailedCategories: failed,
		RunLog:           runLogPath,
		Outcomes:         newOutcomeViews(result.Outcomes),
	}
}

func newHistoryRunView(run history.Run, outcomes []batch.Outcome) runView {
	result := batch.Result{RunID: run.ID, Started: run.Started, Finished: run.Finished, Outcomes: outcomes}
	view := newRunView(result, "")
	if outcomes == nil {
		view.Total = run.Total
		view.Succeeded = run.Succeeded
		view.Failed = run.Failed
	}
	return view
}
