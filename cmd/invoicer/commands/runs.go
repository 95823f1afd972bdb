package commands

import (
	"time"
	"workorder-invoicer/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit *int

func init() {
	runsLimit = runsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Shows the most recent invoice and closed job runs.",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), "invoicer-runs")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		runs, err := a.service.Runs(cmd.Context(), *runsLimit)
		if err != nil {
			a.Close()
			serviceutil.Fatal("list runs", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Started", "Kind", "Duration", "Succeeded", "Failed", "Total", "Result"})
		for _, run := range runs {
			duration := "running"
			if run.Finished() {
				duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
			}
			result := run.ResultPath
			if run.Error != "" {
				result = run.Error
			}
			t.AppendRow(table.Row{
				run.StartedAt.In(a.clock.Location()).Format(time.DateTime),
				run.Kind,
				duration,
				run.Succeeded,
				run.Failed,
				run.Total,
				result,
			})
		}
		t.Render()
	},
}
