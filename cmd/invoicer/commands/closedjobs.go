package commands

import (
	"fmt"
	"workorder-invoicer/internal/scrapers/ingenico"
	"workorder-invoicer/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var closedJobsFilters ingenico.Filters

func init() {
	flags := closedJobsCmd.Flags()
	flags.StringVar(&closedJobsFilters.FromDate, "from", "", "First day (DD/MM/YY), defaults to INGENICO_FROM_DATE.")
	flags.StringVar(&closedJobsFilters.ToDate, "to", "", "Last day (DD/MM/YY), defaults to INGENICO_TO_DATE.")
	flags.StringVar(&closedJobsFilters.AssignedTo, "assigned-to", "", "Technician id, defaults to INGENICO_ASSIGNED_TO.")
	flags.StringVar(&closedJobsFilters.JobType, "job-type", "", "Job type, defaults to INGENICO_JOB_TYPE.")
	flags.StringVar(&closedJobsFilters.PageSize, "page-size", "", "Results page size, defaults to INGENICO_PAGE_SIZE.")

	closedJobsCmd.AddCommand(closedJobsListCmd)
	rootCmd.AddCommand(closedJobsCmd)
}

var closedJobsCmd = &cobra.Command{
	Use:   "closed-jobs [--from DD/MM/YY --to DD/MM/YY]",
	Short: "Searches the Ingenico closed jobs and saves the results.",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), "invoicer-closed-jobs")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		outcome := a.service.SearchClosedJobs(cmd.Context(), closedJobsFilters)
		if !outcome.Success {
			a.Close()
			serviceutil.Fatal("search closed jobs", fmt.Errorf("%s: %s", outcome.Error, outcome.Message))
		}

		t := newTable()
		t.AppendRows([]table.Row{
			{"Date range", fmt.Sprintf("%s - %s", outcome.Filters.FromDate, outcome.Filters.ToDate)},
			{"Assigned to", outcome.Filters.AssignedTo},
			{"Job type", outcome.Filters.JobType},
			{"Jobs", outcome.TotalJobs},
			{"Attempts", outcome.Attempts},
			{"HTML", outcome.HTMLFile},
			{"JSON", outcome.JSONFile},
		})
		t.Render()
	},
}

var closedJobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the saved closed job searches.",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd.Context(), "invoicer-closed-jobs")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		downloads, err := a.service.ClosedJobDownloads()
		if err != nil {
			a.Close()
			serviceutil.Fatal("list downloads", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Folder", "Fetched", "Date range", "Jobs"})
		for _, d := range downloads {
			t.AppendRow(table.Row{d.Folder, d.Timestamp, d.DateRange, d.TotalJobs})
		}
		t.Render()
	},
}
