package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"
	"workorder-invoicer/internal/invoice"
	"workorder-invoicer/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	invoiceFrom        *string
	invoiceTo          *string
	invoiceSearch      *string
	invoiceRecordLimit *int
	invoiceMax         *int
)

func init() {
	invoiceFrom = invoiceCmd.Flags().String("from", "", "Only keep work orders on site from this day (YYYY-MM-DD).")
	invoiceTo = invoiceCmd.Flags().String("to", "", "Only keep work orders on site until this day (YYYY-MM-DD).")
	invoiceSearch = invoiceCmd.Flags().String("search", "", "Search string of the work order list.")
	invoiceRecordLimit = invoiceCmd.Flags().Int("record-limit", invoice.DefaultRecordLimit, "Page size of the work order list.")
	invoiceMax = invoiceCmd.Flags().Int("max", -1, "Fetch at most this many work orders, 0 fetches all of them. Defaults to the configured limit.")
	rootCmd.AddCommand(invoiceCmd)
}

var invoiceCmd = &cobra.Command{
	Use:   "invoice [--from YYYY-MM-DD --to YYYY-MM-DD] [--search <text>]",
	Short: "Fetches the work orders and writes an html invoice.",
	Run: func(cmd *cobra.Command, args []string) {
		if *invoiceMax >= 0 {
			loaded.Invoice.MaxWorkOrders = invoiceMax
		}

		a, err := newApp(cmd.Context(), "invoicer-invoice")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		params := invoice.Params{
			DateFrom:     *invoiceFrom,
			DateTo:       *invoiceTo,
			SearchString: *invoiceSearch,
			RecordLimit:  *invoiceRecordLimit,
		}
		progress := invoice.ProgressFunc(func(status invoice.Status) {
			if status.Total > 0 {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", status.Completed, status.Total, status.Message)
				return
			}
			fmt.Fprintln(os.Stderr, status.Message)
		})

		t1 := time.Now()
		outcome, err := a.service.GenerateInvoice(cmd.Context(), params, progress)
		if err != nil {
			a.Close()
			serviceutil.Fatal("generate invoice", err)
		}
		slog.Info("invoice time", "seconds", time.Since(t1).Seconds())

		result := outcome.Result
		t := newTable()
		t.AppendHeader(table.Row{"JobID", "JobType", "OnSiteDateTime", "Merchant", "MultipleJobID", "AfterHour", "Weekend"})
		for _, wo := range result.WorkOrders {
			t.AppendRow(table.Row{wo.JobID, wo.JobType, wo.OnSiteDateTime, wo.MerchantName, wo.MultipleJobID, wo.AfterHour, wo.Weekend})
		}
		t.AppendFooter(table.Row{
			fmt.Sprintf("%d listed", result.Listed),
			fmt.Sprintf("%d succeeded", result.Succeeded),
			fmt.Sprintf("%d failed", result.Failed),
			fmt.Sprintf("%d excluded", result.Excluded),
		})
		t.Render()

		if result.FromCache {
			fmt.Println("The work order list call failed, the last saved id list was used.")
		}
		fmt.Println(outcome.Path)
	},
}
