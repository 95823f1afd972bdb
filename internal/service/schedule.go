package service

import (
	"fmt"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/invoice"
	"workorder-invoicer/internal/scrapers/ingenico"
)

const report_schedule = "schedule"

// Schedule registers the periodic runs, an empty spec leaves that run unscheduled.
// Scheduled invoices cover every listed work order with the default filters.
func (s *Service) Schedule(cron chrono.CronAPI, invoiceSpec, closedJobsSpec string) error {
	if invoiceSpec != "" {
		err := cron.Cron(invoiceSpec, func() {
			err := s.StartInvoice(invoice.Params{RecordLimit: invoice.DefaultRecordLimit})
			if err != nil {
				s.tel.ReportWarning(report_schedule, "invoice", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule invoice: %w", err)
		}
	}
	if closedJobsSpec != "" {
		err := cron.Cron(closedJobsSpec, func() {
			s.SearchClosedJobs(s.background, ingenico.Filters{})
		})
		if err != nil {
			return fmt.Errorf("schedule closed jobs: %w", err)
		}
	}
	return nil
}
