package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"workorder-invoicer/internal/archive"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/internal/invoice"
	"workorder-invoicer/internal/notify"
	"workorder-invoicer/internal/report"
)

var ErrAlreadyRunning = errors.New("invoice generation is already running")

// GenerationStatus is what an operator polls while an invoice is generated in the
// background.
type GenerationStatus struct {
	Running    bool           `json:"running"`
	Progress   int            `json:"progress"`
	Total      int            `json:"total"`
	Message    string         `json:"message"`
	ResultFile string         `json:"result_file"`
	Errors     []string       `json:"errors"`
	Filters    invoice.Params `json:"filters"`
}

// InvoiceOutcome is a finished invoice generation.
type InvoiceOutcome struct {
	RunID  string         `json:"run_id,omitempty"`
	Path   string         `json:"path"`
	Result invoice.Result `json:"-"`
}

// Status returns a copy of the current generation status.
func (s *Service) Status() GenerationStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := s.status
	out.Errors = slices.Clone(s.status.Errors)
	return out
}

func (s *Service) setStatus(update func(status *GenerationStatus)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	update(&s.status)
}

// StartInvoice starts a generation in the background, ErrAlreadyRunning is returned
// while another one is in progress.
func (s *Service) StartInvoice(params invoice.Params) error {
	s.mutex.Lock()
	if s.status.Running {
		s.mutex.Unlock()
		return ErrAlreadyRunning
	}
	s.status = GenerationStatus{
		Running: true,
		Message: "Starting invoice generation...",
		Errors:  []string{},
		Filters: params,
	}
	s.mutex.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		progress := invoice.ProgressFunc(func(status invoice.Status) {
			s.setStatus(func(current *GenerationStatus) {
				current.Message = status.Message
				current.Progress = status.Completed
				current.Total = status.Total
				current.Errors = status.Errors
			})
		})
		outcome, err := s.GenerateInvoice(s.background, params, progress)

		s.setStatus(func(current *GenerationStatus) {
			current.Running = false
			if err != nil {
				current.Message = fmt.Sprintf("Error generating invoice: %v", err)
				current.Errors = append(current.Errors, fmt.Sprintf("Fatal error: %v", err))
				return
			}
			current.ResultFile = outcome.Path
			current.Message = "Invoice generated successfully!"
		})
	}()
	return nil
}

func (s *Service) workOrderLimit(ctx context.Context) (int, error) {
	if s.opts.MaxWorkOrders != nil {
		return *s.opts.MaxWorkOrders, nil
	}
	set, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	return set.Int(credentials.MaxWorkOrders)
}

// GenerateInvoice runs the invoice engine and writes its html report.
func (s *Service) GenerateInvoice(ctx context.Context, params invoice.Params, progress invoice.Progress) (InvoiceOutcome, error) {
	if progress == nil {
		progress = invoice.Discard
	}
	limit, err := s.workOrderLimit(ctx)
	if err != nil {
		s.tel.ReportWarning(report_invoice_run, "max work orders", err)
		limit, _ = credentials.Set{}.Int(credentials.MaxWorkOrders)
	}
	params.Limit = limit

	runID := s.startRun(ctx, archive.KindInvoice, params)
	outcome := InvoiceOutcome{RunID: runID}

	result, err := s.engine.Run(ctx, params, progress)
	outcome.Result = result
	if err != nil {
		s.tel.ReportBroken(report_invoice_run, err)
		s.finishRun(ctx, runID, archive.Outcome{
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
			Total:     result.Listed,
			Error:     err.Error(),
		})
		return outcome, err
	}

	path, err := report.WriteInvoice(s.opts.InvoiceDir, result.WorkOrders, s.clock.Now())
	if err != nil {
		s.tel.ReportBroken(report_invoice_write, err)
		s.finishRun(ctx, runID, archive.Outcome{
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
			Total:     result.Listed,
			Error:     err.Error(),
		})
		return outcome, err
	}
	outcome.Path = path

	s.finishRun(ctx, runID, archive.Outcome{
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Total:      result.Listed,
		ResultPath: path,
	})
	s.notify(ctx, notify.Notification{
		Subject: fmt.Sprintf("Work order invoice: %d work orders", len(result.WorkOrders)),
		Body: fmt.Sprintf(
			"Invoice generated with %d work orders (%d succeeded, %d failed, %d outside the date range).",
			len(result.WorkOrders), result.Succeeded, result.Failed, result.Excluded,
		),
		Attachments: []string{path},
	})
	return outcome, nil
}

// LatestInvoice locates the most recently written invoice.
func (s *Service) LatestInvoice() (folder, file string, err error) {
	return report.LatestInvoice(s.opts.InvoiceDir)
}
