package service

import (
	"context"
	"fmt"
	"workorder-invoicer/internal/archive"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/internal/notify"
	"workorder-invoicer/internal/report"
	"workorder-invoicer/internal/scrapers/ingenico"
)

// ClosedJobsOutcome is the reply to a closed job search.
type ClosedJobsOutcome struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	Message   string           `json:"message,omitempty"`
	Filters   ingenico.Filters `json:"filters"`
	Folder    string           `json:"folder,omitempty"`
	HTMLFile  string           `json:"html_file,omitempty"`
	JSONFile  string           `json:"json_file,omitempty"`
	TotalJobs int              `json:"total_jobs"`
	Attempts  int              `json:"attempts"`
}

// SearchClosedJobs searches the Ingenico closed jobs and saves the results page along
// with the parsed jobs.
func (s *Service) SearchClosedJobs(ctx context.Context, f ingenico.Filters) ClosedJobsOutcome {
	runID := s.startRun(ctx, archive.KindClosedJobs, f)

	result := s.searcher.Search(ctx, f)
	outcome := ClosedJobsOutcome{
		Success:  result.Success,
		Error:    result.Error,
		Message:  result.Message,
		Filters:  result.Filters,
		Attempts: result.Attempts,
	}
	if !result.Success {
		s.tel.ReportWarning(report_closed_jobs_run, result.Error, result.Message)
		s.finishRun(ctx, runID, archive.Outcome{Error: result.Message})
		if result.Error == ingenico.CodeSessionExpired {
			s.notify(ctx, notify.Notification{
				Subject: "Ingenico session expired",
				Body:    result.Message,
			})
		}
		return outcome
	}

	saved, err := report.WriteClosedJobs(s.opts.ClosedJobsDir, result, s.clock.Now())
	if err != nil {
		s.tel.ReportBroken(report_closed_jobs_save, err)
		s.finishRun(ctx, runID, archive.Outcome{Total: len(result.Jobs), Error: err.Error()})
		outcome.Success = false
		outcome.Error = ingenico.CodeUnknown
		outcome.Message = fmt.Sprintf("Error saving results: %v", err)
		return outcome
	}
	outcome.Folder = saved.Folder
	outcome.HTMLFile = saved.HTMLFile
	outcome.JSONFile = saved.JSONFile
	outcome.TotalJobs = saved.TotalJobs

	s.finishRun(ctx, runID, archive.Outcome{
		Succeeded:  saved.TotalJobs,
		Total:      saved.TotalJobs,
		ResultPath: saved.JSONFile,
	})
	s.notify(ctx, notify.Notification{
		Subject:     fmt.Sprintf("Ingenico closed jobs %s - %s: %d jobs", result.Filters.FromDate, result.Filters.ToDate, saved.TotalJobs),
		Body:        fmt.Sprintf("Saved %d closed jobs to %s.", saved.TotalJobs, saved.Folder),
		Attachments: []string{saved.JSONFile},
	})
	return outcome
}

// ClosedJobFilters returns the filters a search uses when none are given.
func (s *Service) ClosedJobFilters(ctx context.Context) (ingenico.Filters, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return ingenico.Filters{}, err
	}
	return ingenico.ResolveFilters(set, ingenico.Filters{}), nil
}

// ClosedJobDownloads lists the saved closed job searches, most recent first.
func (s *Service) ClosedJobDownloads() ([]report.Download, error) {
	return report.ListDownloads(s.opts.ClosedJobsDir, func(path string, err error) {
		s.tel.ReportWarning(report_downloads, path, err)
	})
}

// ImportIngenicoCurl stores the session cookies and search filters of a captured
// closed job search.
func (s *Service) ImportIngenicoCurl(ctx context.Context, command string) (map[string]string, error) {
	req, err := credentials.ParseCurl(command)
	if err != nil {
		return nil, err
	}
	updates, err := credentials.IngenicoUpdates(req)
	if err != nil {
		return nil, err
	}
	err = s.store.Update(ctx, updates)
	if err != nil {
		s.tel.ReportBroken(report_credentials, err)
		return nil, err
	}
	return updates, nil
}
