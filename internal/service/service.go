package service

import (
	"context"
	"sync"
	"workorder-invoicer/internal/archive"
	"workorder-invoicer/internal/components/assert"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/internal/invoice"
	"workorder-invoicer/internal/notify"
	"workorder-invoicer/internal/scrapers/ingenico"
)

const (
	report_invoice_run      = "invoice.run"
	report_invoice_write    = "invoice.write"
	report_closed_jobs_run  = "closed-jobs.run"
	report_closed_jobs_save = "closed-jobs.save"
	report_credentials      = "credentials.update"
	report_archive          = "archive.record"
	report_notify           = "notify.send"
	report_downloads        = "downloads.read"
)

// InvoiceEngine turns the listed work orders into invoice rows.
//
// note: fault injection point
type InvoiceEngine interface {
	Run(ctx context.Context, params invoice.Params, progress invoice.Progress) (invoice.Result, error)
}

// ClosedJobSearcher runs one closed job search against the Ingenico portal.
//
// note: fault injection point
type ClosedJobSearcher interface {
	Search(ctx context.Context, f ingenico.Filters) ingenico.SearchResult
}

// RunArchive records the history of runs. Failures to record are reported but never
// fail the run itself.
type RunArchive interface {
	StartRun(ctx context.Context, kind string, params any) (string, error)
	FinishRun(ctx context.Context, id string, outcome archive.Outcome) error
	Runs(ctx context.Context, limit int) ([]archive.Run, error)
}

// Notifier delivers finished reports and expired session notices.
type Notifier interface {
	Send(ctx context.Context, n notify.Notification) error
}

type coreAPIs struct {
	store credentials.Store
	clock chrono.API
	tel   telemetry.API
}

// NewCoreAPIs initializes the APIs every operation of the service needs.
func NewCoreAPIs(store credentials.Store, options ...CoreAPIsOption) coreAPIs {
	assert.NotNil(store)

	cfg := coreAPIsConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	apis := coreAPIs{
		store: store,
		tel:   telemetry.SlogAPI{},
	}
	apis.clock, _ = chrono.NewStandardImpl("")
	if cfg.clock != nil {
		apis.clock = cfg.clock
	}
	if cfg.tel != nil {
		apis.tel = cfg.tel
	}

	apis.tel = telemetry.NewScopedAPI("service", apis.tel)

	return apis
}

type coreAPIsConfig struct {
	clock chrono.API
	tel   telemetry.API
}

type CoreAPIsOption func(cfg *coreAPIsConfig)

func WithCustomClock(clock chrono.API) CoreAPIsOption {
	return func(cfg *coreAPIsConfig) {
		cfg.clock = clock
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) CoreAPIsOption {
	return func(cfg *coreAPIsConfig) {
		cfg.tel = tel
	}
}

type Options struct {
	// InvoiceDir receives the invoice_<stamp> folders.
	InvoiceDir string
	// ClosedJobsDir receives the saved closed job searches.
	ClosedJobsDir string
	// MaxWorkOrders overrides the MAX_WORK_ORDERS credential when set, 0 means all.
	MaxWorkOrders *int
}

// Service is every operation exposed to operators, through HTTP or the CLI. At most one
// invoice generation runs in the background at a time.
type Service struct {
	coreAPIs

	engine   InvoiceEngine
	searcher ClosedJobSearcher
	archive  RunArchive
	notifier Notifier
	opts     Options

	mutex  sync.Mutex
	status GenerationStatus

	background context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewService creates a Service, archive and notifier may be nil.
func NewService(core coreAPIs, engine InvoiceEngine, searcher ClosedJobSearcher, runs RunArchive, notifier Notifier, opts Options) *Service {
	assert.NotNil(engine)
	assert.NotNil(searcher)

	if opts.InvoiceDir == "" {
		opts.InvoiceDir = "VerifoneWorkOrders"
	}
	if opts.ClosedJobsDir == "" {
		opts.ClosedJobsDir = "closedJobIngenico"
	}

	background, cancel := context.WithCancel(context.Background())
	return &Service{
		coreAPIs:   core,
		engine:     engine,
		searcher:   searcher,
		archive:    runs,
		notifier:   notifier,
		opts:       opts,
		status:     GenerationStatus{Errors: []string{}},
		background: background,
		cancel:     cancel,
	}
}

// Close cancels the background generation and waits for it to return.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) startRun(ctx context.Context, kind string, params any) string {
	if s.archive == nil {
		return ""
	}
	id, err := s.archive.StartRun(ctx, kind, params)
	if err != nil {
		s.tel.ReportWarning(report_archive, kind, err)
		return ""
	}
	return id
}

func (s *Service) finishRun(ctx context.Context, id string, outcome archive.Outcome) {
	if s.archive == nil || id == "" {
		return
	}
	err := s.archive.FinishRun(context.WithoutCancel(ctx), id, outcome)
	if err != nil {
		s.tel.ReportWarning(report_archive, id, err)
	}
}

func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(context.WithoutCancel(ctx), n)
	if err != nil {
		s.tel.ReportWarning(report_notify, n.Subject, err)
	}
}

// Runs lists the archived runs, most recent first.
func (s *Service) Runs(ctx context.Context, limit int) ([]archive.Run, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.Runs(ctx, limit)
}
