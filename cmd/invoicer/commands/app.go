package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"workorder-invoicer/internal/archive"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/config"
	"workorder-invoicer/internal/credentials"
	"workorder-invoicer/internal/invoice"
	"workorder-invoicer/internal/notify"
	"workorder-invoicer/internal/scrapers/ingenico"
	"workorder-invoicer/internal/scrapers/verifone"
	"workorder-invoicer/internal/service"
	"workorder-invoicer/pkg/migrations"
)

// app owns everything a command needs, built from the loaded config.
type app struct {
	cfg     config.Config
	clock   chrono.StandardImpl
	tel     telemetry.API
	store   credentials.Store
	service *service.Service

	tracing telemetry.Tracing
	dbs     []*sql.DB
}

func openStore(cfg config.CredentialsConfig, clock chrono.API) (credentials.Store, *sql.DB, error) {
	switch cfg.Backend {
	case "sqlite":
		db, err := migrations.OpenAndMigrateDB(credentials.Schema, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return credentials.NewSqliteStore(db, clock), db, nil
	default:
		return credentials.NewEnvFile(cfg.Path), nil, nil
	}
}

func newApp(ctx context.Context, serviceName string) (*app, error) {
	cfg := loaded
	a := &app{
		cfg: cfg,
		tel: telemetry.SlogAPI{},
	}

	var err error
	a.tracing, err = telemetry.SetupTracing(ctx, serviceName, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.clock, err = chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("load timezone: %w", err), a.Close())
	}

	store, storeDB, err := openStore(cfg.Credentials, a.clock)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open credentials: %w", err), a.Close())
	}
	a.store = store
	if storeDB != nil {
		a.dbs = append(a.dbs, storeDB)
	}

	archiveDB, err := migrations.OpenAndMigrateDB(archive.Schema, cfg.Archive.Path)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open archive: %w", err), a.Close())
	}
	a.dbs = append(a.dbs, archiveDB)
	runs := archive.NewArchive(archiveDB, a.clock, a.tel)

	verifoneClient := verifone.NewClient(store, verifone.Options{
		Timeout:           cfg.Verifone.RequestTimeout.Std(),
		RequestsPerSecond: cfg.Verifone.RequestsPerSecond,
		CaptureDir:        cfg.Verifone.CaptureDir,
	}, a.clock, a.tel)
	engine := invoice.NewEngine(verifoneClient, runs, invoice.Options{
		MaxWorkers:    cfg.Invoice.MaxWorkers,
		ErrorListSize: cfg.Invoice.ErrorListSize,
		Deadline:      cfg.Invoice.Deadline.Std(),
	}, a.tel)
	ingenicoClient := ingenico.NewClient(store, ingenico.Options{
		Timeout:           cfg.Ingenico.RequestTimeout.Std(),
		MaxRetries:        cfg.Ingenico.MaxRetries,
		ResultsPage:       cfg.Ingenico.ResultsPage,
		RequestsPerSecond: cfg.Ingenico.RequestsPerSecond,
	}, a.clock, a.tel)
	mailer := notify.NewMailer(cfg.Smtp, a.tel)

	a.service = service.NewService(
		service.NewCoreAPIs(
			store,
			service.WithCustomClock(a.clock),
			service.WithCustomTelemetryAPI(a.tel),
		),
		engine,
		ingenicoClient,
		runs,
		mailer,
		service.Options{
			InvoiceDir:    cfg.Invoice.OutputDir,
			ClosedJobsDir: cfg.Ingenico.OutputDir,
			MaxWorkOrders: cfg.Invoice.MaxWorkOrders,
		},
	)
	return a, nil
}

func (a *app) Close() error {
	if a.service != nil {
		a.service.Close()
	}
	var errs []error
	for _, db := range a.dbs {
		errs = append(errs, db.Close())
	}
	errs = append(errs, a.tracing.Shutdown(context.Background()))
	return errors.Join(errs...)
}
