package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"workorder-invoicer/internal/components/assert"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"

	_ "embed"

	"github.com/google/uuid"
)

//go:embed schema.sql
var Schema string

const (
	report_db_query = "db.query"
)

const (
	KindInvoice    = "invoice"
	KindClosedJobs = "closed_jobs"
)

// Run is one archived invoice generation or closed job search.
type Run struct {
	ID         string
	Kind       string
	StartedAt  time.Time
	FinishedAt time.Time
	Params     string
	Succeeded  int
	Failed     int
	Total      int
	ResultPath string
	Error      string
}

// Finished reports whether FinishRun was called for the run.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Outcome is what a run produced.
type Outcome struct {
	Succeeded  int
	Failed     int
	Total      int
	ResultPath string
	Error      string
}

// Archive keeps the history of runs and the last work order id list in sqlite.
type Archive struct {
	db    *sql.DB
	clock chrono.API
	tel   telemetry.API
}

// NewArchive expects Schema to already be applied to db.
func NewArchive(db *sql.DB, clock chrono.API, tel telemetry.API) Archive {
	assert.NotNil(db)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return Archive{
		db:    db,
		clock: clock,
		tel:   telemetry.NewScopedAPI("archive", tel),
	}
}

// StartRun records the start of a run and returns its id.
func (a Archive) StartRun(ctx context.Context, kind string, params any) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	id := uuid.NewString()
	_, err = a.db.ExecContext(
		ctx,
		"insert into run(id, kind, started_at, params) values (?, ?, ?, ?)",
		id, kind, a.clock.Now().UnixMilli(), string(encoded),
	)
	if err != nil {
		a.tel.ReportBroken(report_db_query, err, "StartRun", kind)
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

func (a Archive) FinishRun(ctx context.Context, id string, outcome Outcome) error {
	res, err := a.db.ExecContext(
		ctx,
		`update run set finished_at = ?, succeeded = ?, failed = ?, total = ?, result_path = ?, error = ?
		where id = ?`,
		a.clock.Now().UnixMilli(),
		outcome.Succeeded, outcome.Failed, outcome.Total,
		outcome.ResultPath, outcome.Error,
		id,
	)
	if err != nil {
		a.tel.ReportBroken(report_db_query, err, "FinishRun", id)
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("finish run: %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Runs returns the most recent runs first.
func (a Archive) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.QueryContext(
		ctx,
		`select id, kind, started_at, finished_at, params, succeeded, failed, total, result_path, error
		from run order by started_at desc, rowid desc limit ?`,
		limit,
	)
	if err != nil {
		a.tel.ReportBroken(report_db_query, err, "Runs")
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var startedAt int64
		var finishedAt sql.NullInt64
		err = rows.Scan(
			&r.ID, &r.Kind, &startedAt, &finishedAt, &r.Params,
			&r.Succeeded, &r.Failed, &r.Total, &r.ResultPath, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt).In(a.clock.Location())
		if finishedAt.Valid {
			r.FinishedAt = time.UnixMilli(finishedAt.Int64).In(a.clock.Location())
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveWorkOrderIDs replaces the cached id list.
func (a Archive) SaveWorkOrderIDs(ctx context.Context, ids []string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save work order ids: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from work_order_id")
	if err != nil {
		a.tel.ReportBroken(report_db_query, err, "SaveWorkOrderIDs")
		return fmt.Errorf("save work order ids: %w", err)
	}
	now := a.clock.Now().UnixMilli()
	for i, id := range ids {
		_, err = tx.ExecContext(
			ctx,
			"insert into work_order_id(position, work_order_id, saved_at) values (?, ?, ?)",
			i, id, now,
		)
		if err != nil {
			a.tel.ReportBroken(report_db_query, err, "SaveWorkOrderIDs")
			return fmt.Errorf("save work order ids: %w", err)
		}
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("save work order ids: %w", err)
	}
	return nil
}

// LatestWorkOrderIDs returns the cached id list in its original order.
func (a Archive) LatestWorkOrderIDs(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "select work_order_id from work_order_id order by position")
	if err != nil {
		a.tel.ReportBroken(report_db_query, err, "LatestWorkOrderIDs")
		return nil, fmt.Errorf("latest work order ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		err = rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("latest work order ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
