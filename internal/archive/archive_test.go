package archive

import (
	"context"
	"database/sql"
	"testing"
	"time"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/internal/components/telemetry"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type steppingClock struct {
	at *time.Time
}

func (s steppingClock) Now() time.Time {
	*s.at = s.at.Add(time.Minute)
	return *s.at
}

func (s steppingClock) Location() *time.Location {
	return time.UTC
}

func newTestArchive(t *testing.T, clock chrono.API) Archive {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	_, err = db.Exec(Schema)
	require.NoError(t, err)
	return NewArchive(db, clock, telemetry.NewTestingAPI())
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, time.October, 3, 9, 0, 0, 0, time.UTC)
	archive := newTestArchive(t, steppingClock{at: &start})

	first, err := archive.StartRun(ctx, KindInvoice, map[string]string{"date_from": "2025-10-01"})
	require.NoError(t, err)
	second, err := archive.StartRun(ctx, KindClosedJobs, nil)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	err = archive.FinishRun(ctx, first, Outcome{
		Succeeded:  3,
		Failed:     1,
		Total:      4,
		ResultPath: "invoices/invoice_2025-10-03T09-00-00.000/invoice.html",
	})
	require.NoError(t, err)

	runs, err := archive.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, second, runs[0].ID)
	require.False(t, runs[0].Finished())
	require.Equal(t, "null", runs[0].Params)

	require.Equal(t, first, runs[1].ID)
	require.Equal(t, KindInvoice, runs[1].Kind)
	require.True(t, runs[1].Finished())
	require.Equal(t, `{"date_from":"2025-10-01"}`, runs[1].Params)
	require.Equal(t, 3, runs[1].Succeeded)
	require.Equal(t, 4, runs[1].Total)
	require.Equal(t, time.Date(2025, time.October, 3, 9, 1, 0, 0, time.UTC), runs[1].StartedAt)
	require.Equal(t, time.Date(2025, time.October, 3, 9, 3, 0, 0, time.UTC), runs[1].FinishedAt)

	require.ErrorIs(t, archive.FinishRun(ctx, "missing", Outcome{}), sql.ErrNoRows)
}

func TestWorkOrderIDCache(t *testing.T) {
	ctx := context.Background()
	archive := newTestArchive(t, chrono.FixedImpl{At: time.Date(2025, time.October, 3, 9, 0, 0, 0, time.UTC)})

	ids, err := archive.LatestWorkOrderIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, archive.SaveWorkOrderIDs(ctx, []string{"0WOc", "0WOa", "0WOb"}))
	require.NoError(t, archive.SaveWorkOrderIDs(ctx, []string{"0WOz", "0WOy"}))

	ids, err = archive.LatestWorkOrderIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"0WOz", "0WOy"}, ids)
}
