package chrono

import (
	"errors"
	"testing"
	"time"
	"workorder-invoicer/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCronLogger(t *testing.T) {
	tel := telemetry.NewTestingAPI()
	logger := cronLogger{tel: tel}

	logger.Info("schedule", "entry", 1, "next", "soon")
	debug := tel.Reports("debug", "cron: schedule")
	require.Len(t, debug, 1)
	require.Equal(t, []any{"entry: 1", "next: soon"}, debug[0].Params)

	logger.Error(errors.New("panic"), "job failed", "entry")
	broken := tel.Reports("broken", "cron")
	require.Len(t, broken, 1)
	require.ErrorContains(t, broken[0].Params[0].(error), "job failed: panic")
}

func TestStandardCronRejectsInvalidSpec(t *testing.T) {
	clock := FixedImpl{At: time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)}
	cron := NewStandardCron(clock, telemetry.NewTestingAPI())
	defer cron.Stop()

	require.Error(t, cron.Cron("not a spec", func() {}))
	require.NoError(t, cron.Cron("0 6 * * 1-5", func() {}))
}

func TestStandardImpl(t *testing.T) {
	clock, err := NewStandardImpl("")
	require.NoError(t, err)
	require.Equal(t, "Australia/Sydney", clock.Location().String())
	require.Equal(t, clock.Location(), clock.Now().Location())

	_, err = NewStandardImpl("Not/AZone")
	require.Error(t, err)
}

func TestStandardCronRecoversPanics(t *testing.T) {
	clock := FixedImpl{At: time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)}
	tel := telemetry.NewTestingAPI()
	cron := NewStandardCron(clock, tel)
	defer cron.Stop()

	runs := make(chan struct{}, 4)
	require.NoError(t, cron.Cron("@every 1s", func() {
		select {
		case runs <- struct{}{}:
		default:
		}
		panic("closed job search failed")
	}))

	for range 2 {
		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatal("job did not run again after panicking")
		}
	}
	require.Eventually(t, func() bool {
		return len(tel.Reports("broken", "cron")) > 0
	}, 2*time.Second, 10*time.Millisecond)
}
