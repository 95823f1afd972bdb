package invoice

import (
	"testing"
	"time"
	"workorder-invoicer/internal/scrapers/verifone"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "  12  George St ", expect: "12 george st"},
		{in: "12 GEORGE\tST", expect: "12 george st"},
		{in: "N/A", expect: ""},
		{in: "", expect: ""},
	}
	for _, test := range testCases {
		normalized := NormalizeAddress(test.in)
		require.Equal(t, test.expect, normalized)
		require.Equal(t, normalized, NormalizeAddress(normalized), "normalizing twice changes nothing")
	}
}

func TestAssignMultipleJobIDs(t *testing.T) {
	orders := []verifone.WorkOrder{
		{JobID: "00000102", Street: "12 George St", OnSiteDateTime: "26/08/2025 3:46 PM"},
		{JobID: "00000100", Street: " 12 george  st", OnSiteDateTime: "26/08/2025 9:00 AM"},
		{JobID: "00000101", Street: "12 GEORGE ST", OnSiteDateTime: "26/08/2025 11:10 AM"},
		{JobID: "00000103", Street: "12 George St", OnSiteDateTime: "27/08/2025 9:00 AM"},
		{JobID: "00000104", Street: "", OnSiteDateTime: "26/08/2025 9:00 AM"},
		{JobID: "00000105", Street: "", OnSiteDateTime: "26/08/2025 9:00 AM"},
		{JobID: "00000106", Street: "1 Main Rd", OnSiteDateTime: "N/A", MultipleJobID: "stale"},
		{JobID: "00000107", Street: "1 Main Rd", OnSiteDateTime: "N/A"},
	}
	AssignMultipleJobIDs(orders)

	multiple := map[string]string{}
	for _, wo := range orders {
		multiple[wo.JobID] = wo.MultipleJobID
	}
	require.Equal(t, map[string]string{
		"00000100": "",
		"00000101": "00000100",
		"00000102": "00000100",
		"00000103": "",
		"00000104": "",
		"00000105": "",
		"00000106": "",
		"00000107": "",
	}, multiple)
}

func TestParseDateRange(t *testing.T) {
	r, ok, err := ParseDateRange("2025-10-01", "2025-10-31")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), r.From)

	_, ok, err = ParseDateRange("2025-10-01", "")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = ParseDateRange("01/10/2025", "2025-10-31")
	require.ErrorIs(t, err, ErrInvalidDateRange)
	_, _, err = ParseDateRange("2025-11-01", "2025-10-31")
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestFilterByDateRange(t *testing.T) {
	r, _, err := ParseDateRange("2025-10-01", "2025-10-31")
	require.NoError(t, err)

	orders := []verifone.WorkOrder{
		{JobID: "first-day", OnSiteEndISO: "2025-10-01T00:00:00.000Z"},
		{JobID: "last-day", OnSiteEndISO: "2025-10-31T23:59:59.000Z"},
		{JobID: "after", OnSiteEndISO: "2025-11-01T00:00:00.000Z"},
		{JobID: "before", OnSiteEndISO: "2025-09-30T23:59:59Z"},
		{JobID: "on-site", OnSiteEndISO: "N/A", OnSiteStartISO: "2025-10-15T01:00:00.000Z"},
		{JobID: "on-site-empty-end", OnSiteEndISO: "", OnSiteStartISO: "2025-10-16T01:00:00Z"},
		{JobID: "own-offset", OnSiteEndISO: "2025-11-01T08:00:00+11:00"},
		{JobID: "no-date", OnSiteEndISO: "N/A", OnSiteStartISO: "N/A"},
		{JobID: "garbage", OnSiteEndISO: "yesterday"},
	}

	var skipped []string
	kept := FilterByDateRange(orders, r, func(wo verifone.WorkOrder, err error) {
		require.Error(t, err)
		skipped = append(skipped, wo.JobID)
	})

	var ids []string
	for _, wo := range kept {
		ids = append(ids, wo.JobID)
	}
	require.Equal(t, []string{"first-day", "last-day", "on-site", "on-site-empty-end"}, ids)
	require.Equal(t, []string{"no-date", "garbage"}, skipped)
}

func TestSortByOnSite(t *testing.T) {
	orders := []verifone.WorkOrder{
		{JobID: "a", OnSiteDateTime: "N/A"},
		{JobID: "b", OnSiteDateTime: "26/08/2025 3:46 PM"},
		{JobID: "c", OnSiteDateTime: "27/08/2025 9:00 AM"},
		{JobID: "d", OnSiteDateTime: ""},
		{JobID: "e", OnSiteDateTime: "26/08/2025 3:47 PM"},
	}
	SortByOnSite(orders)

	var ids []string
	for _, wo := range orders {
		ids = append(ids, wo.JobID)
	}
	require.Equal(t, []string{"c", "e", "b", "a", "d"}, ids)
}

func TestRecentErrors(t *testing.T) {
	errs := newRecentErrors(3)
	for _, e := range []string{"1", "2", "3", "4", "5"} {
		errs.add(e)
	}
	require.Equal(t, []string{"3", "4", "5"}, errs.snapshot())

	require.Equal(t, 10, newRecentErrors(0).limit)
}
