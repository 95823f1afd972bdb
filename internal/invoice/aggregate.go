package invoice

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"workorder-invoicer/internal/scrapers/verifone"
)

// NormalizeAddress lowercases a street and collapses its whitespace so the same
// address typed twice compares equal.
func NormalizeAddress(address string) string {
	if address == verifone.NotAvailable {
		return ""
	}
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

func onSiteDay(display string) string {
	t, ok := verifone.ParseDisplayTime(display, time.UTC)
	if !ok {
		return ""
	}
	return t.Format(time.DateOnly)
}

type locationKey struct {
	day     string
	address string
}

// AssignMultipleJobIDs links work orders done at the same address on the same day. The
// smallest JobID of a group is its canonical job, the other members point to it.
func AssignMultipleJobIDs(orders []verifone.WorkOrder) {
	groups := map[locationKey][]int{}
	for i := range orders {
		orders[i].MultipleJobID = ""
		key := locationKey{
			day:     onSiteDay(orders[i].OnSiteDateTime),
			address: NormalizeAddress(orders[i].Street),
		}
		if key.day == "" || key.address == "" {
			continue
		}
		groups[key] = append(groups[key], i)
	}

	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		canonical := orders[members[0]].JobID
		for _, i := range members[1:] {
			if orders[i].JobID < canonical {
				canonical = orders[i].JobID
			}
		}
		for _, i := range members {
			if orders[i].JobID != canonical {
				orders[i].MultipleJobID = canonical
			}
		}
	}
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

var ErrInvalidDateRange = errors.New("invalid date range")

// ParseDateRange parses YYYY-MM-DD bounds. The range only applies when both bounds are
// given, ok is false otherwise.
func ParseDateRange(from, to string) (r DateRange, ok bool, err error) {
	if from == "" || to == "" {
		return DateRange{}, false, nil
	}
	r.From, err = time.Parse(time.DateOnly, from)
	if err != nil {
		return DateRange{}, false, fmt.Errorf("%w: date_from: %w", ErrInvalidDateRange, err)
	}
	r.To, err = time.Parse(time.DateOnly, to)
	if err != nil {
		return DateRange{}, false, fmt.Errorf("%w: date_to: %w", ErrInvalidDateRange, err)
	}
	if r.From.After(r.To) {
		return DateRange{}, false, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange, from, to)
	}
	return r, true, nil
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseISO(value string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Contains reports whether the calendar day of t, taken in t's own offset, is in range.
func (r DateRange) Contains(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(r.From) && !day.After(r.To)
}

// filterDate is the instant a work order is filtered on: the on-site end time, or the
// start time for jobs still on site.
func filterDate(wo verifone.WorkOrder) (time.Time, error) {
	iso := wo.OnSiteEndISO
	if iso == "" || iso == verifone.NotAvailable {
		iso = wo.OnSiteStartISO
	}
	if iso == "" || iso == verifone.NotAvailable {
		return time.Time{}, fmt.Errorf("no on-site time")
	}
	t, ok := parseISO(iso)
	if !ok {
		return time.Time{}, fmt.Errorf("unparseable on-site time %q", iso)
	}
	return t, nil
}

// FilterByDateRange keeps the work orders whose on-site date falls in range. Work orders
// without a usable date are dropped and handed to skipped.
func FilterByDateRange(orders []verifone.WorkOrder, r DateRange, skipped func(wo verifone.WorkOrder, err error)) []verifone.WorkOrder {
	var out []verifone.WorkOrder
	for _, wo := range orders {
		t, err := filterDate(wo)
		if err != nil {
			if skipped != nil {
				skipped(wo, err)
			}
			continue
		}
		if r.Contains(t) {
			out = append(out, wo)
		}
	}
	return out
}

// SortByOnSite orders work orders from the most recent on-site time to the oldest,
// work orders without a readable time go last.
func SortByOnSite(orders []verifone.WorkOrder) {
	slices.SortStableFunc(orders, func(a, b verifone.WorkOrder) int {
		ta, okA := verifone.ParseDisplayTime(a.OnSiteDateTime, time.UTC)
		tb, okB := verifone.ParseDisplayTime(b.OnSiteDateTime, time.UTC)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		return tb.Compare(ta)
	})
}
