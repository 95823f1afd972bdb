package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by TestingAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// TestingAPI records every report so tests can assert on them. It is safe for concurrent use.
type TestingAPI struct {
	mutex   sync.Mutex
	reports []Report
	counts  map[string]int64
}

func NewTestingAPI() *TestingAPI {
	return &TestingAPI{counts: map[string]int64{}}
}

func (t *TestingAPI) record(kind, id string, params []any) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reports = append(t.reports, Report{Kind: kind, ID: id, Params: params})
}

func (t *TestingAPI) ReportBroken(id string, params ...any) {
	t.record("broken", id, params)
}

func (t *TestingAPI) ReportWarning(id string, params ...any) {
	t.record("warning", id, params)
}

func (t *TestingAPI) ReportDebug(msg string, params ...any) {
	t.record("debug", msg, params)
}

func (t *TestingAPI) ReportCount(id string, count int64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.counts[id] = count
}

// Reports returns the recorded reports of the given kind ("broken", "warning" or "debug")
// whose id contains substr.
func (t *TestingAPI) Reports(kind, substr string) []Report {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var out []Report
	for _, r := range t.reports {
		if r.Kind == kind && strings.Contains(r.ID, substr) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the last count reported under the exact id.
func (t *TestingAPI) Count(id string) int64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.counts[id]
}
