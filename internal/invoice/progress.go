package invoice

import "sync"

// Status is a snapshot of a running invoice generation.
type Status struct {
	Message   string   `json:"message"`
	Completed int      `json:"progress"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors"`
}

// Progress receives a status update after every step and every finished work order.
// Updates are delivered from a single goroutine.
type Progress interface {
	Update(status Status)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(status Status)

func (f ProgressFunc) Update(status Status) {
	f(status)
}

type discardProgress struct{}

func (discardProgress) Update(Status) {}

// Discard drops every update.
var Discard Progress = discardProgress{}

// ChannelProgress forwards updates to a channel, dropping the ones the reader is too
// slow to take.
type ChannelProgress chan<- Status

func (c ChannelProgress) Update(status Status) {
	select {
	case c <- status:
	default:
	}
}

// recentErrors keeps the last `limit` errors.
type recentErrors struct {
	mutex  sync.Mutex
	limit  int
	errors []string
}

func newRecentErrors(limit int) *recentErrors {
	if limit <= 0 {
		limit = 10
	}
	return &recentErrors{limit: limit}
}

func (r *recentErrors) add(message string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.errors = append(r.errors, message)
	if len(r.errors) > r.limit {
		r.errors = r.errors[len(r.errors)-r.limit:]
	}
}

func (r *recentErrors) snapshot() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}
