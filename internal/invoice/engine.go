package invoice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
	"workorder-invoicer/internal/components/assert"
	"workorder-invoicer/internal/components/telemetry"
	"workorder-invoicer/internal/scrapers/verifone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("workorder-invoicer/internal/invoice")

const (
	report_engine_list     = "engine.list"
	report_engine_id_cache = "engine.id-cache"
	report_engine_unit     = "engine.unit"
	report_engine_filter   = "engine.filter"
	report_engine_run      = "engine.run"
)

// DefaultRecordLimit is the page size of the list call when none is given.
const DefaultRecordLimit = 200

var (
	// ErrNoWorkOrders is returned when neither the portal nor the id cache yield ids.
	ErrNoWorkOrders = errors.New("no work orders found")
	// ErrNothingProcessed is returned when every work order failed or was filtered out.
	ErrNothingProcessed = errors.New("no work orders could be processed")
)

// Source is the portal the work orders come from.
type Source interface {
	ListWorkOrderIDs(ctx context.Context, searchString string, pageSize int) ([]string, error)
	FetchDetail(ctx context.Context, id string) (verifone.WorkOrder, error)
	FetchSensitive(ctx context.Context, id string) (verifone.Sensitive, error)
}

// IDCache remembers the last list of ids the portal returned, it stands in for the
// list call when that fails.
type IDCache interface {
	SaveWorkOrderIDs(ctx context.Context, ids []string) error
	LatestWorkOrderIDs(ctx context.Context) ([]string, error)
}

type Options struct {
	// MaxWorkers bounds the concurrent work order fetches.
	MaxWorkers int
	// ErrorListSize is how many recent errors a Status carries.
	ErrorListSize int
	// Deadline bounds the whole fan-out, 0 disables it.
	Deadline time.Duration
}

// Params select the work orders of a run.
type Params struct {
	DateFrom     string `json:"date_from"`
	DateTo       string `json:"date_to"`
	SearchString string `json:"search_string"`
	// RecordLimit is the page size of the list call.
	RecordLimit int `json:"record_limit"`
	// Limit caps how many listed work orders are fetched, 0 fetches all of them.
	Limit int `json:"limit"`
}

// Result is the outcome of a run.
type Result struct {
	WorkOrders []verifone.WorkOrder
	Listed     int
	Succeeded  int
	Failed     int
	Excluded   int
	Errors     []string
	FromCache  bool
}

type Engine struct {
	source Source
	cache  IDCache
	opts   Options
	tel    telemetry.API
}

// NewEngine creates an engine, cache may be nil.
func NewEngine(source Source, cache IDCache, opts Options, tel telemetry.API) Engine {
	assert.NotNil(source)
	assert.NotNil(tel)
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 10
	}
	if opts.ErrorListSize <= 0 {
		opts.ErrorListSize = 10
	}
	return Engine{
		source: source,
		cache:  cache,
		opts:   opts,
		tel:    telemetry.NewScopedAPI("invoice", tel),
	}
}

type tracker struct {
	progress Progress
	errors   *recentErrors
	total    int
	done     int
}

func (t *tracker) update(message string) {
	t.progress.Update(Status{
		Message:   message,
		Completed: t.done,
		Total:     t.total,
		Errors:    t.errors.snapshot(),
	})
}

func (e Engine) listIDs(ctx context.Context, params Params) ([]string, bool, error) {
	ids, err := e.source.ListWorkOrderIDs(ctx, params.SearchString, params.RecordLimit)
	if err == nil && len(ids) > 0 {
		if e.cache != nil {
			cacheErr := e.cache.SaveWorkOrderIDs(ctx, ids)
			if cacheErr != nil {
				e.tel.ReportWarning(report_engine_id_cache, cacheErr)
			}
		}
		return ids, false, nil
	}
	if err == nil {
		err = ErrNoWorkOrders
	}
	e.tel.ReportWarning(report_engine_list, fmt.Errorf("list failed, falling back to id cache: %w", err))

	if e.cache == nil {
		return nil, false, fmt.Errorf("%w: %w", ErrNoWorkOrders, err)
	}
	cached, cacheErr := e.cache.LatestWorkOrderIDs(ctx)
	if cacheErr != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrNoWorkOrders, errors.Join(err, cacheErr))
	}
	if len(cached) == 0 {
		return nil, false, fmt.Errorf("%w: %w", ErrNoWorkOrders, err)
	}
	return cached, true, nil
}

// Run lists the work orders, fetches every one of them and returns the ones matching the
// date range with their multiple job ids assigned, most recent first.
func (e Engine) Run(ctx context.Context, params Params, progress Progress) (Result, error) {
	ctx, span := tracer.Start(ctx, "invoice:run")
	defer span.End()

	if progress == nil {
		progress = Discard
	}
	if params.RecordLimit <= 0 {
		params.RecordLimit = DefaultRecordLimit
	}
	dateRange, filtered, err := ParseDateRange(params.DateFrom, params.DateTo)
	if err != nil {
		return Result{}, err
	}

	track := &tracker{progress: progress, errors: newRecentErrors(e.opts.ErrorListSize)}
	track.update("Fetching work order ids...")

	ids, fromCache, err := e.listIDs(ctx, params)
	if err != nil {
		track.errors.add(err.Error())
		track.update("Error: no work orders found")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.tel.ReportBroken(report_engine_run, err)
		return Result{}, err
	}
	result := Result{Listed: len(ids), FromCache: fromCache}
	if params.Limit > 0 && len(ids) > params.Limit {
		ids = ids[:params.Limit]
	}
	track.total = len(ids)
	span.SetAttributes(attribute.Int("work_orders", len(ids)), attribute.Bool("from_cache", fromCache))
	track.update(fmt.Sprintf("Processing %d work orders...", len(ids)))

	units := e.fanOut(ctx, ids, track)
	for _, unit := range units {
		if unit.err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
		result.WorkOrders = append(result.WorkOrders, unit.workOrder)
	}

	if filtered && len(result.WorkOrders) > 0 {
		track.update("Filtering by date range...")
		before := len(result.WorkOrders)
		result.WorkOrders = FilterByDateRange(result.WorkOrders, dateRange, func(wo verifone.WorkOrder, err error) {
			e.tel.ReportWarning(report_engine_filter, wo.JobID, err)
		})
		result.Excluded = before - len(result.WorkOrders)
	}

	track.update("Assigning multiple job ids...")
	AssignMultipleJobIDs(result.WorkOrders)
	SortByOnSite(result.WorkOrders)
	result.Errors = track.errors.snapshot()

	e.tel.ReportCount(report_engine_run, int64(len(result.WorkOrders)))
	if len(result.WorkOrders) == 0 {
		track.update("Error: no work orders could be processed")
		span.SetStatus(codes.Error, ErrNothingProcessed.Error())
		return result, ErrNothingProcessed
	}
	track.update(fmt.Sprintf("Completed: %d succeeded, %d failed", result.Succeeded, result.Failed))
	return result, nil
}

type unit struct {
	index     int
	id        string
	workOrder verifone.WorkOrder
	err       error
}

// fanOut yields exactly one unit per id, in the order of ids. Once ctx is done the
// remaining ids fail with the context error without being fetched.
func (e Engine) fanOut(ctx context.Context, ids []string, track *tracker) []unit {
	if len(ids) == 0 {
		return nil
	}
	if e.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Deadline)
		defer cancel()
	}

	type job struct {
		index int
		id    string
	}
	jobs := make(chan job)
	results := make(chan unit)

	var wg sync.WaitGroup
	for range min(e.opts.MaxWorkers, len(ids)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				u := e.process(ctx, j.id)
				u.index = j.index
				results <- u
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, id := range ids {
			select {
			case jobs <- job{index: i, id: id}:
			case <-ctx.Done():
				for j := i; j < len(ids); j++ {
					results <- unit{index: j, id: ids[j], err: ctx.Err()}
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	units := make([]unit, 0, len(ids))
	for u := range results {
		units = append(units, u)
		track.done++
		if u.err != nil {
			track.errors.add(fmt.Sprintf("%s: %v", u.id, u.err))
		}
		track.update(fmt.Sprintf("Processing work order %d/%d...", track.done, track.total))
	}

	slices.SortFunc(units, func(a, b unit) int {
		return a.index - b.index
	})
	return units
}

// process fetches the detail of a work order and, only when that succeeds, its
// sensitive fields. Missing sensitive fields do not fail the work order.
func (e Engine) process(ctx context.Context, id string) unit {
	ctx, span := tracer.Start(
		ctx, "invoice:unit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("id", id)),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return unit{id: id, err: err}
	}

	wo, err := e.source.FetchDetail(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return unit{id: id, err: err}
	}

	sensitive, err := e.source.FetchSensitive(ctx, id)
	if err != nil {
		span.RecordError(err)
		e.tel.ReportWarning(report_engine_unit, id, err)
		sensitive = verifone.Sensitive{}
	}
	return unit{id: id, workOrder: wo.WithSensitive(sensitive)}
}
