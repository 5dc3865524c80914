// Package aggregate merges event records from every enabled source,
// expands local recurring masters into dated instances, and produces one
// chronologically sorted, paginated listing.
package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/bmlt-enabled/mayo-server/pkg/event"
	"github.com/bmlt-enabled/mayo-server/pkg/recurrence"
	"github.com/bmlt-enabled/mayo-server/pkg/sources"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

const (
	defaultPerPage = 10
	// defaultHorizon bounds expansion of open-ended recurring patterns.
	defaultHorizon = 365 * 24 * time.Hour
	// sourceTimeout isolates one slow source from the rest of the request.
	sourceTimeout = 15 * time.Second
)

// Request is one aggregation call.
type Request struct {
	Query sources.Query
	// SourceIDs is the allow-list of source ids to query. Empty means the
	// local source only. External sources run only when explicitly listed.
	SourceIDs []string
	Page      int
	PerPage   int
	Order     string // ASC (default) | DESC
}

// Pagination mirrors the response envelope's pagination block.
type Pagination struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// Result is the aggregated, sorted, paginated listing.
type Result struct {
	Events     []event.Record `json:"events"`
	Sources    []event.Source `json:"sources"`
	Pagination Pagination     `json:"pagination"`
}

// Pipeline wires the sources together. It holds no per-request state:
// every Aggregate call is a pure pass over what the sources return.
type Pipeline struct {
	Local    sources.Fetcher
	External []sources.Fetcher

	// ResolveNames supplies the service-body code to name table; nil
	// leaves raw codes in place.
	ResolveNames func(ctx context.Context) map[string]string

	// Expansion policies, see pkg/recurrence.
	Overflow       recurrence.MonthOverflowPolicy
	WeeklyInterval recurrence.WeeklyIntervalPolicy

	Log Logger
	Now func() time.Time // test hook; nil means time.Now
}

func (p *Pipeline) log() Logger {
	if p.Log == nil {
		return nopLogger{}
	}
	return p.Log
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Aggregate runs the full pipeline: fan-out fetch, normalize, filter,
// expand, merge, sort, paginate. A failing source is skipped, never fatal.
func (p *Pipeline) Aggregate(ctx context.Context, req Request) (*Result, error) {
	log := p.log()

	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	today := midnightUTC(p.now())
	q := req.Query
	if q.Today == "" {
		q.Today = recurrence.FormatDate(today)
	}

	fetchers := p.selectFetchers(req.SourceIDs)

	type fetchResult struct {
		src     event.Source
		records []event.Record
		err     error
	}
	results := make([]fetchResult, len(fetchers))

	// Sources are independent; fetch them all in parallel and join before
	// merging. Slot order keeps the merge deterministic regardless of
	// completion order.
	var wg sync.WaitGroup
	for i, f := range fetchers {
		wg.Add(1)
		go func(i int, f sources.Fetcher) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, sourceTimeout)
			defer cancel()
			records, err := f.Fetch(fctx, q)
			results[i] = fetchResult{src: f.Source(), records: records, err: err}
		}(i, f)
	}
	wg.Wait()

	var (
		merged      []event.Record
		usedSources []event.Source
	)
	for _, res := range results {
		if res.err != nil {
			log.Warnf("skipping source %s: %v", res.src.ID, res.err)
			continue
		}
		usedSources = append(usedSources, res.src)

		records := applyFilters(res.records, q)
		if res.src.Kind == event.KindLocal {
			records = p.expandLocal(records, q, today)
		}
		merged = append(merged, records...)
	}

	if p.ResolveNames != nil {
		sources.ResolveServiceBodyNames(merged, p.ResolveNames(ctx))
	}

	sortRecords(merged, req.Order)

	total := len(merged)
	totalPages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start, end = total, total
	} else if end > total {
		end = total
	}

	return &Result{
		Events:  merged[start:end],
		Sources: usedSources,
		Pagination: Pagination{
			Total:       total,
			PerPage:     perPage,
			CurrentPage: page,
			TotalPages:  totalPages,
		},
	}, nil
}

// selectFetchers picks the sources a request may touch: local unless the
// allow-list excludes it, externals only when explicitly listed.
func (p *Pipeline) selectFetchers(sourceIDs []string) []sources.Fetcher {
	var out []sources.Fetcher
	if len(sourceIDs) == 0 || contains(sourceIDs, "local") {
		if p.Local != nil {
			out = append(out, p.Local)
		}
	}
	if len(sourceIDs) > 0 {
		for _, f := range p.External {
			if contains(sourceIDs, f.Source().ID) {
				out = append(out, f)
			}
		}
	}
	return out
}

// expandLocal replaces recurring masters with their dated instances and
// applies the request's date window to everything local. Archive requests
// skip expansion: stored records pass through as they are.
func (p *Pipeline) expandLocal(records []event.Record, q sources.Query, today time.Time) []event.Record {
	var out []event.Record
	for _, rec := range records {
		if rec.Recurrence == nil || q.Archive {
			if inDateWindow(rec.StartDate, rec.EndDate, q, today) {
				out = append(out, rec)
			}
			continue
		}
		out = append(out, p.expandMaster(rec, q, today)...)
	}
	return out
}

func (p *Pipeline) expandMaster(rec event.Record, q sources.Query, today time.Time) []event.Record {
	anchor, err := recurrence.ParseDate(rec.StartDate)
	if err != nil {
		p.log().Warnf("unparseable start date on event %s: %q", rec.Key(), rec.StartDate)
		return nil
	}

	cfg := recurrence.Config{
		Overflow:       p.Overflow,
		WeeklyInterval: p.WeeklyInterval,
	}
	if rec.Recurrence.EndDate == "" {
		cfg.End = anchor.Add(defaultHorizon)
	}
	dates := recurrence.ExpandPattern(rec.StartDate, rec.Recurrence, cfg)

	// Carry the master's start-to-end span onto each occurrence.
	spanDays := 0
	if rec.EndDate != "" {
		if end, err := recurrence.ParseDate(rec.EndDate); err == nil {
			spanDays = int(end.Sub(anchor).Hours() / 24)
		}
	}
	skipped := make(map[string]bool, len(rec.Skipped))
	for _, d := range rec.Skipped {
		skipped[d] = true
	}

	var out []event.Record
	for _, d := range dates {
		if skipped[d] {
			continue
		}
		endDate := d
		if spanDays > 0 {
			if start, err := recurrence.ParseDate(d); err == nil {
				endDate = recurrence.FormatDate(start.AddDate(0, 0, spanDays))
			}
		}
		if !inDateWindow(d, endDate, q, today) {
			continue
		}
		out = append(out, rec.Instance(d, endDate))
	}
	return out
}

// inDateWindow implements the listing's date logic: an explicit range
// keeps events that overlap the range; archive mode keeps fully past
// events; the default view keeps anything not fully in the past.
func inDateWindow(startDate, endDate string, q sources.Query, today time.Time) bool {
	start, err := recurrence.ParseDate(startDate)
	if err != nil {
		// Unparseable dates stay visible; the sort pushes them last.
		return true
	}
	end := start
	if endDate != "" {
		if e, err := recurrence.ParseDate(endDate); err == nil {
			end = e
		}
	}

	if q.RangeStart != "" && q.RangeEnd != "" {
		rs, err1 := recurrence.ParseDate(q.RangeStart)
		re, err2 := recurrence.ParseDate(q.RangeEnd)
		if err1 == nil && err2 == nil {
			return !start.After(re) && !end.Before(rs)
		}
	}

	if q.Archive {
		return end.Before(today)
	}
	return !start.Before(today) || !end.Before(today)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
