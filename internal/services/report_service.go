package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/store"
)

const (
	// DefaultPreset is used when a request names neither a preset nor dates.
	DefaultPreset = report.LastMonth

	buildTimeout = 30 * time.Second
)

var (
	ErrUnknownPreset = errors.New("unknown range preset")
	ErrInvertedRange = errors.New("start is after end")
)

// SnapshotSource is the read side of the Record Store.
type SnapshotSource interface {
	store.TransactionReader
	store.CategoryReader
}

// ReportRequest selects a range and tunes the report. Preset wins over
// Start/End; dates are calendar days in the service location.
type ReportRequest struct {
	Preset           report.Preset
	Start            time.Time
	End              time.Time
	Labels           report.LabelFormat
	TopLimit         int
	BreakdownLimit   int
	ComparisonMonths int
}

// ReportOptions configures a ReportService.
type ReportOptions struct {
	Location *time.Location
	Epoch    time.Time
	Now      func() time.Time
	Logger   *log.Logger
}

// ReportService loads consistent snapshots and builds cached reports. The
// cache is keyed by a data version bumped on every write, so stale entries
// are never served after Invalidate.
type ReportService struct {
	source  SnapshotSource
	cache   cache.Cache[report.Report]
	group   singleflight.Group
	version atomic.Uint64
	loc     *time.Location
	epoch   time.Time
	now     func() time.Time
	logger  *log.Logger
}

// NewReportService builds a service; c may be nil to disable caching.
func NewReportService(source SnapshotSource, c cache.Cache[report.Report], opts ReportOptions) *ReportService {
	s := &ReportService{
		source: source,
		cache:  c,
		loc:    opts.Location,
		epoch:  opts.Epoch,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.epoch.IsZero() {
		s.epoch = report.DefaultEpoch
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = log.Default(log.ComponentReport)
	}
	return s
}

// Invalidate makes every cached report stale.
func (s *ReportService) Invalidate() {
	s.version.Add(1)
}

func (s *ReportService) Location() *time.Location { return s.loc }

// Now is the reference instant in the service location.
func (s *ReportService) Now() time.Time { return s.now().In(s.loc) }

// Snapshot loads transactions and categories concurrently.
func (s *ReportService) Snapshot(ctx context.Context) (report.Snapshot, error) {
	var snap report.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.source.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		cats, err := s.source.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		snap.Categories = cats
		return nil
	})
	if err := g.Wait(); err != nil {
		return report.Snapshot{}, err
	}
	return snap, nil
}

// ResolveRange turns a request into a concrete range.
func (s *ReportService) ResolveRange(req ReportRequest) (report.Range, error) {
	if req.Preset != "" {
		r, ok := report.PresetRangeWithEpoch(req.Preset, s.Now(), s.epoch)
		if !ok {
			return report.Range{}, core.NewValidationError("preset", fmt.Errorf("%w: %q", ErrUnknownPreset, req.Preset))
		}
		return r, nil
	}
	if req.Start.IsZero() && req.End.IsZero() {
		r, _ := report.PresetRangeWithEpoch(DefaultPreset, s.Now(), s.epoch)
		return r, nil
	}

	start, end := req.Start, req.End
	if start.IsZero() {
		start = s.epoch
	}
	if end.IsZero() {
		end = s.Now()
	}
	r := report.NormalizeRange(inLocation(start, s.loc), inLocation(end, s.loc))
	if r.End.Before(r.Start) {
		return report.Range{}, core.NewValidationError("range", ErrInvertedRange)
	}
	return r, nil
}

// inLocation keeps the calendar date of t and moves it to loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

// Report returns the report bundle for req, from cache when possible.
// Concurrent identical requests share one computation.
func (s *ReportService) Report(ctx context.Context, req ReportRequest) (report.Report, error) {
	r, err := s.ResolveRange(req)
	if err != nil {
		return report.Report{}, err
	}
	opts := report.Options{
		Range:            r,
		Labels:           req.Labels,
		TopLimit:         req.TopLimit,
		BreakdownLimit:   req.BreakdownLimit,
		ComparisonMonths: req.ComparisonMonths,
		Reference:        r.End,
	}
	key := s.cacheKey(opts)

	if s.cache != nil {
		if rep, ok := s.cache.Get(ctx, key); ok {
			return rep, nil
		}
	}

	// The shared build outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(key, func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		snap, err := s.Snapshot(bctx)
		if err != nil {
			return report.Report{}, err
		}
		rep := report.Build(snap, opts)
		if s.cache != nil {
			s.cache.Set(bctx, key, rep)
		}
		return rep, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return report.Report{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		s.logger.ErrorContext(ctx, "Failed to build report", log.FieldError, res.Err, log.FieldCacheKey, key)
		return report.Report{}, res.Err
	}
	if res.Shared {
		s.logger.DebugContext(ctx, "Report computation shared", log.FieldCacheKey, key)
	}
	return res.Val.(report.Report), nil
}

func (s *ReportService) cacheKey(o report.Options) string {
	return fmt.Sprintf("report:v%d:%d:%d:%s:%d:%d:%d",
		s.version.Load(),
		o.Range.Start.UnixMilli(), o.Range.End.UnixMilli(),
		o.Labels, o.TopLimit, o.BreakdownLimit, o.ComparisonMonths)
}
