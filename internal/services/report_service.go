package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"kontor/internal/cache"
	"kontor/internal/calc"
	"kontor/internal/core"
	"kontor/internal/log"
	"kontor/internal/timeline"
)

// SnapshotStore is the persistence the report service reads from and writes through.
type SnapshotStore interface {
	GetOwner(ctx context.Context, id int64) (core.Owner, error)
	ListOwners(ctx context.Context) ([]core.Owner, error)
	BudgetSnapshots(ctx context.Context, ownerID int64) ([]timeline.Snapshot[timeline.Budget], error)
	CreditSnapshots(ctx context.Context, ownerID int64) ([]timeline.Snapshot[timeline.Credit], error)
	BudgetSnapshotsByOwner(ctx context.Context) (map[int64][]timeline.Snapshot[timeline.Budget], error)
	CreditSnapshotsByOwner(ctx context.Context) (map[int64][]timeline.Snapshot[timeline.Credit], error)
	UpsertBudgetSnapshot(ctx context.Context, s timeline.Snapshot[timeline.Budget]) error
	UpsertCreditSnapshot(ctx context.Context, s timeline.Snapshot[timeline.Credit]) error
}

// ReportServiceConfig holds configuration for the report service
type ReportServiceConfig struct {
	// Workers bounds concurrent population and calculation (default: GOMAXPROCS)
	Workers int

	// CacheSize is how many reports are kept, keyed by status date (default: 16)
	CacheSize int

	// CacheTTL is how long a cached report stays valid (default: 10m)
	CacheTTL time.Duration
}

// DefaultReportServiceConfig returns sensible defaults
func DefaultReportServiceConfig() ReportServiceConfig {
	return ReportServiceConfig{
		Workers:   runtime.GOMAXPROCS(0),
		CacheSize: 16,
		CacheTTL:  10 * time.Minute,
	}
}

// OwnerFailure records an owner whose timeline could not be populated.
type OwnerFailure struct {
	OwnerID   int64
	OwnerName string
	Err       error
}

func (f OwnerFailure) Error() string {
	return fmt.Sprintf("computation failed for owner %s: %v", f.OwnerName, f.Err)
}

func (f OwnerFailure) Unwrap() error { return f.Err }

// OwnerTimeline is the populated timeline of one owner. Exactly one of the
// kind-specific timelines is set.
type OwnerTimeline struct {
	Owner   core.Owner
	Window  timeline.Window
	Budget  *timeline.Timeline[timeline.Budget]
	Credit  *timeline.Timeline[timeline.Credit]
	Contact *timeline.Timeline[timeline.Presence]
}

// Series returns the populated timeline as a calculation series, or nil.
func (t *OwnerTimeline) Series() calc.Series {
	switch {
	case t == nil:
		return nil
	case t.Budget != nil:
		return t.Budget
	case t.Credit != nil:
		return t.Credit
	case t.Contact != nil:
		return t.Contact
	}
	return nil
}

// Report is the outcome of one status-date run over every owner.
type Report struct {
	StatusDate  core.Date
	Window      timeline.Window
	Owners      []core.Owner
	Timelines   map[int64]*OwnerTimeline
	Result      *calc.Result
	Failures    []OwnerFailure
	GeneratedAt time.Time
}

// ReportService loads snapshots, populates timelines and runs the cascade.
type ReportService struct {
	store      SnapshotStore
	calculator *calc.Calculator
	reports    cache.Cache[string, *Report]
	config     ReportServiceConfig
	logger     *log.Logger
	now        func() time.Time

	// generation counts invalidations. A report built across an
	// invalidation is returned but not cached.
	generation atomic.Uint64
	cacheMu    sync.Mutex
}

// NewReportService creates a report service. The returned cache is exposed
// through Cache so the caller can register it for periodic cleanup.
func NewReportService(store SnapshotStore, config ReportServiceConfig) *ReportService {
	defaults := DefaultReportServiceConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.CacheSize <= 0 {
		config.CacheSize = defaults.CacheSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaults.CacheTTL
	}

	return &ReportService{
		store:      store,
		calculator: calc.New(calc.Options{Workers: config.Workers}),
		reports:    cache.NewLRUCache[string, *Report](config.CacheSize, config.CacheTTL),
		config:     config,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentReport),
		now:        time.Now,
	}
}

// WithLogger replaces the service logger.
func (s *ReportService) WithLogger(logger *log.Logger) *ReportService {
	s.logger = logger.WithComponent(log.ComponentReport)
	return s
}

// Cache exposes the report cache for lifecycle management.
func (s *ReportService) Cache() cache.Cleaner {
	if c, ok := s.reports.(cache.Cleaner); ok {
		return c
	}
	return nil
}

// Report builds the report for statusDate, reusing a cached one when present.
// Owners that fail population are recorded in Failures and calculated as
// unpopulated; storage errors abort the run.
func (s *ReportService) Report(ctx context.Context, statusDate time.Time) (*Report, error) {
	status := core.DateOf(statusDate)
	key := status.String()
	if cached, ok := s.reports.Get(key); ok {
		s.logger.DebugContext(ctx, "Report cache hit", log.FieldStatusDate, key)
		return cached, nil
	}

	gen := s.generation.Load()
	start := s.now()
	owners, err := s.store.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	budgets, err := s.store.BudgetSnapshotsByOwner(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budget snapshots: %w", err)
	}
	credits, err := s.store.CreditSnapshotsByOwner(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credit snapshots: %w", err)
	}

	timelines := make([]*OwnerTimeline, len(owners))
	populateErrs := make([]error, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, owner := range owners {
		i, owner := i, owner
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			timelines[i], populateErrs[i] = s.populate(gctx, owner, budgets[owner.ID], credits[owner.ID], status.Time)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("populate timelines: %w", err)
	}

	report := &Report{
		StatusDate:  status,
		Window:      timeline.ResolveWindow(status.Time),
		Owners:      owners,
		Timelines:   make(map[int64]*OwnerTimeline, len(owners)),
		Failures:    make([]OwnerFailure, 0),
		GeneratedAt: start,
	}

	inputs := make([]calc.Input, len(owners))
	for i, owner := range owners {
		inputs[i] = calc.Input{Owner: owner}
		if err := populateErrs[i]; err != nil {
			report.Failures = append(report.Failures, OwnerFailure{OwnerID: owner.ID, OwnerName: owner.Name, Err: err})
			s.logger.WithFields(log.NewFields().WithOwner(owner).WithError(err)).
				ErrorContext(ctx, "Computation failed for owner")
			continue
		}
		report.Timelines[owner.ID] = timelines[i]
		inputs[i].Series = timelines[i].Series()
	}

	result, err := s.calculator.Calculate(ctx, inputs, status.Time)
	if err != nil {
		return nil, fmt.Errorf("calculate: %w", err)
	}
	report.Result = result

	if !s.storeReport(key, report, gen) {
		s.logger.DebugContext(ctx, "Report outdated by a concurrent write, not cached", log.FieldStatusDate, key)
	}
	s.logger.InfoContext(ctx, "Report built",
		log.FieldStatusDate, key,
		log.FieldWindowFrom, report.Window.From.String(),
		log.FieldWindowTo, report.Window.To.String(),
		"owners", len(owners),
		"categories", len(result.Categories),
		"failures", len(report.Failures),
		log.FieldDuration, s.now().Sub(start).Milliseconds())

	return report, nil
}

// OwnerTimeline populates the timeline of a single owner.
func (s *ReportService) OwnerTimeline(ctx context.Context, ownerID int64, statusDate time.Time) (*OwnerTimeline, error) {
	owner, err := s.store.GetOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var (
		budgets []timeline.Snapshot[timeline.Budget]
		credits []timeline.Snapshot[timeline.Credit]
	)
	switch owner.Kind {
	case core.KindBudget:
		if budgets, err = s.store.BudgetSnapshots(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("load budget snapshots: %w", err)
		}
	case core.KindCredit:
		if credits, err = s.store.CreditSnapshots(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("load credit snapshots: %w", err)
		}
	}

	tl, err := s.populate(ctx, owner, budgets, credits, core.DateOf(statusDate).Time)
	if err != nil {
		return nil, OwnerFailure{OwnerID: owner.ID, OwnerName: owner.Name, Err: err}
	}
	return tl, nil
}

// RecordBudget stores a budget snapshot and drops every cached report.
func (s *ReportService) RecordBudget(ctx context.Context, snap timeline.Snapshot[timeline.Budget]) error {
	if err := s.checkKind(ctx, snap.OwnerID, core.KindBudget); err != nil {
		return err
	}
	if err := s.store.UpsertBudgetSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("record budget snapshot: %w", err)
	}
	s.Invalidate()
	return nil
}

// RecordCredit stores a credit snapshot and drops every cached report.
func (s *ReportService) RecordCredit(ctx context.Context, snap timeline.Snapshot[timeline.Credit]) error {
	if err := s.checkKind(ctx, snap.OwnerID, core.KindCredit); err != nil {
		return err
	}
	if err := s.store.UpsertCreditSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("record credit snapshot: %w", err)
	}
	s.Invalidate()
	return nil
}

// Invalidate drops every cached report, including any being built right now.
func (s *ReportService) Invalidate() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation.Add(1)
	s.reports.Purge()
}

// storeReport caches report unless an invalidation happened since gen was read.
func (s *ReportService) storeReport(key string, report *Report, gen uint64) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation.Load() != gen {
		return false
	}
	s.reports.Set(key, report)
	return true
}

func (s *ReportService) checkKind(ctx context.Context, ownerID int64, want core.OwnerKind) error {
	owner, err := s.store.GetOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner.Kind != want {
		return fmt.Errorf("%w: owner %d is %q, snapshot is %q", timeline.ErrKindMismatch, ownerID, owner.Kind, want)
	}
	return nil
}

// populate dispatches on the owner kind. Owners without recorded snapshots
// take the empty path, never the nil-input precondition.
func (s *ReportService) populate(ctx context.Context, owner core.Owner, budgets []timeline.Snapshot[timeline.Budget], credits []timeline.Snapshot[timeline.Credit], status time.Time) (*OwnerTimeline, error) {
	out := &OwnerTimeline{Owner: owner, Window: timeline.ResolveWindow(status)}
	var err error
	switch owner.Kind {
	case core.KindBudget:
		if budgets == nil {
			budgets = []timeline.Snapshot[timeline.Budget]{}
		}
		out.Budget, err = timeline.PopulateBudget(&owner, budgets, status)
	case core.KindCredit:
		if credits == nil {
			credits = []timeline.Snapshot[timeline.Credit]{}
		}
		out.Credit, err = timeline.PopulateCredit(&owner, credits, status)
	case core.KindContact:
		out.Contact, err = timeline.PopulateContact(&owner, status)
	default:
		err = fmt.Errorf("%w: %q", core.ErrInvalidKind, owner.Kind)
	}
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Timeline populated",
		log.FieldOwnerID, owner.ID,
		log.FieldOwnerKind, string(owner.Kind))
	return out, nil
}

// IsOwnerFailure reports whether err came from populating a single owner.
func IsOwnerFailure(err error) bool {
	var f OwnerFailure
	return errors.As(err, &f)
}
