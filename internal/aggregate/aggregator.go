package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/risk"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Alert window defaults and bounds.
const (
	DefaultAlertDays  = 7
	DefaultAlertLimit = 10
	MaxAlertLimit     = 100
)

// Source is the store surface the aggregator reads from. Every method takes
// the visibility filter of an already-resolved scope.
type Source interface {
	MoodEntries(ctx context.Context, v wellbeing.Visibility, r wellbeing.Range) ([]wellbeing.MoodEntry, error)
	CriticalEntries(ctx context.Context, v wellbeing.Visibility, since time.Time, limit int) ([]wellbeing.MoodEntry, error)
	ProfileNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	Employees(ctx context.Context, v wellbeing.Visibility) ([]wellbeing.Employee, error)
	CountEmployees(ctx context.Context, v wellbeing.Visibility) (int, error)
	CountMoodEntries(ctx context.Context, v wellbeing.Visibility, r wellbeing.Range) (int, error)
	CountRecentAlerts(ctx context.Context, v wellbeing.Visibility, r wellbeing.Range) (int, error)
}

// AlertOptions bounds a critical alert query. Zero values take the defaults.
type AlertOptions struct {
	Days  int
	Limit int
}

func (o AlertOptions) normalized() AlertOptions {
	if o.Days <= 0 {
		o.Days = DefaultAlertDays
	}
	if o.Limit <= 0 {
		o.Limit = DefaultAlertLimit
	}
	if o.Limit > MaxAlertLimit {
		o.Limit = MaxAlertLimit
	}
	return o
}

// CycleMetrics is the month-level snapshot used by reports.
type CycleMetrics struct {
	CycleKey          string          `json:"cycle_key"`
	CycleLabel        string          `json:"cycle_label"`
	EmployeesAnalyzed int             `json:"employees_analyzed"`
	CriticalAlerts    int             `json:"critical_alerts"`
	BurnoutAvg7d      float64         `json:"burnout_avg_7d"`
	Burnout           BurnoutSummary  `json:"burnout"`
	Risk              risk.Assessment `json:"risk"`
	AISummary         *string         `json:"ai_summary"`
	HasData           bool            `json:"has_data"`
}

// Preview is the insight block shown before a report is saved.
type Preview struct {
	Last7          []DailyAggregate  `json:"last7"`
	MoodDonut      *MoodDistribution `json:"mood_donut"`
	CriticalAlerts int               `json:"critical_alerts"`
	WorstDays      []DailyAggregate  `json:"worst_days"`
}

func emptyPreview() Preview {
	return Preview{Last7: []DailyAggregate{}, WorstDays: []DailyAggregate{}}
}

// Aggregator computes windowed statistics under a resolved scope.
type Aggregator struct {
	src    Source
	logger *slog.Logger
	now    func() time.Time
}

func New(src Source, logger *slog.Logger) *Aggregator {
	return &Aggregator{src: src, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for trailing windows.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Now returns the aggregator's clock reading.
func (a *Aggregator) Now() time.Time {
	return a.now()
}

// Trailing returns the range covering the last days days up to now.
func (a *Aggregator) Trailing(days int) wellbeing.Range {
	if days < 1 {
		days = 1
	}
	return wellbeing.Range{From: a.now().Add(-time.Duration(days) * 24 * time.Hour)}
}

// DailyMood returns per-day aggregates for the range.
func (a *Aggregator) DailyMood(ctx context.Context, sc scope.Scope, r wellbeing.Range) ([]DailyAggregate, error) {
	v, ok := sc.Visibility()
	if !ok {
		return []DailyAggregate{}, nil
	}
	entries, err := a.src.MoodEntries(ctx, v, r)
	if err != nil {
		return nil, fmt.Errorf("daily mood: %w", err)
	}
	return Daily(entries), nil
}

// Burnout7d summarises the trailing 7-day window.
func (a *Aggregator) Burnout7d(ctx context.Context, sc scope.Scope) (BurnoutSummary, error) {
	v, ok := sc.Visibility()
	if !ok {
		return NoBurnoutData(), nil
	}
	now := a.now()
	entries, err := a.src.MoodEntries(ctx, v, wellbeing.Range{From: now.Add(-BurnoutWindow)})
	if err != nil {
		return BurnoutSummary{}, fmt.Errorf("burnout 7d: %w", err)
	}
	return Burnout(entries, now), nil
}

// CriticalAlerts returns the most recent score-1 entries, newest first.
func (a *Aggregator) CriticalAlerts(ctx context.Context, sc scope.Scope, opts AlertOptions) ([]CriticalAlert, error) {
	v, ok := sc.Visibility()
	if !ok {
		return []CriticalAlert{}, nil
	}
	opts = opts.normalized()
	since := a.now().Add(-time.Duration(opts.Days) * 24 * time.Hour)

	entries, err := a.src.CriticalEntries(ctx, v, since, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("critical alerts: %w", err)
	}
	if len(entries) == 0 {
		return []CriticalAlert{}, nil
	}

	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			ids = append(ids, e.UserID)
		}
	}
	names, err := a.src.ProfileNames(ctx, ids)
	if err != nil {
		// Names are cosmetic; alerts are still shown with the placeholder.
		a.logger.Warn("alert name lookup failed", "error", err, "alerts", len(entries))
		names = nil
	}
	return Alerts(entries, names), nil
}

// Employees returns the roster visible to the scope.
func (a *Aggregator) Employees(ctx context.Context, sc scope.Scope) ([]wellbeing.Employee, error) {
	v, ok := sc.Visibility()
	if !ok {
		return []wellbeing.Employee{}, nil
	}
	rows, err := a.src.Employees(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("employees: %w", err)
	}
	if rows == nil {
		rows = []wellbeing.Employee{}
	}
	return rows, nil
}

// MonthHasData checks the alert view first and mood entries second; either
// source alone can under-report.
func (a *Aggregator) MonthHasData(ctx context.Context, sc scope.Scope, c Cycle) (bool, error) {
	v, ok := sc.Visibility()
	if !ok {
		return false, nil
	}
	alerts, err := a.src.CountRecentAlerts(ctx, v, c.Range())
	if err != nil {
		return false, fmt.Errorf("count alerts: %w", err)
	}
	if alerts > 0 {
		return true, nil
	}
	entries, err := a.src.CountMoodEntries(ctx, v, c.Range())
	if err != nil {
		return false, fmt.Errorf("count mood entries: %w", err)
	}
	return entries > 0, nil
}

// CycleMetrics builds the month snapshot for a report.
func (a *Aggregator) CycleMetrics(ctx context.Context, sc scope.Scope, c Cycle) (CycleMetrics, error) {
	m := CycleMetrics{
		CycleKey:   c.Key,
		CycleLabel: c.Label,
		Burnout:    NoBurnoutData(),
		Risk:       risk.Assess(0, 0),
	}

	hasData, err := a.MonthHasData(ctx, sc, c)
	if err != nil {
		return CycleMetrics{}, err
	}
	if !hasData {
		return m, nil
	}
	v, _ := sc.Visibility()

	var entries []wellbeing.MoodEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.src.CountEmployees(gctx, v)
		if err != nil {
			return fmt.Errorf("count employees: %w", err)
		}
		m.EmployeesAnalyzed = n
		return nil
	})
	g.Go(func() error {
		n, err := a.src.CountRecentAlerts(gctx, v, c.Range())
		if err != nil {
			return fmt.Errorf("count alerts: %w", err)
		}
		m.CriticalAlerts = n
		return nil
	})
	g.Go(func() error {
		rows, err := a.src.MoodEntries(gctx, v, c.Range())
		if err != nil {
			return fmt.Errorf("cycle entries: %w", err)
		}
		entries = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return CycleMetrics{}, err
	}

	m.HasData = true
	m.Burnout = Burnout(entries, c.AsOf(a.now()))
	m.BurnoutAvg7d = m.Burnout.AvgScore7d
	m.Risk = risk.AssessWeighted(Samples(Daily(entries)))
	return m, nil
}

// Preview computes report insights for a cycle, or for the trailing days
// when cycle is nil.
func (a *Aggregator) Preview(ctx context.Context, sc scope.Scope, days int, cycle *Cycle) (Preview, error) {
	v, ok := sc.Visibility()
	if !ok {
		return emptyPreview(), nil
	}

	r := a.Trailing(days)
	if cycle != nil {
		has, err := a.MonthHasData(ctx, sc, *cycle)
		if err != nil {
			return Preview{}, err
		}
		if !has {
			return emptyPreview(), nil
		}
		r = cycle.Range()
	}

	var (
		entries []wellbeing.MoodEntry
		alerts  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.src.MoodEntries(gctx, v, r)
		if err != nil {
			return fmt.Errorf("preview entries: %w", err)
		}
		entries = rows
		return nil
	})
	g.Go(func() error {
		n, err := a.src.CountRecentAlerts(gctx, v, r)
		if err != nil {
			return fmt.Errorf("preview alerts: %w", err)
		}
		alerts = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Preview{}, err
	}

	daily := Daily(entries)
	return Preview{
		Last7:          LastDays(daily, 7),
		MoodDonut:      Distribution(entries),
		CriticalAlerts: alerts,
		WorstDays:      WorstDays(daily, 3),
	}, nil
}
