package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/MikeSquared-Agency/pulse/internal/risk"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/MikeSquared-Agency/pulse/internal/store"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"golang.org/x/sync/errgroup"
)

// Daily window bounds in days.
const (
	DefaultDays = 30
	MaxDays     = 365
)

// Section names, used as keys of Dashboard.Errors.
const (
	SectionDaily     = "daily"
	SectionBurnout   = "burnout"
	SectionAlerts    = "critical_alerts"
	SectionEmployees = "employees"

	sectionCount = 4
)

// Error codes reported per failed section.
const (
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal"
)

// Options bounds a dashboard load. Zero values take the defaults.
type Options struct {
	Days   int
	Alerts aggregate.AlertOptions
}

// Dashboard is the classified view of one scope.
type Dashboard struct {
	Scope       scope.Scope                `json:"scope"`
	Days        int                        `json:"days"`
	Daily       []aggregate.DailyAggregate `json:"daily"`
	DailyRisk   risk.Assessment            `json:"daily_risk"`
	Burnout     aggregate.BurnoutSummary   `json:"burnout"`
	BurnoutRisk risk.Assessment            `json:"burnout_risk"`
	Alerts      []aggregate.CriticalAlert  `json:"critical_alerts"`
	Employees   []wellbeing.Employee       `json:"employees"`
	Errors      map[string]string          `json:"errors,omitempty"`
}

// Failed reports whether every section failed.
func (d Dashboard) Failed() bool {
	return len(d.Errors) == sectionCount
}

// Loader fans a dashboard request out over the aggregator.
type Loader struct {
	agg    *aggregate.Aggregator
	logger *slog.Logger
}

func New(agg *aggregate.Aggregator, logger *slog.Logger) *Loader {
	return &Loader{agg: agg, logger: logger}
}

// Load runs the daily, burnout, alert and roster queries concurrently under
// an already-resolved scope, then classifies. A failing branch is reported in
// Errors and never suppresses the others.
func (l *Loader) Load(ctx context.Context, sc scope.Scope, opts Options) Dashboard {
	days := opts.Days
	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}

	d := Dashboard{
		Scope:     sc,
		Days:      days,
		Daily:     []aggregate.DailyAggregate{},
		Burnout:   aggregate.NoBurnoutData(),
		Alerts:    []aggregate.CriticalAlert{},
		Employees: []wellbeing.Employee{},
	}

	var (
		mu   sync.Mutex
		errs = map[string]string{}
	)
	fail := func(section string, err error) {
		l.logger.Error("dashboard section failed",
			"section", section,
			"caller_id", sc.CallerID,
			"error", err,
		)
		mu.Lock()
		errs[section] = errorCode(err)
		mu.Unlock()
	}

	// Branches share no cancellation: one failure must not abort the others.
	var g errgroup.Group
	g.Go(func() error {
		daily, err := l.agg.DailyMood(ctx, sc, l.agg.Trailing(days))
		if err != nil {
			fail(SectionDaily, err)
			return nil
		}
		d.Daily = daily
		return nil
	})
	g.Go(func() error {
		b, err := l.agg.Burnout7d(ctx, sc)
		if err != nil {
			fail(SectionBurnout, err)
			return nil
		}
		d.Burnout = b
		return nil
	})
	g.Go(func() error {
		alerts, err := l.agg.CriticalAlerts(ctx, sc, opts.Alerts)
		if err != nil {
			fail(SectionAlerts, err)
			return nil
		}
		d.Alerts = alerts
		return nil
	})
	g.Go(func() error {
		employees, err := l.agg.Employees(ctx, sc)
		if err != nil {
			fail(SectionEmployees, err)
			return nil
		}
		d.Employees = employees
		return nil
	})
	_ = g.Wait()

	d.DailyRisk = risk.AssessWeighted(aggregate.Samples(d.Daily))
	d.BurnoutRisk = risk.AssessBurnout(d.Burnout.AvgScore7d, d.Burnout.Entries7d)
	if len(errs) > 0 {
		d.Errors = errs
	}
	return d
}

func errorCode(err error) string {
	if errors.Is(err, store.ErrUnavailable) {
		return CodeStoreUnavailable
	}
	return CodeInternal
}
