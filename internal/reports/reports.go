package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/MikeSquared-Agency/pulse/internal/hermes"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/MikeSquared-Agency/pulse/internal/store"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
)

// ErrEmptyScope is returned when a caller without a company binding tries to
// save a report.
var ErrEmptyScope = errors.New("scope has no company")

// Log is the append-only report relation.
type Log interface {
	InsertReport(ctx context.Context, r *wellbeing.Report) error
	ListReports(ctx context.Context, v wellbeing.Visibility) ([]wellbeing.Report, error)
	DeleteReport(ctx context.Context, v wellbeing.Visibility, id uuid.UUID) error
	DeleteAllReports(ctx context.Context, v wellbeing.Visibility) (int64, error)
}

// Metrics computes the month snapshot of a cycle.
type Metrics interface {
	CycleMetrics(ctx context.Context, sc scope.Scope, c aggregate.Cycle) (aggregate.CycleMetrics, error)
}

// Summarizer writes the executive summary of a cycle.
type Summarizer interface {
	Summarize(ctx context.Context, sc scope.Scope, m aggregate.CycleMetrics) (*string, error)
}

// Publisher emits events to the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier announces saved reports to humans.
type Notifier interface {
	PostReport(ctx context.Context, r wellbeing.Report) error
}

// Service builds, saves and manages cycle reports under a resolved scope.
type Service struct {
	log        Log
	metrics    Metrics
	summarizer Summarizer
	publisher  Publisher
	notifier   Notifier
	logger     *slog.Logger
}

// New wires the service. summarizer, publisher and notifier may be nil.
func New(log Log, metrics Metrics, summarizer Summarizer, publisher Publisher, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		log:        log,
		metrics:    metrics,
		summarizer: summarizer,
		publisher:  publisher,
		notifier:   notifier,
		logger:     logger,
	}
}

// Build computes cycle metrics and, when asked and the month has data, the
// AI summary. An unavailable engine leaves the summary absent.
func (s *Service) Build(ctx context.Context, sc scope.Scope, c aggregate.Cycle, withSummary bool) (aggregate.CycleMetrics, error) {
	m, err := s.metrics.CycleMetrics(ctx, sc, c)
	if err != nil {
		return aggregate.CycleMetrics{}, fmt.Errorf("cycle metrics %s: %w", c.Key, err)
	}
	if !withSummary || !m.HasData || s.summarizer == nil {
		return m, nil
	}

	summary, err := s.summarizer.Summarize(ctx, sc, m)
	if err != nil {
		s.logger.Warn("cycle summary unavailable",
			"cycle_key", c.Key,
			"caller_id", sc.CallerID,
			"error", err,
		)
		return m, nil
	}
	m.AISummary = summary
	return m, nil
}

// Save builds the cycle snapshot and appends it to the report log. Event
// publication and notification failures are logged, never returned.
func (s *Service) Save(ctx context.Context, sc scope.Scope, c aggregate.Cycle, withSummary bool) (wellbeing.Report, error) {
	if sc.Empty() {
		return wellbeing.Report{}, ErrEmptyScope
	}

	m, err := s.Build(ctx, sc, c, withSummary)
	if err != nil {
		return wellbeing.Report{}, err
	}

	r := wellbeing.Report{
		CycleKey:          m.CycleKey,
		CycleLabel:        m.CycleLabel,
		EmployeesAnalyzed: m.EmployeesAnalyzed,
		CriticalAlerts:    m.CriticalAlerts,
		BurnoutAvg7d:      m.BurnoutAvg7d,
		AISummary:         m.AISummary,
		CompanyID:         sc.EffectiveCompanyID,
		CreatedBy:         sc.CallerID,
	}
	if err := s.log.InsertReport(ctx, &r); err != nil {
		return wellbeing.Report{}, fmt.Errorf("save report: %w", err)
	}

	s.logger.Info("report saved",
		"report_id", r.ID,
		"cycle_key", r.CycleKey,
		"caller_id", sc.CallerID,
		"has_summary", r.AISummary != nil,
	)

	s.announce(ctx, r)
	return r, nil
}

func (s *Service) announce(ctx context.Context, r wellbeing.Report) {
	if s.publisher != nil {
		ev := hermes.ReportSaved{
			ReportID:          r.ID.String(),
			CycleKey:          r.CycleKey,
			CycleLabel:        r.CycleLabel,
			CreatedBy:         r.CreatedBy.String(),
			EmployeesAnalyzed: r.EmployeesAnalyzed,
			CriticalAlerts:    r.CriticalAlerts,
			BurnoutAvg7d:      r.BurnoutAvg7d,
			HasSummary:        r.AISummary != nil,
		}
		if r.CompanyID != nil {
			ev.CompanyID = r.CompanyID.String()
		}
		if err := s.publisher.Publish(hermes.SubjectReportSaved, ev); err != nil {
			s.logger.Warn("failed to publish report event", "report_id", r.ID, "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.PostReport(ctx, r); err != nil {
			s.logger.Warn("failed to notify report", "report_id", r.ID, "error", err)
		}
	}
}

// List returns the newest reports visible to the scope.
func (s *Service) List(ctx context.Context, sc scope.Scope) ([]wellbeing.Report, error) {
	v, ok := sc.Visibility()
	if !ok {
		return []wellbeing.Report{}, nil
	}
	reports, err := s.log.ListReports(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Delete removes one report visible to the scope.
func (s *Service) Delete(ctx context.Context, sc scope.Scope, id uuid.UUID) error {
	v, ok := sc.Visibility()
	if !ok {
		return fmt.Errorf("report %s: %w", id, store.ErrNotFound)
	}
	if err := s.log.DeleteReport(ctx, v, id); err != nil {
		return err
	}
	s.logger.Info("report deleted", "report_id", id, "caller_id", sc.CallerID)
	return nil
}

// DeleteAll clears every report visible to the scope.
func (s *Service) DeleteAll(ctx context.Context, sc scope.Scope) (int64, error) {
	v, ok := sc.Visibility()
	if !ok {
		return 0, nil
	}
	n, err := s.log.DeleteAllReports(ctx, v)
	if err != nil {
		return 0, fmt.Errorf("delete reports: %w", err)
	}
	s.logger.Info("reports cleared", "deleted", n, "caller_id", sc.CallerID)
	return n, nil
}
