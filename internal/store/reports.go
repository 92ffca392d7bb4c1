package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
)

// ReportListLimit caps a report log listing.
const ReportListLimit = 50

// InsertReport appends a snapshot to the report log. ID and CreatedAt are
// assigned by the store and written back into r.
func (s *Store) InsertReport(ctx context.Context, r *wellbeing.Report) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO reports (id, cycle_key, cycle_label, employees_analyzed, critical_alerts, burnout_avg_7d, ai_summary, company_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING created_at`,
		r.ID, r.CycleKey, r.CycleLabel, r.EmployeesAnalyzed, r.CriticalAlerts, r.BurnoutAvg7d, r.AISummary, r.CompanyID, r.CreatedBy,
	).Scan(&r.CreatedAt)
	if err != nil {
		return unavailable("insert report", err)
	}
	return nil
}

// ListReports returns the newest visible reports.
func (s *Store) ListReports(ctx context.Context, v wellbeing.Visibility) ([]wellbeing.Report, error) {
	q := From(tableReports,
		"id", "cycle_key", "coalesce(cycle_label, '')", "coalesce(employees_analyzed, 0)",
		"coalesce(critical_alerts, 0)", "coalesce(burnout_avg_7d, 0)", "ai_summary",
		"company_id", "created_by", "created_at",
	).Visible(v).
		OrderBy("created_at", true).
		Limit(ReportListLimit)

	rows, err := s.query(ctx, "list reports", q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []wellbeing.Report{}
	for rows.Next() {
		var r wellbeing.Report
		if err := rows.Scan(
			&r.ID, &r.CycleKey, &r.CycleLabel, &r.EmployeesAnalyzed,
			&r.CriticalAlerts, &r.BurnoutAvg7d, &r.AISummary,
			&r.CompanyID, &r.CreatedBy, &r.CreatedAt,
		); err != nil {
			return nil, unavailable("scan report", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list reports", err)
	}
	return reports, nil
}

// DeleteReport removes one visible report. It returns ErrNotFound when the
// id does not exist or is outside the visibility.
func (s *Store) DeleteReport(ctx context.Context, v wellbeing.Visibility, id uuid.UUID) error {
	sql, args := From(tableReports).Eq("id", id).Visible(v).DeleteSQL()
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return unavailable("delete report", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAllReports clears every visible report and returns how many were removed.
func (s *Store) DeleteAllReports(ctx context.Context, v wellbeing.Visibility) (int64, error) {
	sql, args := From(tableReports).Visible(v).DeleteSQL()
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, unavailable("delete reports", err)
	}
	return tag.RowsAffected(), nil
}
