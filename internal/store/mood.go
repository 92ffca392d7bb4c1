package store

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/jackc/pgx/v5"
)

var moodColumns = []string{
	"id", "user_id", "company_id", "coalesce(score, 0)", "day", "created_at",
	"coalesce(note, '')", "coalesce(mental_state, '')",
	"sleep_quality", "work_demand", "fatigue_level",
}

func scanMood(rows pgx.Rows) (wellbeing.MoodEntry, error) {
	var e wellbeing.MoodEntry
	err := rows.Scan(
		&e.ID, &e.UserID, &e.CompanyID, &e.Score, &e.Day, &e.CreatedAt,
		&e.Note, &e.MentalState,
		&e.SleepQuality, &e.WorkDemand, &e.FatigueLevel,
	)
	return e, err
}

func (s *Store) moodRows(ctx context.Context, op string, q *Query) ([]wellbeing.MoodEntry, error) {
	rows, err := s.query(ctx, op, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []wellbeing.MoodEntry
	for rows.Next() {
		e, err := scanMood(rows)
		if err != nil {
			return nil, unavailable("scan "+op, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return entries, nil
}

// MoodEntries returns every visible entry created within r, oldest first.
func (s *Store) MoodEntries(ctx context.Context, v wellbeing.Visibility, r wellbeing.Range) ([]wellbeing.MoodEntry, error) {
	q := From(tableMood, moodColumns...).
		Visible(v).
		Within("created_at", r).
		OrderBy("created_at", false)
	return s.moodRows(ctx, "mood entries", q)
}

// CriticalEntries returns the newest score-1 entries created since the given time.
func (s *Store) CriticalEntries(ctx context.Context, v wellbeing.Visibility, since time.Time, limit int) ([]wellbeing.MoodEntry, error) {
	q := From(tableMood, moodColumns...).
		Visible(v).
		Eq("score", wellbeing.CriticalScore).
		Gte("created_at", since).
		OrderBy("created_at", true).
		Limit(limit)
	return s.moodRows(ctx, "critical entries", q)
}

// RecentNotes returns the newest entries created since the given time,
// capped at limit. Entries without a note are included; the caller filters.
func (s *Store) RecentNotes(ctx context.Context, v wellbeing.Visibility, since time.Time, limit int) ([]wellbeing.MoodEntry, error) {
	q := From(tableMood, moodColumns...).
		Visible(v).
		Gte("created_at", since).
		OrderBy("created_at", true).
		Limit(limit)
	return s.moodRows(ctx, "recent notes", q)
}

// CountMoodEntries counts visible entries created within r.
func (s *Store) CountMoodEntries(ctx context.Context, v wellbeing.Visibility, r wellbeing.Range) (int, error) {
	return s.count(ctx, "count mood entries", From(tableMood).Visible(v).Within("created_at", r))
}

// CountRecentAlerts counts rows of the critical alert view within r.
func (s *Store) CountRecentAlerts(ctx context.Context, v wellbeing.Visibility, r wellbeing.Range) (int, error) {
	return s.count(ctx, "count alerts", From(viewAlerts).Visible(v).Within("created_at", r))
}

// Employees returns the visible roster, most active first.
func (s *Store) Employees(ctx context.Context, v wellbeing.Visibility) ([]wellbeing.Employee, error) {
	q := From(viewEmployees,
		"company_id", "user_id", "coalesce(name, '')", "coalesce(entries, 0)", "last_entry_at",
	).Visible(v).
		OrderBy("entries", true).
		OrderBy("name", false)

	rows, err := s.query(ctx, "employees", q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := []wellbeing.Employee{}
	for rows.Next() {
		var e wellbeing.Employee
		if err := rows.Scan(&e.CompanyID, &e.UserID, &e.Name, &e.Entries, &e.LastEntryAt); err != nil {
			return nil, unavailable("scan employee", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("employees", err)
	}
	return employees, nil
}

// CountEmployees counts the visible roster.
func (s *Store) CountEmployees(ctx context.Context, v wellbeing.Visibility) (int, error) {
	return s.count(ctx, "count employees", From(viewEmployees).Visible(v))
}
