package wellbeing

import (
	"time"

	"github.com/google/uuid"
)

// Role is the organisational role stored on a profile.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
)

// Score bounds for a mood entry. Anything outside is ignored by aggregation.
const (
	MinScore      = 1
	MaxScore      = 5
	CriticalScore = 1
)

// ValidScore reports whether s is inside the 1–5 mood domain.
func ValidScore(s int) bool {
	return s >= MinScore && s <= MaxScore
}

// Profile is the identity record of a user. CompanyID is nil for admins.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	CompanyID   *uuid.UUID `json:"company_id,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MoodEntry is an immutable mood check-in. Score is 0 when the column is null.
type MoodEntry struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	Score        int        `json:"score"`
	Day          *time.Time `json:"day,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Note         string     `json:"note,omitempty"`
	MentalState  string     `json:"mental_state,omitempty"`
	SleepQuality *int       `json:"sleep_quality,omitempty"`
	WorkDemand   *int       `json:"work_demand,omitempty"`
	FatigueLevel *int       `json:"fatigue_level,omitempty"`
}

// DayKey returns the calendar day the entry belongs to, as YYYY-MM-DD.
// The explicit day column wins; otherwise the UTC date of created_at is used.
func (e MoodEntry) DayKey() string {
	if e.Day != nil && !e.Day.IsZero() {
		return e.Day.Format(time.DateOnly)
	}
	return e.CreatedAt.UTC().Format(time.DateOnly)
}

// Employee is one row of the dashboard roster.
type Employee struct {
	CompanyID   *uuid.UUID `json:"company_id,omitempty"`
	UserID      uuid.UUID  `json:"user_id"`
	Name        string     `json:"name"`
	Entries     int        `json:"entries"`
	LastEntryAt *time.Time `json:"last_entry_at,omitempty"`
}

// Report is a saved cycle snapshot in the append-only report log.
type Report struct {
	ID                uuid.UUID  `json:"id"`
	CycleKey          string     `json:"cycle_key"`
	CycleLabel        string     `json:"cycle_label"`
	EmployeesAnalyzed int        `json:"employees_analyzed"`
	CriticalAlerts    int        `json:"critical_alerts"`
	BurnoutAvg7d      float64    `json:"burnout_avg_7d"`
	AISummary         *string    `json:"ai_summary,omitempty"`
	CompanyID         *uuid.UUID `json:"company_id,omitempty"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Visibility is the company filter a store query runs under.
// The zero value is restricted to the nil company and therefore matches nothing.
type Visibility struct {
	Global    bool
	CompanyID uuid.UUID
}

// Range is a half-open time interval [From, To). A zero To means unbounded.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}
