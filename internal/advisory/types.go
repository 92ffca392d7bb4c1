package advisory

import (
	"time"

	"github.com/google/uuid"
)

// Priority values accepted in an action item.
const (
	PriorityHigh   = "Alta"
	PriorityMedium = "Média"
	PriorityLow    = "Baixa"
)

// DefaultOwnerHint is used when the engine names no owner.
const DefaultOwnerHint = "Sistema"

// ActionItem is one structured recommendation returned by the engine.
type ActionItem struct {
	Title     string   `json:"title"`
	Why       string   `json:"why"`
	Steps     []string `json:"steps"`
	Priority  string   `json:"priority"`
	OwnerHint string   `json:"owner_hint"`
}

// Candidate is a mood note selected for submission to the engine.
type Candidate struct {
	UserID       uuid.UUID `json:"user_id"`
	Day          *string   `json:"day"`
	Score        int       `json:"score"`
	Note         string    `json:"note"`
	MentalState  string    `json:"mental_state"`
	WorkDemand   *int      `json:"work_demand"`
	FatigueLevel *int      `json:"fatigue_level"`
	SleepQuality *int      `json:"sleep_quality"`

	createdAt time.Time
}
