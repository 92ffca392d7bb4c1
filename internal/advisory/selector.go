package advisory

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
)

// Note selection bounds.
const (
	HarassmentKeyword = "assédio"
	MaxCandidates     = 30
	NoteBudget        = 220
	NoteFetchLimit    = 80
	DefaultWindowDays = 7
)

const ellipsis = "…"

// SelectNotes filters entries to those carrying a note, ranks them so that
// critical and harassment-flagged notes survive truncation, caps the list at
// MaxCandidates and clamps the free text of each survivor.
func SelectNotes(entries []wellbeing.MoodEntry) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Note) == "" {
			continue
		}
		c := Candidate{
			UserID:       e.UserID,
			Score:        e.Score,
			Note:         e.Note,
			MentalState:  e.MentalState,
			WorkDemand:   e.WorkDemand,
			FatigueLevel: e.FatigueLevel,
			SleepQuality: e.SleepQuality,
			createdAt:    e.CreatedAt,
		}
		if e.Day != nil {
			d := e.Day.Format(time.DateOnly)
			c.Day = &d
		}
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return ranksBefore(candidates[i], candidates[j])
	})

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	for i := range candidates {
		candidates[i].Note = Clamp(candidates[i].Note, NoteBudget)
		candidates[i].MentalState = Clamp(candidates[i].MentalState, NoteBudget)
	}
	return candidates
}

// ranksBefore orders critical scores first, then harassment mentions, then
// the most recent entry.
func ranksBefore(a, b Candidate) bool {
	aCrit, bCrit := a.Score == wellbeing.CriticalScore, b.Score == wellbeing.CriticalScore
	if aCrit != bCrit {
		return aCrit
	}
	aFlag, bFlag := mentionsHarassment(a.Note), mentionsHarassment(b.Note)
	if aFlag != bFlag {
		return aFlag
	}
	return a.createdAt.After(b.createdAt)
}

func mentionsHarassment(note string) bool {
	return strings.Contains(strings.ToLower(note), HarassmentKeyword)
}

// Clamp trims s and cuts it to limit runes, appending an ellipsis when cut.
func Clamp(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + ellipsis
}
