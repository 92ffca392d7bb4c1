package aggregate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
)

// ErrInvalidCycle is returned for keys that are not YYYY-MM.
var ErrInvalidCycle = errors.New("invalid cycle key")

const cycleLayout = "2006-01"

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// Cycle is a calendar month used for reporting, [Start, End) in UTC.
type Cycle struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseCycle parses a YYYY-MM key.
func ParseCycle(key string) (Cycle, error) {
	t, err := time.Parse(cycleLayout, key)
	if err != nil {
		return Cycle{}, fmt.Errorf("%w: %q", ErrInvalidCycle, key)
	}
	return CycleOf(t), nil
}

// CycleOf returns the cycle containing t.
func CycleOf(t time.Time) Cycle {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Cycle{
		Key:   start.Format(cycleLayout),
		Label: fmt.Sprintf("%s %d", monthNames[start.Month()-1], start.Year()),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// Range returns the cycle as a store range.
func (c Cycle) Range() wellbeing.Range {
	return wellbeing.Range{From: c.Start, To: c.End}
}

// AsOf is the instant the cycle's trailing figures are computed at: the
// cycle end, or now when the cycle is still running.
func (c Cycle) AsOf(now time.Time) time.Time {
	if now.Before(c.End) {
		return now
	}
	return c.End.Add(-time.Nanosecond)
}
