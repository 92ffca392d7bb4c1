package aggregate

import (
	"sort"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/risk"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
)

// BurnoutWindow is the trailing window of the burnout summary.
const BurnoutWindow = 7 * 24 * time.Hour

// UnknownName is shown for alerts whose subject has no profile name.
const UnknownName = "unknown"

// DailyAggregate is the mean score and entry count of one calendar day.
type DailyAggregate struct {
	Day        string  `json:"day"`
	AvgScore   float64 `json:"avg_score"`
	EntryCount int     `json:"entry_count"`
}

// BurnoutSummary holds trailing 7-day statistics bucketed by severity.
// NoData is set when the window had no valid entries; AvgScore7d is then 0
// and must not be read as a score.
type BurnoutSummary struct {
	AvgScore7d    float64 `json:"avg_score_7d"`
	Entries7d     int     `json:"entries_7d"`
	CriticalCount int     `json:"critical_count"`
	Count1to2     int     `json:"count_1_2"`
	Count3        int     `json:"count_3"`
	Count4to5     int     `json:"count_4_5"`
	NoData        bool    `json:"no_data"`
}

// NoBurnoutData is the summary of an empty window.
func NoBurnoutData() BurnoutSummary {
	return BurnoutSummary{NoData: true}
}

// CriticalAlert is a worst-score entry enriched with its subject's name.
type CriticalAlert struct {
	EntryID   uuid.UUID  `json:"entry_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Name      string     `json:"name"`
	Score     int        `json:"score"`
	Day       string     `json:"day"`
	CreatedAt time.Time  `json:"created_at"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
}

// MoodDistribution counts entries as happy (4–5), ok (3) and sad (1–2).
type MoodDistribution struct {
	Happy int `json:"happy"`
	OK    int `json:"ok"`
	Sad   int `json:"sad"`
}

// Daily partitions valid entries by calendar day and averages each day.
// Days without valid entries are omitted. The result is sorted by day.
func Daily(entries []wellbeing.MoodEntry) []DailyAggregate {
	type acc struct {
		sum int
		n   int
	}
	days := make(map[string]*acc)
	for _, e := range entries {
		if !wellbeing.ValidScore(e.Score) {
			continue
		}
		key := e.DayKey()
		a, ok := days[key]
		if !ok {
			a = &acc{}
			days[key] = a
		}
		a.sum += e.Score
		a.n++
	}

	out := make([]DailyAggregate, 0, len(days))
	for day, a := range days {
		out = append(out, DailyAggregate{
			Day:        day,
			AvgScore:   float64(a.sum) / float64(a.n),
			EntryCount: a.n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Burnout summarises valid entries created in the 7 days up to asOf.
func Burnout(entries []wellbeing.MoodEntry, asOf time.Time) BurnoutSummary {
	window := wellbeing.Range{From: asOf.Add(-BurnoutWindow)}
	var s BurnoutSummary
	sum := 0
	for _, e := range entries {
		if !wellbeing.ValidScore(e.Score) || !window.Contains(e.CreatedAt) || e.CreatedAt.After(asOf) {
			continue
		}
		sum += e.Score
		s.Entries7d++
		switch e.Score {
		case 1:
			s.CriticalCount++
			s.Count1to2++
		case 2:
			s.Count1to2++
		case 3:
			s.Count3++
		default:
			s.Count4to5++
		}
	}
	if s.Entries7d == 0 {
		return NoBurnoutData()
	}
	s.AvgScore7d = float64(sum) / float64(s.Entries7d)
	return s
}

// Distribution buckets valid entries by mood. It returns nil when there are none.
func Distribution(entries []wellbeing.MoodEntry) *MoodDistribution {
	var d MoodDistribution
	n := 0
	for _, e := range entries {
		if !wellbeing.ValidScore(e.Score) {
			continue
		}
		n++
		switch {
		case e.Score >= 4:
			d.Happy++
		case e.Score == 3:
			d.OK++
		default:
			d.Sad++
		}
	}
	if n == 0 {
		return nil
	}
	return &d
}

// WorstDays returns up to n days with the lowest average, worst first.
// Ties go to the earlier day.
func WorstDays(daily []DailyAggregate, n int) []DailyAggregate {
	out := make([]DailyAggregate, len(daily))
	copy(out, daily)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgScore != out[j].AvgScore {
			return out[i].AvgScore < out[j].AvgScore
		}
		return out[i].Day < out[j].Day
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// LastDays keeps the n most recent daily aggregates of a day-sorted slice.
func LastDays(daily []DailyAggregate, n int) []DailyAggregate {
	if len(daily) <= n {
		return daily
	}
	return daily[len(daily)-n:]
}

// Samples converts daily aggregates into classifier samples.
func Samples(daily []DailyAggregate) []risk.Sample {
	out := make([]risk.Sample, len(daily))
	for i, d := range daily {
		out[i] = risk.Sample{Avg: d.AvgScore, Count: d.EntryCount}
	}
	return out
}

// Alerts turns critical entries into alerts, resolving names from the map.
// Entries without a name fall back to UnknownName and are never dropped.
func Alerts(entries []wellbeing.MoodEntry, names map[uuid.UUID]string) []CriticalAlert {
	out := make([]CriticalAlert, 0, len(entries))
	for _, e := range entries {
		name := names[e.UserID]
		if name == "" {
			name = UnknownName
		}
		out = append(out, CriticalAlert{
			EntryID:   e.ID,
			UserID:    e.UserID,
			Name:      name,
			Score:     e.Score,
			Day:       e.DayKey(),
			CreatedAt: e.CreatedAt,
			CompanyID: e.CompanyID,
		})
	}
	return out
}

// ByMonth partitions entries by the YYYY-MM key of their calendar day.
func ByMonth(entries []wellbeing.MoodEntry) map[string][]wellbeing.MoodEntry {
	out := make(map[string][]wellbeing.MoodEntry)
	for _, e := range entries {
		key := e.DayKey()[:7]
		out[key] = append(out[key], e)
	}
	return out
}
