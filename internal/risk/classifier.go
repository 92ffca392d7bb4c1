package risk

import (
	"fmt"
	"math"
)

// Level is a discrete risk category.
type Level string

const (
	NoData   Level = "no_data"
	Low      Level = "low"
	Moderate Level = "moderate"
	High     Level = "high"
)

// Severity orders levels: High > Moderate > Low > NoData.
func (l Level) Severity() int {
	switch l {
	case High:
		return 3
	case Moderate:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// Primary mood thresholds. Lower average score means higher risk.
const (
	HighMax     = 2.0
	ModerateMax = 3.0
)

// Burnout window thresholds. Kept separate from the primary set; the two
// are tuned independently.
const (
	BurnoutHighMax     = 2.0
	BurnoutModerateMax = 3.0
)

// Classify maps an average mood score to a risk level.
// No entries, or a non-finite average, is NoData.
func Classify(avg float64, entries int) Level {
	return classify(avg, entries, HighMax, ModerateMax)
}

// ClassifyBurnout maps the 7-day burnout average to a risk level.
func ClassifyBurnout(avg float64, entries int) Level {
	return classify(avg, entries, BurnoutHighMax, BurnoutModerateMax)
}

func classify(avg float64, entries int, highMax, moderateMax float64) Level {
	if entries <= 0 || math.IsNaN(avg) || math.IsInf(avg, 0) {
		return NoData
	}
	if avg <= highMax {
		return High
	}
	if avg <= moderateMax {
		return Moderate
	}
	return Low
}

// Sample is one day's average and how many entries produced it.
type Sample struct {
	Avg   float64
	Count int
}

// WeightedAverage combines per-day averages weighting each by its entry count.
// Samples with no entries or a non-finite average are skipped.
func WeightedAverage(samples []Sample) (avg float64, total int) {
	var sum float64
	for _, s := range samples {
		if s.Count <= 0 || math.IsNaN(s.Avg) || math.IsInf(s.Avg, 0) {
			continue
		}
		sum += s.Avg * float64(s.Count)
		total += s.Count
	}
	if total == 0 {
		return 0, 0
	}
	return sum / float64(total), total
}

// Assessment is a classified average with display strings for the dashboard.
type Assessment struct {
	Level   Level   `json:"level"`
	Average float64 `json:"average"`
	Entries int     `json:"entries"`
	Label   string  `json:"label"`
	Tag     string  `json:"tag"`
	Hint    string  `json:"hint"`
}

// Assess classifies with the primary thresholds.
func Assess(avg float64, entries int) Assessment {
	return describe(Classify(avg, entries), avg, entries)
}

// AssessBurnout classifies with the burnout thresholds.
func AssessBurnout(avg float64, entries int) Assessment {
	return describe(ClassifyBurnout(avg, entries), avg, entries)
}

// AssessWeighted classifies the entry-weighted mean of several days.
func AssessWeighted(samples []Sample) Assessment {
	avg, total := WeightedAverage(samples)
	return Assess(avg, total)
}

func describe(level Level, avg float64, entries int) Assessment {
	a := Assessment{Level: level, Entries: entries}
	if level == NoData {
		a.Label, a.Tag, a.Hint = "Sem dados", "SEM DADOS", "Sem registros"
		return a
	}
	a.Average = avg
	hint := fmt.Sprintf("Média atual: %.2f", avg)
	switch level {
	case High:
		a.Label, a.Tag = "Alto risco", "ALERTA"
	case Moderate:
		a.Label, a.Tag = "Médio risco", "ATENÇÃO"
	default:
		a.Label, a.Tag = "Baixo risco", "OK"
	}
	a.Hint = hint
	return a
}
