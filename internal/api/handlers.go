package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/advisory"
	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/MikeSquared-Agency/pulse/internal/dashboard"
	"github.com/MikeSquared-Agency/pulse/internal/risk"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 16
)

var (
	errBadRequest = errors.New("bad request")
	validate      = validator.New()
)

type advisoryRequest struct {
	Prompt string `json:"prompt" validate:"max=2000"`
	Days   int    `json:"days" validate:"min=0,max=90"`
}

// decodeBody reads a bounded JSON body into v and validates its tags.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// intParam reads an optional integer query parameter in [lo, hi].
func intParam(r *http.Request, name string, fallback, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339 or YYYY-MM-DD", name)
	}
	return t, nil
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "bad_request", err.Error())
}

func (s *Server) getScope(w http.ResponseWriter, r *http.Request) {
	sc := scopeFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"scope": sc,
		"empty": sc.Empty(),
	})
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", dashboard.DefaultDays, 1, dashboard.MaxDays)
	if err != nil {
		badRequest(w, err)
		return
	}
	alertDays, err := intParam(r, "alert_days", aggregate.DefaultAlertDays, 1, dashboard.MaxDays)
	if err != nil {
		badRequest(w, err)
		return
	}
	alertLimit, err := intParam(r, "alert_limit", aggregate.DefaultAlertLimit, 1, aggregate.MaxAlertLimit)
	if err != nil {
		badRequest(w, err)
		return
	}

	d := s.deps.Dashboards.Load(r.Context(), scopeFrom(r.Context()), dashboard.Options{
		Days:   days,
		Alerts: aggregate.AlertOptions{Days: alertDays, Limit: alertLimit},
	})
	writeJSON(w, http.StatusOK, d)
}

type dailyResponse struct {
	From  time.Time                  `json:"from"`
	To    *time.Time                 `json:"to,omitempty"`
	Daily []aggregate.DailyAggregate `json:"daily"`
	Risk  risk.Assessment            `json:"risk"`
}

func (s *Server) getDailyMood(w http.ResponseWriter, r *http.Request) {
	rng, err := s.dailyRange(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	daily, err := s.deps.Metrics.DailyMood(r.Context(), scopeFrom(r.Context()), rng)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := dailyResponse{
		From:  rng.From,
		Daily: daily,
		Risk:  risk.AssessWeighted(aggregate.Samples(daily)),
	}
	if !rng.To.IsZero() {
		resp.To = &rng.To
	}
	writeJSON(w, http.StatusOK, resp)
}

// dailyRange accepts either days or an explicit from/to pair.
func (s *Server) dailyRange(r *http.Request) (wellbeing.Range, error) {
	from, err := timeParam(r, "from")
	if err != nil {
		return wellbeing.Range{}, err
	}
	to, err := timeParam(r, "to")
	if err != nil {
		return wellbeing.Range{}, err
	}
	if !from.IsZero() {
		if !to.IsZero() && !to.After(from) {
			return wellbeing.Range{}, fmt.Errorf("%w: to must be after from", errBadRequest)
		}
		return wellbeing.Range{From: from, To: to}, nil
	}

	days, err := intParam(r, "days", dashboard.DefaultDays, 1, dashboard.MaxDays)
	if err != nil {
		return wellbeing.Range{}, err
	}
	return s.deps.Metrics.Trailing(days), nil
}

func (s *Server) getBurnout(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Metrics.Burnout7d(r.Context(), scopeFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"burnout": b,
		"risk":    risk.AssessBurnout(b.AvgScore7d, b.Entries7d),
	})
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", aggregate.DefaultAlertDays, 1, dashboard.MaxDays)
	if err != nil {
		badRequest(w, err)
		return
	}
	limit, err := intParam(r, "limit", aggregate.DefaultAlertLimit, 1, aggregate.MaxAlertLimit)
	if err != nil {
		badRequest(w, err)
		return
	}

	alerts, err := s.deps.Metrics.CriticalAlerts(r.Context(), scopeFrom(r.Context()), aggregate.AlertOptions{Days: days, Limit: limit})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", dashboard.DefaultDays, 1, dashboard.MaxDays)
	if err != nil {
		badRequest(w, err)
		return
	}
	p, err := s.deps.Metrics.Preview(r.Context(), scopeFrom(r.Context()), days, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) getCycle(w http.ResponseWriter, r *http.Request) {
	c, err := aggregate.ParseCycle(chi.URLParam(r, "cycle"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	withSummary := r.URL.Query().Get("summary") == "true"

	m, err := s.deps.Reports.Build(r.Context(), scopeFrom(r.Context()), c, withSummary)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) getCyclePreview(w http.ResponseWriter, r *http.Request) {
	c, err := aggregate.ParseCycle(chi.URLParam(r, "cycle"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.deps.Metrics.Preview(r.Context(), scopeFrom(r.Context()), 0, &c)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) postAdvisory(w http.ResponseWriter, r *http.Request) {
	var req advisoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	res, err := s.deps.Advisor.Generate(r.Context(), scopeFrom(r.Context()), advisory.Request{
		Prompt: req.Prompt,
		Days:   req.Days,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
