package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type saveReportRequest struct {
	Cycle   string `json:"cycle" validate:"required,len=7"`
	Summary bool   `json:"summary"`
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Reports.List(r.Context(), scopeFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports": list,
		"count":   len(list),
	})
}

func (s *Server) saveReport(w http.ResponseWriter, r *http.Request) {
	var req saveReportRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	c, err := aggregate.ParseCycle(req.Cycle)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	report, err := s.deps.Reports.Save(r.Context(), scopeFrom(r.Context()), c, req.Summary)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, errors.New("invalid report id"))
		return
	}
	if err := s.deps.Reports.Delete(r.Context(), scopeFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllReports(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Reports.DeleteAll(r.Context(), scopeFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
