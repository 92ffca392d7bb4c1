package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/advisory"
	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/MikeSquared-Agency/pulse/internal/dashboard"
	"github.com/MikeSquared-Agency/pulse/internal/reports"
	"github.com/MikeSquared-Agency/pulse/internal/risk"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/MikeSquared-Agency/pulse/internal/store"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResolver struct {
	sc    scope.Scope
	err   error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, callerID uuid.UUID) (scope.Scope, error) {
	f.calls++
	if f.err != nil {
		return scope.Scope{}, f.err
	}
	sc := f.sc
	sc.CallerID = callerID
	return sc, nil
}

type fakeMetrics struct {
	daily     []aggregate.DailyAggregate
	burnout   aggregate.BurnoutSummary
	alerts    []aggregate.CriticalAlert
	preview   aggregate.Preview
	err       error
	gotRange  wellbeing.Range
	gotAlerts aggregate.AlertOptions
	gotCycle  *aggregate.Cycle
}

func (f *fakeMetrics) Trailing(days int) wellbeing.Range {
	return wellbeing.Range{From: time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)}
}

func (f *fakeMetrics) DailyMood(_ context.Context, _ scope.Scope, r wellbeing.Range) ([]aggregate.DailyAggregate, error) {
	f.gotRange = r
	return f.daily, f.err
}

func (f *fakeMetrics) Burnout7d(_ context.Context, _ scope.Scope) (aggregate.BurnoutSummary, error) {
	return f.burnout, f.err
}

func (f *fakeMetrics) CriticalAlerts(_ context.Context, _ scope.Scope, opts aggregate.AlertOptions) ([]aggregate.CriticalAlert, error) {
	f.gotAlerts = opts
	return f.alerts, f.err
}

func (f *fakeMetrics) Preview(_ context.Context, _ scope.Scope, _ int, c *aggregate.Cycle) (aggregate.Preview, error) {
	f.gotCycle = c
	return f.preview, f.err
}

type fakeDashboards struct {
	opts dashboard.Options
	sc   scope.Scope
}

func (f *fakeDashboards) Load(_ context.Context, sc scope.Scope, opts dashboard.Options) dashboard.Dashboard {
	f.opts = opts
	f.sc = sc
	return dashboard.Dashboard{
		Scope:  sc,
		Days:   opts.Days,
		Errors: map[string]string{dashboard.SectionEmployees: dashboard.CodeStoreUnavailable},
	}
}

type fakeAdvisor struct {
	res advisory.Result
	err error
	got advisory.Request
}

func (f *fakeAdvisor) Generate(_ context.Context, _ scope.Scope, req advisory.Request) (advisory.Result, error) {
	f.got = req
	return f.res, f.err
}

type fakeReports struct {
	metrics     aggregate.CycleMetrics
	report      wellbeing.Report
	list        []wellbeing.Report
	deleted     int64
	err         error
	withSummary bool
	cycle       aggregate.Cycle
	deletedID   uuid.UUID
}

func (f *fakeReports) Build(_ context.Context, _ scope.Scope, c aggregate.Cycle, withSummary bool) (aggregate.CycleMetrics, error) {
	f.cycle, f.withSummary = c, withSummary
	m := f.metrics
	m.CycleKey, m.CycleLabel = c.Key, c.Label
	return m, f.err
}

func (f *fakeReports) Save(_ context.Context, _ scope.Scope, c aggregate.Cycle, withSummary bool) (wellbeing.Report, error) {
	f.cycle, f.withSummary = c, withSummary
	return f.report, f.err
}

func (f *fakeReports) List(_ context.Context, _ scope.Scope) ([]wellbeing.Report, error) {
	return f.list, f.err
}

func (f *fakeReports) Delete(_ context.Context, _ scope.Scope, id uuid.UUID) error {
	f.deletedID = id
	return f.err
}

func (f *fakeReports) DeleteAll(_ context.Context, _ scope.Scope) (int64, error) {
	return f.deleted, f.err
}

type harness struct {
	srv        *Server
	resolver   *fakeResolver
	metrics    *fakeMetrics
	dashboards *fakeDashboards
	advisor    *fakeAdvisor
	reports    *fakeReports
	caller     uuid.UUID
}

func newHarness(token string) *harness {
	company := uuid.New()
	h := &harness{
		resolver:   &fakeResolver{sc: scope.Scope{Role: wellbeing.RoleSupervisor, EffectiveCompanyID: &company}},
		metrics:    &fakeMetrics{},
		dashboards: &fakeDashboards{},
		advisor:    &fakeAdvisor{},
		reports:    &fakeReports{},
		caller:     uuid.New(),
	}
	h.srv = NewServer(8760, Auth{APIToken: token}, Deps{
		Scopes:     h.resolver,
		Metrics:    h.metrics,
		Dashboards: h.dashboards,
		Advisor:    h.advisor,
		Reports:    h.reports,
		Logger:     discardLogger(),
	})
	return h
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(CallerHeader, h.caller.String())
	w := httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	h := newHarness("")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	body := decode[map[string]string](t, w)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
	if h.resolver.calls != 0 {
		t.Error("health must not resolve a scope")
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthEndpoint_StoreDown(t *testing.T) {
	h := newHarness("")
	h.srv.deps.Store = fakePinger{err: store.ErrUnavailable}

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	h := newHarness("")
	if w := h.do("GET", "/nonexistent", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestScopeMiddleware_Authentication(t *testing.T) {
	h := newHarness("")

	req := httptest.NewRequest("GET", "/api/v1/scope", nil)
	w := httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing caller: expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/scope", nil)
	req.Header.Set(CallerHeader, "nope")
	w = httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid caller: expected 401, got %d", w.Code)
	}
	if h.resolver.calls != 0 {
		t.Error("resolver must not run without a caller")
	}
}

func TestBearerAuth(t *testing.T) {
	h := newHarness("s3cret")

	if w := h.do("GET", "/api/v1/scope", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/v1/scope", nil)
	req.Header.Set(CallerHeader, h.caller.String())
	req.Header.Set("Authorization", "Bearer s3cret")
	w := httptest.NewRecorder()
	h.srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"profile missing", scope.ErrProfileMissing, http.StatusForbidden, "profile_missing"},
		{"profile lookup down", fmt.Errorf("%w: %w", scope.ErrProfileMissing, store.ErrUnavailable), http.StatusBadGateway, "store_unavailable"},
		{"advisory unavailable", advisory.ErrUnavailable, http.StatusServiceUnavailable, "advisory_unavailable"},
		{"empty scope save", reports.ErrEmptyScope, http.StatusForbidden, "scope_empty"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "not_found"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := classify(tt.err)
			if code != tt.wantCode || body != tt.wantBody {
				t.Errorf("classify(%v) = %d %s, want %d %s", tt.err, code, body, tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestResolveFailure(t *testing.T) {
	h := newHarness("")
	h.resolver.err = fmt.Errorf("%w: %w", scope.ErrProfileMissing, store.ErrNotFound)

	w := h.do("GET", "/api/v1/dashboard", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body := decode[errorBody](t, w); body.Error != "profile_missing" {
		t.Errorf("expected profile_missing, got %q", body.Error)
	}
}

func TestGetScope(t *testing.T) {
	h := newHarness("")
	w := h.do("GET", "/api/v1/scope", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode[struct {
		Scope scope.Scope `json:"scope"`
		Empty bool        `json:"empty"`
	}](t, w)
	if body.Scope.CallerID != h.caller || body.Empty {
		t.Errorf("unexpected scope %+v", body)
	}
}

func TestGetDashboard(t *testing.T) {
	h := newHarness("")

	w := h.do("GET", "/api/v1/dashboard?days=14&alert_limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("partial failures still return 200, got %d", w.Code)
	}
	if h.dashboards.opts.Days != 14 || h.dashboards.opts.Alerts.Limit != 5 || h.dashboards.opts.Alerts.Days != aggregate.DefaultAlertDays {
		t.Errorf("unexpected options %+v", h.dashboards.opts)
	}
	d := decode[dashboard.Dashboard](t, w)
	if d.Errors[dashboard.SectionEmployees] != dashboard.CodeStoreUnavailable {
		t.Errorf("expected section error, got %v", d.Errors)
	}

	for _, q := range []string{"days=0", "days=abc", "days=366", "alert_limit=101"} {
		if w := h.do("GET", "/api/v1/dashboard?"+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetDailyMood(t *testing.T) {
	h := newHarness("")
	h.metrics.daily = []aggregate.DailyAggregate{
		{Day: "2026-02-01", AvgScore: 2, EntryCount: 3},
		{Day: "2026-02-02", AvgScore: 4, EntryCount: 1},
	}

	w := h.do("GET", "/api/v1/mood/daily?from=2026-02-01&to=2026-02-08", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !h.metrics.gotRange.From.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected range %+v", h.metrics.gotRange)
	}

	body := decode[dailyResponse](t, w)
	if body.Risk.Entries != 4 || body.Risk.Average != 2.5 {
		t.Errorf("expected weighted mean 2.5 over 4 entries, got %+v", body.Risk)
	}
	if body.Risk.Level != risk.Classify(2.5, 4) {
		t.Errorf("unexpected level %s", body.Risk.Level)
	}

	if w := h.do("GET", "/api/v1/mood/daily?from=2026-02-08&to=2026-02-01", ""); w.Code != http.StatusBadRequest {
		t.Errorf("inverted range: expected 400, got %d", w.Code)
	}
	if w := h.do("GET", "/api/v1/mood/daily?from=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", w.Code)
	}
}

func TestGetDailyMood_StoreUnavailable(t *testing.T) {
	h := newHarness("")
	h.metrics.err = fmt.Errorf("daily mood: %w", store.ErrUnavailable)

	if w := h.do("GET", "/api/v1/mood/daily?days=7", ""); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestGetBurnout(t *testing.T) {
	h := newHarness("")
	h.metrics.burnout = aggregate.NoBurnoutData()

	w := h.do("GET", "/api/v1/burnout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode[struct {
		Burnout aggregate.BurnoutSummary `json:"burnout"`
		Risk    risk.Assessment          `json:"risk"`
	}](t, w)
	if !body.Burnout.NoData || body.Risk.Level != risk.NoData {
		t.Errorf("expected no-data burnout, got %+v", body)
	}
}

func TestGetAlerts(t *testing.T) {
	h := newHarness("")
	h.metrics.alerts = []aggregate.CriticalAlert{{Name: "Ana", Score: 1}}

	w := h.do("GET", "/api/v1/alerts?days=3&limit=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if h.metrics.gotAlerts.Days != 3 || h.metrics.gotAlerts.Limit != 20 {
		t.Errorf("unexpected options %+v", h.metrics.gotAlerts)
	}
}

func TestCycles(t *testing.T) {
	h := newHarness("")
	h.metrics.preview = aggregate.Preview{Last7: []aggregate.DailyAggregate{}, WorstDays: []aggregate.DailyAggregate{}}

	w := h.do("GET", "/api/v1/cycles/2026-02?summary=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if h.reports.cycle.Key != "2026-02" || !h.reports.withSummary {
		t.Errorf("unexpected build call %+v %v", h.reports.cycle, h.reports.withSummary)
	}
	m := decode[aggregate.CycleMetrics](t, w)
	if m.CycleLabel != "Fevereiro 2026" {
		t.Errorf("unexpected label %q", m.CycleLabel)
	}

	w = h.do("GET", "/api/v1/cycles/2026-02/preview", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if h.metrics.gotCycle == nil || h.metrics.gotCycle.Key != "2026-02" {
		t.Errorf("expected cycle preview, got %+v", h.metrics.gotCycle)
	}

	if w := h.do("GET", "/api/v1/cycles/february", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid cycle: expected 400, got %d", w.Code)
	}
}

func TestPostAdvisory(t *testing.T) {
	h := newHarness("")
	h.advisor.res = advisory.Result{Actions: []advisory.ActionItem{{Title: "A"}}, NotesUsed: 2}

	w := h.do("POST", "/api/v1/advisory", `{"prompt":"foco","days":14}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if h.advisor.got.Prompt != "foco" || h.advisor.got.Days != 14 {
		t.Errorf("unexpected request %+v", h.advisor.got)
	}
	res := decode[advisory.Result](t, w)
	if len(res.Actions) != 1 || res.NotesUsed != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	if w := h.do("POST", "/api/v1/advisory", `{bad`); w.Code != http.StatusBadRequest {
		t.Errorf("bad json: expected 400, got %d", w.Code)
	}
	if w := h.do("POST", "/api/v1/advisory", `{"days":365}`); w.Code != http.StatusBadRequest {
		t.Errorf("days out of range: expected 400, got %d", w.Code)
	}

	h.advisor.err = fmt.Errorf("%w: %w", advisory.ErrUnavailable, context.DeadlineExceeded)
	if w := h.do("POST", "/api/v1/advisory", `{}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable: expected 503, got %d", w.Code)
	}
}

func TestReports(t *testing.T) {
	h := newHarness("")
	id := uuid.New()
	h.reports.report = wellbeing.Report{ID: id, CycleKey: "2026-02"}
	h.reports.list = []wellbeing.Report{h.reports.report}
	h.reports.deleted = 3

	w := h.do("POST", "/api/v1/reports", `{"cycle":"2026-02","summary":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d", w.Code)
	}
	if !h.reports.withSummary || h.reports.cycle.Key != "2026-02" {
		t.Errorf("unexpected save call %+v", h.reports.cycle)
	}

	for _, body := range []string{`{"cycle":"02-2026"}`, `{"summary":true}`, `{"cycle":"2026-2"}`} {
		if w := h.do("POST", "/api/v1/reports", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}

	w = h.do("GET", "/api/v1/reports", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	if body := decode[map[string]any](t, w); body["count"] != float64(1) {
		t.Errorf("unexpected list body %v", body)
	}

	if w := h.do("DELETE", "/api/v1/reports/"+id.String(), ""); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
	if h.reports.deletedID != id {
		t.Errorf("expected delete of %s, got %s", id, h.reports.deletedID)
	}
	if w := h.do("DELETE", "/api/v1/reports/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}

	w = h.do("DELETE", "/api/v1/reports", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete all: expected 200, got %d", w.Code)
	}
	if body := decode[map[string]int64](t, w); body["deleted"] != 3 {
		t.Errorf("unexpected delete all body %v", body)
	}
}

func TestReports_EmptyScopeAndMissing(t *testing.T) {
	h := newHarness("")

	h.reports.err = reports.ErrEmptyScope
	if w := h.do("POST", "/api/v1/reports", `{"cycle":"2026-02"}`); w.Code != http.StatusForbidden {
		t.Errorf("empty scope save: expected 403, got %d", w.Code)
	}

	h.reports.err = fmt.Errorf("report: %w", store.ErrNotFound)
	if w := h.do("DELETE", "/api/v1/reports/"+uuid.NewString(), ""); w.Code != http.StatusNotFound {
		t.Errorf("missing report: expected 404, got %d", w.Code)
	}
}
