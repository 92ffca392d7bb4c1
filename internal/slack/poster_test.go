package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReport(summary *string) wellbeing.Report {
	return wellbeing.Report{
		ID:                uuid.MustParse("9f6ed519-0000-0000-0000-000000000000"),
		CycleKey:          "2026-02",
		CycleLabel:        "Fevereiro 2026",
		EmployeesAnalyzed: 12,
		CriticalAlerts:    3,
		BurnoutAvg7d:      1.85,
		AISummary:         summary,
	}
}

func TestFormatReportMessage(t *testing.T) {
	msg := formatReportMessage(testReport(nil))

	checks := []string{
		"Fevereiro 2026",
		"Funcionários analisados:* 12",
		"Alertas críticos:* 3",
		"1.85",
		"ALERTA",
		"Sem resumo de IA",
	}
	for _, check := range checks {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q, got:\n%s", check, msg)
		}
	}
}

func TestFormatReportMessage_NoBurnoutData(t *testing.T) {
	r := testReport(nil)
	r.BurnoutAvg7d = 0
	if msg := formatReportMessage(r); !strings.Contains(msg, "SEM DADOS") {
		t.Errorf("expected no-data tag, got:\n%s", msg)
	}
}

func TestPostReport_ThreadsSummary(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("expected Bearer xoxb-test, got %q", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		json.Unmarshal(body, &payload)
		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": "1234567890.123456",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	summary := "• Revisar metas — demanda alta"
	if err := p.PostReport(context.Background(), testReport(&summary)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(payloads) != 2 {
		t.Fatalf("expected message and thread reply, got %d posts", len(payloads))
	}
	if payloads[0]["channel"] != "C123" {
		t.Errorf("expected channel C123, got %v", payloads[0]["channel"])
	}
	if payloads[1]["thread_ts"] != "1234567890.123456" || payloads[1]["text"] != summary {
		t.Errorf("unexpected thread reply %v", payloads[1])
	}
}

func TestPostReport_NoSummaryNoThread(t *testing.T) {
	posts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1.2"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	if err := p.PostReport(context.Background(), testReport(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if posts != 1 {
		t.Errorf("expected a single post, got %d", posts)
	}
}

func TestPostReport_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": "channel_not_found",
		})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C123", discardLogger())
	p.apiURL = server.URL

	err := p.PostReport(context.Background(), testReport(nil))
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected channel_not_found error, got %v", err)
	}
}
