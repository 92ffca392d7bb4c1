package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/risk"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostReport announces a saved cycle report. The AI summary, when present,
// goes into a threaded reply under the metrics message.
func (p *Poster) PostReport(ctx context.Context, r wellbeing.Report) error {
	text := formatReportMessage(r)

	ts, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Relatório " + r.ID.String(),
					},
				},
			},
		},
	})
	if err != nil {
		return err
	}
	p.logger.Info("posted report to slack", "ts", ts, "report_id", r.ID, "cycle_key", r.CycleKey)

	if r.AISummary != nil && strings.TrimSpace(*r.AISummary) != "" {
		if err := p.PostThread(ctx, ts, *r.AISummary); err != nil {
			return fmt.Errorf("post summary thread: %w", err)
		}
	}
	return nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	_, err := p.post(ctx, map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	return err
}

func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatReportMessage(r wellbeing.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*Relatório salvo:* %s\n", r.CycleLabel)
	fmt.Fprintf(&sb, "*Funcionários analisados:* %d\n", r.EmployeesAnalyzed)
	fmt.Fprintf(&sb, "*Alertas críticos:* %d\n", r.CriticalAlerts)

	// A stored average of zero means the window had no entries.
	entries := 0
	if r.BurnoutAvg7d > 0 {
		entries = 1
	}
	burnout := risk.AssessBurnout(r.BurnoutAvg7d, entries)
	fmt.Fprintf(&sb, "*Burnout médio 7d:* %.2f (%s)\n", r.BurnoutAvg7d, burnout.Tag)

	if r.AISummary == nil {
		sb.WriteString("_Sem resumo de IA para este ciclo._")
	}
	return sb.String()
}
