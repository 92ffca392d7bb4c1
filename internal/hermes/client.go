package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published or consumed by pulse.
const (
	SubjectReportSaved       = "pulse.report.saved"
	SubjectAdvisoryRequested = "pulse.advisory.requested"
	SubjectAdvisoryGenerated = "pulse.advisory.generated"
)

// Advisory outcome statuses carried by AdvisoryGenerated.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	StatusError       = "error"
)

// ReportSaved is emitted after a cycle report is appended to the log.
type ReportSaved struct {
	ReportID          string  `json:"report_id"`
	CycleKey          string  `json:"cycle_key"`
	CycleLabel        string  `json:"cycle_label"`
	CompanyID         string  `json:"company_id,omitempty"`
	CreatedBy         string  `json:"created_by"`
	EmployeesAnalyzed int     `json:"employees_analyzed"`
	CriticalAlerts    int     `json:"critical_alerts"`
	BurnoutAvg7d      float64 `json:"burnout_avg_7d"`
	HasSummary        bool    `json:"has_summary"`
}

// AdvisoryRequested asks for advisory actions out of band.
type AdvisoryRequested struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	Prompt    string `json:"prompt,omitempty"`
	Days      int    `json:"days,omitempty"`
}

// AdvisoryGenerated answers an AdvisoryRequested.
type AdvisoryGenerated struct {
	RequestID string          `json:"request_id"`
	CallerID  string          `json:"caller_id"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	NotesUsed int             `json:"notes_used"`
	Model     string          `json:"model,omitempty"`
	Actions   json.RawMessage `json:"actions"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("pulse"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Connected reports whether the underlying connection is up.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
