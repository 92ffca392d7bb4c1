package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/advisory"
	"github.com/MikeSquared-Agency/pulse/internal/hermes"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/google/uuid"
)

// requestTimeout bounds one out-of-band advisory request end to end.
const requestTimeout = 2 * time.Minute

// ScopeResolver resolves the caller of a bus request.
type ScopeResolver interface {
	Resolve(ctx context.Context, callerID uuid.UUID) (scope.Scope, error)
}

// Advisor runs the advisory pipeline.
type Advisor interface {
	Generate(ctx context.Context, sc scope.Scope, req advisory.Request) (advisory.Result, error)
}

// Publisher emits events to the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// Processor answers advisory requests arriving over NATS.
type Processor struct {
	scopes  ScopeResolver
	advisor Advisor
	hermes  Publisher
	logger  *slog.Logger
}

func New(scopes ScopeResolver, advisor Advisor, h Publisher, logger *slog.Logger) *Processor {
	return &Processor{
		scopes:  scopes,
		advisor: advisor,
		hermes:  h,
		logger:  logger,
	}
}

// HandleAdvisoryRequested is the NATS handler for pulse.advisory.requested.
// Every parseable request gets exactly one pulse.advisory.generated reply.
func (p *Processor) HandleAdvisoryRequested(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var evt hermes.AdvisoryRequested
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse advisory request", "subject", subject, "error", err)
		return
	}

	reply := hermes.AdvisoryGenerated{
		RequestID: evt.RequestID,
		CallerID:  evt.CallerID,
		Actions:   json.RawMessage("[]"),
	}

	callerID, err := uuid.Parse(evt.CallerID)
	if err != nil {
		p.logger.Warn("invalid caller id", "request_id", evt.RequestID, "caller_id", evt.CallerID)
		p.fail(reply, scope.ErrNotAuthenticated)
		return
	}

	sc, err := p.scopes.Resolve(ctx, callerID)
	if err != nil {
		p.logger.Warn("scope resolution failed", "request_id", evt.RequestID, "caller_id", callerID, "error", err)
		p.fail(reply, err)
		return
	}

	res, err := p.advisor.Generate(ctx, sc, advisory.Request{Prompt: evt.Prompt, Days: evt.Days})
	if err != nil {
		p.logger.Error("advisory request failed", "request_id", evt.RequestID, "caller_id", callerID, "error", err)
		p.fail(reply, err)
		return
	}

	actions, err := json.Marshal(res.Actions)
	if err != nil {
		p.fail(reply, err)
		return
	}
	reply.Status = hermes.StatusOK
	reply.NotesUsed = res.NotesUsed
	reply.Model = res.Model
	reply.Actions = actions
	p.publish(reply)

	p.logger.Info("advisory request answered",
		"request_id", evt.RequestID,
		"caller_id", callerID,
		"notes_used", res.NotesUsed,
		"actions", len(res.Actions),
	)
}

func (p *Processor) fail(reply hermes.AdvisoryGenerated, err error) {
	reply.Status = hermes.StatusError
	if errors.Is(err, advisory.ErrUnavailable) {
		reply.Status = hermes.StatusUnavailable
	}
	reply.Error = err.Error()
	p.publish(reply)
}

func (p *Processor) publish(reply hermes.AdvisoryGenerated) {
	if err := p.hermes.Publish(hermes.SubjectAdvisoryGenerated, reply); err != nil {
		p.logger.Error("failed to publish advisory reply", "request_id", reply.RequestID, "error", err)
	}
}
