package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/pulse/internal/aggregate"
	"github.com/MikeSquared-Agency/pulse/internal/scope"
	"github.com/MikeSquared-Agency/pulse/internal/wellbeing"
)

// ErrUnavailable is returned when the engine cannot produce an answer:
// timeout, exhausted quota or any transport or provider failure.
var ErrUnavailable = errors.New("advisory unavailable")

// DefaultTimeout bounds one engine round trip.
const DefaultTimeout = 45 * time.Second

// SummaryBulletCount is the number of actions rendered into a cycle summary.
const SummaryBulletCount = 3

// Engine is an external reasoning engine.
type Engine interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Model() string
	// StructuredOutput reports whether the engine enforces the action schema itself.
	StructuredOutput() bool
}

// NoteSource supplies the recent mood entries notes are selected from.
type NoteSource interface {
	RecentNotes(ctx context.Context, v wellbeing.Visibility, since time.Time, limit int) ([]wellbeing.MoodEntry, error)
}

// quotaError is implemented by engine errors that can tell quota exhaustion apart.
type quotaError interface {
	QuotaExhausted() bool
}

// Request is one advisory generation request.
type Request struct {
	Prompt string `json:"prompt"`
	Days   int    `json:"days"`
}

// Result carries the normalized actions and how many notes were sent.
type Result struct {
	Actions   []ActionItem `json:"actions"`
	NotesUsed int          `json:"notes_used"`
	Model     string       `json:"model,omitempty"`
}

// Options tune an Advisor. Zero values take the defaults.
type Options struct {
	Timeout       time.Duration
	DefaultPrompt string
}

// Advisor selects notes, calls the engine and normalizes its answer.
type Advisor struct {
	notes         NoteSource
	engine        Engine
	logger        *slog.Logger
	timeout       time.Duration
	defaultPrompt string
	now           func() time.Time
}

func New(notes NoteSource, engine Engine, logger *slog.Logger, opts Options) *Advisor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(opts.DefaultPrompt) == "" {
		opts.DefaultPrompt = DefaultPrompt
	}
	return &Advisor{
		notes:         notes,
		engine:        engine,
		logger:        logger,
		timeout:       opts.Timeout,
		defaultPrompt: opts.DefaultPrompt,
		now:           time.Now,
	}
}

// Generate runs the advisory pipeline for the caller's scope. An empty scope
// yields no actions without contacting the engine.
func (a *Advisor) Generate(ctx context.Context, sc scope.Scope, req Request) (Result, error) {
	v, ok := sc.Visibility()
	if !ok {
		return Result{Actions: []ActionItem{}}, nil
	}

	days := req.Days
	if days <= 0 {
		days = DefaultWindowDays
	}
	since := a.now().Add(-time.Duration(days) * 24 * time.Hour)

	entries, err := a.notes.RecentNotes(ctx, v, since, NoteFetchLimit)
	if err != nil {
		return Result{}, fmt.Errorf("advisory notes: %w", err)
	}
	candidates := SelectNotes(entries)

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = a.defaultPrompt
	}

	actions, err := a.complete(ctx, prompt, candidates)
	if err != nil {
		return Result{}, err
	}

	a.logger.Info("advisory generated",
		"caller_id", sc.CallerID,
		"notes_used", len(candidates),
		"actions", len(actions),
	)
	return Result{Actions: actions, NotesUsed: len(candidates), Model: a.engine.Model()}, nil
}

// Summarize produces the executive bullet summary for a cycle. It returns nil
// when the engine proposes nothing.
func (a *Advisor) Summarize(ctx context.Context, sc scope.Scope, m aggregate.CycleMetrics) (*string, error) {
	if _, ok := sc.Visibility(); !ok {
		return nil, nil
	}
	actions, err := a.complete(ctx, SummaryPrompt(m), nil)
	if err != nil {
		return nil, err
	}
	return SummaryBullets(actions, SummaryBulletCount), nil
}

func (a *Advisor) complete(ctx context.Context, prompt string, candidates []Candidate) ([]ActionItem, error) {
	if a.engine == nil {
		return nil, fmt.Errorf("%w: no engine configured", ErrUnavailable)
	}

	user, err := UserPayload(prompt, candidates)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.engine.Generate(ctx, SystemPrompt(!a.engine.StructuredOutput()), user)
	if err != nil {
		var qe quotaError
		quota := errors.As(err, &qe) && qe.QuotaExhausted()
		a.logger.Error("advisory engine failed",
			"model", a.engine.Model(),
			"quota_exhausted", quota,
			"timeout", errors.Is(err, context.DeadlineExceeded),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	actions, err := Parse(raw)
	if err != nil {
		a.logger.Warn("malformed advisory response", "raw_len", len(raw), "error", err)
		return []ActionItem{}, nil
	}
	return actions, nil
}
