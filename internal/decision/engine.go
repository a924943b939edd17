// Package decision chooses between voice and text delivery for an outbound
// reply. Content vetoes and explicit overrides run first; otherwise a
// weighted sum of soft signals decides.
package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/poluce/clawdbot-feishu/internal/state"
)

// Engine evaluates decisions against a config snapshot and a state store.
type Engine struct {
	// Config is called once per evaluation; the snapshot is immutable for it.
	Config func() config.Config
	Store  *state.Store
	Now    func() time.Time
	Logger *slog.Logger
}

// Decide reports whether responseText should be delivered as voice and
// stamps the interaction time.
func (e *Engine) Decide(ctx context.Context, responseText string, userMessage string) bool {
	trace := e.evaluate(ctx, responseText, userMessage)
	e.Store.RecordInteraction("")
	e.logger().InfoContext(ctx, "modality decided",
		"outcome", trace.Outcome(),
		"hard_rule", trace.HardRule,
		"score", trace.Score,
	)
	return trace.Voice
}

// Explain evaluates like Decide and returns the trace. It does not stamp the
// interaction, though it still reverts a lapsed override.
func (e *Engine) Explain(ctx context.Context, responseText string, userMessage string) Trace {
	return e.evaluate(ctx, responseText, userMessage)
}

func (e *Engine) evaluate(ctx context.Context, responseText string, userMessage string) Trace {
	cfg := e.Config()

	if rule, fired := CheckContent(cfg.ForceText, responseText); fired {
		return Trace{Voice: false, HardRule: rule}
	}

	now := e.now()
	st := e.Store.Load()
	reset := false
	if st.CurrentMode != modality.Auto {
		if st.ModeExpired(now) {
			st, reset = e.Store.ResetExpiredMode()
			e.logger().InfoContext(ctx, "explicit mode expired", "reset", reset)
		}
		switch st.CurrentMode {
		case modality.Voice:
			return Trace{Voice: true, HardRule: RuleExplicitVoice}
		case modality.Text:
			return Trace{Voice: false, HardRule: RuleExplicitText}
		}
	}

	trace := Score(Input{Config: cfg, State: st, UserMessage: userMessage, Now: now})
	trace.ModeReset = reset
	return trace
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
