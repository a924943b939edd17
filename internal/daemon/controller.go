// Package daemon serves decision, mode, and delivery commands over IPC and
// serializes every state-mutating request.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/decision"
	"github.com/poluce/clawdbot-feishu/internal/delivery"
	"github.com/poluce/clawdbot-feishu/internal/ipc"
	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/poluce/clawdbot-feishu/internal/state"
)

// SendFunc synthesizes text and hands it to the send collaborator.
type SendFunc func(ctx context.Context, text string, destination string) (delivery.Result, error)

// Controller maps IPC requests onto the engine, store, and pipeline.
// One request runs at a time, so load-modify-save cycles never interleave.
type Controller struct {
	logger    *slog.Logger
	engine    *decision.Engine
	store     *state.Store
	send      SendFunc
	available func() bool

	mu sync.Mutex
}

// NewController constructs a controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	engine *decision.Engine,
	store *state.Store,
	send SendFunc,
	available func() bool,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if send == nil {
		send = func(context.Context, string, string) (delivery.Result, error) {
			return delivery.Result{}, delivery.ErrSendUnconfigured
		}
	}
	if available == nil {
		available = func() bool { return false }
	}
	return &Controller{
		logger:    logger,
		engine:    engine,
		store:     store,
		send:      send,
		available: available,
	}
}

// Handle serves one IPC command.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch req.Command {
	case ipc.CommandDecide:
		voice := c.engine.Decide(ctx, req.Text, req.UserMessage)
		return ipc.Response{OK: true, Voice: &voice, Message: outcome(voice)}
	case ipc.CommandExplain:
		trace := c.engine.Explain(ctx, req.Text, req.UserMessage)
		return withData(ipc.Response{OK: true, Voice: &trace.Voice, Message: trace.String()}, trace)
	case ipc.CommandMode:
		return c.setMode(req)
	case ipc.CommandCorrect:
		return c.correct(req)
	case ipc.CommandInput:
		return c.recordInput(req)
	case ipc.CommandStatus:
		status := c.status()
		return withData(ipc.Response{OK: true, Message: string(status.Mode)}, status)
	case ipc.CommandSend:
		return c.sendVoice(ctx, req)
	case ipc.CommandReply:
		return c.reply(ctx, req)
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) setMode(req ipc.Request) ipc.Response {
	mode, err := modality.Parse(req.Mode)
	if err != nil {
		return ipc.Failure(err)
	}
	if req.DurationMS < 0 {
		return ipc.Failure(errors.New("duration must be >= 0"))
	}
	st := c.store.SetTemporaryMode(mode, time.Duration(req.DurationMS)*time.Millisecond)
	c.logger.Info("explicit mode set", "mode", string(mode), "duration_ms", req.DurationMS)

	message := "mode set to " + string(mode)
	if st.ModeExpiresAt != nil {
		message += " until " + st.ModeExpiresAt.Format(time.RFC3339)
	}
	return withData(ipc.Response{OK: true, Message: message}, snapshot(st, c.available()))
}

func (c *Controller) correct(req ipc.Request) ipc.Response {
	mode, err := modality.ParsePreference(req.Mode)
	if err != nil {
		return ipc.Failure(err)
	}
	st := c.store.RecordCorrection(mode)
	c.logger.Info("correction recorded", "corrected_to", string(mode), "history", len(st.Corrections))
	return withData(ipc.Response{OK: true, Message: "correction recorded"}, snapshot(st, c.available()))
}

func (c *Controller) recordInput(req ipc.Request) ipc.Response {
	var mode modality.Mode
	if strings.TrimSpace(req.InputMode) != "" {
		parsed, err := modality.ParsePreference(req.InputMode)
		if err != nil {
			return ipc.Failure(err)
		}
		mode = parsed
	}
	st := c.store.RecordInteraction(mode)
	return withData(ipc.Response{OK: true, Message: "interaction recorded"}, snapshot(st, c.available()))
}

func (c *Controller) status() Status {
	return snapshot(c.store.Load(), c.available())
}

func (c *Controller) sendVoice(ctx context.Context, req ipc.Request) ipc.Response {
	result, err := c.send(ctx, req.Text, req.Destination)
	if err != nil {
		c.logger.Error("voice send failed", "destination", req.Destination, "error", err.Error())
		return ipc.Failure(err)
	}
	voice := true
	return withData(ipc.Response{OK: true, Voice: &voice, Message: "sent as voice"}, result)
}

// reply never leaves the caller empty-handed: a failed voice attempt comes
// back as a text decision with the failure in Message.
func (c *Controller) reply(ctx context.Context, req ipc.Request) ipc.Response {
	voice := c.engine.Decide(ctx, req.Text, req.UserMessage)
	if !voice {
		return ipc.Response{OK: true, Voice: &voice, Message: outcome(false)}
	}

	result, err := c.send(ctx, req.Text, req.Destination)
	if err != nil {
		c.logger.Error("voice reply failed; falling back to text", "destination", req.Destination, "error", err.Error())
		voice = false
		return ipc.Response{OK: true, Voice: &voice, Message: "voice delivery failed; send as text: " + err.Error()}
	}
	return withData(ipc.Response{OK: true, Voice: &voice, Message: "sent as voice"}, result)
}

func outcome(voice bool) string {
	if voice {
		return string(modality.Voice)
	}
	return string(modality.Text)
}

func withData(resp ipc.Response, payload any) ipc.Response {
	data, err := json.Marshal(payload)
	if err != nil {
		return ipc.Failure(fmt.Errorf("encode response: %w", err))
	}
	resp.Data = data
	return resp
}
