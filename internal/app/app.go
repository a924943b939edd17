package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/audio"
	"github.com/poluce/clawdbot-feishu/internal/cli"
	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/daemon"
	"github.com/poluce/clawdbot-feishu/internal/doctor"
	"github.com/poluce/clawdbot-feishu/internal/ipc"
	"github.com/poluce/clawdbot-feishu/internal/logging"
	"github.com/poluce/clawdbot-feishu/internal/version"
)

const (
	quickForwardTimeout    = 2 * time.Second
	deliveryForwardTimeout = 2 * time.Minute
	maxStdinBytes          = 1 << 20
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voicereply"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voicereply"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded := config.Load(parsed.ConfigPath)
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.String())
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	svc, err := newServices(cfgLoaded, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("setup failed", "error", err.Error())
		return 1
	}

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, doctor.Options{StatePath: svc.store.Path()})
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded, svc, logger)
	case cli.CommandSynthesize:
		return r.commandSynthesize(ctx, parsed, svc)
	case cli.CommandPreview:
		return r.commandPreview(ctx, parsed, svc)
	case cli.CommandDecide, cli.CommandExplain, cli.CommandMode, cli.CommandCorrect,
		cli.CommandInput, cli.CommandStatus, cli.CommandSend, cli.CommandReply:
		return r.commandRequest(ctx, parsed, svc)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandRequest(ctx context.Context, parsed cli.Parsed, svc *services) int {
	req, err := r.buildRequest(parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := r.dispatch(ctx, parsed, svc, req)
	if err != nil {
		if parsed.Command == cli.CommandSend {
			r.printTextFallback(req.Text, err)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	switch parsed.Command {
	case cli.CommandExplain, cli.CommandStatus:
		if parsed.JSON {
			return r.printJSON(resp.Data)
		}
		if parsed.Command == cli.CommandStatus {
			return r.printStatus(resp)
		}
	case cli.CommandSend:
		return r.printDelivery(resp)
	case cli.CommandReply:
		if resp.Voice != nil && *resp.Voice {
			return r.printDelivery(resp)
		}
		if resp.Message != "" && resp.Message != "text" {
			fmt.Fprintf(r.Stderr, "warning: %s\n", resp.Message)
		}
		fmt.Fprintln(r.Stdout, "text")
		return 0
	}

	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) buildRequest(parsed cli.Parsed) (ipc.Request, error) {
	req := ipc.Request{Command: string(parsed.Command)}
	switch parsed.Command {
	case cli.CommandDecide, cli.CommandExplain, cli.CommandSend, cli.CommandReply:
		text, err := r.readText(parsed)
		if err != nil {
			return ipc.Request{}, err
		}
		req.Text = text
		req.UserMessage = parsed.UserMessage
		req.Destination = parsed.Destination
	case cli.CommandMode:
		req.Mode = string(parsed.Mode)
		req.DurationMS = parsed.Duration.Milliseconds()
	case cli.CommandCorrect:
		req.Mode = string(parsed.Mode)
	case cli.CommandInput:
		req.InputMode = string(parsed.Mode)
	}
	return req, nil
}

// dispatch forwards to a live daemon and falls back to an in-process
// controller when none is listening.
func (r Runner) dispatch(ctx context.Context, parsed cli.Parsed, svc *services, req ipc.Request) (ipc.Response, error) {
	if !parsed.Local {
		if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
			resp, handled, err := tryForward(ctx, socketPath, req, forwardTimeout(req.Command))
			if handled {
				return resp, err
			}
		}
	}

	resp := svc.controller().Handle(ctx, req)
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func forwardTimeout(command string) time.Duration {
	switch command {
	case ipc.CommandSend, ipc.CommandReply:
		return deliveryForwardTimeout
	default:
		return quickForwardTimeout
	}
}

func (r Runner) readText(parsed cli.Parsed) (string, error) {
	if !parsed.IsStdin() {
		return parsed.Text, nil
	}
	if r.Stdin == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Stdin, maxStdinBytes))
	if err != nil {
		return "", fmt.Errorf("read text from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (r Runner) printJSON(data json.RawMessage) int {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, out.String())
	return 0
}

func (r Runner) printStatus(resp ipc.Response) int {
	var status daemon.Status
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		fmt.Fprintf(r.Stderr, "error: decode status: %v\n", err)
		return 1
	}

	mode := string(status.Mode)
	if status.ModeExpiresAt != nil {
		mode += " (until " + status.ModeExpiresAt.Local().Format(time.RFC3339) + ")"
	}
	lastInput := string(status.LastUserInputMode)
	if lastInput == "" {
		lastInput = "unknown"
	}
	lastInteraction := "never"
	if status.LastInteractionAt != nil {
		lastInteraction = status.LastInteractionAt.Local().Format(time.RFC3339)
	}
	available := "no"
	if status.VoiceAvailable {
		available = "yes"
	}

	fmt.Fprintf(r.Stdout, "mode: %s\n", mode)
	fmt.Fprintf(r.Stdout, "last input: %s\n", lastInput)
	fmt.Fprintf(r.Stdout, "last interaction: %s\n", lastInteraction)
	fmt.Fprintf(r.Stdout, "corrections: %d\n", status.Corrections)
	fmt.Fprintf(r.Stdout, "voice available: %s\n", available)
	return 0
}

func (r Runner) printDelivery(resp ipc.Response) int {
	fmt.Fprintln(r.Stdout, "voice")
	if len(resp.Data) == 0 {
		return 0
	}
	var result struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(resp.Data, &result); err == nil && result.Output != "" {
		fmt.Fprintln(r.Stdout, result.Output)
	}
	return 0
}

// printTextFallback keeps a failed voice send from ending in silence: the
// text goes to stdout for the caller to deliver instead.
func (r Runner) printTextFallback(text string, err error) {
	fmt.Fprintf(r.Stderr, "warning: voice delivery failed: %v; falling back to text\n", err)
	fmt.Fprintln(r.Stdout, text)
}

func (r Runner) commandSynthesize(ctx context.Context, parsed cli.Parsed, svc *services) int {
	text, err := r.readText(parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	artifact, err := svc.pipeline(audio.Player{}).Synthesize(ctx, text)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "%s\t%d\t%s\n", artifact.Path, artifact.DurationMS(), artifact.Model)
	return 0
}

func (r Runner) commandPreview(ctx context.Context, parsed cli.Parsed, svc *services) int {
	text, err := r.readText(parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if err := svc.pipeline(audio.Player{Sink: parsed.Sink}).Preview(ctx, text); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) commandServe(ctx context.Context, loaded config.Loaded, svc *services, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	err = daemon.Serve(ctx, svc.controller(), daemon.ServeOptions{
		SocketPath: socketPath,
		HealthAddr: svc.config().Daemon.HealthAddr,
		ConfigPath: loaded.Path,
		OnReload:   svc.update,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon stopped", "error", err.Error())
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
