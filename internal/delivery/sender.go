// Package delivery hands finished voice artifacts to the external
// upload/send collaborator.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/config"
)

// ErrSendUnconfigured is returned when no send command is configured.
var ErrSendUnconfigured = errors.New("send command is not configured")

// Request describes one artifact to deliver.
type Request struct {
	Path        string
	Destination string
	Duration    time.Duration
}

// Result is the collaborator's opaque answer, passed through unmodified.
type Result struct {
	Output string `json:"output"`
}

// CommandSender runs the configured send command once per request.
//
// Argument placeholders: {file}, {destination}, {duration_ms}.
type CommandSender struct {
	argv   []string
	logger *slog.Logger
}

// NewCommandSender builds a sender from the delivery config.
func NewCommandSender(cfg config.DeliveryConfig, logger *slog.Logger) *CommandSender {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandSender{
		argv:   append([]string(nil), cfg.SendCmd.Argv...),
		logger: logger,
	}
}

// Configured reports whether a send command is present.
func (s *CommandSender) Configured() bool {
	return s != nil && len(s.argv) > 0
}

// Send runs the command and returns its trimmed stdout.
func (s *CommandSender) Send(ctx context.Context, req Request) (Result, error) {
	if !s.Configured() {
		return Result{}, ErrSendUnconfigured
	}
	if strings.TrimSpace(req.Path) == "" {
		return Result{}, errors.New("artifact path must not be empty")
	}

	argv := expandArgv(s.argv, req)
	out, err := runCommandOutput(ctx, argv)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("voice artifact sent",
		"destination", req.Destination,
		"duration_ms", req.Duration.Milliseconds(),
	)
	return Result{Output: strings.TrimSpace(string(out))}, nil
}

func expandArgv(argv []string, req Request) []string {
	replacer := strings.NewReplacer(
		"{file}", req.Path,
		"{destination}", req.Destination,
		"{duration_ms}", strconv.FormatInt(req.Duration.Milliseconds(), 10),
	)
	expanded := make([]string, len(argv))
	for i, arg := range argv {
		expanded[i] = replacer.Replace(arg)
	}
	return expanded
}

// runCommandOutput executes argv and returns stdout; stderr is attached to
// the error when the command fails.
func runCommandOutput(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("command argv cannot be empty")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		trimmed := strings.TrimSpace(stderr.String())
		if trimmed == "" {
			return nil, fmt.Errorf("run %s: %w", argv[0], err)
		}
		return nil, fmt.Errorf("run %s: %w (%s)", argv[0], err, trimmed)
	}
	return stdout.Bytes(), nil
}
