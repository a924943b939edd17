// Package synthesis turns reply text into a delivery-ready voice artifact
// using external engine, transcoder, and prober processes.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/delivery"
)

// Sender delivers a finished artifact.
type Sender interface {
	Send(ctx context.Context, req delivery.Request) (delivery.Result, error)
}

// Player plays a raw WAV file locally.
type Player interface {
	PlayFile(ctx context.Context, path string) error
}

// Artifact is a transcoded audio file owned by the caller.
type Artifact struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"-"`
	Model    string        `json:"model"`
}

// DurationMS returns the probed duration in milliseconds.
func (a Artifact) DurationMS() int64 {
	return a.Duration.Milliseconds()
}

// Options wires optional collaborators.
type Options struct {
	Sender Sender
	Player Player
	Logger *slog.Logger
	Now    func() time.Time
}

// Pipeline runs synthesis for one configuration snapshot.
type Pipeline struct {
	synth  config.SynthesisConfig
	models config.ModelsConfig
	sender Sender
	player Player
	logger *slog.Logger
	now    func() time.Time
}

// New builds a pipeline from cfg.
func New(cfg config.Config, opts Options) *Pipeline {
	p := &Pipeline{
		synth:  cfg.Synthesis,
		models: cfg.Models,
		sender: opts.Sender,
		player: opts.Player,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Synthesize produces a transcoded artifact with its measured duration.
// The intermediate WAV is always removed; on failure the final file is too.
func (p *Pipeline) Synthesize(ctx context.Context, text string) (Artifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Artifact{}, &Error{Stage: StageSynthesize, Err: errors.New("text is empty")}
	}

	base, err := p.tempBase()
	if err != nil {
		return Artifact{}, &Error{Stage: StageSynthesize, Err: err}
	}
	rawPath := base + ".wav"
	finalPath := base + "." + p.extension()

	defer p.cleanup(rawPath)
	succeeded := false
	defer func() {
		if !succeeded {
			p.cleanup(finalPath)
		}
	}()

	model, err := p.runEngine(ctx, text, rawPath)
	if err != nil {
		return Artifact{}, err
	}

	if _, err := runTool(ctx, p.synth.TranscoderBin, transcodeArgs(rawPath, finalPath, p.synth.SampleRate, p.synth.Codec)...); err != nil {
		return Artifact{}, &Error{Stage: StageTranscode, Err: err}
	}

	out, err := runTool(ctx, p.synth.ProberBin, probeArgs(finalPath)...)
	if err != nil {
		return Artifact{}, &Error{Stage: StageProbe, Err: err}
	}
	duration, err := parseProbeDuration(out)
	if err != nil {
		return Artifact{}, &Error{Stage: StageProbe, Err: err}
	}

	succeeded = true
	p.logger.Info("voice synthesized",
		"model", model.Name,
		"duration_ms", duration.Milliseconds(),
		"chars", len([]rune(text)),
	)
	return Artifact{Path: finalPath, Duration: duration, Model: model.Name}, nil
}

// SendAsVoice synthesizes text and hands the artifact to the sender. The
// artifact is removed on every exit path, including a panicking sender.
func (p *Pipeline) SendAsVoice(ctx context.Context, text string, destination string) (delivery.Result, error) {
	if p.sender == nil {
		return delivery.Result{}, &Error{Stage: StageSend, Err: delivery.ErrSendUnconfigured}
	}
	if c, ok := p.sender.(interface{ Configured() bool }); ok && !c.Configured() {
		return delivery.Result{}, &Error{Stage: StageSend, Err: delivery.ErrSendUnconfigured}
	}

	artifact, err := p.Synthesize(ctx, text)
	if err != nil {
		return delivery.Result{}, err
	}
	defer p.cleanup(artifact.Path)

	result, err := p.sender.Send(ctx, delivery.Request{
		Path:        artifact.Path,
		Destination: destination,
		Duration:    artifact.Duration,
	})
	if err != nil {
		return delivery.Result{}, &Error{Stage: StageSend, Err: err}
	}
	return result, nil
}

// Preview synthesizes text and plays the raw WAV locally without transcoding.
func (p *Pipeline) Preview(ctx context.Context, text string) error {
	if p.player == nil {
		return errors.New("no audio player configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return &Error{Stage: StageSynthesize, Err: errors.New("text is empty")}
	}

	base, err := p.tempBase()
	if err != nil {
		return &Error{Stage: StageSynthesize, Err: err}
	}
	rawPath := base + ".wav"
	defer p.cleanup(rawPath)

	if _, err := p.runEngine(ctx, text, rawPath); err != nil {
		return err
	}
	if err := p.player.PlayFile(ctx, rawPath); err != nil {
		return fmt.Errorf("play preview: %w", err)
	}
	return nil
}

// IsAvailable reports whether voice delivery can be attempted.
func (p *Pipeline) IsAvailable() bool {
	return p.Check() == nil
}

// Check explains why the pipeline is unavailable, or returns nil.
func (p *Pipeline) Check() error {
	if _, err := exec.LookPath(p.synth.EngineBin); err != nil {
		return fmt.Errorf("engine %q not found: %w", p.synth.EngineBin, err)
	}
	for _, model := range []string{p.models.Primary.Name, p.models.Mixed.Name} {
		if err := requireDir(modelDir(p.synth.ModelsDir, model)); err != nil {
			return fmt.Errorf("model %q unavailable: %w", model, err)
		}
	}
	return nil
}

func (p *Pipeline) runEngine(ctx context.Context, text string, rawPath string) (modelFiles, error) {
	model, err := resolveModelFiles(p.synth.ModelsDir, selectModel(p.models, text))
	if err != nil {
		return modelFiles{}, &Error{Stage: StageSynthesize, Err: err}
	}
	if _, err := runTool(ctx, p.synth.EngineBin, model.engineArgs(rawPath, text)...); err != nil {
		return modelFiles{}, &Error{Stage: StageSynthesize, Err: err}
	}
	if _, err := os.Stat(rawPath); err != nil {
		return modelFiles{}, &Error{Stage: StageSynthesize, Err: fmt.Errorf("engine produced no output: %w", err)}
	}
	return model, nil
}

// tempBase returns a unique path prefix; timestamp plus uuid keeps
// concurrent requests apart.
func (p *Pipeline) tempBase() (string, error) {
	dir := config.ExpandUserPath(p.synth.TempDir)
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	name := fmt.Sprintf("voicereply-%s-%s", p.now().Format("20060102-150405.000"), uuid.NewString())
	return filepath.Join(dir, name), nil
}

func (p *Pipeline) extension() string {
	ext := strings.TrimPrefix(strings.TrimSpace(p.synth.Extension), ".")
	if ext == "" {
		return "ogg"
	}
	return ext
}

// cleanup removes a temp file; failures are logged only.
func (p *Pipeline) cleanup(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("remove temp audio failed", "path", path, "error", err.Error())
	}
}
