// Package doctor runs readiness diagnostics for config, synthesis tools,
// models, delivery, playback, and the daemon health endpoint.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/audio"
	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
	// Optional failures are reported but do not fail the report.
	Optional bool
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all required checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass && !check.Optional {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		switch {
		case !check.Pass && check.Optional:
			status = "WARN"
		case !check.Pass:
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Options tunes the live probes.
type Options struct {
	// StatePath is the resolved interaction-state file.
	StatePath     string
	HealthTimeout time.Duration
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded, opts Options) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkTimezone(cfg.Schedule))
	checks = append(checks, checkBinary(cfg.Synthesis.EngineBin, "synthesis engine"))
	checks = append(checks, checkBinary(cfg.Synthesis.TranscoderBin, "transcoder"))
	checks = append(checks, checkBinary(cfg.Synthesis.ProberBin, "duration prober"))
	checks = append(checks, checkModel("models.primary", cfg.Synthesis.ModelsDir, cfg.Models.Primary))
	checks = append(checks, checkModel("models.mixed", cfg.Synthesis.ModelsDir, cfg.Models.Mixed))
	checks = append(checks, checkCommand(cfg.Delivery.SendCmd.Argv, "delivery.sendCmd"))

	if strings.TrimSpace(opts.StatePath) != "" {
		checks = append(checks, checkStateDir(opts.StatePath))
	}

	checks = append(checks, checkPlayback(ctx))

	if strings.TrimSpace(cfg.Daemon.HealthAddr) != "" {
		checks = append(checks, checkDaemonHealth(ctx, cfg.Daemon.HealthAddr, opts.HealthTimeout))
	}

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: "no config file; using defaults"}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(" with %d warning(s)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkTimezone(schedule config.ScheduleConfig) Check {
	if _, err := time.LoadLocation(strings.TrimSpace(schedule.Timezone)); err != nil {
		return Check{Name: "schedule.timezone", Pass: false, Message: fmt.Sprintf("unknown timezone %q; UTC is used", schedule.Timezone)}
	}
	return Check{Name: "schedule.timezone", Pass: true, Message: schedule.Timezone}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty; voice replies cannot be sent"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkModel(name string, modelsDir string, model config.VoiceModel) Check {
	dir := filepath.Join(config.ExpandUserPath(modelsDir), model.Name)
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("model %q missing at %s", model.Name, dir)}
	}
	if !info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	missing := make([]string, 0, 2)
	for _, file := range []string{"lexicon.txt", "tokens.txt"} {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			missing = append(missing, file)
		}
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "*.onnx")); len(matches) == 0 {
		missing = append(missing, "*.onnx")
	}
	if len(missing) > 0 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("model %q lacks %s", model.Name, strings.Join(missing, ", "))}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("model %q at %s", model.Name, dir)}
}

// checkStateDir verifies the state directory can hold the state file.
func checkStateDir(path string) Check {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "state", Pass: false, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "state", Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())
	return Check{Name: "state", Pass: true, Message: path}
}

// checkPlayback lists Pulse sinks; only preview needs them.
func checkPlayback(ctx context.Context) Check {
	sinks, err := audio.ListSinks(ctx)
	if err != nil {
		return Check{Name: "audio.sink", Pass: false, Optional: true, Message: err.Error()}
	}
	for _, sink := range sinks {
		if sink.Default {
			return Check{Name: "audio.sink", Pass: true, Message: fmt.Sprintf("default sink %q", sink.ID)}
		}
	}
	if len(sinks) == 0 {
		return Check{Name: "audio.sink", Pass: false, Optional: true, Message: "no output sinks"}
	}
	return Check{Name: "audio.sink", Pass: true, Message: fmt.Sprintf("%d sink(s), none default", len(sinks))}
}

// checkDaemonHealth queries a running daemon; absence is not fatal.
func checkDaemonHealth(ctx context.Context, addr string, timeout time.Duration) Check {
	if timeout <= 0 {
		timeout = time.Second
	}
	status, err := health.Check(ctx, addr, health.ServiceName, timeout)
	if err != nil {
		return Check{Name: "daemon.health", Pass: false, Optional: true, Message: fmt.Sprintf("daemon not reachable at %s: %v", addr, err)}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "daemon.health", Pass: false, Optional: true, Message: fmt.Sprintf("%s reports %s", addr, status)}
	}
	return Check{Name: "daemon.health", Pass: true, Message: fmt.Sprintf("serving at %s", addr)}
}
