package synthesis

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// runTool executes a pipeline subprocess and returns its stdout. Stderr is
// attached to the error on failure.
func runTool(ctx context.Context, bin string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		trimmed := strings.TrimSpace(stderr.String())
		if trimmed == "" {
			return nil, fmt.Errorf("%s failed: %w", bin, err)
		}
		return nil, fmt.Errorf("%s failed: %w (%s)", bin, err, lastLine(trimmed))
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func transcodeArgs(raw string, out string, sampleRate int, codec string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", raw,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", codec,
		out,
	}
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// parseProbeDuration converts prober output in seconds to a duration.
// Anything that is not a finite, non-negative number is an error.
func parseProbeDuration(out []byte) (time.Duration, error) {
	raw := strings.TrimSpace(string(out))
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable duration %q", raw)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond, nil
}
