package decision

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/poluce/clawdbot-feishu/internal/state"
)

// Signal weights.
const (
	WeightContext    = 0.6
	WeightMirror     = 0.3
	WeightSchedule   = 0.2
	WeightLongSilent = 0.15
	WeightLearned    = 0.25
)

// Signal names reported in traces.
const (
	SignalContext    = "context_keyword"
	SignalMirror     = "mirror_input"
	SignalSchedule   = "schedule"
	SignalLongSilent = "long_silence"
	SignalLearned    = "learned_correction"
)

const (
	minCorrectionHistory = 3
	minCorrectionMatches = 2
	correctionWindow     = 3
	correctionHourSpread = 2
)

// Input is everything the scoring pass reads.
type Input struct {
	Config      config.Config
	State       state.InteractionState
	UserMessage string
	Now         time.Time
}

// Score runs the soft-signal pass. It has no side effects.
func Score(in Input) Trace {
	trace := Trace{Signals: make([]Signal, 0, 5)}
	add := func(name string, weight float64, prefers modality.Mode, detail string) {
		trace.Signals = append(trace.Signals, Signal{Name: name, Weight: weight * prefers.Sign(), Detail: detail})
	}

	if keyword, prefers, ok := matchContext(in.Config.ContextKeywords, in.UserMessage); ok {
		add(SignalContext, WeightContext, prefers, fmt.Sprintf("%q", keyword))
	}

	if in.Config.AdaptiveRules.MirrorInputMode {
		switch in.State.LastUserInputMode {
		case modality.Voice, modality.Text:
			add(SignalMirror, WeightMirror, in.State.LastUserInputMode, "last input "+string(in.State.LastUserInputMode))
		}
	}

	match := ResolveSchedule(in.Config.Schedule, in.Now)
	add(SignalSchedule, WeightSchedule, match.Prefers, match.Source)

	if last := in.State.LastInteractionAt; last != nil {
		elapsed := in.Now.Sub(*last)
		if elapsed > in.Config.AdaptiveRules.LongInterval() {
			add(SignalLongSilent, WeightLongSilent, in.Config.AdaptiveRules.LongIntervalPrefers, "idle "+elapsed.Round(time.Minute).String())
		}
	}

	if prefers, detail, ok := learnedPreference(in.State.Corrections, in.Now.In(in.Config.Schedule.Location())); ok {
		add(SignalLearned, WeightLearned, prefers, detail)
	}

	for _, s := range trace.Signals {
		trace.Score += s.Weight
	}
	// Keep exact ties at zero despite float accumulation.
	trace.Score = math.Round(trace.Score*1e6) / 1e6
	trace.Voice = trace.Score > 0
	return trace
}

// matchContext checks voice keywords before text keywords; first hit wins.
func matchContext(keywords config.ContextKeywordsConfig, message string) (string, modality.Mode, bool) {
	message = strings.ToLower(strings.TrimSpace(message))
	if message == "" {
		return "", "", false
	}
	for _, kw := range keywords.Voice {
		if kw != "" && strings.Contains(message, strings.ToLower(kw)) {
			return kw, modality.Voice, true
		}
	}
	for _, kw := range keywords.Text {
		if kw != "" && strings.Contains(message, strings.ToLower(kw)) {
			return kw, modality.Text, true
		}
	}
	return "", "", false
}

// learnedPreference looks at corrections on the same weekday within two hours
// of now and votes over the most recent three of them.
func learnedPreference(corrections []state.Correction, local time.Time) (modality.Mode, string, bool) {
	if len(corrections) < minCorrectionHistory {
		return "", "", false
	}

	day := int(local.Weekday())
	hour := local.Hour()
	similar := make([]state.Correction, 0, len(corrections))
	for _, c := range corrections {
		if c.DayOfWeek != day {
			continue
		}
		diff := c.HourOfDay - hour
		if diff < 0 {
			diff = -diff
		}
		if diff <= correctionHourSpread {
			similar = append(similar, c)
		}
	}
	if len(similar) < minCorrectionMatches {
		return "", "", false
	}
	if len(similar) > correctionWindow {
		similar = similar[len(similar)-correctionWindow:]
	}

	voice := 0
	for _, c := range similar {
		if c.CorrectedTo == modality.Voice {
			voice++
		}
	}
	detail := fmt.Sprintf("%d/%d recent corrections chose voice", voice, len(similar))
	switch {
	case voice >= 2:
		return modality.Voice, detail, true
	case voice == 0:
		return modality.Text, detail, true
	default:
		return "", "", false
	}
}
