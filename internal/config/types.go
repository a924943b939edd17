// Package config resolves, parses, validates, and defaults voicereply configuration.
package config

import (
	"fmt"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/modality"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	Models          ModelsConfig
	ForceText       ForceTextConfig
	Schedule        ScheduleConfig
	ContextKeywords ContextKeywordsConfig
	AdaptiveRules   AdaptiveRulesConfig
	Synthesis       SynthesisConfig
	Delivery        DeliveryConfig
	State           StateConfig
	Daemon          DaemonConfig
}

// ModelsConfig selects the synthesis voice per language variant.
type ModelsConfig struct {
	Primary VoiceModel
	Mixed   VoiceModel
}

// VoiceModel names a model directory and its speech-rate scale.
type VoiceModel struct {
	Name        string
	LengthScale float64
}

// ForceTextConfig controls the content-shape vetoes.
type ForceTextConfig struct {
	MaxLength         int
	CodeBlock         bool
	InlineCode        bool
	Table             bool
	TechnicalKeywords bool
}

// ScheduleConfig maps time of day to a preferred modality.
type ScheduleConfig struct {
	Timezone string
	// Weekday ranges are kept in declaration order; the first match wins.
	Weekday []TimeRange
	Weekend modality.Mode
}

// TimeRange is one "HH:MM-HH:MM" window with its preference.
// Start and End are minutes since midnight; End < Start wraps past midnight.
type TimeRange struct {
	Raw     string
	Start   int
	End     int
	Prefers modality.Mode
}

// Contains reports whether minute-of-day falls within [Start, End).
func (r TimeRange) Contains(minute int) bool {
	if r.Start <= r.End {
		return minute >= r.Start && minute < r.End
	}
	return minute >= r.Start || minute < r.End
}

// ContextKeywordsConfig lists inbound-message substrings that hint at context.
type ContextKeywordsConfig struct {
	Voice []string
	Text  []string
}

// AdaptiveRulesConfig controls the learned and mirrored signals.
type AdaptiveRulesConfig struct {
	MirrorInputMode     bool
	LongIntervalMS      int64
	LongIntervalPrefers modality.Mode
}

// LongInterval returns the silence threshold as a duration.
func (a AdaptiveRulesConfig) LongInterval() time.Duration {
	return time.Duration(a.LongIntervalMS) * time.Millisecond
}

// SynthesisConfig locates the external speech engine, transcoder, and prober.
type SynthesisConfig struct {
	EngineBin     string
	ModelsDir     string
	TranscoderBin string
	ProberBin     string
	SampleRate    int
	Codec         string
	Extension     string
	TempDir       string
}

// DeliveryConfig controls the external upload/send collaborator.
type DeliveryConfig struct {
	SendCmd CommandConfig
}

// StateConfig controls where interaction state is persisted.
type StateConfig struct {
	Path string
}

// DaemonConfig controls the long-running serve mode.
type DaemonConfig struct {
	HealthAddr string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Field   string
	Message string
}

func (w Warning) String() string {
	if w.Field == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}
