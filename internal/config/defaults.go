package config

import "github.com/poluce/clawdbot-feishu/internal/modality"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Models: ModelsConfig{
			Primary: VoiceModel{Name: "vits-zh-aishell3", LengthScale: 1.0},
			Mixed:   VoiceModel{Name: "vits-melo-tts-zh_en", LengthScale: 1.0},
		},
		ForceText: ForceTextConfig{
			MaxLength:         500,
			CodeBlock:         true,
			InlineCode:        true,
			Table:             true,
			TechnicalKeywords: true,
		},
		Schedule: ScheduleConfig{
			Timezone: "Asia/Shanghai",
			Weekday: []TimeRange{
				mustParseTimeRange("07:00-09:00", modality.Voice),
				mustParseTimeRange("09:00-12:00", modality.Text),
				mustParseTimeRange("12:00-14:00", modality.Voice),
				mustParseTimeRange("14:00-18:00", modality.Text),
				mustParseTimeRange("18:00-23:00", modality.Voice),
				mustParseTimeRange("23:00-07:00", modality.Text),
			},
			Weekend: modality.Voice,
		},
		ContextKeywords: ContextKeywordsConfig{
			Voice: []string{"driving", "commuting", "on the way", "walking", "cooking", "开车", "在路上"},
			Text:  []string{"meeting", "in class", "library", "at work", "开会", "上课"},
		},
		AdaptiveRules: AdaptiveRulesConfig{
			MirrorInputMode:     true,
			LongIntervalMS:      4 * 60 * 60 * 1000,
			LongIntervalPrefers: modality.Voice,
		},
		Synthesis: SynthesisConfig{
			EngineBin:     "sherpa-onnx-offline-tts",
			ModelsDir:     "~/.local/share/voicereply/models",
			TranscoderBin: "ffmpeg",
			ProberBin:     "ffprobe",
			SampleRate:    16000,
			Codec:         "libopus",
			Extension:     "ogg",
		},
		Daemon: DaemonConfig{HealthAddr: "127.0.0.1:50071"},
	}
}
