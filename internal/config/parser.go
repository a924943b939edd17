package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/modality"
)

// Format is the syntax of a configuration document.
type Format string

const (
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
)

// FormatForPath selects YAML for .yaml/.yml files and JSONC otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSONC
	}
}

// Parse merges a configuration document over base, leaf by leaf.
//
// The document may wrap its settings in a top-level "config" object; without
// the wrapper the whole document is treated as the config object. Only a
// document that cannot be decoded at all returns an error; individual bad
// leaves become warnings and keep their base value.
func Parse(content string, format Format, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		return base, Validate(base), nil
	}

	var (
		raw json.RawMessage
		err error
	)
	switch format {
	case FormatYAML:
		raw, err = decodeYAML(content)
	default:
		raw, err = decodeJSONC(content)
	}
	if err != nil {
		return Config{}, nil, err
	}

	warnings := make([]Warning, 0)
	top, ok := newFields("", raw, &warnings)
	if !ok {
		return Config{}, nil, errors.New("configuration document must be an object")
	}

	root := top
	if nested, ok := top.object("config"); ok {
		nested.path = ""
		root = nested
		top.finish()
	}

	cfg := cloneConfig(base)
	applyTo(root, &cfg)
	root.finish()

	warnings = append(warnings, Validate(cfg)...)
	return cfg, warnings, nil
}

func applyTo(root *fields, cfg *Config) {
	if models, ok := root.object("models"); ok {
		applyModel(models, "primary", &cfg.Models.Primary)
		applyModel(models, "mixed", &cfg.Models.Mixed)
		models.finish()
	}

	if rules, ok := root.object("rules"); ok {
		if f, ok := rules.object("forceText"); ok {
			applyForceText(f, &cfg.ForceText)
			f.finish()
		}
		if f, ok := rules.object("schedule"); ok {
			applySchedule(f, &cfg.Schedule)
			f.finish()
		}
		if f, ok := rules.object("contextKeywords"); ok {
			decodeLeaf(f, "voice", setKeywords(&cfg.ContextKeywords.Voice))
			decodeLeaf(f, "text", setKeywords(&cfg.ContextKeywords.Text))
			f.finish()
		}
		if f, ok := rules.object("adaptiveRules"); ok {
			applyAdaptiveRules(f, &cfg.AdaptiveRules)
			f.finish()
		}
		rules.finish()
	}

	if f, ok := root.object("synthesis"); ok {
		applySynthesis(f, &cfg.Synthesis)
		f.finish()
	}

	if f, ok := root.object("delivery"); ok {
		decodeLeaf(f, "sendCmd", func(raw string) error {
			argv, err := parseArgv(raw)
			if err != nil {
				return fmt.Errorf("invalid sendCmd: %w", err)
			}
			cfg.Delivery.SendCmd = CommandConfig{Raw: raw, Argv: argv}
			return nil
		})
		f.finish()
	}

	if f, ok := root.object("state"); ok {
		decodeLeaf(f, "path", setString(&cfg.State.Path))
		f.finish()
	}

	if f, ok := root.object("daemon"); ok {
		decodeLeaf(f, "healthAddr", func(v string) error {
			cfg.Daemon.HealthAddr = strings.TrimSpace(v)
			return nil
		})
		f.finish()
	}
}

func applyModel(models *fields, key string, dst *VoiceModel) {
	f, ok := models.object(key)
	if !ok {
		return
	}
	decodeLeaf(f, "name", func(v string) error {
		v = strings.TrimSpace(v)
		if v == "" {
			return errors.New("model name must not be empty")
		}
		dst.Name = v
		return nil
	})
	decodeLeaf(f, "lengthScale", func(v float64) error {
		if v <= 0 {
			return errors.New("lengthScale must be > 0")
		}
		dst.LengthScale = v
		return nil
	})
	f.finish()
}

func applyForceText(f *fields, dst *ForceTextConfig) {
	decodeLeaf(f, "maxLength", func(v int) error {
		if v <= 0 {
			return errors.New("maxLength must be > 0")
		}
		dst.MaxLength = v
		return nil
	})
	decodeLeaf(f, "codeBlock", setBool(&dst.CodeBlock))
	decodeLeaf(f, "inlineCode", setBool(&dst.InlineCode))
	decodeLeaf(f, "table", setBool(&dst.Table))
	decodeLeaf(f, "technicalKeywords", setBool(&dst.TechnicalKeywords))
}

func applySchedule(f *fields, dst *ScheduleConfig) {
	decodeLeaf(f, "timezone", func(v string) error {
		v = strings.TrimSpace(v)
		if _, err := time.LoadLocation(v); err != nil || v == "" {
			return fmt.Errorf("unknown timezone %q", v)
		}
		dst.Timezone = v
		return nil
	})
	decodeLeaf(f, "weekend", func(v string) error {
		mode, err := modality.ParsePreference(v)
		if err != nil {
			return err
		}
		dst.Weekend = mode
		return nil
	})
	if raw, ok := f.take("weekday"); ok {
		ranges, problems, err := parseWeekdayRanges(raw)
		if err != nil {
			f.warn("weekday", err.Error()+"; keeping default")
			return
		}
		for _, problem := range problems {
			f.warn("weekday", problem)
		}
		dst.Weekday = ranges
	}
}

// parseWeekdayRanges decodes a {"HH:MM-HH:MM": "voice"|"text"} object
// preserving key order. Invalid entries are dropped and reported.
func parseWeekdayRanges(raw json.RawMessage) ([]TimeRange, []string, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	tok, err := decoder.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.New("expected an object of time ranges")
	}

	ranges := make([]TimeRange, 0)
	problems := make([]string, 0)
	for decoder.More() {
		keyTok, err := decoder.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := decoder.Decode(&value); err != nil {
			return nil, nil, err
		}

		var pref string
		if err := json.Unmarshal(value, &pref); err != nil {
			problems = append(problems, fmt.Sprintf("range %q: expected a string preference; entry dropped", key))
			continue
		}
		mode, err := modality.ParsePreference(pref)
		if err != nil {
			problems = append(problems, fmt.Sprintf("range %q: %v; entry dropped", key, err))
			continue
		}
		r, err := ParseTimeRange(key, mode)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%v; entry dropped", err))
			continue
		}
		ranges = append(ranges, r)
	}
	return ranges, problems, nil
}

func setKeywords(dst *[]string) func([]string) error {
	return func(v []string) error {
		out := make([]string, 0, len(v))
		for _, keyword := range v {
			keyword = strings.TrimSpace(keyword)
			if keyword == "" {
				continue
			}
			out = append(out, keyword)
		}
		*dst = out
		return nil
	}
}

func applyAdaptiveRules(f *fields, dst *AdaptiveRulesConfig) {
	decodeLeaf(f, "mirrorInputMode", setBool(&dst.MirrorInputMode))
	decodeLeaf(f, "longIntervalMs", func(v int64) error {
		if v < 0 {
			return errors.New("longIntervalMs must be >= 0")
		}
		dst.LongIntervalMS = v
		return nil
	})
	decodeLeaf(f, "longIntervalPrefers", func(v string) error {
		mode, err := modality.ParsePreference(v)
		if err != nil {
			return err
		}
		dst.LongIntervalPrefers = mode
		return nil
	})
}

func applySynthesis(f *fields, dst *SynthesisConfig) {
	nonEmpty := func(target *string, name string) func(string) error {
		return func(v string) error {
			v = strings.TrimSpace(v)
			if v == "" {
				return fmt.Errorf("%s must not be empty", name)
			}
			*target = v
			return nil
		}
	}
	decodeLeaf(f, "engineBin", nonEmpty(&dst.EngineBin, "engineBin"))
	decodeLeaf(f, "modelsDir", nonEmpty(&dst.ModelsDir, "modelsDir"))
	decodeLeaf(f, "transcoderBin", nonEmpty(&dst.TranscoderBin, "transcoderBin"))
	decodeLeaf(f, "proberBin", nonEmpty(&dst.ProberBin, "proberBin"))
	decodeLeaf(f, "codec", nonEmpty(&dst.Codec, "codec"))
	decodeLeaf(f, "extension", func(v string) error {
		v = strings.TrimPrefix(strings.TrimSpace(v), ".")
		if v == "" {
			return errors.New("extension must not be empty")
		}
		dst.Extension = v
		return nil
	})
	decodeLeaf(f, "sampleRate", func(v int) error {
		if v <= 0 {
			return errors.New("sampleRate must be > 0")
		}
		dst.SampleRate = v
		return nil
	})
	decodeLeaf(f, "tempDir", setString(&dst.TempDir))
}

// cloneConfig copies slices so merging never mutates the caller's base.
func cloneConfig(base Config) Config {
	cfg := base
	cfg.Schedule.Weekday = append([]TimeRange(nil), base.Schedule.Weekday...)
	cfg.ContextKeywords.Voice = append([]string(nil), base.ContextKeywords.Voice...)
	cfg.ContextKeywords.Text = append([]string(nil), base.ContextKeywords.Text...)
	cfg.Delivery.SendCmd.Argv = append([]string(nil), base.Delivery.SendCmd.Argv...)
	return cfg
}
