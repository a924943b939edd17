package decision

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/poluce/clawdbot-feishu/internal/state"
	"github.com/stretchr/testify/require"
)

// 2026-03-04 is a Wednesday.
var wednesday = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Schedule.Timezone = "UTC"
	cfg.Schedule.Weekday = []config.TimeRange{
		mustRange(t, "07:00-08:30", modality.Voice),
		mustRange(t, "08:30-12:00", modality.Text),
		mustRange(t, "19:00-07:00", modality.Voice),
	}
	return cfg
}

func mustRange(t *testing.T, raw string, prefers modality.Mode) config.TimeRange {
	t.Helper()
	r, err := config.ParseTimeRange(raw, prefers)
	require.NoError(t, err)
	return r
}

func newTestEngine(t *testing.T, cfg config.Config, now time.Time) (*Engine, *state.Store, *testClock) {
	t.Helper()
	clock := &testClock{now: now}
	store := state.NewStore(
		filepath.Join(t.TempDir(), "state.json"),
		state.WithClock(clock.Now),
		state.WithLocation(cfg.Schedule.Location),
	)
	engine := &Engine{
		Config: func() config.Config { return cfg },
		Store:  store,
		Now:    clock.Now,
	}
	return engine, store, clock
}

func TestFencedCodeAlwaysForcesText(t *testing.T) {
	cfg := testConfig(t)
	engine, store, _ := newTestEngine(t, cfg, at(wednesday, 7, 30))
	store.SetTemporaryMode(modality.Voice, time.Hour)

	text := "here you go:\n```go\nfmt.Println(1)\n```\n"
	trace := engine.Explain(context.Background(), text, "I'm driving")
	require.False(t, trace.Voice)
	require.Equal(t, RuleCodeBlock, trace.HardRule)
	require.Empty(t, trace.Signals)
	require.False(t, engine.Decide(context.Background(), text, "I'm driving"))
}

func TestContentRules(t *testing.T) {
	cfg := config.Default().ForceText
	cfg.MaxLength = 40

	tests := []struct {
		name string
		text string
		rule string
	}{
		{name: "fenced code", text: "```\nls -la\n```", rule: RuleCodeBlock},
		{name: "three inline spans", text: "use `a`, `b` and `c`", rule: RuleInlineCode},
		{name: "table row", text: "results:\n| name | value |\n", rule: RuleTable},
		{name: "too long", text: strings.Repeat("好", 41), rule: RuleMaxLength},
		{name: "technical vocabulary", text: "check the API docs", rule: RuleTechnical},
		{name: "url", text: "see https://example.com", rule: RuleTechnical},
		{name: "two inline spans allowed", text: "`a` or `b`"},
		{name: "plain chat", text: "sounds good, talk soon"},
		{name: "exactly max length", text: strings.Repeat("好", 40)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule, fired := CheckContent(cfg, tc.text)
			if tc.rule == "" {
				require.False(t, fired, "unexpected rule %s", rule)
				return
			}
			require.True(t, fired)
			require.Equal(t, tc.rule, rule)
		})
	}
}

func TestContentRulesRespectSwitches(t *testing.T) {
	cfg := config.ForceTextConfig{MaxLength: 500}
	_, fired := CheckContent(cfg, "```\ncode\n```\n| a | b |\nthe API")
	require.False(t, fired)
}

func TestLongTextForcesText(t *testing.T) {
	cfg := testConfig(t)
	cfg.ForceText.MaxLength = 10
	engine, _, _ := newTestEngine(t, cfg, at(wednesday, 7, 30))

	trace := engine.Explain(context.Background(), "this reply is definitely longer than ten", "driving")
	require.False(t, trace.Voice)
	require.Equal(t, RuleMaxLength, trace.HardRule)
}

func TestExplicitVoiceModeWinsUntilExpiry(t *testing.T) {
	cfg := testConfig(t)
	engine, store, _ := newTestEngine(t, cfg, at(wednesday, 9, 0))
	store.SetTemporaryMode(modality.Voice, time.Hour)

	trace := engine.Explain(context.Background(), "see you at lunch", "in a meeting")
	require.True(t, trace.Voice)
	require.Equal(t, RuleExplicitVoice, trace.HardRule)
}

func TestExplicitTextModeWins(t *testing.T) {
	cfg := testConfig(t)
	engine, store, _ := newTestEngine(t, cfg, at(wednesday, 7, 30))
	store.SetTemporaryMode(modality.Text, 0)

	require.False(t, engine.Decide(context.Background(), "on my way", "driving home"))
}

func TestExpiredModeResetsAndFallsThrough(t *testing.T) {
	cfg := testConfig(t)
	engine, store, clock := newTestEngine(t, cfg, at(wednesday, 9, 0))
	store.SetTemporaryMode(modality.Voice, time.Minute)
	clock.now = clock.now.Add(5 * time.Minute)

	trace := engine.Explain(context.Background(), "see you at lunch", "")
	require.True(t, trace.ModeReset)
	require.Empty(t, trace.HardRule)
	require.False(t, trace.Voice)
	require.Equal(t, -WeightSchedule, trace.Weight(SignalSchedule))
	require.Equal(t, modality.Auto, store.Load().CurrentMode)
}

func TestVoiceKeywordContributesExactly(t *testing.T) {
	cfg := testConfig(t)
	engine, _, _ := newTestEngine(t, cfg, at(wednesday, 9, 0))

	trace := engine.Explain(context.Background(), "okay, see you soon", "I'm Driving to the office")
	require.True(t, trace.Voice)
	require.Equal(t, 0.6, trace.Weight(SignalContext))
	require.Equal(t, -0.2, trace.Weight(SignalSchedule))
	require.InDelta(t, 0.4, trace.Score, 1e-9)
}

func TestVoiceKeywordsCheckedBeforeText(t *testing.T) {
	cfg := testConfig(t)
	trace := Score(Input{
		Config:      cfg,
		State:       state.Default(),
		UserMessage: "walking out of the meeting now",
		Now:         at(wednesday, 9, 0),
	})
	require.Equal(t, WeightContext, trace.Weight(SignalContext))
}

func TestTextKeywordPushesText(t *testing.T) {
	cfg := testConfig(t)
	trace := Score(Input{Config: cfg, State: state.Default(), UserMessage: "在开会", Now: at(wednesday, 7, 30)})
	require.Equal(t, -WeightContext, trace.Weight(SignalContext))
	require.False(t, trace.Voice)
}

func TestMirrorSignal(t *testing.T) {
	cfg := testConfig(t)
	st := state.Default()
	st.LastUserInputMode = modality.Text

	trace := Score(Input{Config: cfg, State: st, Now: at(wednesday, 7, 30)})
	require.Equal(t, -WeightMirror, trace.Weight(SignalMirror))
	require.False(t, trace.Voice)

	cfg.AdaptiveRules.MirrorInputMode = false
	trace = Score(Input{Config: cfg, State: st, Now: at(wednesday, 7, 30)})
	require.Zero(t, trace.Weight(SignalMirror))
	require.True(t, trace.Voice)
}

func TestLongSilenceSignal(t *testing.T) {
	cfg := testConfig(t)
	now := at(wednesday, 9, 0)
	last := now.Add(-5 * time.Hour)
	st := state.Default()
	st.LastInteractionAt = &last

	trace := Score(Input{Config: cfg, State: st, Now: now})
	require.Equal(t, WeightLongSilent, trace.Weight(SignalLongSilent))

	recent := now.Add(-time.Hour)
	st.LastInteractionAt = &recent
	trace = Score(Input{Config: cfg, State: st, Now: now})
	require.Zero(t, trace.Weight(SignalLongSilent))
}

func TestFewCorrectionsContributeNothing(t *testing.T) {
	cfg := testConfig(t)
	engine, store, _ := newTestEngine(t, cfg, at(wednesday, 9, 0))
	store.RecordCorrection(modality.Voice)
	store.RecordCorrection(modality.Voice)

	trace := engine.Explain(context.Background(), "see you soon", "")
	require.Zero(t, trace.Weight(SignalLearned))
	require.Len(t, trace.Signals, 1)
	require.Equal(t, SignalSchedule, trace.Signals[0].Name)
	require.False(t, trace.Voice)
}

func TestLearnedCorrections(t *testing.T) {
	now := at(wednesday, 10, 0)
	correction := func(day time.Time, hour int, to modality.Mode) state.Correction {
		ts := at(day, hour, 0)
		return state.Correction{Timestamp: ts, DayOfWeek: int(ts.Weekday()), HourOfDay: hour, CorrectedTo: to}
	}
	tuesday := wednesday.AddDate(0, 0, -1)
	lastWeek := wednesday.AddDate(0, 0, -7)

	tests := []struct {
		name        string
		corrections []state.Correction
		want        float64
	}{
		{
			name: "majority voice in recent three",
			corrections: []state.Correction{
				correction(lastWeek, 9, modality.Text),
				correction(lastWeek, 10, modality.Voice),
				correction(lastWeek, 11, modality.Voice),
				correction(wednesday, 12, modality.Text),
			},
			want: WeightLearned,
		},
		{
			name: "all text",
			corrections: []state.Correction{
				correction(lastWeek, 8, modality.Text),
				correction(lastWeek, 12, modality.Text),
				correction(tuesday, 10, modality.Voice),
			},
			want: -WeightLearned,
		},
		{
			name: "single voice vote is a tie",
			corrections: []state.Correction{
				correction(lastWeek, 9, modality.Voice),
				correction(lastWeek, 11, modality.Text),
				correction(tuesday, 10, modality.Voice),
			},
		},
		{
			name: "only one similar correction",
			corrections: []state.Correction{
				correction(lastWeek, 10, modality.Voice),
				correction(lastWeek, 13, modality.Voice),
				correction(tuesday, 10, modality.Voice),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := state.Default()
			st.Corrections = tc.corrections
			trace := Score(Input{Config: testConfig(t), State: st, Now: now})
			require.Equal(t, tc.want, trace.Weight(SignalLearned))
		})
	}
}

func TestZeroScoreResolvesToText(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdaptiveRules.LongIntervalPrefers = modality.Text
	now := at(wednesday, 10, 0)
	last := now.Add(-24 * time.Hour)
	st := state.Default()
	st.LastInteractionAt = &last
	for i := 0; i < 3; i++ {
		st.Corrections = append(st.Corrections, state.Correction{
			DayOfWeek: int(time.Wednesday), HourOfDay: 10, CorrectedTo: modality.Text,
		})
	}

	trace := Score(Input{Config: cfg, State: st, UserMessage: "cooking dinner", Now: now})
	require.Len(t, trace.Signals, 4)
	require.Zero(t, trace.Score)
	require.False(t, trace.Voice)
}

func TestResolveSchedule(t *testing.T) {
	cfg := testConfig(t)

	require.Equal(t, modality.Voice, ResolveSchedule(cfg.Schedule, at(wednesday, 8, 0)).Prefers)
	require.Equal(t, modality.Text, ResolveSchedule(cfg.Schedule, at(wednesday, 9, 0)).Prefers)
	require.Equal(t, modality.Text, ResolveSchedule(cfg.Schedule, at(wednesday, 8, 30)).Prefers)

	late := ResolveSchedule(cfg.Schedule, at(wednesday, 23, 0))
	require.Equal(t, modality.Voice, late.Prefers)
	require.Equal(t, "19:00-07:00", late.Source)
	require.Equal(t, "19:00-07:00", ResolveSchedule(cfg.Schedule, at(wednesday, 2, 0)).Source)

	gap := ResolveSchedule(cfg.Schedule, at(wednesday, 13, 0))
	require.Equal(t, modality.Voice, gap.Prefers)
	require.Equal(t, "default", gap.Source)
}

func TestResolveScheduleWeekendAndTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Weekend = modality.Text
	saturday := wednesday.AddDate(0, 0, 3)

	match := ResolveSchedule(cfg.Schedule, at(saturday, 9, 0))
	require.Equal(t, modality.Text, match.Prefers)
	require.Equal(t, "weekend", match.Source)

	// Friday 20:00 UTC is already Saturday 04:00 in Shanghai.
	cfg.Schedule.Timezone = "Asia/Shanghai"
	friday := wednesday.AddDate(0, 0, 2)
	require.Equal(t, "weekend", ResolveSchedule(cfg.Schedule, at(friday, 20, 0)).Source)
}

func TestResolveScheduleEmptyAndOverlapping(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Weekday = nil
	require.Equal(t, modality.Voice, ResolveSchedule(cfg.Schedule, at(wednesday, 10, 0)).Prefers)

	cfg.Schedule.Weekday = []config.TimeRange{
		mustRange(t, "09:00-18:00", modality.Text),
		mustRange(t, "10:00-11:00", modality.Voice),
	}
	match := ResolveSchedule(cfg.Schedule, at(wednesday, 10, 30))
	require.Equal(t, modality.Text, match.Prefers)
	require.Equal(t, "09:00-18:00", match.Source)
}

func TestDecideStampsInteractionButExplainDoesNot(t *testing.T) {
	cfg := testConfig(t)
	engine, store, clock := newTestEngine(t, cfg, at(wednesday, 7, 30))

	engine.Explain(context.Background(), "hello", "")
	require.Nil(t, store.Load().LastInteractionAt)

	require.True(t, engine.Decide(context.Background(), "hello", ""))
	last := store.Load().LastInteractionAt
	require.NotNil(t, last)
	require.True(t, last.Equal(clock.now))
}

func TestTraceString(t *testing.T) {
	hard := Trace{HardRule: RuleTable}
	require.Equal(t, "text (hard rule: table)", hard.String())

	soft := Trace{
		Voice:   true,
		Score:   0.4,
		Signals: []Signal{{Name: SignalContext, Weight: 0.6, Detail: `"driving"`}, {Name: SignalSchedule, Weight: -0.2}},
	}
	out := soft.String()
	require.True(t, strings.HasPrefix(out, "voice (score +0.40)"))
	require.Contains(t, out, "context_keyword")
	require.Contains(t, out, "+0.60")
	require.Contains(t, out, "-0.20")
}
