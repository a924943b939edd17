// Package state persists the single-user interaction record that the
// decision engine reads and every mode change writes.
package state

import (
	"time"

	"github.com/poluce/clawdbot-feishu/internal/modality"
)

// MaxCorrections bounds the correction history; the oldest entries are evicted first.
const MaxCorrections = 50

// InteractionState is the durable record of overrides, recent activity,
// and learned corrections.
type InteractionState struct {
	CurrentMode       modality.Mode `json:"currentMode"`
	ModeSetAt         *time.Time    `json:"modeSetAt"`
	ModeExpiresAt     *time.Time    `json:"modeExpiresAt"`
	LastUserInputMode modality.Mode `json:"lastUserInputMode,omitempty"`
	LastInteractionAt *time.Time    `json:"lastInteractionAt"`
	Corrections       []Correction  `json:"corrections"`
}

// Correction records one instance of the user overriding the chosen modality.
// DayOfWeek uses 0 for Sunday; both calendar fields are in the schedule timezone.
type Correction struct {
	Timestamp   time.Time     `json:"timestamp"`
	DayOfWeek   int           `json:"dayOfWeek"`
	HourOfDay   int           `json:"hourOfDay"`
	CorrectedTo modality.Mode `json:"correctedTo"`
}

// Default returns the "auto, nothing known yet" state.
func Default() InteractionState {
	return InteractionState{
		CurrentMode: modality.Auto,
		Corrections: []Correction{},
	}
}

// ModeExpired reports whether an explicit override has lapsed at now.
func (s InteractionState) ModeExpired(now time.Time) bool {
	if s.CurrentMode == modality.Auto || s.ModeExpiresAt == nil {
		return false
	}
	return !now.Before(*s.ModeExpiresAt)
}

// normalize repairs a decoded record so callers never see invalid modes or
// an oversized history.
func (s InteractionState) normalize() InteractionState {
	if mode, err := modality.Parse(string(s.CurrentMode)); err == nil {
		s.CurrentMode = mode
	} else {
		s.CurrentMode = modality.Auto
		s.ModeSetAt = nil
		s.ModeExpiresAt = nil
	}
	if mode, err := modality.ParsePreference(string(s.LastUserInputMode)); err == nil {
		s.LastUserInputMode = mode
	} else {
		s.LastUserInputMode = ""
	}

	kept := make([]Correction, 0, len(s.Corrections))
	for _, c := range s.Corrections {
		mode, err := modality.ParsePreference(string(c.CorrectedTo))
		if err != nil || c.DayOfWeek < 0 || c.DayOfWeek > 6 || c.HourOfDay < 0 || c.HourOfDay > 23 {
			continue
		}
		c.CorrectedTo = mode
		kept = append(kept, c)
	}
	s.Corrections = trimCorrections(kept)
	return s
}

func trimCorrections(corrections []Correction) []Correction {
	if len(corrections) <= MaxCorrections {
		return corrections
	}
	return append([]Correction(nil), corrections[len(corrections)-MaxCorrections:]...)
}
