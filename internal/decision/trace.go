package decision

import (
	"fmt"
	"strings"
)

// Signal is one signed soft-scoring contribution.
type Signal struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Detail string  `json:"detail,omitempty"`
}

// Trace explains one decision. HardRule is set when a veto or explicit
// mode fixed the outcome; otherwise Signals and Score describe the scoring.
type Trace struct {
	Voice    bool     `json:"voice"`
	HardRule string   `json:"hardRule,omitempty"`
	Signals  []Signal `json:"signals,omitempty"`
	Score    float64  `json:"score"`
	// ModeReset is true when this evaluation reverted a lapsed override.
	ModeReset bool `json:"modeReset,omitempty"`
}

// Outcome returns "voice" or "text".
func (t Trace) Outcome() string {
	if t.Voice {
		return "voice"
	}
	return "text"
}

// Weight returns the contribution of the named signal, or 0.
func (t Trace) Weight(name string) float64 {
	for _, s := range t.Signals {
		if s.Name == name {
			return s.Weight
		}
	}
	return 0
}

func (t Trace) String() string {
	var b strings.Builder
	b.WriteString(t.Outcome())
	if t.HardRule != "" {
		fmt.Fprintf(&b, " (hard rule: %s)", t.HardRule)
		return b.String()
	}

	fmt.Fprintf(&b, " (score %+.2f)", t.Score)
	if t.ModeReset {
		b.WriteString("\n  explicit mode expired; reset to auto")
	}
	for _, s := range t.Signals {
		fmt.Fprintf(&b, "\n  %-18s %+.2f", s.Name, s.Weight)
		if s.Detail != "" {
			b.WriteString("  " + s.Detail)
		}
	}
	return b.String()
}
