// Package modality defines the delivery forms a reply can take.
package modality

import (
	"fmt"
	"strings"
)

// Mode is a reply delivery form or an explicit override setting.
type Mode string

const (
	Auto  Mode = "auto"
	Voice Mode = "voice"
	Text  Mode = "text"
)

// Parse normalizes a user- or file-supplied mode string.
func Parse(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case Auto:
		return Auto, nil
	case Voice:
		return Voice, nil
	case Text:
		return Text, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected auto, voice, or text)", raw)
	}
}

// ParsePreference parses a concrete delivery form; auto is rejected.
func ParsePreference(raw string) (Mode, error) {
	mode, err := Parse(raw)
	if err != nil {
		return "", err
	}
	if mode == Auto {
		return "", fmt.Errorf("invalid preference %q (expected voice or text)", raw)
	}
	return mode, nil
}

// Sign maps voice to +1 and text to -1; anything else is 0.
func (m Mode) Sign() float64 {
	switch m {
	case Voice:
		return 1
	case Text:
		return -1
	default:
		return 0
	}
}
