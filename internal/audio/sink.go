package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
)

// Sink describes one Pulse output device.
type Sink struct {
	ID          string
	Description string
	Default     bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voicereply"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListSinks returns the available Pulse output sinks.
func ListSinks(_ context.Context) ([]Sink, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	sinks, err := client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		out = append(out, Sink{
			ID:          s.ID(),
			Description: s.Name(),
			Default:     s.ID() == defaultSink.ID(),
		})
	}
	return out, nil
}

// selectSinkFromList resolves a preferred sink name; empty or "default"
// selects the server default.
func selectSinkFromList(sinks []Sink, preferred string) (Sink, error) {
	if len(sinks) == 0 {
		return Sink{}, errors.New("no audio output devices found")
	}

	preferred = strings.TrimSpace(strings.ToLower(preferred))
	if preferred != "" && preferred != "default" {
		for _, s := range sinks {
			if sinkMatches(s, preferred) {
				return s, nil
			}
		}
		return Sink{}, fmt.Errorf("audio output %q did not match any device", preferred)
	}

	for _, s := range sinks {
		if s.Default {
			return s, nil
		}
	}
	return Sink{}, errors.New("default audio sink is unavailable")
}

func sinkMatches(sink Sink, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(sink.ID), term) ||
		strings.Contains(strings.ToLower(sink.Description), term)
}
