// Package audio plays synthesized speech locally through PulseAudio.
package audio

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jfreymuth/pulse"
)

// Player plays WAV files on a Pulse sink.
type Player struct {
	// Sink selects an output by id/description substring; empty uses the default.
	Sink string
}

// PlayFile decodes path and blocks until playback drains or ctx is done.
func (p Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	pcm, err := DecodeWAV(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return p.Play(ctx, pcm)
}

// Play streams pcm to the selected sink.
func (p Player) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackMediaName("voicereply preview"),
	}
	if pcm.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}
	if name := strings.TrimSpace(p.Sink); name != "" && name != "default" {
		sink, err := client.SinkByID(name)
		if err != nil {
			return fmt.Errorf("resolve sink %q: %w", name, err)
		}
		opts = append(opts, pulse.PlaybackSink(sink))
	}

	stream, err := client.NewPlayback(pulse.Int16Reader(sampleReader(ctx, pcm.Samples)), opts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return ctx.Err()
}

// sampleReader feeds samples to Pulse and ends early when ctx is cancelled.
func sampleReader(ctx context.Context, samples []int16) func([]int16) (int, error) {
	cursor := 0
	return func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}
