package synthesis

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageSynthesize Stage = "synthesize"
	StageTranscode  Stage = "transcode"
	StageProbe      Stage = "probe"
	StageSend       Stage = "send"
)

// ErrSynthesis matches every failure of the engine, transcoder, or prober.
var ErrSynthesis = errors.New("voice synthesis failed")

// Error wraps a stage failure.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrSynthesis for every stage except send.
func (e *Error) Is(target error) bool {
	return target == ErrSynthesis && e.Stage != StageSend
}
