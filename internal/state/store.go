package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/modality"
)

const appName = "voicereply"

// Store reads and writes the interaction record at a single path.
//
// Every mutation is a load-modify-save cycle and is not atomic across
// concurrent callers; the daemon serializes requests for that reason.
type Store struct {
	path     string
	logger   *slog.Logger
	now      func() time.Time
	location func() *time.Location
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger routes load/save failures to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the wall clock used for stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone used for correction day/hour fields.
func WithLocation(location func() *time.Location) Option {
	return func(s *Store) {
		if location != nil {
			s.location = location
		}
	}
}

// NewStore builds a store for path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		location: func() *time.Location { return time.Local },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolvePath selects the explicit path, else XDG_STATE_HOME, else ~/.local/state.
func ResolvePath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, appName, "state.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state", appName, "state.json"), nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the record. Missing or corrupt files yield Default().
func (s *Store) Load() InteractionState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("read interaction state failed; using defaults", "path", s.path, "error", err.Error())
		}
		return Default()
	}

	var st InteractionState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("decode interaction state failed; using defaults", "path", s.path, "error", err.Error())
		return Default()
	}
	return st.normalize()
}

// Save persists the record. Failures are logged and never returned so a
// broken disk cannot break a decision.
func (s *Store) Save(st InteractionState) {
	if err := s.write(st); err != nil {
		s.logger.Error("persist interaction state failed", "path", s.path, "error", err.Error())
	}
}

func (s *Store) write(st InteractionState) error {
	if st.Corrections == nil {
		st.Corrections = []Correction{}
	}
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(append(payload, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// RecordInteraction stamps lastInteractionAt and, when inputMode is voice or
// text, remembers it as the user's last input modality.
func (s *Store) RecordInteraction(inputMode modality.Mode) InteractionState {
	st := s.Load()
	now := s.now()
	st.LastInteractionAt = &now
	if inputMode == modality.Voice || inputMode == modality.Text {
		st.LastUserInputMode = inputMode
	}
	s.Save(st)
	return st
}

// SetTemporaryMode sets an explicit override. A non-positive duration means
// the override never expires; auto always clears the expiry.
func (s *Store) SetTemporaryMode(mode modality.Mode, duration time.Duration) InteractionState {
	st := s.Load()
	now := s.now()
	st.CurrentMode = mode
	st.ModeSetAt = &now
	st.ModeExpiresAt = nil
	if mode != modality.Auto && duration > 0 {
		expires := now.Add(duration)
		st.ModeExpiresAt = &expires
	}
	s.Save(st)
	return st
}

// RecordCorrection appends a correction stamped in the configured location.
func (s *Store) RecordCorrection(correctedTo modality.Mode) InteractionState {
	st := s.Load()
	now := s.now()
	local := now.In(s.location())
	st.Corrections = trimCorrections(append(st.Corrections, Correction{
		Timestamp:   now,
		DayOfWeek:   int(local.Weekday()),
		HourOfDay:   local.Hour(),
		CorrectedTo: correctedTo,
	}))
	s.Save(st)
	return st
}

// ResetExpiredMode reverts a lapsed override to auto and persists it.
// It reports whether a reset happened.
func (s *Store) ResetExpiredMode() (InteractionState, bool) {
	st := s.Load()
	if !st.ModeExpired(s.now()) {
		return st, false
	}
	st.CurrentMode = modality.Auto
	st.ModeSetAt = nil
	st.ModeExpiresAt = nil
	s.Save(st)
	s.logger.Info("explicit mode expired; reverted to auto")
	return st, true
}
