package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/poluce/clawdbot-feishu/internal/modality"
)

// ParseTimeRange parses "HH:MM-HH:MM" into a TimeRange.
func ParseTimeRange(raw string, prefers modality.Mode) (TimeRange, error) {
	startRaw, endRaw, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return TimeRange{}, fmt.Errorf("time range %q must look like HH:MM-HH:MM", raw)
	}
	start, err := parseClock(startRaw)
	if err != nil {
		return TimeRange{}, fmt.Errorf("time range %q: %w", raw, err)
	}
	end, err := parseClock(endRaw)
	if err != nil {
		return TimeRange{}, fmt.Errorf("time range %q: %w", raw, err)
	}
	return TimeRange{Raw: strings.TrimSpace(raw), Start: start, End: end, Prefers: prefers}, nil
}

func mustParseTimeRange(raw string, prefers modality.Mode) TimeRange {
	r, err := ParseTimeRange(raw, prefers)
	if err != nil {
		panic(err)
	}
	return r
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(raw string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, fmt.Errorf("clock %q must look like HH:MM", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("clock %q has invalid hour", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("clock %q has invalid minute", raw)
	}
	return hour*60 + minute, nil
}

// Location resolves the schedule timezone, falling back to UTC.
func (s ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(s.Timezone))
	if err != nil {
		return time.UTC
	}
	return loc
}
