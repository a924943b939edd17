package decision

import (
	"time"

	"github.com/poluce/clawdbot-feishu/internal/config"
	"github.com/poluce/clawdbot-feishu/internal/modality"
)

// ScheduleMatch is the resolved schedule preference and where it came from.
type ScheduleMatch struct {
	Prefers modality.Mode
	// Source is "weekend", the matching range ("09:00-12:00"), or "default".
	Source string
}

// ResolveSchedule maps now, in the schedule timezone, to a preferred modality.
// Weekday ranges are scanned in declaration order; no match means voice.
func ResolveSchedule(schedule config.ScheduleConfig, now time.Time) ScheduleMatch {
	local := now.In(schedule.Location())

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		if schedule.Weekend == modality.Voice || schedule.Weekend == modality.Text {
			return ScheduleMatch{Prefers: schedule.Weekend, Source: "weekend"}
		}
		return ScheduleMatch{Prefers: modality.Voice, Source: "default"}
	}

	minute := local.Hour()*60 + local.Minute()
	for _, r := range schedule.Weekday {
		if r.Contains(minute) {
			return ScheduleMatch{Prefers: r.Prefers, Source: r.Raw}
		}
	}
	return ScheduleMatch{Prefers: modality.Voice, Source: "default"}
}
