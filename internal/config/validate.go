package config

import (
	"fmt"
	"strings"
)

// Validate reports non-fatal inconsistencies in a merged configuration.
//
// Every leaf was already checked while merging, so nothing here rejects a
// config; the warnings describe ambiguities the decision engine resolves by
// rule (declaration order for overlapping ranges).
func Validate(cfg Config) []Warning {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Models.Primary.Name) == strings.TrimSpace(cfg.Models.Mixed.Name) {
		warnings = append(warnings, Warning{
			Field:   "models",
			Message: "primary and mixed models are identical; language detection has no effect",
		})
	}

	for i := 0; i < len(cfg.Schedule.Weekday); i++ {
		for j := i + 1; j < len(cfg.Schedule.Weekday); j++ {
			a, b := cfg.Schedule.Weekday[i], cfg.Schedule.Weekday[j]
			if rangesOverlap(a, b) {
				warnings = append(warnings, Warning{
					Field:   "rules.schedule.weekday",
					Message: fmt.Sprintf("%s overlaps %s; the earlier declaration wins", b.Raw, a.Raw),
				})
			}
		}
	}

	if len(cfg.Delivery.SendCmd.Raw) > 0 && len(cfg.Delivery.SendCmd.Argv) == 0 {
		warnings = append(warnings, Warning{Field: "delivery.sendCmd", Message: "configured but empty; sending is disabled"})
	}

	return warnings
}

func rangesOverlap(a, b TimeRange) bool {
	for minute := 0; minute < 24*60; minute++ {
		if a.Contains(minute) && b.Contains(minute) {
			return true
		}
	}
	return false
}
