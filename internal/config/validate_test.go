package config

import (
	"testing"

	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsHaveNoWarnings(t *testing.T) {
	require.Empty(t, Validate(Default()))
}

func TestValidateReportsOverlappingRanges(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Weekday = []TimeRange{
		mustParseTimeRange("08:00-12:00", modality.Text),
		mustParseTimeRange("11:00-13:00", modality.Voice),
		mustParseTimeRange("22:00-02:00", modality.Text),
		mustParseTimeRange("01:00-03:00", modality.Voice),
	}

	warnings := Validate(cfg)
	require.Len(t, warnings, 2)
	require.Equal(t, "rules.schedule.weekday", warnings[0].Field)
	require.Contains(t, warnings[0].Message, "11:00-13:00 overlaps 08:00-12:00")
	require.Contains(t, warnings[1].Message, "01:00-03:00 overlaps 22:00-02:00")
}

func TestValidateAdjacentRangesDoNotOverlap(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Weekday = []TimeRange{
		mustParseTimeRange("08:00-12:00", modality.Text),
		mustParseTimeRange("12:00-08:00", modality.Voice),
	}
	require.Empty(t, Validate(cfg))
}

func TestValidateIdenticalModels(t *testing.T) {
	cfg := Default()
	cfg.Models.Mixed.Name = cfg.Models.Primary.Name

	warnings := Validate(cfg)
	require.Len(t, warnings, 1)
	require.Equal(t, "models", warnings[0].Field)
}

func TestValidateEmptySendCommand(t *testing.T) {
	cfg := Default()
	cfg.Delivery.SendCmd = CommandConfig{Raw: "# disabled"}

	warnings := Validate(cfg)
	require.Len(t, warnings, 1)
	require.Equal(t, "delivery.sendCmd", warnings[0].Field)
}
