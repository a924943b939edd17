package daemon

import (
	"time"

	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/poluce/clawdbot-feishu/internal/state"
)

// Status is the externally visible view of the interaction state.
type Status struct {
	Mode              modality.Mode `json:"mode"`
	ModeExpiresAt     *time.Time    `json:"modeExpiresAt,omitempty"`
	LastUserInputMode modality.Mode `json:"lastUserInputMode,omitempty"`
	LastInteractionAt *time.Time    `json:"lastInteractionAt,omitempty"`
	Corrections       int           `json:"corrections"`
	VoiceAvailable    bool          `json:"voiceAvailable"`
}

func snapshot(st state.InteractionState, available bool) Status {
	return Status{
		Mode:              st.CurrentMode,
		ModeExpiresAt:     st.ModeExpiresAt,
		LastUserInputMode: st.LastUserInputMode,
		LastInteractionAt: st.LastInteractionAt,
		Corrections:       len(st.Corrections),
		VoiceAvailable:    available,
	}
}
