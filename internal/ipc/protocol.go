// Package ipc carries newline-delimited JSON requests between the CLI and a
// running voicereply daemon over a unix socket.
package ipc

import "encoding/json"

// Commands understood by the daemon.
const (
	CommandDecide  = "decide"
	CommandExplain = "explain"
	CommandMode    = "mode"
	CommandCorrect = "correct"
	CommandInput   = "input"
	CommandStatus  = "status"
	CommandSend    = "send"
	CommandReply   = "reply"
)

// Request is one command. Unused fields are omitted on the wire.
type Request struct {
	Command     string `json:"command"`
	Text        string `json:"text,omitempty"`
	UserMessage string `json:"userMessage,omitempty"`
	Mode        string `json:"mode,omitempty"`
	DurationMS  int64  `json:"durationMs,omitempty"`
	InputMode   string `json:"inputMode,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// Response carries the outcome. Data holds a command-specific JSON payload
// (trace, state snapshot, or delivery result).
type Response struct {
	OK      bool            `json:"ok"`
	Voice   *bool           `json:"voice,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Failure builds an error response.
func Failure(err error) Response {
	return Response{OK: false, Error: err.Error()}
}
