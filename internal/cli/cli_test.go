package cli

import (
	"testing"
	"time"

	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/voicereply.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/voicereply.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help subcommand", args: []string{"help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "subcommand help", args: []string{"decide", "-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "version command", args: []string{"version"}, wantCmd: CommandVersion},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantCmd: CommandStatus},
		{name: "missing config path", args: []string{"--config"}, wantErr: "flag needs an argument"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unknown command"},
		{name: "too many texts", args: []string{"decide", "a", "b"}, wantErr: "accepts at most 1 arg"},
		{name: "invalid mode", args: []string{"mode", "loud"}, wantErr: "invalid mode"},
		{name: "missing mode", args: []string{"mode"}, wantErr: "exactly one of auto, voice, or text"},
		{name: "negative mode duration", args: []string{"mode", "voice", "--for", "-5m"}, wantErr: "must not be negative"},
		{name: "auto correction", args: []string{"correct", "auto"}, wantErr: "invalid preference"},
		{name: "serve", args: []string{"serve"}, wantCmd: CommandServe},
		{name: "preview", args: []string{"preview", "hi"}, wantCmd: CommandPreview},
		{name: "synthesize", args: []string{"synthesize", "hi"}, wantCmd: CommandSynthesize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
		})
	}
}

func TestParseDecideFlags(t *testing.T) {
	parsed, err := Parse([]string{"decide", "-u", "I'm driving", "on my way"})
	require.NoError(t, err)
	require.Equal(t, CommandDecide, parsed.Command)
	require.Equal(t, "on my way", parsed.Text)
	require.Equal(t, "I'm driving", parsed.UserMessage)
	require.False(t, parsed.IsStdin())
}

func TestParseReadsStdinWhenTextOmitted(t *testing.T) {
	for _, args := range [][]string{{"explain", "--json"}, {"explain", "--json", "-"}} {
		parsed, err := Parse(args)
		require.NoError(t, err)
		require.True(t, parsed.JSON)
		require.True(t, parsed.IsStdin())
	}
}

func TestParseModeWithDuration(t *testing.T) {
	parsed, err := Parse([]string{"mode", "VOICE", "--for", "30m"})
	require.NoError(t, err)
	require.Equal(t, CommandMode, parsed.Command)
	require.Equal(t, modality.Voice, parsed.Mode)
	require.Equal(t, 30*time.Minute, parsed.Duration)
}

func TestParsePreferenceCommands(t *testing.T) {
	parsed, err := Parse([]string{"correct", "text"})
	require.NoError(t, err)
	require.Equal(t, CommandCorrect, parsed.Command)
	require.Equal(t, modality.Text, parsed.Mode)

	parsed, err = Parse([]string{"--local", "input", "voice"})
	require.NoError(t, err)
	require.Equal(t, CommandInput, parsed.Command)
	require.Equal(t, modality.Voice, parsed.Mode)
	require.True(t, parsed.Local)
}

func TestParseSendDestination(t *testing.T) {
	parsed, err := Parse([]string{"send", "--to", "oc_123", "hello"})
	require.NoError(t, err)
	require.Equal(t, CommandSend, parsed.Command)
	require.Equal(t, "oc_123", parsed.Destination)
	require.Equal(t, "hello", parsed.Text)
}

func TestHelpTextListsCommands(t *testing.T) {
	help := HelpText("voicereply")
	require.Contains(t, help, "Usage:")
	for _, cmd := range []string{"decide", "explain", "reply", "mode", "correct", "input", "status", "synthesize", "send", "preview", "doctor", "serve", "version"} {
		require.Contains(t, help, cmd)
	}
	require.Contains(t, help, "--config")
	require.NotContains(t, help, "completion")
}
