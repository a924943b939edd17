package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poluce/clawdbot-feishu/internal/modality"
	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "voicereply", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "voicereply", "config.jsonc"), resolved)

	resolved, err = ResolvePath("~/voice.yaml")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "voice.yaml"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded := Load(path)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadMalformedConfigUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"config": {"rules": `), 0o600))

	loaded := Load(path)
	require.True(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "using defaults")
}

func TestLoadExistingJSONCMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  // only the bits we care about
  "config": {
    "rules": {
      "schedule": {"timezone": "UTC", "weekend": "text"},
      "adaptiveRules": {"mirrorInputMode": false},
    },
    "delivery": {"sendCmd": "send-voice {file}"},
  },
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded := Load(path)
	require.True(t, loaded.Exists)
	require.Empty(t, loaded.Warnings)
	require.Equal(t, "UTC", loaded.Config.Schedule.Timezone)
	require.Equal(t, modality.Text, loaded.Config.Schedule.Weekend)
	require.False(t, loaded.Config.AdaptiveRules.MirrorInputMode)
	require.Equal(t, Default().AdaptiveRules.LongIntervalMS, loaded.Config.AdaptiveRules.LongIntervalMS)
	require.Equal(t, []string{"send-voice", "{file}"}, loaded.Config.Delivery.SendCmd.Argv)
}

func TestLoadYAMLByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
config:
  rules:
    contextKeywords:
      text: [standup]
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded := Load(path)
	require.True(t, loaded.Exists)
	require.Empty(t, loaded.Warnings)
	require.Equal(t, []string{"standup"}, loaded.Config.ContextKeywords.Text)
	require.Equal(t, Default().ContextKeywords.Voice, loaded.Config.ContextKeywords.Voice)
}
