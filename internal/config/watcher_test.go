package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"config": {}}`), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	reloaded := make(chan Loaded, 4)
	w.OnChange(func(l Loaded) { reloaded <- l })
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)

	require.NoError(t, os.WriteFile(path, []byte(`{"config": {"rules": {"forceText": {"maxLength": 42}}}}`), 0o600))

	select {
	case loaded := <-reloaded:
		require.Equal(t, 42, loaded.Config.ForceText.MaxLength)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	w.Stop()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not exit")
	}
}
