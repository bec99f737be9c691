package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"PShare/global"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	body := []byte("jwt:\n  secret: test-secret\nlog:\n  level: " + level + "\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))
}

func TestWatcherAppliesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "info")

	initial, err := global.LoadConfig(path)
	require.NoError(t, err)

	changed := make(chan global.AppConfig, 4)
	w, err := StartWatcher(path, initial, func(c global.AppConfig) { changed <- c })
	require.NoError(t, err)
	defer w.Close()

	writeConfig(t, path, "debug")

	select {
	case c := <-changed:
		assert.Equal(t, "debug", c.Log.Level)
	case <-time.After(3 * time.Second):
		t.Fatal("config change not observed")
	}
	assert.Equal(t, "debug", w.Current().Log.Level)
}

func TestWatcherKeepsPreviousOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "warn")

	initial, err := global.LoadConfig(path)
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	w, err := StartWatcher(path, initial, func(global.AppConfig) { called <- struct{}{} })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("jwt: [unclosed"), 0o644))

	select {
	case <-called:
		t.Fatal("broken config must not be applied")
	case <-time.After(600 * time.Millisecond):
	}
	assert.Equal(t, "warn", w.Current().Log.Level)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "info")
	initial, err := global.LoadConfig(path)
	require.NoError(t, err)

	called := make(chan struct{}, 1)
	w, err := StartWatcher(path, initial, func(global.AppConfig) { called <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))
	select {
	case <-called:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(500 * time.Millisecond):
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
