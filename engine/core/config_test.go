package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lantern.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "Demo"
width = 640
height = 480

[renderer]
frames_in_flight = 3
vsync = false
spin = false
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Demo", cfg.Window.Title)
	assert.Equal(t, uint32(640), cfg.Window.Width)
	assert.Equal(t, uint32(480), cfg.Window.Height)
	assert.Equal(t, uint8(3), cfg.Renderer.FramesInFlight)
	assert.False(t, cfg.Renderer.VSync)
	assert.False(t, cfg.Renderer.Spin)

	// Sections left out keep their defaults.
	assert.Equal(t, "assets", cfg.Assets.Dir)
}

func TestLoadConfigClampsFramesInFlight(t *testing.T) {
	for _, tc := range []struct {
		configured uint8
		want       uint8
	}{
		{configured: 0, want: 2},
		{configured: 1, want: 2},
		{configured: 2, want: 2},
		{configured: 3, want: 3},
		{configured: 9, want: 3},
	} {
		path := writeConfig(t, fmt.Sprintf("[renderer]\nframes_in_flight = %d\n", tc.configured))
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, tc.want, cfg.Renderer.FramesInFlight, "configured %d", tc.configured)
	}
}

func TestLoadConfigRejectsMalformedToml(t *testing.T) {
	path := writeConfig(t, "[window\ntitle = ")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLogLevelMapping(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Log.Level = "info"
	assert.Equal(t, InfoLevel, cfg.LogLevel())
	cfg.Log.Level = "warn"
	assert.Equal(t, WarnLevel, cfg.LogLevel())
	cfg.Log.Level = "error"
	assert.Equal(t, ErrorLevel, cfg.LogLevel())
	cfg.Log.Level = "anything else"
	assert.Equal(t, DebugLevel, cfg.LogLevel())
}
