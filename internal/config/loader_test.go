// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.CallbackAddr)
	assert.Equal(t, LEDModeVibrant, cfg.LEDMode)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.IdleBackoff)
	assert.Equal(t, 2*time.Second, cfg.CancelGrace)
	assert.NotEmpty(t, cfg.WorkDir)
	assert.True(t, filepath.IsAbs(cfg.WorkDir))
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("led_mode: dominant\npoll_interval: 1s\nvolume_path: /Volumes/BUSYTAG\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, LEDModeDominant, cfg.LEDMode)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, "/Volumes/BUSYTAG", cfg.VolumePath)
	// Untouched defaults survive the merge.
	assert.Equal(t, 10*time.Second, cfg.IdleBackoff)
}

func TestLoadIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("led_mode: dominant\nled_brightness: 0.8\nserial_timeout: 2s\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	first, err := NewLoader(path).Load()
	require.NoError(t, err)
	second, err := NewLoader(path).Load()
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("config mismatch (-first +second):\n%s", diff)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("led_mode: dominant\n"), 0o600))

	t.Setenv("BUSYBEAT_LED_MODE", "bright")
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, LEDModeBright, cfg.LEDMode)
}

func TestLoadEnvIntAndBool(t *testing.T) {
	t.Setenv("BUSYBEAT_DISP_BRIGHTNESS", "40")
	t.Setenv("BUSYBEAT_CANVAS_ENABLED", "no")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.DispBrightness)
	assert.False(t, cfg.CanvasEnabled)
}

func TestLoadRejectsBrightnessOutOfRange(t *testing.T) {
	t.Setenv("BUSYBEAT_DISP_BRIGHTNESS", "150")

	_, err := NewLoader("").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disp_brightness")
}

func TestLoadRejectsInvalidLEDMode(t *testing.T) {
	t.Setenv("BUSYBEAT_LED_MODE", "disco")
	_, err := NewLoader("").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "led_mode")
}

func TestLoadRejectsBadTiming(t *testing.T) {
	t.Setenv("BUSYBEAT_POLL_INTERVAL", "30s")
	// idle backoff default (10s) is now shorter than the poll interval
	_, err := NewLoader("").Load()
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.Error(t, err)
}
