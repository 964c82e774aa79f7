// SPDX-License-Identifier: MIT

package device

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readConfig(t *testing.T, dir string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	require.NoError(t, err)
	cfg := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(data, &cfg))
	return cfg
}

func TestUpdateConfigPreservesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	existing := `{"version":3,"image":"old.png","custom_pattern":[1,2,3],"disp_brightness":80}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(existing), 0o644))

	err := UpdateConfig(dir, DisplayUpdate{Image: "current_track.png", LEDHex: "FF0000"})
	require.NoError(t, err)

	cfg := readConfig(t, dir)
	assert.JSONEq(t, `"current_track.png"`, string(cfg["image"]))
	assert.JSONEq(t, `{"led_bits":127,"color":"FF0000"}`, string(cfg["solid_color"]))
	assert.JSONEq(t, `false`, string(cfg["activate_pattern"]))
	// Fields owned by the firmware/other tools survive untouched.
	assert.JSONEq(t, `[1,2,3]`, string(cfg["custom_pattern"]))
	assert.JSONEq(t, `80`, string(cfg["disp_brightness"]))
}

func TestUpdateConfigReplacesMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{not json"), 0o644))

	err := UpdateConfig(dir, DisplayUpdate{Image: "current_track.png", LEDHex: "00FF00"})
	require.NoError(t, err)

	cfg := readConfig(t, dir)
	assert.JSONEq(t, `3`, string(cfg["version"]))
	assert.JSONEq(t, `true`, string(cfg["show_after_drop"]))
	assert.JSONEq(t, `"current_track.png"`, string(cfg["image"]))
	assert.JSONEq(t, `{"led_bits":127,"color":"00FF00"}`, string(cfg["solid_color"]))
}

func TestUpdateConfigCreatesMissingFile(t *testing.T) {
	dir := t.TempDir()

	err := UpdateConfig(dir, DisplayUpdate{Image: "a.gif"})
	require.NoError(t, err)

	cfg := readConfig(t, dir)
	assert.JSONEq(t, `"a.gif"`, string(cfg["image"]))
	// No LED update requested: no solid_color block injected.
	_, hasColor := cfg["solid_color"]
	assert.False(t, hasColor)
}

func TestUpdateConfigSetsBrightness(t *testing.T) {
	dir := t.TempDir()
	existing := `{"version":3,"disp_brightness":80}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(existing), 0o644))

	err := UpdateConfig(dir, DisplayUpdate{Image: "current_track.png", Brightness: 55})
	require.NoError(t, err)

	cfg := readConfig(t, dir)
	assert.JSONEq(t, `55`, string(cfg["disp_brightness"]))
}

func TestUpdateConfigImageOnlyKeepsLED(t *testing.T) {
	dir := t.TempDir()
	existing := `{"image":"old.png","solid_color":{"led_bits":3,"color":"ABCDEF"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(existing), 0o644))

	err := UpdateConfig(dir, DisplayUpdate{Image: "current_track.gif"})
	require.NoError(t, err)

	cfg := readConfig(t, dir)
	assert.JSONEq(t, `"current_track.gif"`, string(cfg["image"]))
	assert.JSONEq(t, `{"led_bits":3,"color":"ABCDEF"}`, string(cfg["solid_color"]))
}
