// SPDX-License-Identifier: MIT

package device

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/mabrink/busybeat/internal/log"
)

// ConfigFileName is the device-side settings file on the mass-storage
// volume. The firmware and other tools own fields in it too, so updates
// must preserve everything they do not explicitly set.
const ConfigFileName = "config.json"

// AllLEDBits activates every LED in the solid-color block.
const AllLEDBits = 127

// DisplayUpdate is the set of fields this daemon owns in the device
// config. LEDHex is empty when only the displayed image changes;
// Brightness zero leaves the device setting untouched.
type DisplayUpdate struct {
	Image      string
	LEDHex     string
	Brightness int
}

type solidColor struct {
	LEDBits int    `json:"led_bits"`
	Color   string `json:"color"`
}

// defaultDeviceConfig is written when the on-disk file is missing or
// malformed: a minimal valid record the firmware accepts.
func defaultDeviceConfig() map[string]json.RawMessage {
	raw := func(v any) json.RawMessage {
		b, _ := json.Marshal(v)
		return b
	}
	return map[string]json.RawMessage{
		"version":           raw(3),
		"show_after_drop":   raw(true),
		"allow_usb_msc":     raw(true),
		"allow_file_server": raw(false),
		"disp_brightness":   raw(100),
	}
}

// UpdateConfig patches the device config on the mounted volume, touching
// only the image and LED fields and keeping unknown fields intact. The
// write is atomic so the firmware never observes a partial file.
func UpdateConfig(volumePath string, upd DisplayUpdate) error {
	logger := log.WithComponent("device")
	path := filepath.Join(volumePath, ConfigFileName)

	cfg := map[string]json.RawMessage{}
	data, err := os.ReadFile(path) // #nosec G304 -- path rooted at the device volume
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &cfg); jsonErr != nil {
			logger.Warn().Err(jsonErr).Str(log.FieldPath, path).
				Msg("device config malformed, replacing with defaults")
			cfg = defaultDeviceConfig()
		}
	case os.IsNotExist(err):
		logger.Info().Str(log.FieldPath, path).Msg("device config missing, creating")
		cfg = defaultDeviceConfig()
	default:
		return fmt.Errorf("read device config: %w", err)
	}

	if upd.Image != "" {
		img, err := json.Marshal(upd.Image)
		if err != nil {
			return fmt.Errorf("encode image field: %w", err)
		}
		cfg["image"] = img
	}
	if upd.LEDHex != "" {
		sc, err := json.Marshal(solidColor{LEDBits: AllLEDBits, Color: upd.LEDHex})
		if err != nil {
			return fmt.Errorf("encode solid_color field: %w", err)
		}
		cfg["solid_color"] = sc
		// Solid color replaces any running pattern.
		cfg["activate_pattern"] = json.RawMessage("false")
	}
	if upd.Brightness > 0 {
		b, err := json.Marshal(upd.Brightness)
		if err != nil {
			return fmt.Errorf("encode disp_brightness field: %w", err)
		}
		cfg["disp_brightness"] = b
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode device config: %w", err)
	}
	if err := renameio.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write device config: %w", err)
	}

	logger.Debug().Str(log.FieldPath, path).Str("image", upd.Image).Str(log.FieldColor, upd.LEDHex).
		Msg("device config updated")
	return nil
}
