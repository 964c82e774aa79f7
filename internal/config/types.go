// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with ENV > file > defaults
// precedence.
package config

import (
	"fmt"
	"strings"
	"time"
)

// LED color extraction modes.
const (
	LEDModeVibrant       = "vibrant"
	LEDModeDominant      = "dominant"
	LEDModeComplementary = "complementary"
	LEDModeBright        = "bright"
)

// Config is the resolved daemon configuration.
type Config struct {
	// Spotify
	SpotifyClientID string `yaml:"spotify_client_id"`
	CallbackAddr    string `yaml:"callback_addr"`

	// Device
	VolumePath     string        `yaml:"volume_path"`
	SerialTimeout  time.Duration `yaml:"serial_timeout"`
	DispBrightness int           `yaml:"disp_brightness"`

	// Rendering assets
	FontPath string `yaml:"font_path"`
	LogoPath string `yaml:"logo_path"`

	// LED
	LEDMode       string  `yaml:"led_mode"`
	LEDBrightness float64 `yaml:"led_brightness"`

	// Pipeline tooling
	WorkDir       string `yaml:"work_dir"`
	FFmpegBin     string `yaml:"ffmpeg_bin"`
	GifsicleBin   string `yaml:"gifsicle_bin"`
	CanvasEnabled bool   `yaml:"canvas_enabled"`

	// Loop timing
	PollInterval time.Duration `yaml:"poll_interval"`
	IdleBackoff  time.Duration `yaml:"idle_backoff"`
	CancelGrace  time.Duration `yaml:"cancel_grace"`

	// Logging
	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`
}

// fileConfig mirrors Config for YAML decoding; pointer fields distinguish
// "absent" from zero values when merging.
type fileConfig struct {
	SpotifyClientID *string  `yaml:"spotify_client_id"`
	CallbackAddr    *string  `yaml:"callback_addr"`
	VolumePath      *string  `yaml:"volume_path"`
	SerialTimeout   *string  `yaml:"serial_timeout"`
	DispBrightness  *int     `yaml:"disp_brightness"`
	CanvasEnabled   *bool    `yaml:"canvas_enabled"`
	FontPath        *string  `yaml:"font_path"`
	LogoPath        *string  `yaml:"logo_path"`
	LEDMode         *string  `yaml:"led_mode"`
	LEDBrightness   *float64 `yaml:"led_brightness"`
	WorkDir         *string  `yaml:"work_dir"`
	FFmpegBin       *string  `yaml:"ffmpeg_bin"`
	GifsicleBin     *string  `yaml:"gifsicle_bin"`
	PollInterval    *string  `yaml:"poll_interval"`
	IdleBackoff     *string  `yaml:"idle_backoff"`
	CancelGrace     *string  `yaml:"cancel_grace"`
	LogLevel        *string  `yaml:"log_level"`
	LogService      *string  `yaml:"log_service"`
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behaviour.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LEDMode) {
	case LEDModeVibrant, LEDModeDominant, LEDModeComplementary, LEDModeBright:
	default:
		return fmt.Errorf("invalid led_mode %q (want vibrant|dominant|complementary|bright)", c.LEDMode)
	}
	if c.LEDBrightness <= 0 {
		return fmt.Errorf("led_brightness must be positive, got %v", c.LEDBrightness)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.IdleBackoff < c.PollInterval {
		return fmt.Errorf("idle_backoff (%v) must not be shorter than poll_interval (%v)", c.IdleBackoff, c.PollInterval)
	}
	if c.CancelGrace < 0 {
		return fmt.Errorf("cancel_grace must not be negative, got %v", c.CancelGrace)
	}
	if c.SerialTimeout <= 0 {
		return fmt.Errorf("serial_timeout must be positive, got %v", c.SerialTimeout)
	}
	if c.DispBrightness < 1 || c.DispBrightness > 100 {
		return fmt.Errorf("disp_brightness must be within 1..100, got %d", c.DispBrightness)
	}
	return nil
}
