// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence: ENV > file > defaults.
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader. configPath may be empty, in
// which case only environment variables and defaults apply.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load resolves the effective configuration.
func (l *Loader) Load() (Config, error) {
	cfg := defaults()

	if l.configPath != "" {
		if err := mergeFile(&cfg, l.configPath); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	mergeEnv(&cfg)

	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "busybeat")
	}
	if abs, err := filepath.Abs(cfg.WorkDir); err == nil {
		cfg.WorkDir = abs
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		CallbackAddr:   "127.0.0.1:8080",
		SerialTimeout:  time.Second,
		DispBrightness: 100,
		CanvasEnabled:  true,
		FontPath:       "MontserratBlack.ttf",
		LogoPath:       "spotify_logo.png",
		LEDMode:        LEDModeVibrant,
		LEDBrightness:  1.0,
		PollInterval:   500 * time.Millisecond,
		IdleBackoff:    10 * time.Second,
		CancelGrace:    2 * time.Second,
		LogLevel:       "info",
		LogService:     "busybeat",
	}
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setDuration := func(dst *time.Duration, src *string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}

	setString(&cfg.SpotifyClientID, fc.SpotifyClientID)
	setString(&cfg.CallbackAddr, fc.CallbackAddr)
	setString(&cfg.VolumePath, fc.VolumePath)
	setString(&cfg.FontPath, fc.FontPath)
	setString(&cfg.LogoPath, fc.LogoPath)
	setString(&cfg.LEDMode, fc.LEDMode)
	setString(&cfg.WorkDir, fc.WorkDir)
	setString(&cfg.FFmpegBin, fc.FFmpegBin)
	setString(&cfg.GifsicleBin, fc.GifsicleBin)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogService, fc.LogService)
	if fc.LEDBrightness != nil {
		cfg.LEDBrightness = *fc.LEDBrightness
	}
	if fc.DispBrightness != nil {
		cfg.DispBrightness = *fc.DispBrightness
	}
	if fc.CanvasEnabled != nil {
		cfg.CanvasEnabled = *fc.CanvasEnabled
	}
	for _, pair := range []struct {
		dst *time.Duration
		src *string
		key string
	}{
		{&cfg.SerialTimeout, fc.SerialTimeout, "serial_timeout"},
		{&cfg.PollInterval, fc.PollInterval, "poll_interval"},
		{&cfg.IdleBackoff, fc.IdleBackoff, "idle_backoff"},
		{&cfg.CancelGrace, fc.CancelGrace, "cancel_grace"},
	} {
		if err := setDuration(pair.dst, pair.src); err != nil {
			return fmt.Errorf("parse %s: %w", pair.key, err)
		}
	}
	return nil
}

func mergeEnv(cfg *Config) {
	cfg.SpotifyClientID = ParseString("BUSYBEAT_SPOTIFY_CLIENT_ID", cfg.SpotifyClientID)
	cfg.CallbackAddr = ParseString("BUSYBEAT_CALLBACK_ADDR", cfg.CallbackAddr)
	cfg.VolumePath = ParseString("BUSYBEAT_VOLUME_PATH", cfg.VolumePath)
	cfg.SerialTimeout = ParseDuration("BUSYBEAT_SERIAL_TIMEOUT", cfg.SerialTimeout)
	cfg.DispBrightness = ParseInt("BUSYBEAT_DISP_BRIGHTNESS", cfg.DispBrightness)
	cfg.FontPath = ParseString("BUSYBEAT_FONT_PATH", cfg.FontPath)
	cfg.LogoPath = ParseString("BUSYBEAT_LOGO_PATH", cfg.LogoPath)
	cfg.LEDMode = ParseString("BUSYBEAT_LED_MODE", cfg.LEDMode)
	cfg.LEDBrightness = ParseFloat("BUSYBEAT_LED_BRIGHTNESS", cfg.LEDBrightness)
	cfg.WorkDir = ParseString("BUSYBEAT_WORK_DIR", cfg.WorkDir)
	cfg.FFmpegBin = ParseString("BUSYBEAT_FFMPEG_BIN", cfg.FFmpegBin)
	cfg.GifsicleBin = ParseString("BUSYBEAT_GIFSICLE_BIN", cfg.GifsicleBin)
	cfg.CanvasEnabled = ParseBool("BUSYBEAT_CANVAS_ENABLED", cfg.CanvasEnabled)
	cfg.PollInterval = ParseDuration("BUSYBEAT_POLL_INTERVAL", cfg.PollInterval)
	cfg.IdleBackoff = ParseDuration("BUSYBEAT_IDLE_BACKOFF", cfg.IdleBackoff)
	cfg.CancelGrace = ParseDuration("BUSYBEAT_CANCEL_GRACE", cfg.CancelGrace)
	cfg.LogLevel = ParseString("BUSYBEAT_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("BUSYBEAT_LOG_SERVICE", cfg.LogService)
}
