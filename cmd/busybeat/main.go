// SPDX-License-Identifier: MIT

// Command busybeat mirrors the currently playing track onto a Busy Tag
// display: artwork composite plus LED color immediately, the canvas
// animation behind it when one exists.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mabrink/busybeat/internal/config"
	"github.com/mabrink/busybeat/internal/device"
	bblog "github.com/mabrink/busybeat/internal/log"
	"github.com/mattn/go-isatty"
	"github.com/mabrink/busybeat/internal/monitor"
	"github.com/mabrink/busybeat/internal/pipeline"
	"github.com/mabrink/busybeat/internal/render"
	"github.com/mabrink/busybeat/internal/spotify"
	"github.com/mabrink/busybeat/internal/transcode"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "busybeat: %v\n", err)
		os.Exit(1)
	}

	bblog.Configure(bblog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
	})
	logger := bblog.WithComponent("daemon")
	logger.Info().
		Str("version", version).
		Str("volume", cfg.VolumePath).
		Msg("starting")

	if cfg.SpotifyClientID == "" {
		cfg.SpotifyClientID = promptValue("Spotify client ID")
	}
	if cfg.SpotifyClientID == "" {
		logger.Fatal().Msg("spotify_client_id is required (BUSYBEAT_SPOTIFY_CLIENT_ID)")
	}
	if cfg.VolumePath == "" {
		cfg.VolumePath = promptValue("Busy Tag volume path")
	}
	if cfg.VolumePath == "" {
		logger.Fatal().Msg("volume_path is required (BUSYBEAT_VOLUME_PATH)")
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o750); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.WorkDir).Msg("cannot create work dir")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("daemon stopped")
	}
	logger.Info().Msg("shutdown complete")
}

// promptValue asks the user for a missing configuration value. Returns ""
// when stdin is not a terminal, leaving the fatal path for headless runs.
func promptValue(label string) string {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return ""
	}
	return readPrompt(os.Stdin, os.Stdout, label)
}

func readPrompt(r io.Reader, w io.Writer, label string) string {
	fmt.Fprintf(w, "%s: ", label)
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return ""
	}
	return strings.TrimSpace(sc.Text())
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	auth := spotify.NewAuthenticator(cfg.SpotifyClientID, "http://"+cfg.CallbackAddr+"/callback")

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/callback", auth.CallbackHandler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.CallbackAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// The callback server must be up before the first authorization.
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("callback server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	ts, err := auth.Authorize(gctx)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	player := spotify.NewClient(spotify.HTTPClient(gctx, ts))

	renderer, err := render.Load(cfg.FontPath, cfg.LogoPath)
	if err != nil {
		return fmt.Errorf("load render assets: %w", err)
	}

	var converter pipeline.Converter
	if cfg.CanvasEnabled {
		conv := transcode.NewConverter(cfg.FFmpegBin, cfg.GifsicleBin)
		if conv.Available() {
			converter = conv
		} else {
			logger.Warn().Msg("ffmpeg or gifsicle not found, canvas animations disabled")
		}
	} else {
		logger.Info().Msg("canvas animations disabled by configuration")
	}

	session := device.NewSession(cfg.SerialTimeout)
	if _, ok := session.Discover(gctx); !ok {
		logger.Warn().Msg("no busy tag device found, will push to volume only")
	}

	attach, err := device.WatchAttach(gctx, cfg.VolumePath)
	if err != nil {
		logger.Warn().Err(err).Msg("volume watcher unavailable")
		attach = nil
	}

	orch := monitor.New(monitor.Options{
		Player:    player,
		Renderer:  renderer,
		Session:   session,
		Converter: converter,
		Reauthorize: func(ctx context.Context) (monitor.Player, error) {
			ts, err := auth.Authorize(ctx)
			if err != nil {
				return nil, err
			}
			return spotify.NewClient(spotify.HTTPClient(ctx, ts)), nil
		},
		AttachEvents:   attach,
		VolumePath:     cfg.VolumePath,
		WorkDir:        cfg.WorkDir,
		LEDMode:        cfg.LEDMode,
		LEDBrightness:  cfg.LEDBrightness,
		DispBrightness: cfg.DispBrightness,
		PollInterval:   cfg.PollInterval,
		IdleBackoff:    cfg.IdleBackoff,
		CancelGrace:    cfg.CancelGrace,
	})
	g.Go(func() error {
		return orch.Run(gctx)
	})

	return g.Wait()
}
