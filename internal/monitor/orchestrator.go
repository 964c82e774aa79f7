// SPDX-License-Identifier: MIT

// Package monitor drives the poll loop: it watches playback, renders and
// pushes the static display for every track change and launches the
// best-effort animated pipeline behind it.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2"
	"github.com/mabrink/busybeat/internal/colorx"
	"github.com/mabrink/busybeat/internal/device"
	"github.com/mabrink/busybeat/internal/log"
	"github.com/mabrink/busybeat/internal/pipeline"
	"github.com/mabrink/busybeat/internal/spotify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// StaticFileName is the composed artwork image on the device volume.
const StaticFileName = "current_track.png"

// Player is the playback surface the loop polls.
type Player interface {
	CurrentlyPlaying(ctx context.Context) (spotify.PlayerState, error)
	FetchArtwork(ctx context.Context, url string) ([]byte, error)
	CanvasURL(ctx context.Context, trackURI string) (string, error)
}

// Renderer composes display images for a track.
type Renderer interface {
	Static(name, artist string, artwork image.Image) (image.Image, error)
	Background(name, artist string) (image.Image, error)
}

// DeviceSession triggers display changes over serial.
type DeviceSession interface {
	Show(ctx context.Context, filename string) error
}

// Options configures the orchestrator. All collaborators are required
// except Reauthorize and AttachEvents.
type Options struct {
	Player    Player
	Renderer  Renderer
	Session   DeviceSession
	Converter pipeline.Converter

	// Reauthorize runs a fresh authorization after the player reports an
	// expired token and returns the replacement player. A nil func or a
	// returned error stops the loop: without credentials every further
	// poll would fail the same way.
	Reauthorize func(ctx context.Context) (Player, error)

	// AttachEvents signals that the device volume reappeared; the last
	// pushed display is repeated. Optional.
	AttachEvents <-chan struct{}

	VolumePath string
	WorkDir    string

	LEDMode       string
	LEDBrightness float64

	// DispBrightness is the panel brightness (1..100) written with every
	// static push; zero leaves the device setting alone.
	DispBrightness int

	PollInterval time.Duration
	IdleBackoff  time.Duration
	CancelGrace  time.Duration
}

// Orchestrator owns the single poll loop. Not safe for concurrent Run
// calls.
type Orchestrator struct {
	opts    Options
	limiter *rate.Limiter
	fsm     *displayFSM

	// generation is bumped on every track change and idle edge; the
	// pipeline reads it from its own goroutine at push time.
	generation atomic.Uint64
	current    spotify.TrackSnapshot
	hasTrack   bool
	job        *pipeline.Job

	// lastUpdate is replayed when the device volume reappears.
	lastUpdate device.DisplayUpdate
}

// New builds an orchestrator. Run must be called exactly once.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.PollInterval), 1),
		fsm:     newDisplayFSM(),
	}
}

// DisplayState reports the current display lifecycle state.
func (o *Orchestrator) DisplayState() State {
	return o.fsm.State()
}

// Run polls until ctx is cancelled or authorization is lost. The active
// animated job is cancelled and drained before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	logger := log.WithComponent("monitor")
	logger.Info().
		Dur("poll_interval", o.opts.PollInterval).
		Str("volume", o.opts.VolumePath).
		Msg("playback monitor started")

	defer o.drainJob()

	for {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil
		}
		o.checkAttach(ctx)

		state, err := o.opts.Player.CurrentlyPlaying(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			pollErrorTotal.Inc()
			logger.Warn().Err(err).Msg("playback poll failed")
			continue
		}
		pollTotal.WithLabelValues(state.Outcome.String()).Inc()

		switch state.Outcome {
		case spotify.OutcomeTokenExpired:
			if err := o.reauthorize(ctx); err != nil {
				return err
			}
		case spotify.OutcomeNoTrack, spotify.OutcomeAd:
			o.handleIdle(ctx, state.Outcome)
		case spotify.OutcomeTrack:
			o.handleTrack(ctx, state.Track)
		}
	}
}

func (o *Orchestrator) reauthorize(ctx context.Context) error {
	logger := log.WithComponent("monitor")
	if o.opts.Reauthorize == nil {
		return fmt.Errorf("token expired and no reauthorization configured")
	}
	logger.Warn().Msg("token expired, reauthorizing")
	player, err := o.opts.Reauthorize(ctx)
	if err != nil {
		return fmt.Errorf("reauthorize: %w", err)
	}
	o.opts.Player = player
	logger.Info().Msg("reauthorized")
	return nil
}

// handleIdle reacts to nothing-playing and advertisement polls: stop the
// current lifecycle once, then back off so ads are not hammered.
func (o *Orchestrator) handleIdle(ctx context.Context, outcome spotify.Outcome) {
	logger := log.WithComponent("monitor")
	if o.hasTrack {
		logger.Info().
			Str(log.FieldEvent, outcome.String()).
			Str(log.FieldTrack, o.current.Name).
			Msg("playback stopped")
		o.cancelActiveJob(ctx)
		o.hasTrack = false
		o.generation.Add(1)
		_, _ = o.fsm.Fire(EventReset)
	}
	o.sleep(ctx, o.opts.IdleBackoff)
}

// handleTrack runs the per-poll track logic: same track means at most a
// pause/resume edge; a new ID tears the old lifecycle down and starts a
// fresh one.
func (o *Orchestrator) handleTrack(ctx context.Context, track spotify.TrackSnapshot) {
	logger := log.WithComponent("monitor")

	if o.hasTrack && track.ID == o.current.ID {
		if track.Playing != o.current.Playing {
			event := "paused"
			if track.Playing {
				event = "resumed"
			}
			logger.Info().
				Str(log.FieldEvent, event).
				Str(log.FieldTrack, track.Name).
				Msg("playback state changed")
			o.current.Playing = track.Playing
		}
		return
	}

	trackChangeTotal.Inc()
	o.cancelActiveJob(ctx)
	o.generation.Add(1)
	o.current = track
	o.hasTrack = true
	_, _ = o.fsm.Fire(EventReset)
	_, _ = o.fsm.Fire(EventTrackDetected)

	tctx := log.ContextWithTrackID(ctx, track.ID)
	logger = log.WithComponentFromContext(tctx, "monitor")
	logger.Info().
		Str(log.FieldTrack, track.Name).
		Str(log.FieldArtist, track.Artist).
		Msg("track changed")

	artwork, videoURL := o.fetchAssets(tctx, track)
	if artwork == nil {
		staticPushFailureTotal.Inc()
		_, _ = o.fsm.Fire(EventDisplayFailed)
		return
	}

	if err := o.pushStatic(tctx, track, artwork); err != nil {
		staticPushFailureTotal.Inc()
		_, _ = o.fsm.Fire(EventDisplayFailed)
		logger.Warn().Err(err).Msg("static display push failed")
		return
	}
	_, _ = o.fsm.Fire(EventStaticPushed)

	if videoURL == "" {
		logger.Debug().Msg("no canvas video for track")
		return
	}
	o.launchAnimated(ctx, track, videoURL)
}

// fetchAssets downloads artwork and resolves the canvas URL concurrently.
// A missing canvas is normal; missing artwork makes the static push
// impossible and is returned as nil.
func (o *Orchestrator) fetchAssets(ctx context.Context, track spotify.TrackSnapshot) (image.Image, string) {
	logger := log.WithComponentFromContext(ctx, "monitor")

	var (
		artwork  image.Image
		videoURL string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := o.opts.Player.FetchArtwork(gctx, track.ArtworkURL)
		if err != nil {
			return fmt.Errorf("fetch artwork: %w", err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decode artwork: %w", err)
		}
		artwork = img
		return nil
	})
	g.Go(func() error {
		url, err := o.opts.Player.CanvasURL(gctx, track.URI)
		if err != nil {
			// Best effort: the static path must not depend on canvas
			// availability.
			logger.Debug().Err(err).Msg("canvas lookup failed")
			return nil
		}
		videoURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("artwork unavailable, skipping display update")
		return nil, ""
	}
	return artwork, videoURL
}

// pushStatic renders the composite, writes it to the volume, updates the
// device config with image and LED color and triggers the display.
func (o *Orchestrator) pushStatic(ctx context.Context, track spotify.TrackSnapshot, artwork image.Image) error {
	logger := log.WithComponentFromContext(ctx, "monitor")

	led := colorx.LEDColor(artwork, o.opts.LEDMode, o.opts.LEDBrightness)

	composed, err := o.opts.Renderer.Static(track.Name, track.Artist, artwork)
	if err != nil {
		return fmt.Errorf("render static: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, composed); err != nil {
		return fmt.Errorf("encode static: %w", err)
	}
	path := filepath.Join(o.opts.VolumePath, StaticFileName)
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write static: %w", err)
	}

	upd := device.DisplayUpdate{Image: StaticFileName, LEDHex: led.Hex(), Brightness: o.opts.DispBrightness}
	if err := device.UpdateConfig(o.opts.VolumePath, upd); err != nil {
		return fmt.Errorf("update device config: %w", err)
	}
	o.lastUpdate = upd

	if err := o.opts.Session.Show(ctx, StaticFileName); err != nil {
		if errors.Is(err, device.ErrUnavailable) {
			// The volume holds the image and config; the display catches
			// up as soon as the device is reachable again.
			logger.Info().Msg("no device for static push, artifact left on volume")
			return nil
		}
		return fmt.Errorf("show static: %w", err)
	}

	logger.Info().
		Str(log.FieldTrack, track.Name).
		Str(log.FieldColor, led.Hex()).
		Msg("static display pushed")
	return nil
}

// launchAnimated starts the pipeline job and watches its outcome on a
// side goroutine. The job reads the latest generation at push time so a
// stale result never lands on the display.
func (o *Orchestrator) launchAnimated(ctx context.Context, track spotify.TrackSnapshot, videoURL string) {
	if o.opts.Converter == nil {
		logger := log.WithComponent("monitor")
		logger.Debug().Msg("no transcoder configured, skipping canvas")
		return
	}
	deps := pipeline.Deps{
		Converter:         o.opts.Converter,
		Renderer:          o.opts.Renderer,
		Session:           o.opts.Session,
		WorkDir:           o.opts.WorkDir,
		VolumePath:        o.opts.VolumePath,
		CurrentGeneration: o.generation.Load,
	}
	job := pipeline.Launch(ctx, deps, track, videoURL, o.generation.Load())
	o.job = job
	_, _ = o.fsm.Fire(EventAnimatedStarted)

	go func() {
		<-job.Done()
		// A newer track owns the lifecycle by now; this job's outcome
		// must not relabel it.
		if o.generation.Load() != job.Generation {
			return
		}
		switch job.Result() {
		case pipeline.ResultCompleted:
			_, _ = o.fsm.Fire(EventAnimatedPushed)
		case pipeline.ResultCancelled:
			_, _ = o.fsm.Fire(EventAnimatedCancelled)
		default:
			_, _ = o.fsm.Fire(EventAnimatedFailed)
		}
	}()
}

// cancelActiveJob asks the running pipeline to stop and waits up to the
// grace period so work-dir artifacts are not contended by the next job.
func (o *Orchestrator) cancelActiveJob(ctx context.Context) {
	if o.job == nil {
		return
	}
	o.job.Cancel()
	select {
	case <-o.job.Done():
	case <-time.After(o.opts.CancelGrace):
		logger := log.WithComponent("monitor")
		logger.Warn().Msg("pipeline job did not stop within grace period")
	case <-ctx.Done():
	}
	o.job = nil
}

func (o *Orchestrator) drainJob() {
	if o.job == nil {
		return
	}
	o.job.Cancel()
	select {
	case <-o.job.Done():
	case <-time.After(o.opts.CancelGrace):
	}
	o.job = nil
}

// checkAttach replays the last display update when the device volume
// reappears, for example after the accessory was unplugged.
func (o *Orchestrator) checkAttach(ctx context.Context) {
	if o.opts.AttachEvents == nil || o.lastUpdate.Image == "" {
		return
	}
	select {
	case _, ok := <-o.opts.AttachEvents:
		if !ok {
			o.opts.AttachEvents = nil
			return
		}
	default:
		return
	}

	logger := log.WithComponent("monitor")
	reattachPushTotal.Inc()
	if err := device.UpdateConfig(o.opts.VolumePath, o.lastUpdate); err != nil {
		logger.Warn().Err(err).Msg("re-attach config update failed")
		return
	}
	if err := o.opts.Session.Show(ctx, o.lastUpdate.Image); err != nil {
		logger.Warn().Err(err).Msg("re-attach display push failed")
		return
	}
	logger.Info().Str("image", o.lastUpdate.Image).Msg("display restored after re-attach")
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
