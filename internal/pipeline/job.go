// SPDX-License-Identifier: MIT

// Package pipeline runs the best-effort animated display job: download the
// canvas video, transcode and optimize it, composite the text background
// and push the result to the device.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mabrink/busybeat/internal/device"
	"github.com/mabrink/busybeat/internal/log"
	"github.com/mabrink/busybeat/internal/spotify"
	"github.com/mabrink/busybeat/internal/transcode"
)

// OutputFileName is the animated artifact on the device volume.
const OutputFileName = "current_track.gif"

// Temp artifact names inside the work dir. The paths are shared across
// iterations: at most one job owns them at a time, which the orchestrator
// enforces by never launching a job before the previous one's grace
// period.
const (
	videoFileName    = "track_video.mp4"
	rawGIFFileName   = "unedited.gif"
	optimizedGIFName = "optimized.gif"
)

var errStale = errors.New("job superseded by a newer track")

// Converter is the transcode surface the job drives.
type Converter interface {
	ToGIF(ctx context.Context, videoPath, gifPath string) error
	Optimize(ctx context.Context, inPath, outPath string) error
}

// BackgroundRenderer renders the text canvas video frames sit on.
type BackgroundRenderer interface {
	Background(name, artist string) (image.Image, error)
}

// DeviceSession pushes display commands to the accessory.
type DeviceSession interface {
	Show(ctx context.Context, filename string) error
}

// Deps are the collaborators a job needs. All of them are shared with the
// orchestrator and safe for concurrent use.
type Deps struct {
	Converter  Converter
	Renderer   BackgroundRenderer
	Session    DeviceSession
	WorkDir    string
	VolumePath string

	// CurrentGeneration reports the orchestrator's latest track
	// generation; a job whose generation is older must not push.
	CurrentGeneration func() uint64
}

// Job is one in-flight animated pipeline run for a single track.
type Job struct {
	ID         string
	Track      spotify.TrackSnapshot
	VideoURL   string
	Generation uint64

	deps   Deps
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Result classifies how a finished job ended.
type Result string

const (
	ResultCompleted Result = "completed"
	ResultCancelled Result = "cancelled"
	ResultFailed    Result = "failed"
)

// Launch starts the job on its own goroutine. The supplied parent context
// bounds the whole daemon; the job's own cancellation is requested via
// Cancel.
func Launch(parent context.Context, deps Deps, track spotify.TrackSnapshot, videoURL string, generation uint64) *Job {
	ctx, cancel := context.WithCancel(parent)

	job := &Job{
		ID:         uuid.NewString(),
		Track:      track,
		VideoURL:   videoURL,
		Generation: generation,
		deps:       deps,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	ctx = log.ContextWithJobID(ctx, job.ID)
	ctx = log.ContextWithTrackID(ctx, track.ID)

	jobStartTotal.Inc()
	go func() {
		defer close(job.done)
		defer cancel()
		job.run(ctx)
	}()
	return job
}

// Cancel asks the job to stop at its next checkpoint. It does not wait.
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed when the job has fully finished, including cleanup.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result reports how the job ended. Valid only after Done is closed.
func (j *Job) Result() Result {
	return j.result
}

// run executes the stage sequence. Errors never escape: they are logged,
// counted and resolved by cleanup.
func (j *Job) run(ctx context.Context) {
	logger := log.WithComponentFromContext(ctx, "pipeline")

	videoPath := filepath.Join(j.deps.WorkDir, videoFileName)
	rawPath := filepath.Join(j.deps.WorkDir, rawGIFFileName)
	optimizedPath := filepath.Join(j.deps.WorkDir, optimizedGIFName)

	// Intermediates are owned exclusively by this job and removed on every
	// exit path, success or not.
	defer func() {
		for _, p := range []string{videoPath, rawPath, optimizedPath} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				logger.Debug().Err(err).Str(log.FieldPath, p).Msg("cleanup failed")
			}
		}
	}()

	err := j.stages(ctx, videoPath, rawPath, optimizedPath)
	switch {
	case err == nil:
		j.result = ResultCompleted
		logger.Info().Msg("animated display pushed")
	case errors.Is(err, context.Canceled) || errors.Is(err, errStale):
		j.result = ResultCancelled
		logger.Info().Msg("animated pipeline cancelled")
	default:
		j.result = ResultFailed
		logger.Warn().Err(err).Msg("animated pipeline failed")
	}
	jobResultTotal.WithLabelValues(string(j.result)).Inc()
}

func (j *Job) stages(ctx context.Context, videoPath, rawPath, optimizedPath string) error {
	if err := checkpoint(ctx); err != nil {
		return err
	}
	if err := downloadFile(ctx, j.VideoURL, videoPath); err != nil {
		stageFailureTotal.WithLabelValues("download").Inc()
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	if err := j.deps.Converter.ToGIF(ctx, videoPath, rawPath); err != nil {
		stageFailureTotal.WithLabelValues("convert").Inc()
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	if err := j.deps.Converter.Optimize(ctx, rawPath, optimizedPath); err != nil {
		stageFailureTotal.WithLabelValues("optimize").Inc()
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	background, err := j.background()
	if err != nil {
		stageFailureTotal.WithLabelValues("composite").Inc()
		return err
	}
	outPath := filepath.Join(j.deps.VolumePath, OutputFileName)
	if err := transcode.CompositeOnBackground(optimizedPath, outPath, background); err != nil {
		stageFailureTotal.WithLabelValues("composite").Inc()
		return err
	}

	if err := checkpoint(ctx); err != nil {
		return err
	}
	if j.deps.CurrentGeneration != nil && j.deps.CurrentGeneration() != j.Generation {
		return errStale
	}
	if err := j.deps.Session.Show(ctx, OutputFileName); err != nil {
		if errors.Is(err, device.ErrUnavailable) {
			// The artifact is on the volume; only the display trigger is
			// lost. Not a job failure.
			logger := log.WithComponentFromContext(ctx, "pipeline")
			logger.Info().
				Msg("no device for animated push, artifact left on volume")
			return nil
		}
		stageFailureTotal.WithLabelValues("push").Inc()
		return err
	}
	return nil
}

func (j *Job) background() (image.Image, error) {
	bg, err := j.deps.Renderer.Background(j.Track.Name, j.Track.Artist)
	if err != nil {
		return nil, fmt.Errorf("render background: %w", err)
	}
	return bg, nil
}

func checkpoint(ctx context.Context) error {
	return ctx.Err()
}
