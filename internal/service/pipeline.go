package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
	"github.com/bnema/clipforge/internal/progress"
)

const (
	DefaultMaxDurationSeconds = 600
	DefaultStageTimeout       = time.Hour
	DefaultJobTimeout         = 3 * time.Hour
)

const (
	msgFetchFailed     = "Download failed. Check the URL."
	msgFetchMissing    = "Downloaded file not found."
	msgUpscaleFailed   = "1080p upscale failed."
	msgTranscodeFailed = "Transcode failed. Check the HandBrakeCLI installation."
)

// partial download suffixes yt-dlp leaves while a transfer is in flight
var partialSuffixes = []string{".part", ".ytdl", ".temp"}

type PipelineConfig struct {
	Layout             domain.Layout
	MaxDurationSeconds int
	StageTimeout       time.Duration
	JobTimeout         time.Duration
}

// Tools groups the per-stage command builders.
type Tools struct {
	Fetcher    port.Fetcher
	Upscaler   port.Upscaler
	Transcoder port.Transcoder
	Prober     port.MediaProber
}

// Pipeline runs the fetch, upscale and transcode stages of one job and is the
// only writer of that job's registry entry while it runs.
type Pipeline struct {
	registry port.JobRegistry
	runner   port.ProcessRunner
	tools    Tools
	sweeper  *Sweeper
	cfg      PipelineConfig
	now      func() time.Time
}

// NewPipeline wires a pipeline. sweeper may be nil.
func NewPipeline(registry port.JobRegistry, runner port.ProcessRunner, tools Tools, sweeper *Sweeper, cfg PipelineConfig) *Pipeline {
	if cfg.MaxDurationSeconds <= 0 {
		cfg.MaxDurationSeconds = DefaultMaxDurationSeconds
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	return &Pipeline{
		registry: registry,
		runner:   runner,
		tools:    tools,
		sweeper:  sweeper,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run drives job id to a terminal status. It never panics and never returns
// with the job in a non-terminal status unless the job vanished.
func (p *Pipeline) Run(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error.Printf("job %s: panic: %v\n%s", id, r, debug.Stack())
			p.fail(id, fmt.Sprintf("Internal error: %v", r))
		}
	}()

	if p.sweeper != nil {
		p.sweeper.Sweep(p.now())
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	defer cancel()

	job, err := p.registry.Get(id)
	if err != nil {
		logger.Error.Printf("job %s: cannot start: %v", id, err)
		return
	}

	logger.Info.Printf("job %s: started (url=%s, codec=%s, quality=%d, preset=%s)",
		id, logger.SanitizeForLog(job.SourceURL), logger.SanitizeForLog(job.Codec), job.Quality, logger.SanitizeForLog(job.Preset))

	if err := p.execute(ctx, job); err != nil {
		var stageErr *domain.StageError
		msg := "Internal error: " + err.Error()
		if errors.As(err, &stageErr) {
			msg = stageErr.Message
		}
		logger.Error.Printf("job %s: failed: %v", id, err)
		p.fail(id, msg)
		return
	}
	logger.Info.Printf("job %s: completed", id)
}

func (p *Pipeline) execute(ctx context.Context, job *domain.Job) error {
	source, err := p.fetch(ctx, job)
	if err != nil {
		return err
	}
	upscaled, err := p.upscale(ctx, job.ID, source)
	if err != nil {
		return err
	}
	final, err := p.transcode(ctx, job, upscaled)
	if err != nil {
		return err
	}
	return p.complete(job.ID, final)
}

func (p *Pipeline) fetch(ctx context.Context, job *domain.Job) (string, error) {
	id := job.ID
	if err := p.enterStage(id, domain.StageFetch, domain.JobStatusDownloading, "Downloading 720p video...", false); err != nil {
		return "", err
	}

	inv := p.tools.Fetcher.FetchCommand(job.SourceURL, p.cfg.Layout.DownloadTemplate(id))
	if err := p.runStage(ctx, id, inv, progress.ParseFetch); err != nil {
		return "", domain.NewStageError(domain.StageFetch, p.failureMessage(ctx, err, msgFetchFailed), err)
	}

	source, err := p.findDownload(id)
	if err != nil {
		return "", domain.NewStageError(domain.StageFetch, msgFetchMissing, err)
	}

	if err := p.checkDuration(ctx, id, source); err != nil {
		return "", err
	}

	if err := p.update(id, func(j *domain.Job) {
		j.Status = domain.JobStatusDownloaded
		j.Progress = 100
		j.Message = "720p download complete."
	}); err != nil {
		return "", err
	}
	return source, nil
}

// checkDuration removes the source and fails the job when it runs longer than
// the configured maximum. A failed probe is logged and the job proceeds.
func (p *Pipeline) checkDuration(ctx context.Context, id, source string) error {
	if p.tools.Prober == nil {
		return nil
	}
	result, err := p.tools.Prober.Probe(ctx, source)
	if err != nil {
		logger.Warn.Printf("job %s: duration probe failed, continuing: %v", id, err)
		return nil
	}

	duration := result.DurationSeconds()
	if err := p.update(id, func(j *domain.Job) { j.SourceDurationSeconds = duration }); err != nil {
		return err
	}

	maxSeconds := p.cfg.MaxDurationSeconds
	if duration <= float64(maxSeconds) {
		return nil
	}

	removeBestEffort(id, source)
	msg := fmt.Sprintf("Video is too long (%.0fs). Maximum allowed is %d minutes (%ds).", duration, maxSeconds/60, maxSeconds)
	return domain.NewStageError(domain.StageFetch, msg, fmt.Errorf("%s lasts %s: %w", filepath.Base(source), domain.FormatDuration(duration), domain.ErrSourceTooLong))
}

func (p *Pipeline) upscale(ctx context.Context, id, source string) (string, error) {
	if err := p.enterStage(id, domain.StageUpscale, domain.JobStatusUpscaling, "Upscaling to 1080p...", true); err != nil {
		return "", err
	}

	output := p.cfg.Layout.IntermediatePath(id)
	inv := p.tools.Upscaler.UpscaleCommand(source, output)
	if err := p.runStage(ctx, id, inv, progress.ParseFilter); err != nil {
		removeBestEffort(id, output)
		return "", domain.NewStageError(domain.StageUpscale, p.failureMessage(ctx, err, msgUpscaleFailed), err)
	}
	if _, err := requireOutput(output); err != nil {
		removeBestEffort(id, output)
		return "", domain.NewStageError(domain.StageUpscale, msgUpscaleFailed, err)
	}

	removeBestEffort(id, source)

	if err := p.update(id, func(j *domain.Job) {
		j.Status = domain.JobStatusUpscaled
		j.Progress = 100
		j.ProgressIndeterminate = false
		j.Message = "1080p upscale complete."
	}); err != nil {
		return "", err
	}
	return output, nil
}

func (p *Pipeline) transcode(ctx context.Context, job *domain.Job, input string) (string, error) {
	id := job.ID
	if err := p.enterStage(id, domain.StageTranscode, domain.JobStatusEncoding, "Transcoding with HandBrake...", false); err != nil {
		return "", err
	}

	target := domain.TargetFor(job)
	output := p.cfg.Layout.FinalPath(id, target.Extension)
	inv := p.tools.Transcoder.TranscodeCommand(input, output, target)
	if err := p.runStage(ctx, id, inv, progress.ParseTranscode); err != nil {
		removeBestEffort(id, output)
		return "", domain.NewStageError(domain.StageTranscode, p.failureMessage(ctx, err, msgTranscodeFailed), err)
	}
	if _, err := requireOutput(output); err != nil {
		removeBestEffort(id, output)
		return "", domain.NewStageError(domain.StageTranscode, msgTranscodeFailed, err)
	}

	removeBestEffort(id, input)
	return output, nil
}

func (p *Pipeline) complete(id, final string) error {
	info, err := requireOutput(final)
	if err != nil {
		return domain.NewStageError(domain.StageTranscode, msgTranscodeFailed, err)
	}
	sizeMB := domain.BytesToMB(info.Size())
	logger.Info.Printf("job %s: artifact %s (%s)", id, filepath.Base(final), domain.FormatSize(info.Size()))

	return p.update(id, func(j *domain.Job) {
		j.Status = domain.JobStatusCompleted
		j.Progress = 100
		j.ProgressIndeterminate = false
		j.Message = fmt.Sprintf("All conversions complete! (%.2f MB)", sizeMB)
		j.ArtifactPath = final
		j.ArtifactFilename = filepath.Base(final)
		j.ArtifactSizeMB = sizeMB
	})
}

func (p *Pipeline) enterStage(id string, stage domain.Stage, status domain.JobStatus, msg string, indeterminate bool) error {
	return p.update(id, func(j *domain.Job) {
		j.Stage = stage
		j.Status = status
		j.Progress = 0
		j.ProgressIndeterminate = indeterminate
		j.Message = msg
	})
}

// runStage runs one tool under the stage timeout and folds its parsed output
// into the job. Lines the parser rejects leave the job untouched.
func (p *Pipeline) runStage(ctx context.Context, id string, inv domain.Invocation, parse progress.Parser) error {
	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	logger.Debug.Printf("job %s: exec %s", id, logger.SanitizeForLog(inv.String()))

	_, err := p.runner.Run(stageCtx, inv.Name, inv.Args, func(line string) {
		u, ok := parse(line)
		if !ok {
			return
		}
		if err := p.update(id, func(j *domain.Job) {
			if u.HasPercent {
				j.Progress = u.Percent
			}
			j.Message = u.Message
		}); err != nil {
			logger.Debug.Printf("job %s: progress update dropped: %v", id, err)
		}
	})
	return err
}

func (p *Pipeline) failureMessage(ctx context.Context, err error, msg string) string {
	switch {
	case errors.Is(err, domain.ErrStageTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("%s (job timed out after %s)", msg, p.cfg.JobTimeout)
	case errors.Is(err, domain.ErrStageTimeout):
		return fmt.Sprintf("%s (stage timed out after %s)", msg, p.cfg.StageTimeout)
	case errors.Is(err, context.Canceled):
		return msg + " (canceled)"
	default:
		return msg
	}
}

// findDownload returns the file the fetch tool produced for id. A merged mp4
// wins over other leftovers.
func (p *Pipeline) findDownload(id string) (string, error) {
	dir := p.cfg.Layout.DownloadDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}

	prefix := p.cfg.Layout.DownloadPrefix(id)
	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, prefix) || isPartial(name) {
			continue
		}
		if name == prefix+"mp4" {
			return filepath.Join(dir, name), nil
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no file with prefix %s: %w", prefix, domain.ErrMissingOutput)
	}
	sort.Strings(candidates)
	return filepath.Join(dir, candidates[0]), nil
}

func (p *Pipeline) update(id string, fn func(*domain.Job)) error {
	if _, err := p.registry.Update(id, fn); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (p *Pipeline) fail(id, msg string) {
	_, err := p.registry.Update(id, func(j *domain.Job) {
		j.Status = domain.JobStatusError
		j.ProgressIndeterminate = false
		j.Message = msg
	})
	if err != nil && !errors.Is(err, domain.ErrTerminal) {
		logger.Error.Printf("job %s: cannot record failure: %v", id, err)
	}
}

func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func requireOutput(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", filepath.Base(path), domain.ErrMissingOutput, err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return nil, fmt.Errorf("%s is empty: %w", filepath.Base(path), domain.ErrMissingOutput)
	}
	return info, nil
}

func removeBestEffort(id, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn.Printf("job %s: cleanup %s: %v", id, filepath.Base(path), err)
	}
}
