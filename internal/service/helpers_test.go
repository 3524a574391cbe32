package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/clipforge/internal/adapter/converter/ffmpeg"
	"github.com/bnema/clipforge/internal/adapter/converter/handbrake"
	"github.com/bnema/clipforge/internal/adapter/fetcher/ytdlp"
	"github.com/bnema/clipforge/internal/adapter/storage/memory"
	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/port"
	"github.com/stretchr/testify/require"
)

// toolFunc simulates one external tool. It receives the arguments the
// pipeline built and reports lines through emit.
type toolFunc func(ctx context.Context, args []string, emit func(string)) (int, error)

type fakeRunner struct {
	mu    sync.Mutex
	tools map[string]toolFunc
	calls []domain.Invocation
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{tools: make(map[string]toolFunc)}
}

func (f *fakeRunner) on(name string, fn toolFunc) *fakeRunner {
	f.tools[name] = fn
	return f
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, domain.Invocation{Name: name, Args: args})
	fn, ok := f.tools[name]
	f.mu.Unlock()
	if !ok {
		return -1, fmt.Errorf("%s: %w", name, domain.ErrToolLaunch)
	}
	return fn(ctx, args, onLine)
}

func (f *fakeRunner) invoked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		names = append(names, c.Name)
	}
	return names
}

func (f *fakeRunner) argsOf(name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Name == name {
			return c.Args
		}
	}
	return nil
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func writeFile(path string, size int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, make([]byte, size), 0o644)
}

const (
	downloadSize  = 300 * 1024
	upscaleSize   = 900 * 1024
	transcodeSize = 512 * 1024
)

func fetchOK(ctx context.Context, args []string, emit func(string)) (int, error) {
	out := strings.Replace(argAfter(args, "-o"), "%(ext)s", "mp4", 1)
	emit("[download] Destination: " + out)
	emit("[download]  42.0% of   10.00MiB at    1.00MiB/s ETA 00:06")
	emit("[download] 100% of   10.00MiB in 00:00:10 at 1.00MiB/s")
	return 0, writeFile(out, downloadSize)
}

func upscaleOK(ctx context.Context, args []string, emit func(string)) (int, error) {
	emit("frame=  100 fps= 25 q=28.0 size=    512kB time=00:00:04.00 bitrate=1048.6kbits/s speed=1x")
	return 0, writeFile(args[len(args)-1], upscaleSize)
}

func transcodeOK(ctx context.Context, args []string, emit func(string)) (int, error) {
	emit("Encoding: task 1 of 1, 37.50 % (30.00 fps, avg 31.00 fps, ETA 00h00m10s)")
	emit("Encoding: task 1 of 1, 100.00 %")
	return 0, writeFile(argAfter(args, "-o"), transcodeSize)
}

// recordingPublisher keeps every snapshot the registry publishes.
type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (p *recordingPublisher) Publish(job *domain.Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
}

func (p *recordingPublisher) snapshots() []*domain.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.Job(nil), p.jobs...)
}

// statusSequence collapses consecutive duplicates.
func (p *recordingPublisher) statusSequence() []domain.JobStatus {
	var seq []domain.JobStatus
	for _, j := range p.snapshots() {
		if len(seq) == 0 || seq[len(seq)-1] != j.Status {
			seq = append(seq, j.Status)
		}
	}
	return seq
}

func (p *recordingPublisher) firstWithStatus(status domain.JobStatus) *domain.Job {
	for _, j := range p.snapshots() {
		if j.Status == status {
			return j
		}
	}
	return nil
}

type pipelineFixture struct {
	layout    domain.Layout
	registry  *memory.Registry
	published *recordingPublisher
	runner    *fakeRunner
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T, prober port.MediaProber, cfg PipelineConfig) *pipelineFixture {
	t.Helper()
	layout := domain.NewLayout(t.TempDir())
	for _, dir := range layout.Dirs() {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	cfg.Layout = layout

	published := &recordingPublisher{}
	registry := memory.NewRegistry(published)
	runner := newFakeRunner()

	tools := Tools{
		Fetcher:    ytdlp.New("yt-dlp"),
		Upscaler:   ffmpeg.NewUpscaler("ffmpeg"),
		Transcoder: handbrake.NewTranscoder("HandBrakeCLI"),
	}
	if prober != nil {
		tools.Prober = prober
	}

	return &pipelineFixture{
		layout:    layout,
		registry:  registry,
		published: published,
		runner:    runner,
		pipeline:  NewPipeline(registry, runner, tools, NewSweeper(layout, DefaultSweepMaxAge), cfg),
	}
}

func (f *pipelineFixture) start(t *testing.T, spec domain.JobSpec) *domain.Job {
	t.Helper()
	if spec.SourceURL == "" {
		spec.SourceURL = "https://example.com/watch?v=short"
	}
	job, err := f.registry.Create(spec)
	require.NoError(t, err)
	f.pipeline.Run(context.Background(), job.ID)

	final, err := f.registry.Get(job.ID)
	require.NoError(t, err)
	return final
}
