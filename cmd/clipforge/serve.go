package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/bnema/clipforge/config"
	"github.com/bnema/clipforge/internal/adapter/converter/ffmpeg"
	"github.com/bnema/clipforge/internal/adapter/converter/handbrake"
	"github.com/bnema/clipforge/internal/adapter/fetcher/ytdlp"
	HTTPAdapter "github.com/bnema/clipforge/internal/adapter/http"
	"github.com/bnema/clipforge/internal/adapter/process"
	"github.com/bnema/clipforge/internal/adapter/storage/memory"
	"github.com/bnema/clipforge/internal/adapter/storage/sqlite"
	"github.com/bnema/clipforge/internal/adapter/toolchain"
	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/service"
)

const (
	lockFileName    = "clipforge.lock"
	shutdownTimeout = 30 * time.Second
)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP job API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	layout := domain.NewLayout(cfg.DataDir)
	for _, dir := range append([]string{cfg.DataDir}, layout.Dirs()...) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	lock := flock.New(filepath.Join(cfg.DataDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another clipforge server is already using %s", cfg.DataDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn.Printf("failed to release lock: %v", err)
		}
	}()

	runner := process.NewRunner()
	locator := toolchain.NewLocator(cfg.ToolsDir, runner)
	tools := locator.Resolve(toolsFromConfig(cfg))
	logger.Info.Printf("tools: fetch=%s interpreter=%s ffmpeg=%s ffprobe=%s handbrake=%s",
		tools.FetchTool, tools.FetchInterpreter, tools.FFmpeg, tools.FFprobe, tools.HandBrake)

	fetcher := ytdlp.New(tools.FetchTool)
	if tools.FetchInterpreter != "" {
		fetcher = ytdlp.NewModule(tools.FetchInterpreter, tools.FetchModule)
	}
	fetcher = fetcher.WithFFmpeg(tools.FFmpeg)

	eventBus := service.NewEventBus()
	registry := memory.NewRegistry(eventBus)

	if cfg.ArchiveEnabled {
		archive, err := sqlite.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer func() { _ = archive.Close() }()

		recorder := service.NewArchiveRecorder(archive, eventBus)
		recorder.Start()
		// Registered after archive.Close so it runs first.
		defer recorder.Stop()
	}

	sweeper := service.NewSweeper(layout, time.Duration(cfg.SweepMaxAge))
	pipeline := service.NewPipeline(registry, runner, service.Tools{
		Fetcher:    fetcher,
		Upscaler:   ffmpeg.NewUpscaler(tools.FFmpeg),
		Transcoder: handbrake.NewTranscoder(tools.HandBrake),
		Prober:     ffmpeg.NewProber(tools.FFprobe, runner),
	}, sweeper, service.PipelineConfig{
		Layout:             layout,
		MaxDurationSeconds: cfg.MaxDurationSeconds,
		StageTimeout:       time.Duration(cfg.StageTimeout),
		JobTimeout:         time.Duration(cfg.JobTimeout),
	})

	// Jobs outlive requests but not the server.
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	jobs := service.NewJobService(jobsCtx, registry, pipeline)

	go sweeper.Run(jobsCtx, time.Duration(cfg.SweepInterval))

	server := HTTPAdapter.NewServer(jobs, toolchain.NewChecker(locator, tools), HTTPAdapter.Options{
		StartRateLimit: cfg.StartRateLimit,
		BehindProxy:    cfg.BehindProxy,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info.Printf("server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			cancelJobs()
			jobs.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info.Printf("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("http shutdown error: %v", err)
	}

	// Running tools are killed and their jobs end in error.
	cancelJobs()
	jobs.Wait()

	logger.Info.Printf("shutdown complete")
	return nil
}
