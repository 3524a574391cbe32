package port

import (
	"context"

	"github.com/bnema/clipforge/internal/domain"
)

type Fetcher interface {
	FetchCommand(sourceURL, outputTemplate string) domain.Invocation
}

type Upscaler interface {
	UpscaleCommand(inputPath, outputPath string) domain.Invocation
}

type Transcoder interface {
	TranscodeCommand(inputPath, outputPath string, target domain.Target) domain.Invocation
}

type MediaProber interface {
	Probe(ctx context.Context, path string) (*domain.ProbeResult, error)
}

type ToolChecker interface {
	Check(ctx context.Context) domain.ToolReport
}
