package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/port"
)

const probeTimeout = 30 * time.Second

type Prober struct {
	binary string
	runner port.ProcessRunner
}

func NewProber(binary string, runner port.ProcessRunner) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, runner: runner}
}

func (p *Prober) Probe(ctx context.Context, path string) (*domain.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	var out strings.Builder
	if _, err := p.runner.Run(ctx, p.binary, args, func(line string) {
		out.WriteString(line)
		out.WriteByte('\n')
	}); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var result domain.ProbeResult
	if err := json.Unmarshal([]byte(out.String()), &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &result, nil
}

var _ port.MediaProber = (*Prober)(nil)
