// Package ffmpeg builds ffmpeg command lines and probes media with ffprobe.
package ffmpeg

import (
	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/port"
)

type Upscaler struct {
	binary string
}

func NewUpscaler(binary string) *Upscaler {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Upscaler{binary: binary}
}

// UpscaleCommand scales to 1920x1080 with lanczos into an H.264/AAC mp4 with
// the moov atom up front.
func (u *Upscaler) UpscaleCommand(inputPath, outputPath string) domain.Invocation {
	return domain.Invocation{
		Name: u.binary,
		Args: []string{
			"-i", inputPath,
			"-vf", "scale=1920:1080:flags=lanczos",
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", "18",
			"-c:a", "aac",
			"-b:a", "192k",
			"-movflags", "+faststart",
			"-y", outputPath,
		},
	}
}

var _ port.Upscaler = (*Upscaler)(nil)
