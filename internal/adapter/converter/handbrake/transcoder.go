// Package handbrake builds HandBrakeCLI command lines.
package handbrake

import (
	"strconv"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/port"
)

type Transcoder struct {
	binary string
}

func NewTranscoder(binary string) *Transcoder {
	if binary == "" {
		binary = "HandBrakeCLI"
	}
	return &Transcoder{binary: binary}
}

// TranscodeCommand encodes to 1920x1080 at 30 fps with 192 kbps AAC audio.
// x264 and x265 additionally get the main profile, level 4.1 and the
// requested speed preset.
func (t *Transcoder) TranscodeCommand(inputPath, outputPath string, target domain.Target) domain.Invocation {
	args := []string{
		"-i", inputPath,
		"-o", outputPath,
		"-e", target.Encoder,
		"-q", strconv.Itoa(target.Quality),
		"--width", "1920",
		"--height", "1080",
		"-B", "192",
		"--aencoder", "av_aac",
		"-r", "30",
		"--optimize",
	}
	if domain.UsesX26xControls(target.Encoder) {
		args = append(args,
			"--encoder-profile", "main",
			"--encoder-level", "4.1",
			"--encoder-preset", target.Preset,
		)
	}
	return domain.Invocation{Name: t.binary, Args: args}
}

var _ port.Transcoder = (*Transcoder)(nil)
