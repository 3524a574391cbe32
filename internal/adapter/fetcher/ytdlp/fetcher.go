// Package ytdlp builds yt-dlp command lines.
package ytdlp

import (
	"path/filepath"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/port"
)

const (
	DefaultModule = "yt_dlp"

	// formatSelector caps the source at 720p so the upscale stage always has
	// work to do and downloads stay small.
	formatSelector = "bestvideo[height<=720]+bestaudio/best[height<=720]"
)

type Fetcher struct {
	launcher       []string
	ffmpegLocation string
}

// New runs yt-dlp as a standalone executable.
func New(binary string) *Fetcher {
	return &Fetcher{launcher: []string{binary}}
}

// NewModule runs yt-dlp as "<interpreter> -m <module>".
func NewModule(interpreter, module string) *Fetcher {
	if module == "" {
		module = DefaultModule
	}
	return &Fetcher{launcher: []string{interpreter, "-m", module}}
}

// WithFFmpeg points yt-dlp at the ffmpeg used for merging formats. Bare names
// are left to yt-dlp's own PATH lookup.
func (f *Fetcher) WithFFmpeg(path string) *Fetcher {
	if filepath.IsAbs(path) {
		f.ffmpegLocation = path
	}
	return f
}

func (f *Fetcher) FetchCommand(sourceURL, outputTemplate string) domain.Invocation {
	args := append([]string{}, f.launcher[1:]...)
	args = append(args,
		"-f", formatSelector,
		"--merge-output-format", "mp4",
		"-o", outputTemplate,
		"--no-playlist",
		"--socket-timeout", "30",
		"--retries", "3",
		"--progress", "--newline",
	)
	if f.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", f.ffmpegLocation)
	}
	// "--" keeps a URL starting with a dash from being read as an option.
	args = append(args, "--", sourceURL)

	return domain.Invocation{Name: f.launcher[0], Args: args}
}

var _ port.Fetcher = (*Fetcher)(nil)
