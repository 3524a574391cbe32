package domain

import (
	"path/filepath"
	"strings"
)

// Layout names the three job directories. Every file a job produces is
// prefixed with the job id so stage handoff and the sweep work on names alone.
type Layout struct {
	DownloadDir     string
	IntermediateDir string
	FinalDir        string
}

func NewLayout(dataDir string) Layout {
	return Layout{
		DownloadDir:     filepath.Join(dataDir, "downloads"),
		IntermediateDir: filepath.Join(dataDir, "converted"),
		FinalDir:        filepath.Join(dataDir, "final"),
	}
}

func (l Layout) Dirs() []string {
	return []string{l.DownloadDir, l.IntermediateDir, l.FinalDir}
}

// DownloadPrefix is the name prefix shared by every file the fetch tool writes
// for a job.
func (l Layout) DownloadPrefix(id string) string {
	return id + "_720p."
}

// DownloadTemplate is the fetch tool output template.
func (l Layout) DownloadTemplate(id string) string {
	return filepath.Join(l.DownloadDir, l.DownloadPrefix(id)+"%(ext)s")
}

func (l Layout) IntermediatePath(id string) string {
	return filepath.Join(l.IntermediateDir, id+"_1080p.mp4")
}

func (l Layout) FinalPath(id, extension string) string {
	return filepath.Join(l.FinalDir, id+"_final."+strings.TrimPrefix(extension, "."))
}
