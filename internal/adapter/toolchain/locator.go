// Package toolchain resolves the external tools the pipeline shells out to.
package toolchain

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
)

const moduleProbeTimeout = 10 * time.Second

// Tools names the configured executables. Entries may be bare names or paths.
type Tools struct {
	FetchTool        string
	FetchInterpreter string
	FetchModule      string
	FFmpeg           string
	FFprobe          string
	HandBrake        string
}

// Locator finds executables on PATH first and then inside the bundled tools
// directory.
type Locator struct {
	toolsDir string
	lookPath func(string) (string, error)
	walkDir  func(string, fs.WalkDirFunc) error
	runner   port.ProcessRunner
}

func NewLocator(toolsDir string, runner port.ProcessRunner) *Locator {
	return &Locator{
		toolsDir: toolsDir,
		lookPath: exec.LookPath,
		walkDir:  filepath.WalkDir,
		runner:   runner,
	}
}

// Locate returns the path of name, or name itself when it cannot be found so
// the eventual launch failure names the missing tool.
func (l *Locator) Locate(name string) string {
	if path, ok := l.find(name); ok {
		return path
	}
	return name
}

func (l *Locator) Available(name string) bool {
	_, ok := l.find(name)
	return ok
}

func (l *Locator) find(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if path, err := l.lookPath(name); err == nil {
		return path, true
	}
	if l.toolsDir == "" {
		return "", false
	}

	prefix := strings.ToLower(filepath.Base(name))
	var found string
	err := l.walkDir(l.toolsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, the rest is still searched.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(strings.ToLower(d.Name()), prefix) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn.Printf("scan tools dir %s: %v", l.toolsDir, err)
	}
	return found, found != ""
}

// ProbeModule reports whether interpreter can import module, by running
// "<interpreter> -m <module> --version".
func (l *Locator) ProbeModule(ctx context.Context, interpreter, module string) bool {
	if interpreter == "" || module == "" || l.runner == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, moduleProbeTimeout)
	defer cancel()

	_, err := l.runner.Run(ctx, l.Locate(interpreter), []string{"-m", module, "--version"}, nil)
	if err != nil {
		logger.Debug.Printf("module probe %s -m %s: %v", interpreter, module, err)
		return false
	}
	return true
}

// Resolve returns t with every executable replaced by its located path.
func (l *Locator) Resolve(t Tools) Tools {
	r := t
	if t.FetchInterpreter != "" {
		r.FetchInterpreter = l.Locate(t.FetchInterpreter)
	} else {
		r.FetchTool = l.Locate(t.FetchTool)
	}
	r.FFmpeg = l.Locate(t.FFmpeg)
	r.FFprobe = l.Locate(t.FFprobe)
	r.HandBrake = l.Locate(t.HandBrake)
	return r
}

// Checker produces the tool availability report.
type Checker struct {
	locator *Locator
	tools   Tools
}

func NewChecker(locator *Locator, tools Tools) *Checker {
	return &Checker{locator: locator, tools: tools}
}

// Check reports each collaborator. When the fetch tool runs as a module of
// an interpreter, fetchLib reflects whether the module imports; otherwise it
// mirrors downloadTool.
func (c *Checker) Check(ctx context.Context) domain.ToolReport {
	report := domain.ToolReport{
		FilterTool:    c.locator.Available(c.tools.FFmpeg),
		TranscodeTool: c.locator.Available(c.tools.HandBrake),
		ProbeTool:     c.locator.Available(c.tools.FFprobe),
	}

	if c.tools.FetchInterpreter != "" {
		report.DownloadTool = c.locator.Available(c.tools.FetchInterpreter)
		report.FetchLib = report.DownloadTool && c.locator.ProbeModule(ctx, c.tools.FetchInterpreter, c.tools.FetchModule)
		return report
	}

	report.DownloadTool = c.locator.Available(c.tools.FetchTool)
	report.FetchLib = report.DownloadTool
	return report
}

var _ port.ToolChecker = (*Checker)(nil)
