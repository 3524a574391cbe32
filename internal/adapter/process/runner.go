// Package process runs external tools and streams their merged output line by
// line.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
)

const (
	defaultMaxLine   = 1 << 20
	defaultWaitDelay = 5 * time.Second
)

type Runner struct {
	// MaxLine bounds a single delivered line. Longer runs of output without
	// a line break are delivered in MaxLine chunks.
	MaxLine int
	// WaitDelay bounds how long Wait keeps draining output after the
	// process was killed.
	WaitDelay time.Duration
}

func NewRunner() *Runner {
	return &Runner{MaxLine: defaultMaxLine, WaitDelay: defaultWaitDelay}
}

// Run starts name with args, feeds every non-empty output line to onLine and
// waits for the process to exit. Stdout and stderr share one pipe so lines
// arrive in the order the tool wrote them.
func (r *Runner) Run(ctx context.Context, name string, args []string, onLine func(string)) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, contextError(name, err)
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	configure(cmd)
	cmd.WaitDelay = r.waitDelay()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("%s: stdout pipe: %w: %w", name, domain.ErrToolLaunch, err)
	}
	cmd.Stderr = cmd.Stdout

	logger.Debug.Printf("exec: %s %s", name, logger.SanitizeForLog(strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("%s: %w: %w", name, domain.ErrToolLaunch, err)
	}

	finished := false
	defer func() {
		if !finished {
			_ = killGroup(cmd)
			_ = cmd.Wait()
		}
	}()

	tool := filepath.Base(name)
	r.scan(stdout, func(line string) {
		logger.Debug.Printf("[%s] %s", tool, logger.SanitizeForLog(line))
		if onLine != nil {
			onLine(line)
		}
	})

	waitErr := cmd.Wait()
	finished = true

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, contextError(name, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return 0, nil
	case errors.As(waitErr, &exitErr):
		return exitErr.ExitCode(), fmt.Errorf("%s: %w: %w", name, domain.ErrToolExit, waitErr)
	case errors.Is(waitErr, exec.ErrWaitDelay):
		logger.Warn.Printf("%s exited but left its output open", tool)
		return 0, nil
	default:
		return -1, fmt.Errorf("%s: wait: %w: %w", name, domain.ErrToolExit, waitErr)
	}
}

func (r *Runner) scan(rd io.Reader, emit func(string)) {
	maxLine := r.MaxLine
	if maxLine <= 0 {
		maxLine = defaultMaxLine
	}

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	scanner.Split(splitLines(maxLine))
	for scanner.Scan() {
		line := strings.TrimRight(strings.ToValidUTF8(scanner.Text(), ""), " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		emit(line)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn.Printf("output scan stopped: %v", err)
	}
	// The child must never block on a full pipe.
	_, _ = io.Copy(io.Discard, rd)
}

// splitLines breaks output on both \n and \r. Progress meters redraw a single
// terminal line with carriage returns, and every redraw is a separate update.
func splitLines(maxLine int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			return i + 1, data[:i], nil
		}
		if atEOF || len(data) >= maxLine {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

func (r *Runner) waitDelay() time.Duration {
	if r.WaitDelay > 0 {
		return r.WaitDelay
	}
	return defaultWaitDelay
}

func contextError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", name, domain.ErrStageTimeout, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}

var _ port.ProcessRunner = (*Runner)(nil)
