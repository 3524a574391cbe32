//go:build unix

package process

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/clipforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func runShell(t *testing.T, ctx context.Context, script string) (int, []string, error) {
	t.Helper()
	rec := &lineRecorder{}
	code, err := NewRunner().Run(ctx, "/bin/sh", []string{"-c", script}, rec.add)
	return code, rec.all(), err
}

func TestRunner_SplitsCarriageReturns(t *testing.T) {
	code, lines, err := runShell(t, context.Background(), `printf 'Encoding: 1.00 %%\rEncoding: 2.00 %%\r\nlast\n'`)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"Encoding: 1.00 %", "Encoding: 2.00 %", "last"}, lines)
}

func TestRunner_MergesStderr(t *testing.T) {
	code, lines, err := runShell(t, context.Background(), `echo out; echo err 1>&2; echo out2`)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.ElementsMatch(t, []string{"out", "err", "out2"}, lines)
}

func TestRunner_SkipsBlankLinesAndInvalidUTF8(t *testing.T) {
	_, lines, err := runShell(t, context.Background(), `printf '\n   \n\377ok\n'`)

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, lines)
}

func TestRunner_NonZeroExit(t *testing.T) {
	code, lines, err := runShell(t, context.Background(), `echo failing; exit 3`)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrToolExit))
	assert.Equal(t, 3, code)
	assert.Equal(t, []string{"failing"}, lines)
}

func TestRunner_LaunchFailure(t *testing.T) {
	code, err := NewRunner().Run(context.Background(), "/nonexistent/clipforge-tool", nil, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrToolLaunch))
	assert.Equal(t, -1, code)
}

func TestRunner_TimeoutKillsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	// The background sleep inherits the pipe; only a group kill closes it.
	code, _, err := runShell(t, ctx, `sleep 30 & echo started; wait`)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStageTimeout))
	assert.Equal(t, -1, code)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunner_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	code, err := NewRunner().Run(ctx, "/bin/sh", []string{"-c", "echo hi"}, func(string) { called = true })

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, domain.ErrStageTimeout))
	assert.Equal(t, -1, code)
	assert.False(t, called)
}

func TestRunner_LongLineIsChunked(t *testing.T) {
	r := &Runner{MaxLine: 1024}
	rec := &lineRecorder{}

	code, err := r.Run(context.Background(), "/bin/sh", []string{"-c", `head -c 5000 /dev/zero | tr '\0' a; echo; echo tail`}, rec.add)

	require.NoError(t, err)
	assert.Equal(t, 0, code)

	lines := rec.all()
	require.NotEmpty(t, lines)
	assert.Equal(t, "tail", lines[len(lines)-1])

	total := 0
	for _, line := range lines[:len(lines)-1] {
		assert.LessOrEqual(t, len(line), 1024)
		total += len(line)
	}
	assert.Equal(t, 5000, total)
}

func TestSplitLines(t *testing.T) {
	split := splitLines(8)

	advance, token, err := split([]byte("ab\rcd"), false)
	require.NoError(t, err)
	assert.Equal(t, 3, advance)
	assert.Equal(t, "ab", string(token))

	advance, token, _ = split([]byte("abc"), false)
	assert.Equal(t, 0, advance)
	assert.Nil(t, token)

	advance, token, _ = split([]byte("abc"), true)
	assert.Equal(t, 3, advance)
	assert.Equal(t, "abc", string(token))

	advance, token, _ = split([]byte(strings.Repeat("x", 8)), false)
	assert.Equal(t, 8, advance)
	assert.Len(t, token, 8)
}
