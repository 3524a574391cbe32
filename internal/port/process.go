package port

import "context"

// ProcessRunner runs one external process to completion, delivering each
// output line to onLine. The exit code is -1 when the process never started
// or was killed.
type ProcessRunner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) (exitCode int, err error)
}
