package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrNotReady          = errors.New("artifact not ready")
	ErrMissingURL        = errors.New("url is required")
	ErrInvalidURL        = errors.New("url must start with http:// or https://")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminal          = errors.New("job is in a terminal state")
	ErrDuplicateID       = errors.New("job id already exists")

	ErrToolLaunch    = errors.New("external tool failed to start")
	ErrToolExit      = errors.New("external tool exited with failure")
	ErrStageTimeout  = errors.New("stage timed out")
	ErrMissingOutput = errors.New("expected output file missing")
	ErrSourceTooLong = errors.New("source exceeds maximum duration")
)

// StageError carries the user-facing message recorded on the job together with
// the underlying cause.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("stage %d: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("stage %d: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStageError builds a StageError for the given stage.
func NewStageError(stage Stage, message string, err error) *StageError {
	return &StageError{Stage: stage, Message: message, Err: err}
}
