package settings

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning = errors.New("task is already running")
	ErrTimedOut       = errors.New("settings service did not respond in time")
	ErrDraftClosed    = errors.New("draft is closed")
	ErrGraphSealed    = errors.New("visibility rules are already evaluated")
	ErrNotLoaded      = errors.New("settings are not loaded")
)

// LoadError reports a failed bulk load. The previous snapshot stays in place.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load settings: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// WriteError reports a rejected or failed single-key save.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// PathError reports a dotted path that cannot be resolved in the tree.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("settings path %q: %s", e.Path, e.Reason)
	}

	return fmt.Sprintf("settings path %q at %q: %s", e.Path, e.Segment, e.Reason)
}

func classifyCallError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimedOut) {
		return fmt.Errorf("%w: %w", ErrTimedOut, err)
	}

	return err
}
