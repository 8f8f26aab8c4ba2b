package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeclined means the user answered no to a confirmation.
	ErrDeclined = errors.New("declined by user")

	// ErrStale means the view that started the dispatch went away before the
	// backend answered; nothing was applied.
	ErrStale = errors.New("response discarded: view no longer current")

	// ErrBusy means another transition for the same record is in flight.
	ErrBusy = errors.New("another action is in progress for this hedge relationship")

	// ErrUnavailable means the action is not offered for the record's state
	// or the user lacks a role for it.
	ErrUnavailable = errors.New("action not available")

	ErrUnknownAction = errors.New("unknown action")
)

// ValidationError carries every guard message for a blocked action.
type ValidationError struct {
	Action   Action
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s blocked: %s", e.Action, strings.Join(e.Messages, "; "))
}

// RemoteError wraps a backend failure. The record is left unchanged.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s failed: %v", e.Op, e.Err) }

func (e *RemoteError) Unwrap() error { return e.Err }

func remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
