package capture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionNotFound    = errors.New("capture session not found")
	ErrUnknownProfile     = errors.New("unknown capture profile")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrMissingFields      = errors.New("required fields missing")
	ErrUnknownField       = errors.New("unknown companion field")
	ErrNoPreview          = errors.New("session has no image")
	ErrNoChallenge        = errors.New("session has no verification challenge")
)

// TransitionError reports an event that is not allowed in the current state.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", strings.ReplaceAll(string(e.Event), "_", " "), e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// MissingFieldsError lists the required companion fields that are empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Please fill in: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return ErrMissingFields }
