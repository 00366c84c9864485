package verification

import (
	"errors"
	"strings"
	"sync"
)

// CodeLength is the fixed number of OTP slots.
const CodeLength = 6

// AttemptState is the state of a verification attempt.
type AttemptState string

const (
	StateEntering  AttemptState = "entering"
	StateVerifying AttemptState = "verifying"
	StateVerified  AttemptState = "verified"
	StateRejected  AttemptState = "rejected"
)

var (
	ErrNotDigit         = errors.New("otp slot accepts a single digit")
	ErrSlotOutOfRange   = errors.New("otp slot out of range")
	ErrInvalidPaste     = errors.New("pasted code must be exactly 6 digits")
	ErrIncomplete       = errors.New("otp incomplete")
	ErrVerifyInProgress = errors.New("verification already in progress")
	ErrChallengeClosed  = errors.New("challenge already verified")

	// ErrInvalidCode means the backend refused the code.
	ErrInvalidCode = errors.New("invalid code")
	// ErrTransient means the code could not be checked; retrying may succeed.
	ErrTransient = errors.New("verification temporarily unavailable")
)

// Challenge is a six slot one-time-code entry bound to a subject (mobile number).
// It is safe for concurrent use.
type Challenge struct {
	mu      sync.Mutex
	subject string
	jobID   string
	digits  [CodeLength]byte
	focus   int
	state   AttemptState
	failure error
	message string
	resends int
}

// NewChallenge creates an empty challenge for subject. jobID is the job the
// backend created before asking for verification, if it reported one.
func NewChallenge(subject, jobID string) *Challenge {
	return &Challenge{subject: subject, jobID: jobID, state: StateEntering}
}

// Subject returns the identifier the code was sent to.
func (c *Challenge) Subject() string { return c.subject }

// EnterDigit writes value into slot index and advances focus. An empty value
// clears the slot. Any other non-digit input is rejected and no slot changes.
func (c *Challenge) EnterDigit(index int, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= CodeLength {
		return ErrSlotOutOfRange
	}
	if value == "" {
		c.digits[index] = 0
		c.focus = index
		c.touchLocked()
		return nil
	}
	if len(value) != 1 || value[0] < '0' || value[0] > '9' {
		return ErrNotDigit
	}

	c.digits[index] = value[0]
	if index < CodeLength-1 {
		c.focus = index + 1
	} else {
		c.focus = index
	}
	c.touchLocked()
	return nil
}

// Paste fills every slot from a 6 digit code and focuses the last slot.
// Anything else leaves the slots unchanged.
func (c *Challenge) Paste(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if len(code) != CodeLength {
		return ErrInvalidPaste
	}
	for i := 0; i < CodeLength; i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrInvalidPaste
		}
	}
	copy(c.digits[:], code)
	c.focus = CodeLength - 1
	c.touchLocked()
	return nil
}

// Backspace clears slot index when it holds a digit. On an empty slot it only
// moves focus to the previous slot.
func (c *Challenge) Backspace(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= CodeLength {
		return ErrSlotOutOfRange
	}
	if c.digits[index] != 0 {
		c.digits[index] = 0
		c.focus = index
	} else if index > 0 {
		c.focus = index - 1
	}
	c.touchLocked()
	return nil
}

// begin moves the challenge to verifying and returns the code to check.
func (c *Challenge) begin() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateVerified:
		return "", ErrChallengeClosed
	case StateVerifying:
		return "", ErrVerifyInProgress
	}
	for _, d := range c.digits {
		if d == 0 {
			return "", ErrIncomplete
		}
	}
	c.state = StateVerifying
	c.failure = nil
	c.message = ""
	return string(c.digits[:]), nil
}

func (c *Challenge) complete(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateVerified
	if jobID != "" {
		c.jobID = jobID
	}
	c.failure = nil
	c.message = ""
}

func (c *Challenge) reject(kind error, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateRejected
	c.failure = kind
	c.message = message
}

// abort returns a verifying challenge to entering, used when the caller gave up.
func (c *Challenge) abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateVerifying {
		c.state = StateEntering
	}
}

func (c *Challenge) clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	c.digits = [CodeLength]byte{}
	c.focus = 0
	c.state = StateEntering
	c.failure = nil
	c.message = ""
	c.resends++
	return nil
}

func (c *Challenge) editableLocked() error {
	switch c.state {
	case StateVerified:
		return ErrChallengeClosed
	case StateVerifying:
		return ErrVerifyInProgress
	}
	return nil
}

// touchLocked drops a previous rejection once the user edits the code.
func (c *Challenge) touchLocked() {
	if c.state == StateRejected {
		c.state = StateEntering
		c.failure = nil
		c.message = ""
	}
}

// View is a point-in-time copy of a challenge.
type View struct {
	Subject string       `json:"subject"`
	Digits  []string     `json:"digits"`
	Focus   int          `json:"focus"`
	State   AttemptState `json:"state"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
	JobID   string       `json:"job_id,omitempty"`
	Resends int          `json:"resends"`
}

// Snapshot copies the challenge state.
func (c *Challenge) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	digits := make([]string, CodeLength)
	for i, d := range c.digits {
		if d != 0 {
			digits[i] = string(rune(d))
		}
	}
	v := View{
		Subject: c.subject,
		Digits:  digits,
		Focus:   c.focus,
		State:   c.state,
		Message: c.message,
		JobID:   c.jobID,
		Resends: c.resends,
	}
	switch {
	case errors.Is(c.failure, ErrInvalidCode):
		v.Error = "invalid_code"
	case errors.Is(c.failure, ErrTransient):
		v.Error = "transient"
	}
	return v
}

// State returns the current attempt state.
func (c *Challenge) State() AttemptState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// JobID returns the verified (or pre-announced) job id.
func (c *Challenge) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID
}
