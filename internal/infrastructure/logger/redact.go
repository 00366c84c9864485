package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// PIILevel controls how personal data is written to logs.
type PIILevel string

const (
	// PIILevelNone replaces personal data with a fixed marker.
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces personal data with a salted hash prefix so
	// repeated values can still be correlated.
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull logs values unchanged.
	PIILevelFull PIILevel = "full"
)

var (
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	mobilePattern = regexp.MustCompile(`\b[0-9]{10}\b`)
)

// Redactor strips attendee mobile numbers and emails from log fields such
// as request paths. A nil Redactor logs values unchanged.
type Redactor struct {
	level PIILevel
	salt  string
}

// NewRedactor creates a redactor. Unknown levels fall back to hashed.
func NewRedactor(level PIILevel, salt string) *Redactor {
	switch level {
	case PIILevelNone, PIILevelHashed, PIILevelFull:
	default:
		level = PIILevelHashed
	}
	return &Redactor{level: level, salt: salt}
}

// Redact replaces personal data in s according to the configured level.
func (r *Redactor) Redact(s string) string {
	if r == nil || r.level == PIILevelFull || s == "" {
		return s
	}

	s = emailPattern.ReplaceAllStringFunc(s, func(m string) string {
		return r.marker("EMAIL", m)
	})
	return mobilePattern.ReplaceAllStringFunc(s, func(m string) string {
		return r.marker("MOBILE", m)
	})
}

func (r *Redactor) marker(kind, value string) string {
	if r.level == PIILevelNone {
		return "[" + kind + "]"
	}
	return "[" + kind + ":" + r.hash(value) + "]"
}

func (r *Redactor) hash(value string) string {
	sum := sha256.Sum256([]byte(value + r.salt))
	return hex.EncodeToString(sum[:])[:8]
}
