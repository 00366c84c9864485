package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

const (
	msgInvalidCode = "Invalid OTP. Please try again."
	msgTransient   = "Failed to verify OTP. Please try again."
)

// Result is the backend verdict on a code.
type Result struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// Verifier checks and re-issues codes on the backend.
type Verifier interface {
	VerifyOTP(ctx context.Context, subject, code string) (*Result, error)
	// ResendOTP asks for a new code for the same pending job.
	ResendOTP(ctx context.Context, subject string) error
}

// Service runs verification attempts against the backend.
type Service struct {
	verifier Verifier
	log      zerolog.Logger
}

// NewService creates a verification service.
func NewService(verifier Verifier, log zerolog.Logger) *Service {
	return &Service{
		verifier: verifier,
		log:      log.With().Str("component", "otp-verification").Logger(),
	}
}

// Verify submits the entered code. It returns the job id on success,
// ErrInvalidCode or ErrTransient on failure, and leaves ch in the matching state.
func (s *Service) Verify(ctx context.Context, ch *Challenge) (string, error) {
	code, err := ch.begin()
	if err != nil {
		return "", err
	}

	res, err := s.verifier.VerifyOTP(ctx, ch.Subject(), code)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ch.abort()
			return "", err
		}
		kind, msg := classify(err)
		s.log.Warn().Err(err).Str("outcome", kind.Error()).Msg("otp verification failed")
		ch.reject(kind, msg)
		return "", fmt.Errorf("%w: %s", kind, msg)
	}

	if res == nil || res.Status != "verified" {
		ch.reject(ErrInvalidCode, msgInvalidCode)
		return "", fmt.Errorf("%w: %s", ErrInvalidCode, msgInvalidCode)
	}

	ch.complete(res.JobID)
	s.log.Info().Str("job_id", res.JobID).Msg("otp verified")
	return ch.JobID(), nil
}

// Resend clears the slots and asks the backend for a new code for the same job.
func (s *Service) Resend(ctx context.Context, ch *Challenge) error {
	if err := ch.clear(); err != nil {
		return err
	}
	if err := s.verifier.ResendOTP(ctx, ch.Subject()); err != nil {
		kind, msg := classify(err)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s", kind, msg)
	}
	s.log.Info().Msg("otp re-issued")
	return nil
}

func classify(err error) (error, string) {
	pe := platformerrors.GetPlatformError(err)
	if pe == nil {
		return ErrTransient, msgTransient
	}
	switch pe.Type {
	case platformerrors.ErrorTypeValidation, platformerrors.ErrorTypeUnauthorized, platformerrors.ErrorTypeNotFound:
		msg := pe.Message
		if msg == "" {
			msg = msgInvalidCode
		}
		return ErrInvalidCode, msg
	default:
		return ErrTransient, msgTransient
	}
}
