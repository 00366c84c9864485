package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
	"github.com/hivoco/lens-kiosk/internal/domain/imaging"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/validation"
	"github.com/hivoco/lens-kiosk/internal/domain/verification"
	"github.com/hivoco/lens-kiosk/internal/utils/idgen"
)

// knownFields are the companion fields any profile may carry.
var knownFields = map[string]struct{}{
	"ada_no":              {},
	"phone":               {},
	"csv_file":            {},
	"mobile_number":       {},
	"gender":              {},
	"attribute_love":      {},
	"relationship_status": {},
	"vibe":                {},
}

// Service drives capture sessions through the capture flow.
type Service interface {
	Create(ctx context.Context, profile string) (*View, error)
	Get(ctx context.Context, id string) (*View, error)
	List(ctx context.Context) ([]*View, error)
	Delete(ctx context.Context, id string) error

	ChooseFile(ctx context.Context, id string, file FileInput) (*View, error)
	OpenCamera(ctx context.Context, id string, pref acquisition.Preference) (*View, error)
	Capture(ctx context.Context, id string) (*View, error)
	CancelCamera(ctx context.Context, id string) (*View, error)
	Retake(ctx context.Context, id string) (*View, error)
	SetFields(ctx context.Context, id string, fields map[string]string) (*View, error)
	Submit(ctx context.Context, id string) (*View, error)
	Wait(ctx context.Context, id string) (*View, error)
	CancelSubmission(ctx context.Context, id string) (*View, error)
	Reset(ctx context.Context, id string) (*View, error)
	Preview(ctx context.Context, id string) ([]byte, string, error)

	EnterDigit(ctx context.Context, id string, index int, value string) (*View, error)
	PasteCode(ctx context.Context, id string, code string) (*View, error)
	Backspace(ctx context.Context, id string, index int) (*View, error)
	Verify(ctx context.Context, id string) (*View, error)
	ResendCode(ctx context.Context, id string) (*View, error)
	AbandonChallenge(ctx context.Context, id string) (*View, error)

	// ReapIdle deletes sessions untouched since before cutoff.
	ReapIdle(ctx context.Context, cutoff time.Time) (int, error)
}

// Option customises the service.
type Option func(*service)

// WithTransitionHook registers fn to observe every status change.
func WithTransitionHook(fn func(from, to string)) Option {
	return func(s *service) { s.onTransition = fn }
}

// WithLifecycleHooks registers callbacks run after a session is created or deleted.
func WithLifecycleHooks(created, deleted func()) Option {
	return func(s *service) {
		s.onCreated = created
		s.onDeleted = deleted
	}
}

// WithRequireSecureCamera refuses to open the camera for insecure clients.
func WithRequireSecureCamera(require bool) Option {
	return func(s *service) { s.requireSecure = require }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	store    Store
	camera   acquisition.Camera
	adapter  *submission.Adapter
	verifier *verification.Service
	profiles Profiles
	log      zerolog.Logger

	requireSecure bool
	now           func() time.Time
	onTransition  func(from, to string)
	onCreated     func()
	onDeleted     func()
}

// NewService creates a capture service.
func NewService(
	store Store,
	camera acquisition.Camera,
	adapter *submission.Adapter,
	verifier *verification.Service,
	profiles Profiles,
	log zerolog.Logger,
	opts ...Option,
) Service {
	s := &service{
		store:         store,
		camera:        camera,
		adapter:       adapter,
		verifier:      verifier,
		profiles:      profiles,
		log:           log.With().Str("component", "capture-service").Logger(),
		requireSecure: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, profileName string) (*View, error) {
	profile, ok := s.profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProfile, profileName, strings.Join(s.profiles.Names(), ", "))
	}

	now := s.now()
	sess := &Session{
		ID:        idgen.New("cap"),
		Profile:   profile,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    map[string]string{},
		surface:   acquisition.NewSurface(s.camera, s.requireSecure, s.log),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	if s.onCreated != nil {
		s.onCreated()
	}

	s.log.Info().Str("session_id", sess.ID).Str("profile", profile.Name).Msg("capture session created")
	return sess.Snapshot(), nil
}

func (s *service) Get(ctx context.Context, id string) (*View, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

func (s *service) List(ctx context.Context) ([]*View, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*View, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sess.Snapshot())
	}
	return views, nil
}

// Delete releases the camera, aborts any submission and forgets the session.
func (s *service) Delete(ctx context.Context, id string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	s.teardownLocked(sess)
	sess.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.onDeleted != nil {
		s.onDeleted()
	}
	s.log.Info().Str("session_id", id).Msg("capture session deleted")
	return nil
}

func (s *service) ReapIdle(ctx context.Context, cutoff time.Time) (int, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, sess := range sessions {
		sess.mu.Lock()
		idle := sess.UpdatedAt.Before(cutoff)
		id := sess.ID
		sess.mu.Unlock()
		if !idle {
			continue
		}
		if err := s.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return reaped, err
		}
		reaped++
	}
	return reaped, nil
}

func (s *service) ChooseFile(ctx context.Context, id string, file FileInput) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventFileChosen) {
			return &TransitionError{From: sess.Status, Event: EventFileChosen}
		}
		return s.accept(sess, SourceFile, file, EventFileChosen, EventFileRejected)
	})
}

func (s *service) OpenCamera(ctx context.Context, id string, pref acquisition.Preference) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventOpenCamera) {
			return &TransitionError{From: sess.Status, Event: EventOpenCamera}
		}
		if err := sess.surface.Open(ctx, pref); err != nil {
			sess.CameraError = cameraProblem(err)
			s.transition(sess, EventCameraFailed)
			return err
		}
		sess.CameraError = nil
		sess.ValidationError = nil
		s.transition(sess, EventOpenCamera)
		return nil
	})
}

func (s *service) Capture(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventCapture) {
			return &TransitionError{From: sess.Status, Event: EventCapture}
		}
		frame, err := sess.surface.Capture(ctx)
		if err != nil {
			sess.CameraError = cameraProblem(err)
			s.transition(sess, EventCameraFailed)
			return err
		}
		name := fmt.Sprintf("capture-%d.jpg", s.now().Unix())
		return s.accept(sess, SourceCamera, FileInput{Name: name, MimeType: "image/jpeg", Data: frame}, EventCapture, EventCaptureRejected)
	})
}

func (s *service) CancelCamera(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventCancelCamera) {
			return &TransitionError{From: sess.Status, Event: EventCancelCamera}
		}
		_ = sess.surface.Close()
		s.transition(sess, EventCancelCamera)
		return nil
	})
}

func (s *service) Retake(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventRetake) {
			return &TransitionError{From: sess.Status, Event: EventRetake}
		}
		_ = sess.surface.Close()
		sess.clearMediaLocked()
		sess.Outcome = nil
		sess.ValidationError = nil
		s.transition(sess, EventRetake)
		return nil
	})
}

func (s *service) SetFields(ctx context.Context, id string, fields map[string]string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		switch sess.Status {
		case StatusSubmitting, StatusAwaitingVerification, StatusSucceeded:
			return &TransitionError{From: sess.Status, Event: "set_fields"}
		}
		for k := range fields {
			if _, ok := knownFields[k]; !ok {
				return fmt.Errorf("%w: %s", ErrUnknownField, k)
			}
		}
		for k, v := range fields {
			v = strings.TrimSpace(v)
			if v == "" {
				delete(sess.Fields, k)
				continue
			}
			sess.Fields[k] = v
		}
		return nil
	})
}

// Submit starts the submission in the background. Use Wait to block until it settles.
func (s *service) Submit(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Status == StatusSubmitting {
			return ErrSubmissionInFlight
		}
		if !Allows(sess.Status, EventSubmit) {
			return &TransitionError{From: sess.Status, Event: EventSubmit}
		}
		if missing := submission.Missing(sess.Profile.RequiredFields, sess.Fields); len(missing) > 0 {
			return &MissingFieldsError{Fields: missing}
		}
		if err := s.adapter.Fields().Check(sess.Profile.Endpoint, sess.Fields); err != nil {
			return err
		}

		fields := make(map[string]string, len(sess.Fields))
		for k, v := range sess.Fields {
			fields[k] = v
		}
		req := submission.Request{
			Endpoint:   sess.Profile.Endpoint,
			Image:      submission.Image{Name: sess.FileName, MimeType: sess.MimeType, Data: sess.Data},
			Fields:     fields,
			PhotoCheck: sess.Profile.PhotoCheck,
		}

		// The submission outlives the request that started it.
		subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		sess.attempt++
		sess.Attempts++
		sess.cancel = cancel
		sess.done = done
		sess.Outcome = nil
		s.transition(sess, EventSubmit)

		go s.runSubmission(subCtx, sess, sess.attempt, done, req)
		return nil
	})
}

func (s *service) runSubmission(ctx context.Context, sess *Session, attempt int, done chan struct{}, req submission.Request) {
	defer close(done)
	start := time.Now()

	outcome, err := s.adapter.Submit(ctx, req)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.attempt != attempt || sess.Status != StatusSubmitting {
		// Cancelled or torn down while in flight; the session has moved on.
		return
	}
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}

	log := s.log.With().Str("session_id", sess.ID).Str("endpoint", string(req.Endpoint)).Dur("elapsed", time.Since(start)).Logger()

	switch {
	case errors.Is(err, submission.ErrSubmissionCancelled):
		s.transition(sess, EventSubmissionCancelled)
		log.Info().Msg("submission cancelled")
		return
	case err != nil:
		sess.Outcome = &submission.Outcome{
			Kind:    submission.OutcomeValidationRejected,
			Message: err.Error(),
			Reason:  submission.ReasonServerRejected,
		}
		s.transition(sess, EventSubmissionFailed)
		log.Warn().Err(err).Msg("submission refused")
		return
	}

	sess.Outcome = outcome
	if v, ok := outcome.Verification(); ok {
		sess.challenge = verification.NewChallenge(v.MobileNumber, v.JobID)
		s.transition(sess, EventChallengeIssued)
		log.Info().Str("job_id", v.JobID).Msg("verification required")
		return
	}
	if outcome.Kind.Succeeded() {
		s.transition(sess, EventSubmissionSucceeded)
	} else {
		s.transition(sess, EventSubmissionFailed)
	}
	log.Info().Str("outcome", string(outcome.Kind)).Msg("submission settled")
}

func (s *service) Wait(ctx context.Context, id string) (*View, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	done := sess.done
	sess.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return sess.Snapshot(), nil
}

// CancelSubmission aborts the in-flight call and returns the session to
// previewing with its bytes untouched.
func (s *service) CancelSubmission(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventSubmissionCancelled) {
			return &TransitionError{From: sess.Status, Event: EventSubmissionCancelled}
		}
		if sess.cancel != nil {
			sess.cancel()
			sess.cancel = nil
		}
		s.transition(sess, EventSubmissionCancelled)
		return nil
	})
}

func (s *service) Reset(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventReset) {
			return &TransitionError{From: sess.Status, Event: EventReset}
		}
		_ = sess.surface.Close()
		sess.clearMediaLocked()
		sess.Fields = map[string]string{}
		sess.Outcome = nil
		sess.ValidationError = nil
		sess.CameraError = nil
		sess.challenge = nil
		s.transition(sess, EventReset)
		return nil
	})
}

func (s *service) Preview(ctx context.Context, id string) ([]byte, string, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.Data) == 0 {
		return nil, "", ErrNoPreview
	}
	return sess.Data, sess.MimeType, nil
}

func (s *service) EnterDigit(ctx context.Context, id string, index int, value string) (*View, error) {
	return s.withChallenge(ctx, id, func(ch *verification.Challenge) error {
		return ch.EnterDigit(index, value)
	})
}

func (s *service) PasteCode(ctx context.Context, id string, code string) (*View, error) {
	return s.withChallenge(ctx, id, func(ch *verification.Challenge) error {
		return ch.Paste(code)
	})
}

func (s *service) Backspace(ctx context.Context, id string, index int) (*View, error) {
	return s.withChallenge(ctx, id, func(ch *verification.Challenge) error {
		return ch.Backspace(index)
	})
}

// Verify checks the code without holding the session lock during the call.
func (s *service) Verify(ctx context.Context, id string) (*View, error) {
	sess, ch, err := s.challengeOf(ctx, id)
	if err != nil {
		return nil, err
	}

	jobID, verr := s.verifier.Verify(ctx, ch)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.UpdatedAt = s.now()
	if verr != nil {
		return sess.viewLocked(), verr
	}
	if sess.challenge != ch || sess.Status != StatusAwaitingVerification {
		return sess.viewLocked(), nil
	}
	if sess.Outcome != nil {
		outcome := *sess.Outcome
		outcome.Message = "Verified. Your video is being created"
		outcome.Payload = &submission.VideoSubmission{Status: "verified", JobID: jobID, MobileNumber: ch.Subject()}
		sess.Outcome = &outcome
	}
	s.transition(sess, EventVerified)
	return sess.viewLocked(), nil
}

func (s *service) ResendCode(ctx context.Context, id string) (*View, error) {
	sess, ch, err := s.challengeOf(ctx, id)
	if err != nil {
		return nil, err
	}
	rerr := s.verifier.Resend(ctx, ch)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.UpdatedAt = s.now()
	return sess.viewLocked(), rerr
}

// AbandonChallenge drops the challenge and keeps the image for another try.
func (s *service) AbandonChallenge(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !Allows(sess.Status, EventAbandonChallenge) {
			return &TransitionError{From: sess.Status, Event: EventAbandonChallenge}
		}
		sess.challenge = nil
		sess.Outcome = nil
		s.transition(sess, EventAbandonChallenge)
		return nil
	})
}

func (s *service) withChallenge(ctx context.Context, id string, fn func(*verification.Challenge) error) (*View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Status != StatusAwaitingVerification || sess.challenge == nil {
			return ErrNoChallenge
		}
		return fn(sess.challenge)
	})
}

func (s *service) challengeOf(ctx context.Context, id string) (*Session, *verification.Challenge, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.Status != StatusAwaitingVerification || sess.challenge == nil {
		return nil, nil, ErrNoChallenge
	}
	return sess, sess.challenge, nil
}

// mutate runs fn under the session lock and returns the resulting view.
// The view is returned alongside fn's error so callers can show recovered state.
func (s *service) mutate(ctx context.Context, id string, fn func(*Session) error) (*View, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	err = fn(sess)
	sess.UpdatedAt = s.now()
	return sess.viewLocked(), err
}

// accept validates bytes, applies the profile transform and moves the
// session to previewing, or records the validation error and applies reject.
func (s *service) accept(sess *Session, source SourceKind, file FileInput, ok, reject Event) error {
	profile := sess.Profile

	declared := file.Size
	if declared <= 0 {
		declared = int64(len(file.Data))
	}
	mimeType, err := validation.Validate(file.Data, file.MimeType, declared, profile.Policy)
	if err != nil {
		sess.ValidationError = validationProblem(err)
		s.transition(sess, reject)
		return err
	}

	data := file.Data
	name := file.Name
	sess.TransformWarning = ""
	sess.Compressed = false
	sess.OriginalBytes = int64(len(file.Data))

	var size imaging.Size
	if profile.Compression != nil {
		res, cerr := imaging.Compress(file.Data, *profile.Compression)
		switch {
		case cerr == nil:
			data = res.Data
			mimeType = res.MimeType
			size = res.Size
			sess.Compressed = !res.Unchanged
			if sess.Compressed {
				name = jpegName(name)
			}
		case errors.Is(cerr, imaging.ErrTooManyPixels):
			sess.ValidationError = validationProblem(cerr)
			s.transition(sess, reject)
			return cerr
		case profile.FallbackToOriginal:
			s.log.Warn().Err(cerr).Str("session_id", sess.ID).Msg("compression failed, submitting original")
			sess.TransformWarning = "Compression failed; the original image will be submitted."
		default:
			sess.ValidationError = &Problem{Kind: "encode_failure", Message: "Unable to process this image. Please try another photo."}
			s.transition(sess, reject)
			return cerr
		}
	}
	if size.Width == 0 {
		if dims, derr := imaging.Dimensions(data); derr == nil {
			size = dims
		}
	}

	sess.Source = source
	sess.FileName = name
	sess.MimeType = mimeType
	sess.Data = data
	sess.Width = size.Width
	sess.Height = size.Height
	sess.ValidationError = nil
	sess.CameraError = nil
	s.transition(sess, ok)
	return nil
}

func (s *service) transition(sess *Session, ev Event) {
	to, err := Next(sess.Status, ev)
	if err != nil {
		// Callers check Allows first; reaching here is a programming error.
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("rejected transition")
		return
	}
	from := sess.Status
	sess.Status = to
	if s.onTransition != nil {
		s.onTransition(string(from), string(to))
	}
	s.log.Debug().Str("session_id", sess.ID).Str("from", string(from)).Str("to", string(to)).Str("event", string(ev)).Msg("state transition")
}

// teardownLocked releases the camera and aborts any in-flight submission.
func (s *service) teardownLocked(sess *Session) {
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.attempt++
	if err := sess.surface.Close(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("release camera on teardown")
	}
	sess.challenge = nil
}

func validationProblem(err error) *Problem {
	kind := "invalid"
	switch {
	case errors.Is(err, validation.ErrTooLarge), errors.Is(err, imaging.ErrTooManyPixels):
		kind = "too_large"
	case errors.Is(err, validation.ErrUnsupportedType):
		kind = "unsupported_type"
	}
	var verr *validation.Error
	if errors.As(err, &verr) {
		return &Problem{Kind: kind, Message: verr.Message}
	}
	if errors.Is(err, imaging.ErrTooManyPixels) {
		return &Problem{Kind: kind, Message: strings.TrimPrefix(err.Error(), imaging.ErrTooManyPixels.Error()+": ")}
	}
	return &Problem{Kind: kind, Message: err.Error()}
}

func cameraProblem(err error) *Problem {
	var aerr *acquisition.Error
	if !errors.As(err, &aerr) {
		return &Problem{Kind: "device_busy", Message: err.Error()}
	}
	kind := "device_busy"
	switch {
	case errors.Is(aerr.Kind, acquisition.ErrPermissionDenied):
		kind = "permission_denied"
	case errors.Is(aerr.Kind, acquisition.ErrDeviceNotFound):
		kind = "device_not_found"
	case errors.Is(aerr.Kind, acquisition.ErrInsecureContext):
		kind = "insecure_context"
	case errors.Is(aerr.Kind, acquisition.ErrNotOpen):
		kind = "not_open"
	}
	return &Problem{Kind: kind, Message: aerr.Message}
}

func jpegName(name string) string {
	if name == "" {
		return "photo.jpg"
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name + ".jpg"
}
