package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

const (
	msgNoMatches       = "No matching faces found"
	msgTransient       = "Unable to submit. Please check your connection and try again."
	msgTimeout         = "The request timed out. Please try again."
	msgRecordUpdated   = "Record updated successfully"
	msgRecordFailed    = "Failed to update record"
	msgOTPSent         = "OTP sent to your mobile number"
	msgVideoCreated    = "Your video is being created"
	msgPhotoRejected   = "Please retake the photo"
	msgUnexpectedReply = "Unexpected response from server"
)

// Adapter performs submissions against the backend and maps every response,
// including failures, into an Outcome.
type Adapter struct {
	backend Backend
	fields  *FieldValidator
	log     zerolog.Logger
}

// NewAdapter creates a submission adapter.
func NewAdapter(backend Backend, fields *FieldValidator, log zerolog.Logger) *Adapter {
	return &Adapter{
		backend: backend,
		fields:  fields,
		log:     log.With().Str("component", "submission-adapter").Logger(),
	}
}

// Fields exposes the companion field validator used by the adapter.
func (a *Adapter) Fields() *FieldValidator { return a.fields }

// Submit sends req to the backend. The returned error is non-nil only when
// the submission was cancelled, the fields are invalid, or the endpoint is
// unknown. Every backend failure is reported as an Outcome.
func (a *Adapter) Submit(ctx context.Context, req Request) (*Outcome, error) {
	if req.PhotoCheck {
		check, err := a.backend.CheckPhoto(ctx, req.Image)
		if err != nil {
			return a.fromError(ctx, req.Endpoint, err)
		}
		if !check.Valid {
			reason := check.Reason
			if reason == "" {
				reason = msgPhotoRejected
			}
			return &Outcome{
				Kind:    OutcomeValidationRejected,
				Message: joinMessage(check.Message, reason),
				Reason:  ReasonServerRejected,
				Payload: check,
			}, nil
		}
	}

	switch req.Endpoint {
	case EndpointSearchFace:
		return a.searchFace(ctx, req)
	case EndpointUpdateCSVRecord:
		return a.updateRecord(ctx, req)
	case EndpointVideoSubmit:
		return a.submitVideo(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, req.Endpoint)
	}
}

func (a *Adapter) searchFace(ctx context.Context, req Request) (*Outcome, error) {
	res, err := a.backend.SearchFace(ctx, req.Image)
	if err != nil {
		return a.fromError(ctx, req.Endpoint, err)
	}
	if res == nil || len(res.Results) == 0 {
		return &Outcome{Kind: OutcomeNotFound, Message: msgNoMatches, Reason: ReasonNotFound, Payload: &SearchResult{Results: []Match{}}}, nil
	}
	return &Outcome{
		Kind:    OutcomeSuccess,
		Message: fmt.Sprintf("Found %d matching photos", len(res.Results)),
		Payload: res,
	}, nil
}

func (a *Adapter) updateRecord(ctx context.Context, req Request) (*Outcome, error) {
	rec, err := a.fields.CSVRecord(req.Fields)
	if err != nil {
		return nil, err
	}
	res, err := a.backend.UpdateCSVRecord(ctx, req.Image, rec)
	if err != nil {
		return a.fromError(ctx, req.Endpoint, err)
	}
	if !res.Status {
		return &Outcome{Kind: OutcomeValidationRejected, Message: orDefault(res.Message, msgRecordFailed), Reason: ReasonServerRejected, Payload: res}, nil
	}
	return &Outcome{Kind: OutcomeSuccess, Message: orDefault(res.Message, msgRecordUpdated), Payload: res}, nil
}

func (a *Adapter) submitVideo(ctx context.Context, req Request) (*Outcome, error) {
	vr, err := a.fields.Video(req.Fields)
	if err != nil {
		return nil, err
	}
	res, err := a.backend.SubmitVideo(ctx, req.Image, vr)
	if err != nil {
		return a.fromError(ctx, req.Endpoint, err)
	}
	if res.MobileNumber == "" {
		res.MobileNumber = vr.MobileNumber
	}

	switch res.Status {
	case VideoStatusOTPSent:
		return &Outcome{Kind: OutcomeSuccess, Message: orDefault(res.Message, msgOTPSent), Payload: res}, nil
	case VideoStatusVideoCreated:
		return &Outcome{Kind: OutcomeSuccess, Message: orDefault(res.Message, msgVideoCreated), Payload: res}, nil
	default:
		a.log.Warn().Str("status", res.Status).Msg("unexpected video submit status")
		return &Outcome{Kind: OutcomeTransientFailure, Message: msgUnexpectedReply, Reason: ReasonTransientFailure}, nil
	}
}

// fromError maps a backend error onto an outcome. Cancellation is returned as
// ErrSubmissionCancelled so the state machine can keep the image in preview.
func (a *Adapter) fromError(ctx context.Context, endpoint Endpoint, err error) (*Outcome, error) {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionCancelled, err)
	}

	pe := platformerrors.GetPlatformError(err)
	errType := platformerrors.ErrorTypeExternal
	if pe != nil {
		errType = pe.Type
	}

	a.log.Warn().Err(err).Str("endpoint", string(endpoint)).Str("error_type", string(errType)).Msg("submission failed")

	switch errType {
	case platformerrors.ErrorTypeValidation:
		return &Outcome{Kind: OutcomeValidationRejected, Message: orDefault(pe.Message, msgRecordFailed), Reason: ReasonServerRejected}, nil
	case platformerrors.ErrorTypeNotFound:
		msg := pe.Message
		if endpoint == EndpointSearchFace || msg == "" {
			msg = msgNoMatches
		}
		return &Outcome{Kind: OutcomeNotFound, Message: msg, Reason: ReasonNotFound}, nil
	case platformerrors.ErrorTypeTimeout:
		return &Outcome{Kind: OutcomeTransientFailure, Message: msgTimeout, Reason: ReasonTransientFailure}, nil
	default:
		return &Outcome{Kind: OutcomeTransientFailure, Message: msgTransient, Reason: ReasonTransientFailure}, nil
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func joinMessage(message, reason string) string {
	if message == "" {
		return reason
	}
	return message + ". Reason: " + reason
}
