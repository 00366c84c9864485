package responses

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hivoco/lens-kiosk/internal/domain/acquisition"
	"github.com/hivoco/lens-kiosk/internal/domain/capture"
	"github.com/hivoco/lens-kiosk/internal/domain/faces"
	"github.com/hivoco/lens-kiosk/internal/domain/imaging"
	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/validation"
	"github.com/hivoco/lens-kiosk/internal/domain/verification"
	"github.com/hivoco/lens-kiosk/internal/domain/videos"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/auth"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

// StatusClientClosedRequest is used when the caller went away mid-request.
const StatusClientClosedRequest = 499

const (
	msgIncompleteOTP    = "Please enter complete 6-digit OTP"
	msgInvalidVideoID   = "Please enter a valid ADA number or 10-digit mobile number"
	msgVideoNotFound    = "No video found for this mobile number"
	msgVideoUnavailable = "Video not found or service unavailable"
	msgNotZip           = "Please select a valid ZIP file (.zip)"
	msgUploadAborted    = "Upload cancelled"
)

type mapping struct {
	sentinel error
	errType  platformerrors.ErrorType
	status   int
	message  string
}

// domainErrors is checked in order; the first match wins.
var domainErrors = []mapping{
	{sentinel: capture.ErrSessionNotFound, errType: platformerrors.ErrorTypeNotFound},
	{sentinel: capture.ErrNoPreview, errType: platformerrors.ErrorTypeNotFound},
	{sentinel: capture.ErrUnknownProfile, errType: platformerrors.ErrorTypeValidation},
	{sentinel: capture.ErrUnknownField, errType: platformerrors.ErrorTypeValidation},
	{sentinel: capture.ErrMissingFields, errType: platformerrors.ErrorTypeValidation},
	{sentinel: submission.ErrInvalidFields, errType: platformerrors.ErrorTypeValidation},
	{sentinel: capture.ErrSubmissionInFlight, errType: platformerrors.ErrorTypeConflict},
	{sentinel: capture.ErrInvalidTransition, errType: platformerrors.ErrorTypeConflict},
	{sentinel: capture.ErrNoChallenge, errType: platformerrors.ErrorTypeConflict},

	{sentinel: validation.ErrTooLarge, errType: platformerrors.ErrorTypeTooLarge},
	{sentinel: validation.ErrUnsupportedType, errType: platformerrors.ErrorTypeUnsupported},
	{sentinel: imaging.ErrTooManyPixels, errType: platformerrors.ErrorTypeTooLarge},
	{sentinel: imaging.ErrEncodeFailure, errType: platformerrors.ErrorTypeValidation, message: "Unable to process this image. Please try another photo."},

	{sentinel: acquisition.ErrInsecureContext, errType: platformerrors.ErrorTypeForbidden},
	{sentinel: acquisition.ErrPermissionDenied, errType: platformerrors.ErrorTypeForbidden},
	{sentinel: acquisition.ErrDeviceBusy, errType: platformerrors.ErrorTypeConflict},
	{sentinel: acquisition.ErrDeviceNotFound, errType: platformerrors.ErrorTypeUnavailable},
	{sentinel: acquisition.ErrNotOpen, errType: platformerrors.ErrorTypeConflict},

	{sentinel: verification.ErrIncomplete, errType: platformerrors.ErrorTypeValidation, message: msgIncompleteOTP},
	{sentinel: verification.ErrNotDigit, errType: platformerrors.ErrorTypeValidation},
	{sentinel: verification.ErrSlotOutOfRange, errType: platformerrors.ErrorTypeValidation},
	{sentinel: verification.ErrInvalidPaste, errType: platformerrors.ErrorTypeValidation},
	{sentinel: verification.ErrInvalidCode, errType: platformerrors.ErrorTypeValidation},
	{sentinel: verification.ErrVerifyInProgress, errType: platformerrors.ErrorTypeConflict},
	{sentinel: verification.ErrChallengeClosed, errType: platformerrors.ErrorTypeConflict},
	{sentinel: verification.ErrTransient, errType: platformerrors.ErrorTypeExternal},

	{sentinel: videos.ErrInvalidIdentifier, errType: platformerrors.ErrorTypeValidation, message: msgInvalidVideoID},
	{sentinel: videos.ErrVideoNotFound, errType: platformerrors.ErrorTypeNotFound, message: msgVideoNotFound},
	{sentinel: videos.ErrUnavailable, errType: platformerrors.ErrorTypeUnavailable, message: msgVideoUnavailable},

	{sentinel: faces.ErrNotZip, errType: platformerrors.ErrorTypeValidation, message: msgNotZip},
	{sentinel: faces.ErrTooLarge, errType: platformerrors.ErrorTypeTooLarge},
	{sentinel: faces.ErrUploadAborted, status: StatusClientClosedRequest, message: msgUploadAborted},
	{sentinel: jobs.ErrInvalidFilter, errType: platformerrors.ErrorTypeValidation},

	{sentinel: auth.ErrInvalidCredentials, errType: platformerrors.ErrorTypeUnauthorized},
	{sentinel: auth.ErrLoginDisabled, errType: platformerrors.ErrorTypeForbidden},

	{sentinel: context.Canceled, status: StatusClientClosedRequest, message: "request cancelled"},
	{sentinel: context.DeadlineExceeded, errType: platformerrors.ErrorTypeTimeout, message: "request timed out"},
}

// HandleError maps domain and platform errors to HTTP responses.
func HandleError(c *gin.Context, err error) {
	detail, status, ok := describe(c, err)
	if !ok {
		logger := log.With().Str("path", c.Request.URL.Path).Logger()
		platformerrors.WriteError(c, err, logger)
		return
	}
	c.JSON(status, ErrorResponse{Error: detail})
}

// HandleSessionError writes err together with the session it left behind.
func HandleSessionError(c *gin.Context, view *capture.View, err error) {
	if view == nil {
		HandleError(c, err)
		return
	}
	detail, status, ok := describe(c, err)
	if !ok {
		pe := platformerrors.AsError(c.Request.Context(), platformerrors.LayerHandler, err, "capture operation failed")
		platformerrors.LogError(log.Logger, pe)
		status = platformerrors.ErrorTypeToHTTPStatus(pe.Type)
		detail = &ErrorDetail{
			Message:   pe.Message,
			Type:      platformerrors.ErrorTypeString(pe.Type),
			Code:      pe.UUID,
			RequestID: c.GetString("request_id"),
		}
	}
	c.JSON(status, SessionErrorResponse{Error: detail, Session: view})
}

// HandleNewError writes a typed error raised at the route layer.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	c.JSON(platformerrors.ErrorTypeToHTTPStatus(errorType), ErrorResponse{
		Error: &ErrorDetail{
			Message:   message,
			Type:      platformerrors.ErrorTypeString(errorType),
			RequestID: c.GetString("request_id"),
		},
	})
}

func describe(c *gin.Context, err error) (*ErrorDetail, int, bool) {
	if platformerrors.GetPlatformError(err) != nil {
		return nil, 0, false
	}
	for _, m := range domainErrors {
		if !errors.Is(err, m.sentinel) {
			continue
		}
		status := m.status
		errType := "client_closed_request"
		if status == 0 {
			status = platformerrors.ErrorTypeToHTTPStatus(m.errType)
			errType = platformerrors.ErrorTypeString(m.errType)
		}
		msg := m.message
		if msg == "" {
			msg = userMessage(err, m.sentinel)
		}
		return &ErrorDetail{Message: msg, Type: errType, RequestID: c.GetString("request_id")}, status, true
	}
	return nil, 0, false
}

// userMessage strips the sentinel prefix added by fmt.Errorf("%w: ...").
func userMessage(err, sentinel error) string {
	var acqErr *acquisition.Error
	if errors.As(err, &acqErr) {
		return acqErr.Message
	}
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}
