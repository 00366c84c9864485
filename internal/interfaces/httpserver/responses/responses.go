// Package responses contains HTTP response DTOs and error writers for the kiosk API.
package responses

import "github.com/hivoco/lens-kiosk/internal/domain/capture"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SessionErrorResponse is an error that left the capture session in a
// recoverable state; the session is returned so the UI can render it.
type SessionErrorResponse struct {
	Error   *ErrorDetail  `json:"error"`
	Session *capture.View `json:"session,omitempty"`
}

// StatusResponse is a plain acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}
