package submission

import (
	"context"
	"errors"
)

// Endpoint names the backend operation a profile submits to.
type Endpoint string

const (
	EndpointSearchFace      Endpoint = "search_face"
	EndpointUpdateCSVRecord Endpoint = "update_csv_record"
	EndpointVideoSubmit     Endpoint = "video_submit"
)

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	switch e {
	case EndpointSearchFace, EndpointUpdateCSVRecord, EndpointVideoSubmit:
		return true
	}
	return false
}

// OutcomeKind classifies the result of one submission.
type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeValidationRejected OutcomeKind = "validation_rejected"
	OutcomeTransientFailure   OutcomeKind = "transient_failure"
	// OutcomeNotFound is a successful call that matched nothing. It is not an error.
	OutcomeNotFound OutcomeKind = "not_found"
)

// Succeeded reports whether the outcome ends the session in a success state.
func (k OutcomeKind) Succeeded() bool {
	return k == OutcomeSuccess || k == OutcomeNotFound
}

// Outcome is the result attached to a session's terminal state.
type Outcome struct {
	Kind    OutcomeKind `json:"kind"`
	Payload any         `json:"payload,omitempty"`
	Message string      `json:"message"`
	// Reason is the taxonomy name of a failure: ServerRejected, TransientNetworkFailure or NotFound.
	Reason string `json:"reason,omitempty"`
}

// Verification reports the challenge subject when the backend asked for an OTP.
func (o *Outcome) Verification() (*VideoSubmission, bool) {
	if o == nil || o.Kind != OutcomeSuccess {
		return nil, false
	}
	v, ok := o.Payload.(*VideoSubmission)
	if !ok || v.Status != VideoStatusOTPSent {
		return nil, false
	}
	return v, true
}

const (
	ReasonServerRejected   = "ServerRejected"
	ReasonTransientFailure = "TransientNetworkFailure"
	ReasonNotFound         = "NotFound"
)

var (
	// ErrSubmissionCancelled is returned when the caller aborted an in-flight submission.
	ErrSubmissionCancelled = errors.New("submission cancelled")
	// ErrInvalidFields is returned when companion fields fail validation before any network call.
	ErrInvalidFields       = errors.New("invalid companion fields")
	ErrUnknownEndpoint     = errors.New("unknown submission endpoint")
)

// Image is the payload sent to the backend.
type Image struct {
	Name     string
	MimeType string
	Data     []byte
}

// Match is one face search hit.
type Match struct {
	ImageURL   string  `json:"image_url"`
	Similarity float64 `json:"similarity,omitempty"`
	Filename   string  `json:"filename,omitempty"`
}

// SearchResult is the face search response.
type SearchResult struct {
	Results []Match `json:"results"`
}

// RecordUpdate is the CSV record update response.
type RecordUpdate struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// CSVRecord identifies the row to link a photo to.
type CSVRecord struct {
	AdaNo     string
	NewNumber string
	CSVFile   string
}

const (
	VideoStatusOTPSent      = "otp_sent"
	VideoStatusVideoCreated = "video_created"
)

// VideoRequest carries the companion fields of a video job.
type VideoRequest struct {
	MobileNumber       string
	Gender             string
	AttributeLove      string
	RelationshipStatus string
	Vibe               string
}

// VideoSubmission is the video job creation response.
type VideoSubmission struct {
	Status       string `json:"status"`
	JobID        string `json:"job_id,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
	Message      string `json:"message,omitempty"`
}

// PhotoCheck is the backend photo pre-check verdict.
type PhotoCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// Backend is the remote recognition and video service.
type Backend interface {
	SearchFace(ctx context.Context, img Image) (*SearchResult, error)
	UpdateCSVRecord(ctx context.Context, img Image, rec CSVRecord) (*RecordUpdate, error)
	SubmitVideo(ctx context.Context, img Image, req VideoRequest) (*VideoSubmission, error)
	CheckPhoto(ctx context.Context, img Image) (*PhotoCheck, error)
}

// Request is one submission from a capture session.
type Request struct {
	Endpoint   Endpoint
	Image      Image
	Fields     map[string]string
	PhotoCheck bool
}
