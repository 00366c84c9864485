package capture

// Event drives a capture session from one status to the next.
type Event string

const (
	EventFileChosen          Event = "choose_file"
	EventFileRejected        Event = "reject_file"
	EventOpenCamera          Event = "open_camera"
	EventCameraFailed        Event = "fail_camera"
	EventCapture             Event = "capture"
	EventCaptureRejected     Event = "reject_capture"
	EventCancelCamera        Event = "cancel_camera"
	EventRetake              Event = "retake"
	EventSubmit              Event = "submit"
	EventSubmissionSucceeded Event = "complete_submission"
	EventSubmissionFailed    Event = "fail_submission"
	EventSubmissionCancelled Event = "cancel_submission"
	EventChallengeIssued     Event = "issue_challenge"
	EventVerified            Event = "verify"
	EventAbandonChallenge    Event = "abandon_challenge"
	EventReset               Event = "reset"
)

var transitions = map[Status]map[Event]Status{
	StatusIdle: {
		EventFileChosen:   StatusPreviewing,
		EventFileRejected: StatusIdle,
		EventOpenCamera:   StatusCameraOpen,
		EventCameraFailed: StatusIdle,
	},
	StatusCameraOpen: {
		EventCapture:         StatusPreviewing,
		EventCaptureRejected: StatusIdle,
		EventCancelCamera:    StatusIdle,
		EventOpenCamera:      StatusCameraOpen,
		EventCameraFailed:    StatusIdle,
	},
	StatusPreviewing: {
		EventRetake: StatusIdle,
		EventSubmit: StatusSubmitting,
	},
	StatusSubmitting: {
		EventSubmissionSucceeded: StatusSucceeded,
		EventSubmissionFailed:    StatusFailed,
		EventSubmissionCancelled: StatusPreviewing,
		EventChallengeIssued:     StatusAwaitingVerification,
	},
	StatusAwaitingVerification: {
		EventVerified:         StatusSucceeded,
		EventAbandonChallenge: StatusPreviewing,
	},
	StatusSucceeded: {
		EventReset: StatusIdle,
	},
	StatusFailed: {
		EventReset:  StatusIdle,
		EventRetake: StatusIdle,
		EventSubmit: StatusSubmitting,
	},
}

// Next returns the status reached from from on ev.
func Next(from Status, ev Event) (Status, error) {
	to, ok := transitions[from][ev]
	if !ok {
		return from, &TransitionError{From: from, Event: ev}
	}
	return to, nil
}

// Allows reports whether ev is accepted in status from.
func Allows(from Status, ev Event) bool {
	_, ok := transitions[from][ev]
	return ok
}
