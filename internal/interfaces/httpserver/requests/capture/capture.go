// Package capture contains HTTP request DTOs for capture session endpoints.
package capture

// CreateSessionRequest selects the capture profile of a new session.
type CreateSessionRequest struct {
	Profile string `json:"profile" binding:"required"`
}

// OpenCameraRequest carries the facing preference. Empty means the front camera.
type OpenCameraRequest struct {
	Facing string `json:"facing" binding:"omitempty,oneof=user environment"`
	Width  int    `json:"width" binding:"omitempty,min=1,max=7680"`
	Height int    `json:"height" binding:"omitempty,min=1,max=4320"`
}

// SetFieldsRequest replaces companion field values. Blank values clear a field.
type SetFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// DigitRequest enters one OTP digit; an empty value clears the slot.
type DigitRequest struct {
	Index *int   `json:"index" binding:"required,min=0,max=5"`
	Value string `json:"value" binding:"omitempty,len=1"`
}

// PasteRequest pastes a whole code.
type PasteRequest struct {
	Code string `json:"code" binding:"required"`
}

// BackspaceRequest clears a slot, moving back when it is already empty.
type BackspaceRequest struct {
	Index *int `json:"index" binding:"required,min=0,max=5"`
}
