// Package captureres contains HTTP response DTOs for capture session endpoints.
package captureres

import (
	"github.com/hivoco/lens-kiosk/internal/domain/capture"
)

// ListSessionsResponse represents the response for listing sessions.
type ListSessionsResponse struct {
	Object string          `json:"object"`
	Data   []*capture.View `json:"data"`
}

// DeleteSessionResponse represents the response for deleting a session.
type DeleteSessionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// ProfileResponse describes a capture profile to the UI.
type ProfileResponse struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	MaxBytes       int64    `json:"max_bytes"`
	AllowedTypes   []string `json:"allowed_types"`
	Compresses     bool     `json:"compresses"`
	RequiredFields []string `json:"required_fields"`
	Endpoint       string   `json:"endpoint"`
}

// ListProfilesResponse lists the configured capture profiles.
type ListProfilesResponse struct {
	Object string             `json:"object"`
	Data   []*ProfileResponse `json:"data"`
}

// NewListSessionsResponse wraps session views.
func NewListSessionsResponse(views []*capture.View) *ListSessionsResponse {
	if views == nil {
		views = []*capture.View{}
	}
	return &ListSessionsResponse{Object: "list", Data: views}
}

// NewDeleteSessionResponse creates a DeleteSessionResponse.
func NewDeleteSessionResponse(id string) *DeleteSessionResponse {
	return &DeleteSessionResponse{ID: id, Object: "capture.session.deleted", Deleted: true}
}

// NewListProfilesResponse describes profiles in name order.
func NewListProfilesResponse(profiles capture.Profiles) *ListProfilesResponse {
	data := make([]*ProfileResponse, 0, len(profiles))
	for _, name := range profiles.Names() {
		p := profiles[name]
		required := p.RequiredFields
		if required == nil {
			required = []string{}
		}
		data = append(data, &ProfileResponse{
			Name:           p.Name,
			Description:    p.Description,
			MaxBytes:       p.Policy.MaxBytes,
			AllowedTypes:   p.Policy.AllowedTypes,
			Compresses:     p.Compression != nil,
			RequiredFields: required,
			Endpoint:       string(p.Endpoint),
		})
	}
	return &ListProfilesResponse{Object: "list", Data: data}
}
