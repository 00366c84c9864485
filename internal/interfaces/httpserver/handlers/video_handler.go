package handlers

import (
	"context"

	"github.com/hivoco/lens-kiosk/internal/domain/videos"
)

// VideoHandler handles video retrieval requests.
type VideoHandler struct {
	service *videos.Service
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(service *videos.Service) *VideoHandler {
	return &VideoHandler{service: service}
}

// Lookup resolves an ADA number or mobile number to a video.
func (h *VideoHandler) Lookup(ctx context.Context, identifier string) (*videos.Video, error) {
	return h.service.Lookup(ctx, identifier)
}
