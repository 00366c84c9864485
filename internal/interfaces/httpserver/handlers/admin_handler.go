package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/hivoco/lens-kiosk/internal/domain/faces"
	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/auth"
	adminreq "github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/requests/admin"
)

// AdminHandler handles operator requests.
type AdminHandler struct {
	admin *auth.Admin
	jobs  *jobs.Service
	faces *faces.Service
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin *auth.Admin, jobService *jobs.Service, faceService *faces.Service) *AdminHandler {
	return &AdminHandler{admin: admin, jobs: jobService, faces: faceService}
}

// Login exchanges credentials for an expiring token.
func (h *AdminHandler) Login(req *adminreq.LoginRequest) (*auth.Token, error) {
	return h.admin.Login(req.Email, req.Password)
}

// ListJobs returns one page of video jobs.
func (h *AdminHandler) ListJobs(ctx context.Context, q *adminreq.ListJobsQuery) (*jobs.Page, error) {
	return h.jobs.List(ctx, jobs.Filter{
		Status:      jobs.Status(q.Status),
		FailedStage: q.FailedStage,
		UserID:      q.UserID,
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		Page:        q.Page,
		PageSize:    q.PageSize,
	})
}

// UploadFaces streams the "file" part of a multipart request to the backend
// without buffering the archive.
func (h *AdminHandler) UploadFaces(ctx context.Context, r *http.Request) (*faces.Result, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, faces.ErrNotZip
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, faces.ErrNotZip
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		defer part.Close()

		return h.faces.Ingest(ctx, faces.Archive{
			Name:     part.FileName(),
			MimeType: part.Header.Get("Content-Type"),
			Size:     -1,
			Body:     part,
		})
	}
}
