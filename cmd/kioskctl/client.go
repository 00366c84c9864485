package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/hivoco/lens-kiosk/internal/domain/capture"
	"github.com/hivoco/lens-kiosk/internal/domain/faces"
	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/domain/videos"
	"github.com/hivoco/lens-kiosk/internal/infrastructure/auth"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/responses"
)

// gateway is a thin client for the kiosk HTTP API.
type gateway struct {
	http *resty.Client
}

func newGateway(baseURL, token string, timeout time.Duration) *gateway {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "kioskctl/"+version)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &gateway{http: c}
}

func gatewayFromCmd(cmd *cobra.Command) *gateway {
	baseURL, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return newGateway(baseURL, token, timeout)
}

// apiError is a non-2xx gateway response.
type apiError struct {
	Status  int
	Message string
	Session *capture.View
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned %d", e.Status)
	}
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	var body responses.SessionErrorResponse
	apiErr := &apiError{Status: resp.StatusCode()}
	if json.Unmarshal(resp.Body(), &body) == nil && body.Error != nil {
		apiErr.Message = body.Error.Message
		apiErr.Session = body.Session
	}
	return apiErr
}

func (g *gateway) health(ctx context.Context) error {
	return check(g.http.R().SetContext(ctx).Get("/healthz"))
}

func (g *gateway) createSession(ctx context.Context, profile string) (*capture.View, error) {
	var view capture.View
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"profile": profile}).
		SetResult(&view).
		Post("/v1/capture/sessions")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &view, nil
}

func (g *gateway) deleteSession(ctx context.Context, id string) error {
	return check(g.http.R().SetContext(ctx).SetPathParam("id", id).Delete("/v1/capture/sessions/{id}"))
}

func (g *gateway) chooseFile(ctx context.Context, id, path string) (*capture.View, error) {
	var view capture.View
	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetFile("file", path).
		SetResult(&view).
		Post("/v1/capture/sessions/{id}/file")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &view, nil
}

func (g *gateway) setFields(ctx context.Context, id string, fields map[string]string) (*capture.View, error) {
	var view capture.View
	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(map[string]any{"fields": fields}).
		SetResult(&view).
		Put("/v1/capture/sessions/{id}/fields")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &view, nil
}

func (g *gateway) submit(ctx context.Context, id string) (*capture.View, error) {
	var view capture.View
	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetQueryParam("wait", "true").
		SetResult(&view).
		Post("/v1/capture/sessions/{id}/submit")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &view, nil
}

// runPhoto pushes one image file through a capture session and returns the
// settled session. The session is deleted afterwards.
func (g *gateway) runPhoto(ctx context.Context, profile, path string, fields map[string]string) (*capture.View, error) {
	sess, err := g.createSession(ctx, profile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = g.deleteSession(context.WithoutCancel(ctx), sess.ID) }()

	if _, err := g.chooseFile(ctx, sess.ID, path); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if _, err := g.setFields(ctx, sess.ID, fields); err != nil {
			return nil, err
		}
	}
	return g.submit(ctx, sess.ID)
}

func (g *gateway) video(ctx context.Context, identifier string) (*videos.Video, error) {
	var out videos.Video
	resp, err := g.http.R().
		SetContext(ctx).
		SetPathParam("id", identifier).
		SetResult(&out).
		Get("/v1/videos/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) login(ctx context.Context, email, password string) (*auth.Token, error) {
	var out auth.Token
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/v1/admin/login")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *gateway) listJobs(ctx context.Context, params map[string]string) (*jobs.Page, error) {
	var out jobs.Page
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/v1/admin/video-jobs")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// uploadFaces streams the archive as multipart form data without reading it
// into memory.
func (g *gateway) uploadFaces(ctx context.Context, path string) (*faces.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var out faces.Result
	resp, err := g.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", mw.FormDataContentType()).
		SetBody(pr).
		SetResult(&out).
		Post("/v1/admin/faces")
	pr.Close()
	<-done
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}
