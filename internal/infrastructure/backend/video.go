package backend

import (
	"bytes"
	"context"
	"strconv"

	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/verification"
)

const (
	pathVideoSubmit = "/video/submit"
	pathVerifyOTP   = "/auth/verify-otp"
	pathCheckPhoto  = "/photo-validation/check_photo"
	pathJobList     = "/video-jobs/list"
)

// SubmitVideo creates a personalised video job. The backend answers otp_sent
// when the mobile number still has to be verified.
func (c *Client) SubmitVideo(ctx context.Context, img submission.Image, req submission.VideoRequest) (*submission.VideoSubmission, error) {
	cl := begin(apiVideo, pathVideoSubmit, "submit video")
	var out videoSubmitResponse
	resp, err := c.video.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"mobile_number":       req.MobileNumber,
			"gender":              req.Gender,
			"attribute_love":      req.AttributeLove,
			"relationship_status": req.RelationshipStatus,
			"vibe":                req.Vibe,
		}).
		SetMultipartField("photo", img.Name, img.MimeType, bytes.NewReader(img.Data)).
		SetResult(&out).
		Post(pathVideoSubmit)
	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}

	mobile := string(out.MobileNumber)
	if mobile == "" {
		mobile = req.MobileNumber
	}
	return &submission.VideoSubmission{
		Status:       out.Status,
		JobID:        string(out.JobID),
		MobileNumber: mobile,
		Message:      c.sanitize(out.Message),
	}, nil
}

// CheckPhoto asks the video backend whether img is usable before a job is created.
func (c *Client) CheckPhoto(ctx context.Context, img submission.Image) (*submission.PhotoCheck, error) {
	cl := begin(apiVideo, pathCheckPhoto, "check photo")
	var out photoCheckResponse
	resp, err := c.video.R().
		SetContext(ctx).
		SetMultipartField("photo", img.Name, img.MimeType, bytes.NewReader(img.Data)).
		SetResult(&out).
		Post(pathCheckPhoto)
	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}
	return &submission.PhotoCheck{
		Valid:   out.Valid,
		Message: c.sanitize(out.Message),
		Reason:  c.sanitize(out.Reason),
	}, nil
}

// VerifyOTP checks a one-time code for the mobile number of a pending job.
func (c *Client) VerifyOTP(ctx context.Context, subject, code string) (*verification.Result, error) {
	cl := begin(apiVideo, pathVerifyOTP, "verify otp")
	var out verifyResponse
	resp, err := c.video.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(verifyRequest{MobileNumber: subject, OTP: code}).
		SetResult(&out).
		Post(pathVerifyOTP)
	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}
	return &verification.Result{Status: out.Status, JobID: string(out.JobID)}, nil
}

// ResendOTP re-submits the mobile number so the backend issues a new code.
func (c *Client) ResendOTP(ctx context.Context, subject string) error {
	cl := begin(apiVideo, pathVideoSubmit, "resend otp")
	resp, err := c.video.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(resendRequest{MobileNumber: subject}).
		Post(pathVideoSubmit)
	return c.finish(ctx, cl, resp, err)
}

// ListJobs fetches one page of video jobs. Empty filter values are not sent.
func (c *Client) ListJobs(ctx context.Context, f jobs.Filter) (*jobs.Page, error) {
	params := map[string]string{
		"page":      strconv.Itoa(f.Page),
		"page_size": strconv.Itoa(f.PageSize),
	}
	optional := map[string]string{
		"status":       string(f.Status),
		"failed_stage": f.FailedStage,
		"user_id":      f.UserID,
		"start_date":   f.StartDate,
		"end_date":     f.EndDate,
	}
	for k, v := range optional {
		if v != "" {
			params[k] = v
		}
	}

	cl := begin(apiVideo, pathJobList, "list video jobs")
	var out jobs.Page
	resp, err := c.video.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(pathJobList)
	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}
	out.Message = c.sanitize(out.Message)
	return &out, nil
}
