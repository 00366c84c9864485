package submission_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

type mockBackend struct {
	searchFn func(ctx context.Context, img submission.Image) (*submission.SearchResult, error)
	updateFn func(ctx context.Context, img submission.Image, rec submission.CSVRecord) (*submission.RecordUpdate, error)
	videoFn  func(ctx context.Context, img submission.Image, req submission.VideoRequest) (*submission.VideoSubmission, error)
	checkFn  func(ctx context.Context, img submission.Image) (*submission.PhotoCheck, error)
}

func (m *mockBackend) SearchFace(ctx context.Context, img submission.Image) (*submission.SearchResult, error) {
	return m.searchFn(ctx, img)
}

func (m *mockBackend) UpdateCSVRecord(ctx context.Context, img submission.Image, rec submission.CSVRecord) (*submission.RecordUpdate, error) {
	return m.updateFn(ctx, img, rec)
}

func (m *mockBackend) SubmitVideo(ctx context.Context, img submission.Image, req submission.VideoRequest) (*submission.VideoSubmission, error) {
	return m.videoFn(ctx, img, req)
}

func (m *mockBackend) CheckPhoto(ctx context.Context, img submission.Image) (*submission.PhotoCheck, error) {
	return m.checkFn(ctx, img)
}

var photo = submission.Image{Name: "capture.jpg", MimeType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF}}

func newAdapter(b submission.Backend) *submission.Adapter {
	return submission.NewAdapter(b, submission.NewFieldValidator("thailand_data_phuket"), zerolog.Nop())
}

func platformErr(t platformerrors.ErrorType, msg string) error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure, t, msg, nil, "")
}

func TestSearchFaceEmptyResultIsNotFound(t *testing.T) {
	a := newAdapter(&mockBackend{
		searchFn: func(context.Context, submission.Image) (*submission.SearchResult, error) {
			return &submission.SearchResult{Results: []submission.Match{}}, nil
		},
	})

	out, err := a.Submit(context.Background(), submission.Request{Endpoint: submission.EndpointSearchFace, Image: photo})
	require.NoError(t, err)
	assert.Equal(t, submission.OutcomeNotFound, out.Kind)
	assert.True(t, out.Kind.Succeeded())
	assert.Equal(t, "No matching faces found", out.Message)
}

func TestSearchFaceMatches(t *testing.T) {
	var sent submission.Image
	a := newAdapter(&mockBackend{
		searchFn: func(_ context.Context, img submission.Image) (*submission.SearchResult, error) {
			sent = img
			return &submission.SearchResult{Results: []submission.Match{{ImageURL: "https://cdn/a.jpg"}, {ImageURL: "https://cdn/b.jpg"}}}, nil
		},
	})

	out, err := a.Submit(context.Background(), submission.Request{Endpoint: submission.EndpointSearchFace, Image: photo})
	require.NoError(t, err)
	assert.Equal(t, submission.OutcomeSuccess, out.Kind)
	assert.Equal(t, photo.Data, sent.Data)
	res, ok := out.Payload.(*submission.SearchResult)
	require.True(t, ok)
	assert.Len(t, res.Results, 2)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   submission.OutcomeKind
		wantReason string
		wantMsg    string
	}{
		{name: "timeout", err: platformErr(platformerrors.ErrorTypeTimeout, "deadline"), wantKind: submission.OutcomeTransientFailure, wantReason: submission.ReasonTransientFailure, wantMsg: "The request timed out. Please try again."},
		{name: "bad gateway", err: platformErr(platformerrors.ErrorTypeExternal, "status 502"), wantKind: submission.OutcomeTransientFailure, wantReason: submission.ReasonTransientFailure},
		{name: "plain error", err: errors.New("connection reset"), wantKind: submission.OutcomeTransientFailure, wantReason: submission.ReasonTransientFailure},
		{name: "rejected", err: platformErr(platformerrors.ErrorTypeValidation, "No face detected"), wantKind: submission.OutcomeValidationRejected, wantReason: submission.ReasonServerRejected, wantMsg: "No face detected"},
		{name: "not found", err: platformErr(platformerrors.ErrorTypeNotFound, "nothing"), wantKind: submission.OutcomeNotFound, wantReason: submission.ReasonNotFound, wantMsg: "No matching faces found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAdapter(&mockBackend{
				searchFn: func(context.Context, submission.Image) (*submission.SearchResult, error) { return nil, tt.err },
			})
			out, err := a.Submit(context.Background(), submission.Request{Endpoint: submission.EndpointSearchFace, Image: photo})
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantReason, out.Reason)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out.Message)
			}
		})
	}
}

func TestCancellationIsNotAnOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := newAdapter(&mockBackend{
		searchFn: func(ctx context.Context, _ submission.Image) (*submission.SearchResult, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	out, err := a.Submit(ctx, submission.Request{Endpoint: submission.EndpointSearchFace, Image: photo})
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, submission.ErrSubmissionCancelled))
}

func TestUpdateCSVRecord(t *testing.T) {
	var got submission.CSVRecord
	a := newAdapter(&mockBackend{
		updateFn: func(_ context.Context, _ submission.Image, rec submission.CSVRecord) (*submission.RecordUpdate, error) {
			got = rec
			return &submission.RecordUpdate{Status: true}, nil
		},
	})

	out, err := a.Submit(context.Background(), submission.Request{
		Endpoint: submission.EndpointUpdateCSVRecord,
		Image:    photo,
		Fields:   map[string]string{"ada_no": "ADA123", "phone": "9876543210"},
	})
	require.NoError(t, err)
	assert.Equal(t, submission.OutcomeSuccess, out.Kind)
	assert.Equal(t, "Record updated successfully", out.Message)
	assert.Equal(t, submission.CSVRecord{AdaNo: "ADA123", NewNumber: "9876543210", CSVFile: "thailand_data_phuket"}, got)
}

func TestUpdateCSVRecordRejectedByStatus(t *testing.T) {
	a := newAdapter(&mockBackend{
		updateFn: func(context.Context, submission.Image, submission.CSVRecord) (*submission.RecordUpdate, error) {
			return &submission.RecordUpdate{Status: false, Message: "ADA number not found in file"}, nil
		},
	})

	out, err := a.Submit(context.Background(), submission.Request{
		Endpoint: submission.EndpointUpdateCSVRecord,
		Image:    photo,
		Fields:   map[string]string{"ada_no": "ADA9", "phone": "9876543210", "csv_file": "other"},
	})
	require.NoError(t, err)
	assert.Equal(t, submission.OutcomeValidationRejected, out.Kind)
	assert.Equal(t, "ADA number not found in file", out.Message)
}

func TestUpdateCSVRecordInvalidFieldsNeverCallBackend(t *testing.T) {
	a := newAdapter(&mockBackend{
		updateFn: func(context.Context, submission.Image, submission.CSVRecord) (*submission.RecordUpdate, error) {
			t.Fatal("backend must not be called")
			return nil, nil
		},
	})

	_, err := a.Submit(context.Background(), submission.Request{
		Endpoint: submission.EndpointUpdateCSVRecord,
		Image:    photo,
		Fields:   map[string]string{"ada_no": "ADA1", "phone": "12345"},
	})
	assert.True(t, errors.Is(err, submission.ErrInvalidFields))
}

var videoFields = map[string]string{
	"mobile_number":       "9876543210",
	"gender":              "female",
	"attribute_love":      "Sense of Humor",
	"relationship_status": "Long-Distance",
	"vibe":                "Mic On, No Cap",
}

func TestSubmitVideoOTPSent(t *testing.T) {
	checked := false
	a := newAdapter(&mockBackend{
		checkFn: func(context.Context, submission.Image) (*submission.PhotoCheck, error) {
			checked = true
			return &submission.PhotoCheck{Valid: true}, nil
		},
		videoFn: func(_ context.Context, _ submission.Image, req submission.VideoRequest) (*submission.VideoSubmission, error) {
			assert.Equal(t, "Mic On, No Cap", req.Vibe)
			return &submission.VideoSubmission{Status: submission.VideoStatusOTPSent, JobID: "job-1"}, nil
		},
	})

	out, err := a.Submit(context.Background(), submission.Request{
		Endpoint:   submission.EndpointVideoSubmit,
		Image:      photo,
		Fields:     videoFields,
		PhotoCheck: true,
	})
	require.NoError(t, err)
	assert.True(t, checked)
	assert.Equal(t, submission.OutcomeSuccess, out.Kind)

	v, ok := out.Verification()
	require.True(t, ok)
	assert.Equal(t, "9876543210", v.MobileNumber)
	assert.Equal(t, "job-1", v.JobID)
}

func TestSubmitVideoCreatedNeedsNoVerification(t *testing.T) {
	a := newAdapter(&mockBackend{
		videoFn: func(context.Context, submission.Image, submission.VideoRequest) (*submission.VideoSubmission, error) {
			return &submission.VideoSubmission{Status: submission.VideoStatusVideoCreated, JobID: "job-2"}, nil
		},
	})

	out, err := a.Submit(context.Background(), submission.Request{Endpoint: submission.EndpointVideoSubmit, Image: photo, Fields: videoFields})
	require.NoError(t, err)
	_, needs := out.Verification()
	assert.False(t, needs)
	assert.Equal(t, "Your video is being created", out.Message)
}

func TestPhotoCheckRejection(t *testing.T) {
	a := newAdapter(&mockBackend{
		checkFn: func(context.Context, submission.Image) (*submission.PhotoCheck, error) {
			return &submission.PhotoCheck{Valid: false, Message: "Face not clearly visible", Reason: "Multiple faces"}, nil
		},
		videoFn: func(context.Context, submission.Image, submission.VideoRequest) (*submission.VideoSubmission, error) {
			t.Fatal("video submit must not run after a failed photo check")
			return nil, nil
		},
	})

	out, err := a.Submit(context.Background(), submission.Request{Endpoint: submission.EndpointVideoSubmit, Image: photo, Fields: videoFields, PhotoCheck: true})
	require.NoError(t, err)
	assert.Equal(t, submission.OutcomeValidationRejected, out.Kind)
	assert.Equal(t, "Face not clearly visible. Reason: Multiple faces", out.Message)
}

func TestUnknownEndpoint(t *testing.T) {
	_, err := newAdapter(&mockBackend{}).Submit(context.Background(), submission.Request{Endpoint: "upload_faces"})
	assert.True(t, errors.Is(err, submission.ErrUnknownEndpoint))
	assert.False(t, submission.Endpoint("upload_faces").Valid())
}
