package backend

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivoco/lens-kiosk/internal/domain/jobs"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

var testImage = submission.Image{Name: "photo.jpg", MimeType: "image/jpeg", Data: []byte("\xff\xd8\xff\xe0fake-jpeg")}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		FacesURL:   srv.URL,
		VideoURL:   srv.URL + "/api/v1",
		Timeout:    2 * time.Second,
		TopK:       6,
		Similarity: 0.4,
	}, zerolog.Nop())
}

func TestSearchFace(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search-face", r.URL.Path)
		assert.Equal(t, "6", r.URL.Query().Get("top_k"))
		assert.Equal(t, "0.4", r.URL.Query().Get("similarity_threshold"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, testImage.Data, data)
		assert.Equal(t, "photo.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, map[string]any{"results": []map[string]any{
			{"image_url": "https://cdn.example/1.jpg", "similarity": 0.91},
			{"image_url": ""},
		}})
	})

	res, err := client.SearchFace(context.Background(), testImage)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "https://cdn.example/1.jpg", res.Results[0].ImageURL)
	assert.InDelta(t, 0.91, res.Results[0].Similarity, 1e-9)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType platformerrors.ErrorType
		wantMsg  string
	}{
		{name: "detail string", status: 400, body: `{"detail":"No face detected"}`, wantType: platformerrors.ErrorTypeValidation, wantMsg: "No face detected"},
		{name: "detail list", status: 422, body: `{"detail":[{"msg":"field required"},{"msg":"bad phone"}]}`, wantType: platformerrors.ErrorTypeValidation, wantMsg: "field required; bad phone"},
		{name: "markup stripped", status: 400, body: `{"message":"<b>Loud & Electric</b><script>x()</script> not allowed"}`, wantType: platformerrors.ErrorTypeValidation, wantMsg: "Loud & Electric not allowed"},
		{name: "not found", status: 404, body: `{"detail":"Not Found"}`, wantType: platformerrors.ErrorTypeNotFound, wantMsg: "Not Found"},
		{name: "rate limited", status: 429, body: `{}`, wantType: platformerrors.ErrorTypeExternal, wantMsg: "search face returned 429"},
		{name: "server error html", status: 502, body: `<html>bad gateway</html>`, wantType: platformerrors.ErrorTypeExternal, wantMsg: "search face returned 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.SearchFace(context.Background(), testImage)
			require.Error(t, err)
			pe := platformerrors.GetPlatformError(err)
			require.NotNil(t, pe)
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.wantMsg, pe.Message)
		})
	}
}

func TestTransportFailureIsExternal(t *testing.T) {
	client := New(Options{FacesURL: "http://127.0.0.1:1", Timeout: time.Second}, zerolog.Nop())
	_, err := client.SearchFace(context.Background(), testImage)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := New(Options{FacesURL: srv.URL, Timeout: 50 * time.Millisecond}, zerolog.Nop())
	_, err := client.SearchFace(context.Background(), testImage)
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeTimeout), "got %v", err)
}

func TestCallerCancelPassesThrough(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := newTestClient(t, func(_ http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	// Runs before the server's Close so a handler that never saw the disconnect still returns.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.SearchFace(ctx, testImage)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, platformerrors.GetPlatformError(err))
}

func TestUpdateCSVRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/update-csv-record", r.URL.Path)
		assert.Equal(t, "ADA42", r.URL.Query().Get("ada_no"))
		assert.Equal(t, "9876543210", r.URL.Query().Get("new_number"))
		assert.Equal(t, "thailand_data_phuket", r.URL.Query().Get("csv_file"))
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Row 12 updated"})
	})

	res, err := client.UpdateCSVRecord(context.Background(), testImage, submission.CSVRecord{
		AdaNo: "ADA42", NewNumber: "9876543210", CSVFile: "thailand_data_phuket",
	})
	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Equal(t, "Row 12 updated", res.Message)
}

func TestGetVideoURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-video-url/9876543210", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"video_url": "https://cdn.example/v.mp4", "cached": true, "ada_no": 1234})
	})

	v, err := client.GetVideoURL(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", v.VideoURL)
	assert.True(t, v.Cached)
	assert.Equal(t, "1234", v.AdaNo)
}

func TestUploadFacesStreamsMultipart(t *testing.T) {
	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	w, err := zw.Create("face.jpg")
	require.NoError(t, err)
	_, _ = w.Write(bytes.Repeat([]byte("f"), 64*1024))
	require.NoError(t, zw.Close())

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload-faces", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		assert.Equal(t, int64(-1), r.ContentLength)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		got, _ := io.ReadAll(file)
		assert.Equal(t, archive.Bytes(), got)
		assert.Equal(t, "faces.zip", header.Filename)
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "indexed 1 face"})
	})

	res, err := client.UploadFaces(context.Background(), "faces.zip", bytes.NewReader(archive.Bytes()))
	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Equal(t, "indexed 1 face", res.Message)
}

func TestUploadFacesSourceErrorAborts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusOK, map[string]any{"status": true})
	})

	broken := io.MultiReader(strings.NewReader("PK"), &failingReader{})
	_, err := client.UploadFaces(context.Background(), "faces.zip", broken)
	assert.Error(t, err)
}

type failingReader struct{}

func (*failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestSubmitVideo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/video/submit", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "9876543210", r.FormValue("mobile_number"))
		assert.Equal(t, "Mic On, No Cap", r.FormValue("vibe"))
		assert.Equal(t, "Sense of Humor", r.FormValue("attribute_love"))
		_, _, err := r.FormFile("photo")
		assert.NoError(t, err)
		writeJSON(w, http.StatusOK, map[string]any{"status": "otp_sent", "job_id": 88})
	})

	res, err := client.SubmitVideo(context.Background(), testImage, submission.VideoRequest{
		MobileNumber: "9876543210", Gender: "female", AttributeLove: "Sense of Humor",
		RelationshipStatus: "Dating", Vibe: "Mic On, No Cap",
	})
	require.NoError(t, err)
	assert.Equal(t, submission.VideoStatusOTPSent, res.Status)
	assert.Equal(t, "88", res.JobID)
	assert.Equal(t, "9876543210", res.MobileNumber)
}

func TestCheckPhoto(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/photo-validation/check_photo", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "message": "Photo rejected", "reason": "Multiple faces"})
	})

	res, err := client.CheckPhoto(context.Background(), testImage)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Multiple faces", res.Reason)
}

func TestVerifyAndResendOTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/v1/auth/verify-otp":
			if body["otp"] != "123456" {
				writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid or expired OTP"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "verified", "job_id": "job-9"})
		case "/api/v1/video/submit":
			assert.Equal(t, "9876543210", body["mobile_number"])
			writeJSON(w, http.StatusOK, map[string]any{"status": "otp_sent"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	res, err := client.VerifyOTP(context.Background(), "9876543210", "123456")
	require.NoError(t, err)
	assert.Equal(t, "verified", res.Status)
	assert.Equal(t, "job-9", res.JobID)

	_, err = client.VerifyOTP(context.Background(), "9876543210", "000000")
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.Equal(t, "Invalid or expired OTP", platformerrors.GetPlatformError(err).Message)

	assert.NoError(t, client.ResendOTP(context.Background(), "9876543210"))
}

func TestListJobs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/video-jobs/list", r.URL.Path)
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "50", q.Get("page_size"))
		assert.Equal(t, "failed", q.Get("status"))
		assert.False(t, q.Has("user_id"))
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{{"id": 3, "status": "failed", "failed_stage": "lipsync", "retry_count": nil}},
			"total": 51, "total_pages": 2,
		})
	})

	page, err := client.ListJobs(context.Background(), jobs.Filter{Status: jobs.StatusFailed, Page: 2, PageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, 51, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "lipsync", *page.Items[0].FailedStage)
	assert.Nil(t, page.Items[0].RetryCount)
}

func TestFlexBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{`true`, true}, {`false`, false}, {`"success"`, true}, {`"failed"`, false}, {`null`, false},
	}
	for _, tt := range tests {
		var b flexBool
		require.NoError(t, json.Unmarshal([]byte(tt.in), &b))
		assert.Equal(t, tt.want, bool(b), tt.in)
	}
}
