package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/hivoco/lens-kiosk/internal/domain/faces"
	"github.com/hivoco/lens-kiosk/internal/domain/submission"
	"github.com/hivoco/lens-kiosk/internal/domain/videos"
)

const (
	pathSearchFace  = "/search-face"
	pathUploadFaces = "/upload-faces"
	pathUpdateCSV   = "/update-csv-record"
	pathVideoURL    = "/get-video-url/{identifier}"
)

var errUploadFinished = errors.New("upload request finished")

// SearchFace looks up faces similar to img.
func (c *Client) SearchFace(ctx context.Context, img submission.Image) (*submission.SearchResult, error) {
	cl := begin(apiFaces, pathSearchFace, "search face")
	var out searchResponse
	resp, err := c.faces.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"top_k":                strconv.Itoa(c.topK),
			"similarity_threshold": strconv.FormatFloat(c.threshold, 'f', -1, 64),
		}).
		SetMultipartField("file", img.Name, img.MimeType, bytes.NewReader(img.Data)).
		SetResult(&out).
		Post(pathSearchFace)
	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}

	res := &submission.SearchResult{Results: make([]submission.Match, 0, len(out.Results))}
	for _, m := range out.Results {
		if m.ImageURL == "" {
			continue
		}
		res.Results = append(res.Results, submission.Match{ImageURL: m.ImageURL, Similarity: m.Similarity, Filename: m.Filename})
	}
	return res, nil
}

// UpdateCSVRecord links img to the row identified by rec.
func (c *Client) UpdateCSVRecord(ctx context.Context, img submission.Image, rec submission.CSVRecord) (*submission.RecordUpdate, error) {
	cl := begin(apiFaces, pathUpdateCSV, "update csv record")
	var out statusResponse
	resp, err := c.faces.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ada_no":     rec.AdaNo,
			"new_number": rec.NewNumber,
			"csv_file":   rec.CSVFile,
		}).
		SetMultipartField("file", img.Name, img.MimeType, bytes.NewReader(img.Data)).
		SetResult(&out).
		Post(pathUpdateCSV)
	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}
	return &submission.RecordUpdate{Status: bool(out.Status), Message: c.sanitize(out.Message)}, nil
}

// GetVideoURL resolves an ADA number or mobile number to a video.
func (c *Client) GetVideoURL(ctx context.Context, identifier string) (*videos.Video, error) {
	cl := begin(apiFaces, pathVideoURL, "get video url")
	var out videoURLResponse
	resp, err := c.faces.R().
		SetContext(ctx).
		SetPathParam("identifier", identifier).
		SetResult(&out).
		Get(pathVideoURL)
	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}
	return &videos.Video{VideoURL: out.VideoURL, Cached: out.Cached, AdaNo: string(out.AdaNo)}, nil
}

// UploadFaces streams a zip archive to the faces API as multipart form data.
// The archive is never held in memory; cancelling ctx aborts the transfer.
func (c *Client) UploadFaces(ctx context.Context, name string, body io.Reader) (*faces.Result, error) {
	cl := begin(apiFaces, pathUploadFaces, "upload faces")

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var out statusResponse
	resp, err := c.upload.R().
		SetContext(ctx).
		SetHeader("Content-Type", mw.FormDataContentType()).
		SetBody(pr).
		SetResult(&out).
		Post(pathUploadFaces)
	pr.CloseWithError(errUploadFinished)
	<-done

	if err := c.finish(ctx, cl, resp, err); err != nil {
		return nil, err
	}
	return &faces.Result{Status: bool(out.Status), Message: c.sanitize(out.Message)}, nil
}
