package responses

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/hivoco/lens-kiosk/internal/domain/faces"
	"github.com/hivoco/lens-kiosk/internal/domain/imaging"
	"github.com/hivoco/lens-kiosk/internal/domain/validation"
	"github.com/hivoco/lens-kiosk/internal/domain/videos"
)

func TestHandleErrorUserMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "invalid video id", err: videos.ErrInvalidIdentifier, wantStatus: http.StatusBadRequest, wantMsg: msgInvalidVideoID},
		{name: "video not found", err: videos.ErrVideoNotFound, wantStatus: http.StatusNotFound, wantMsg: msgVideoNotFound},
		{name: "video backend down", err: fmt.Errorf("%w: dial tcp: refused", videos.ErrUnavailable), wantStatus: http.StatusServiceUnavailable, wantMsg: msgVideoUnavailable},
		{name: "not a zip", err: faces.ErrNotZip, wantStatus: http.StatusBadRequest, wantMsg: msgNotZip},
		{name: "upload aborted", err: faces.ErrUploadAborted, wantStatus: StatusClientClosedRequest, wantMsg: msgUploadAborted},
		{name: "oversized image", err: validation.TooLarge(10<<20, 66<<20), wantStatus: http.StatusRequestEntityTooLarge, wantMsg: "File size must be less than 10.0MB. Got 66.00MB"},
		{name: "too many pixels", err: fmt.Errorf("%w: Image must be at most 40.0 megapixels. Got 60000x60000", imaging.ErrTooManyPixels), wantStatus: http.StatusRequestEntityTooLarge, wantMsg: "Image must be at most 40.0 megapixels. Got 60000x60000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/test", nil)

			HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"message":%q`, tt.wantMsg))
		})
	}
}
