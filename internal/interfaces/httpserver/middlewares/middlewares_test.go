package middlewares

import (
	"bytes"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hivoco/lens-kiosk/internal/infrastructure/logger"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSecureContext(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		origin     string
		proto      string
		tls        bool
		want       bool
	}{
		{name: "loopback client", remoteAddr: "127.0.0.1:5000", want: true},
		{name: "ipv6 loopback", remoteAddr: "[::1]:5000", want: true},
		{name: "lan client over http", remoteAddr: "192.168.1.20:5000", want: false},
		{name: "lan client over tls", remoteAddr: "192.168.1.20:5000", tls: true, want: true},
		{name: "https origin", remoteAddr: "192.168.1.20:5000", origin: "https://kiosk.example", want: true},
		{name: "localhost origin", remoteAddr: "192.168.1.20:5000", origin: "http://localhost:3000", want: true},
		{name: "plain http origin", remoteAddr: "127.0.0.1:5000", origin: "http://kiosk.lan", want: false},
		{name: "forwarded https", remoteAddr: "10.0.0.5:5000", proto: "https", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(SecureContext())
			var got bool
			router.GET("/", func(c *gin.Context) { got = IsSecureContext(c) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			router.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	var fromCtx string
	router.GET("/", func(c *gin.Context) {
		err := platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeInternal, "x", nil, "")
		fromCtx = err.RequestID
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-abc", fromCtx)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORSWithConfig(DefaultCORSConfig([]string{"https://kiosk.example"})))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://kiosk.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://kiosk.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerRedactsMobileNumbers(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestLoggerWithLogger(zerolog.New(&buf), logger.NewRedactor(logger.PIILevelNone, "")))
	router.GET("/v1/videos/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/videos/9876543210", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, buf.String(), "9876543210")
	assert.Contains(t, buf.String(), `"path":"/v1/videos/[MOBILE]"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
