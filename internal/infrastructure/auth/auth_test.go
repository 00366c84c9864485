package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hivoco/lens-kiosk/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAdmin(t *testing.T) *Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAdmin(&config.Config{
		AdminLoginEnabled: true,
		AdminEmail:        "Admin@Hivoco.com",
		AdminPasswordHash: string(hash),
		AdminTokenSecret:  testSecret,
		AdminTokenTTL:     time.Hour,
	})
}

func TestLogin(t *testing.T) {
	admin := newTestAdmin(t)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	admin.now = func() time.Time { return now }

	tok, err := admin.Login(" admin@hivoco.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, int64(3600), tok.ExpiresIn)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)

	claims, err := admin.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin@hivoco.com", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	admin := newTestAdmin(t)
	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "admin@hivoco.com", "battery staple"},
		{"wrong email", "root@hivoco.com", "correct horse"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := admin.Login(tt.email, tt.password)
			assert.True(t, errors.Is(err, ErrInvalidCredentials))
		})
	}
}

func TestLoginDisabled(t *testing.T) {
	admin := NewAdmin(&config.Config{AdminLoginEnabled: false})
	_, err := admin.Login("a", "b")
	assert.True(t, errors.Is(err, ErrLoginDisabled))
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	admin := newTestAdmin(t)
	issued := time.Now()
	admin.now = func() time.Time { return issued }
	tok, err := admin.Login("admin@hivoco.com", "correct horse")
	require.NoError(t, err)

	admin.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = admin.Parse(tok.AccessToken)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	admin.now = func() time.Time { return issued }
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: adminIssuer, ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour))},
	}).SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)
	_, err = admin.Parse(forged)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: adminIssuer},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = admin.Parse(noExp)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)

	hash, err := HashPassword("long enough secret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("long enough secret")))
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	admin := newTestAdmin(t)
	tok, err := admin.Login("admin@hivoco.com", "correct horse")
	require.NoError(t, err)

	authn := NewAuthenticator(admin, nil, zerolog.Nop())
	router := gin.New()
	router.GET("/admin/ping", authn.RequireAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextKeySubject))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + tok.AccessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + tok.AccessToken, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "admin@hivoco.com", rec.Body.String())
			}
		})
	}
}

func TestDisabledKeycloakValidator(t *testing.T) {
	v, err := NewValidator(context.Background(), &config.Config{AuthEnabled: false}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, v.Enabled())
	_, err = v.Validate("x")
	assert.True(t, errors.Is(err, ErrInvalidToken))
	v.Close()
}
