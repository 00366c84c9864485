package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuu")
	t.Setenv("CAPTURE_PROFILES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "lens-kiosk", cfg.ServiceName)
	assert.Equal(t, ":8190", cfg.Addr())
	assert.Equal(t, 8*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, "https://api.legacylens.me", cfg.FacesAPIURL)
	assert.Equal(t, 6, cfg.SearchTopK)
	assert.InDelta(t, 0.4, cfg.SearchSimilarity, 1e-9)
	assert.Equal(t, int64(10737418240), cfg.FacesZipMaxBytes)
	assert.Len(t, cfg.Profiles, 4)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "auth without issuer", env: map[string]string{"AUTH_ENABLED": "true"}},
		{name: "short admin secret", env: map[string]string{"ADMIN_TOKEN_SECRET": "short"}},
		{name: "plain admin password", env: map[string]string{"ADMIN_PASSWORD_HASH": "hunter2"}},
		{name: "unknown camera driver", env: map[string]string{"CAMERA_DRIVER": "v4l9"}},
		{name: "static camera without image", env: map[string]string{"CAMERA_DRIVER": "static"}},
		{name: "jpeg quality out of range", env: map[string]string{"CAMERA_JPEG_QUALITY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadAdminLoginDisabled(t *testing.T) {
	t.Setenv("ADMIN_LOGIN_ENABLED", "false")
	t.Setenv("CAPTURE_PROFILES_FILE", filepath.Join(t.TempDir(), "none.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AdminLoginEnabled)
}

func TestLoadProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	doc := `
profiles:
  - name: kiosk
    max_bytes: 2097152
    compression:
      enabled: true
      max_width: 800
      max_height: 600
    endpoint: search_face
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	p := profiles[0]
	assert.Equal(t, "kiosk", p.Name)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/webp"}, p.AllowedTypes)
	assert.InDelta(t, 0.85, p.Compression.Quality, 1e-9)
}

func TestParseProfilesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: "profiles: []"},
		{name: "missing name", doc: "profiles:\n  - max_bytes: 10\n    endpoint: search_face"},
		{name: "duplicate", doc: "profiles:\n  - {name: a, max_bytes: 1, endpoint: x}\n  - {name: a, max_bytes: 1, endpoint: x}"},
		{name: "zero size", doc: "profiles:\n  - {name: a, max_bytes: 0, endpoint: x}"},
		{name: "bad quality", doc: "profiles:\n  - {name: a, max_bytes: 1, endpoint: x, compression: {enabled: true, max_width: 1, max_height: 1, quality: 3}}"},
		{name: "no endpoint", doc: "profiles:\n  - {name: a, max_bytes: 1}"},
		{name: "negative max pixels", doc: "profiles:\n  - {name: a, max_bytes: 1, endpoint: x, compression: {enabled: true, max_width: 1, max_height: 1, max_pixels: -1}}"},
		{name: "malformed", doc: "profiles: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestShippedProfilesFileParses(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join("..", "..", "config", "profiles.yaml"))
	require.NoError(t, err)

	byName := make(map[string]ProfileConfig, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}
	assert.Equal(t, int64(5*megabyte), byName["advanced"].MaxBytes)
	assert.True(t, byName["advanced"].Compression.Enabled)
	assert.Equal(t, int64(40_000_000), byName["advanced"].Compression.MaxPixels)
	assert.Equal(t, []string{"ada_no", "phone"}, byName["with_id"].RequiredFields)
	assert.True(t, byName["video"].PhotoCheck)
}
