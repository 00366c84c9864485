package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the kiosk gateway.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"lens-kiosk"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"KIOSK_API_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	LogPIILevel     string        `env:"LOG_PII_LEVEL" envDefault:"hashed"` // none | hashed | full
	LogPIISalt      string        `env:"LOG_PII_SALT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Keycloak tokens for admin routes
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"ISSUER"`
	AuthAudience string `env:"AUDIENCE"`
	AuthJWKSURL  string `env:"JWKS_URL"`

	// Locally issued admin tokens
	AdminLoginEnabled bool          `env:"ADMIN_LOGIN_ENABLED" envDefault:"true"`
	AdminEmail        string        `env:"ADMIN_EMAIL" envDefault:"admin@hivoco.com"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"` // bcrypt
	AdminTokenSecret  string        `env:"ADMIN_TOKEN_SECRET"`
	AdminTokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"8h"`

	// Remote backends
	FacesAPIURL      string        `env:"FACES_API_URL" envDefault:"https://api.legacylens.me"`
	VideoAPIURL      string        `env:"VIDEO_API_URL" envDefault:"http://localhost:8000/api/v1"`
	BackendTimeout   time.Duration `env:"BACKEND_TIMEOUT" envDefault:"60s"`
	UploadTimeout    time.Duration `env:"BACKEND_UPLOAD_TIMEOUT" envDefault:"2h"`
	SearchTopK       int           `env:"SEARCH_TOP_K" envDefault:"6"`
	SearchSimilarity float64       `env:"SEARCH_SIMILARITY_THRESHOLD" envDefault:"0.4"`
	DefaultCSVFile   string        `env:"DEFAULT_CSV_FILE" envDefault:"thailand_data_phuket"`
	FacesZipMaxBytes int64         `env:"FACES_ZIP_MAX_BYTES" envDefault:"10737418240"`
	VideoCacheSize   int           `env:"VIDEO_CACHE_SIZE" envDefault:"256"`
	VideoCacheTTL    time.Duration `env:"VIDEO_CACHE_TTL" envDefault:"5m"`
	JobWatchEnabled  bool          `env:"JOB_WATCH_ENABLED" envDefault:"false"`
	JobWatchSchedule string        `env:"JOB_WATCH_SCHEDULE" envDefault:"*/5 * * * *"`

	// Capture sessions
	ProfilesFile           string        `env:"CAPTURE_PROFILES_FILE" envDefault:"config/profiles.yaml"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"30s"`
	SessionStaleTTL        time.Duration `env:"SESSION_STALE_TTL" envDefault:"15m"`

	// Camera
	CameraDriver        string `env:"CAMERA_DRIVER" envDefault:"mediadevices"` // mediadevices | static
	CameraWidth         int    `env:"CAMERA_WIDTH" envDefault:"1280"`
	CameraHeight        int    `env:"CAMERA_HEIGHT" envDefault:"720"`
	CameraJPEGQuality   int    `env:"CAMERA_JPEG_QUALITY" envDefault:"92"`
	CameraStaticImage   string `env:"CAMERA_STATIC_IMAGE"`
	CameraRequireSecure bool   `env:"CAMERA_REQUIRE_SECURE" envDefault:"true"`

	Profiles []ProfileConfig `env:"-"`
}

// Load parses environment variables into Config and reads the capture profiles.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	profiles, err := LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}
	cfg.Profiles = profiles

	return cfg, nil
}

func (c *Config) validate() error {
	if c.AuthEnabled {
		if strings.TrimSpace(c.AuthIssuer) == "" {
			return fmt.Errorf("ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthAudience) == "" {
			return fmt.Errorf("AUDIENCE is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(c.AuthJWKSURL) == "" {
			return fmt.Errorf("JWKS_URL is required when AUTH_ENABLED is true")
		}
	}

	if c.AdminLoginEnabled {
		if len(strings.TrimSpace(c.AdminTokenSecret)) < 32 {
			return fmt.Errorf("ADMIN_TOKEN_SECRET must be at least 32 characters when ADMIN_LOGIN_ENABLED is true")
		}
		if !strings.HasPrefix(c.AdminPasswordHash, "$2") {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash when ADMIN_LOGIN_ENABLED is true")
		}
		if c.AdminTokenTTL <= 0 {
			return fmt.Errorf("ADMIN_TOKEN_TTL must be positive")
		}
	}

	switch c.CameraDriver {
	case "mediadevices":
	case "static":
		if strings.TrimSpace(c.CameraStaticImage) == "" {
			return fmt.Errorf("CAMERA_STATIC_IMAGE is required when CAMERA_DRIVER is static")
		}
	default:
		return fmt.Errorf("unsupported CAMERA_DRIVER %q", c.CameraDriver)
	}

	if c.CameraJPEGQuality < 1 || c.CameraJPEGQuality > 100 {
		return fmt.Errorf("CAMERA_JPEG_QUALITY must be between 1 and 100")
	}
	if c.SearchTopK <= 0 {
		return fmt.Errorf("SEARCH_TOP_K must be positive")
	}
	if c.FacesZipMaxBytes <= 0 {
		return fmt.Errorf("FACES_ZIP_MAX_BYTES must be positive")
	}
	if c.VideoCacheSize <= 0 {
		c.VideoCacheSize = 256
	}

	c.FacesAPIURL = strings.TrimRight(strings.TrimSpace(c.FacesAPIURL), "/")
	c.VideoAPIURL = strings.TrimRight(strings.TrimSpace(c.VideoAPIURL), "/")
	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
