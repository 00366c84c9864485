package auth

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/config"
)

// Validator validates Keycloak-issued JWTs using JWKS.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "keycloak-auth").Logger()
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{cfg: cfg, log: log, jwks: jwks}, nil
}

// Enabled reports whether Keycloak tokens are accepted.
func (v *Validator) Enabled() bool {
	return v != nil && v.jwks != nil
}

// Validate parses and verifies a bearer token.
func (v *Validator) Validate(tokenString string) (*jwt.Token, error) {
	if !v.Enabled() {
		return nil, ErrInvalidToken
	}
	token, err := jwt.Parse(tokenString, v.jwks.Keyfunc,
		jwt.WithAudience(v.cfg.AuthAudience),
		jwt.WithIssuer(v.cfg.AuthIssuer),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return token, nil
}

// Close stops background JWKS refreshes.
func (v *Validator) Close() {
	if v.Enabled() {
		v.jwks.EndBackground()
	}
}
