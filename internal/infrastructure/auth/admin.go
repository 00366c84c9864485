package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hivoco/lens-kiosk/internal/config"
)

const adminIssuer = "lens-kiosk"

var (
	ErrLoginDisabled      = errors.New("admin login is disabled")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Token is an issued admin access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AdminClaims are the claims carried by a locally issued admin token.
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Admin authenticates the single operator account and issues expiring HS256 tokens.
type Admin struct {
	enabled bool
	email   string
	hash    []byte
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewAdmin builds the admin authenticator from configuration.
func NewAdmin(cfg *config.Config) *Admin {
	return &Admin{
		enabled: cfg.AdminLoginEnabled,
		email:   strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		hash:    []byte(cfg.AdminPasswordHash),
		secret:  []byte(cfg.AdminTokenSecret),
		ttl:     cfg.AdminTokenTTL,
		now:     time.Now,
	}
}

// Enabled reports whether local admin login is configured.
func (a *Admin) Enabled() bool {
	return a != nil && a.enabled
}

// Login checks the credentials and returns a signed token.
func (a *Admin) Login(email, password string) (*Token, error) {
	if !a.Enabled() {
		return nil, ErrLoginDisabled
	}

	given := strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(given), []byte(a.email)) == 1
	// The hash is always compared so both failure paths cost the same.
	pwErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !emailOK || pwErr != nil {
		return nil, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.ttl)
	claims := AdminClaims{
		Email: a.email,
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    adminIssuer,
			Subject:   a.email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign admin token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(a.ttl.Seconds()),
		ExpiresAt:   expires.UTC(),
	}, nil
}

// Parse validates a token issued by Login. Expired tokens are rejected.
func (a *Admin) Parse(tokenString string) (*AdminClaims, error) {
	if !a.Enabled() {
		return nil, ErrLoginDisabled
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
