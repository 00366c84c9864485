package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

// ContextKeySubject holds the authenticated admin subject on the gin context.
const ContextKeySubject = "auth_subject"

// Authenticator accepts locally issued admin tokens and, when configured,
// Keycloak tokens.
type Authenticator struct {
	admin    *Admin
	keycloak *Validator
	log      zerolog.Logger
}

// NewAuthenticator combines the token sources.
func NewAuthenticator(admin *Admin, keycloak *Validator, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		admin:    admin,
		keycloak: keycloak,
		log:      log.With().Str("component", "admin-auth").Logger(),
	}
}

// RequireAdmin rejects requests without a valid bearer token.
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			platformerrors.WriteUnauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		if a.admin.Enabled() {
			if claims, err := a.admin.Parse(tokenString); err == nil {
				c.Set(ContextKeySubject, claims.Subject)
				c.Next()
				return
			}
		}
		if a.keycloak.Enabled() {
			if token, err := a.keycloak.Validate(tokenString); err == nil {
				subject, _ := token.Claims.GetSubject()
				c.Set(ContextKeySubject, subject)
				c.Next()
				return
			}
		}

		a.log.Debug().Str("path", c.FullPath()).Msg("rejected admin token")
		platformerrors.WriteUnauthorized(c, "invalid token")
		c.Abort()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
