package middlewares

import (
	"net"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecureContextKey holds whether the calling page may use the camera.
const SecureContextKey = "secure_context"

// SecureContext decides whether the request comes from a secure browsing
// context: an https or localhost page origin, a TLS connection, or a
// loopback client.
func SecureContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(SecureContextKey, isSecure(c))
		c.Next()
	}
}

// IsSecureContext reports the value computed by SecureContext.
func IsSecureContext(c *gin.Context) bool {
	return c.GetBool(SecureContextKey)
}

func isSecure(c *gin.Context) bool {
	if origin := c.GetHeader("Origin"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Scheme == "https" || isLocalHost(u.Hostname())
	}
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		return true
	}
	return isLocalHost(c.ClientIP())
}

func isLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
