// Package handlers wires the HTTP surface: sync, votes, setlist reads, the
// realtime websocket, and health.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"showvote/internal/votes"
)

const (
	identityKey       = "voteIdentity"
	sessionCookieName = "vote_session"
	sessionCookieAge  = 365 * 24 * 60 * 60
)

// IdentityConfig tunes how caller identities are derived
type IdentityConfig struct {
	// JWTSecret verifies bearer tokens (HMAC)
	JWTSecret string
	// RequireAuth rejects anonymous callers instead of minting a session
	RequireAuth bool
}

// IdentityMiddleware attaches a vote identity to every request: the JWT
// subject for authenticated callers, otherwise a session-cookie fingerprint
// for anonymous ones
func IdentityMiddleware(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			identity, err := parseBearer(strings.TrimPrefix(header, "Bearer "), cfg.JWTSecret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			c.Set(identityKey, identity)
			c.Next()
			return
		}

		if cfg.RequireAuth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		session, err := c.Cookie(sessionCookieName)
		if err != nil || session == "" {
			session = uuid.NewString()
			c.SetCookie(sessionCookieName, session, sessionCookieAge, "/", "", false, true)
		}

		c.Set(identityKey, votes.Identity{Value: "anon:" + session, Anonymous: true})
		c.Next()
	}
}

func parseBearer(tokenString, secret string) (votes.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return votes.Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return votes.Identity{}, fmt.Errorf("token has no subject")
	}

	return votes.Identity{Value: "user:" + subject}, nil
}

// IdentityFrom extracts the identity the middleware attached
func IdentityFrom(c *gin.Context) (votes.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return votes.Identity{}, false
	}
	identity, ok := value.(votes.Identity)
	return identity, ok
}
