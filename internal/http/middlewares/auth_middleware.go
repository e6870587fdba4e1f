package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calmhq/calmcontent/internal/config"
	"github.com/calmhq/calmcontent/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenValidator interface {
	Validate(token string) (int64, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenValidator
	users UserLoader
	log   *slog.Logger
}

func NewAuthMiddleware(jwt TokenValidator, users UserLoader, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users, log: log}
}

// RequireAuth validates the bearer token and resolves the account behind it.
// Every failure kind (bad signature, expired, malformed, deleted account)
// collapses into the same 401 so callers learn nothing about why.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthenticated(c)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthenticated(c)
			return
		}

		userID, err := m.jwt.Validate(raw)
		if err != nil {
			m.log.DebugContext(c.Request.Context(), "token rejected", "kind", err.Error())
			abortUnauthenticated(c)
			return
		}

		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		u, err := m.users.GetByID(cctx, userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// token for a deleted account is invalid
				abortUnauthenticated(c)
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not resolve account",
				},
			})
			return
		}

		SetCurrentUser(c, u)

		c.Next()
	}
}

// SetCurrentUser stashes the authenticated account on the request context.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthenticated",
			"message": "Missing, invalid, or expired credentials",
		},
	})
}

// CurrentUser returns the account RequireAuth stashed on the context.
func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}
