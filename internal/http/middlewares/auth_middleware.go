package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PeterWorld816/movieapi/internal/actorctx"
	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (auth.Identity, error)
}

type AuthMiddleware struct {
	authn Authenticator
	log   *slog.Logger
}

func NewAuthMiddleware(authn Authenticator, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{authn: authn, log: log}
}

// RequireAuth lets a request through only with a valid bearer token for a
// user that still exists. Every rejection looks the same to the client.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.log.DebugContext(c.Request.Context(), "auth rejected", "reason", "missing_or_malformed_header")
			unauthenticated(c)
			return
		}

		ident, err := m.authn.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				m.log.ErrorContext(c.Request.Context(), "auth lookup failed", "err", err)
				abortWithError(c, http.StatusInternalServerError, "internal_error", "Something went wrong")
				return
			}

			m.log.DebugContext(c.Request.Context(), "auth rejected", "reason", err.Error())
			unauthenticated(c)
			return
		}

		c.Set(CtxUserID, ident.UserID)
		c.Set(CtxUsername, ident.Username)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), ident.UserID))

		c.Next()
	}
}

func unauthenticated(c *gin.Context) {
	c.Header("WWW-Authenticate", `Bearer realm="movieapi"`)
	abortWithError(c, http.StatusUnauthorized, "unauthenticated", "Authentication required")
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// UserIDFromContext returns the id stored by RequireAuth.
func UserIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(CtxUserID)
	return id, id != ""
}
