package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PeterWorld816/movieapi/internal/actorctx"
	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	fn func(ctx context.Context, raw string) (auth.Identity, error)
}

func (f fakeAuthenticator) Authenticate(ctx context.Context, raw string) (auth.Identity, error) {
	return f.fn(ctx, raw)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupGuardRouter(authn Authenticator) *gin.Engine {
	m := NewAuthMiddleware(authn, discardLogger())

	r := gin.New()
	r.Use(RequestID())
	r.GET("/protected", m.RequireAuth(), func(c *gin.Context) {
		id, _ := actorctx.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"userId": id})
	})
	r.DELETE("/users/:id", m.RequireAuth(), m.RequireSelf("id"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAuth_RejectsUniformly(t *testing.T) {
	authn := fakeAuthenticator{fn: func(_ context.Context, raw string) (auth.Identity, error) {
		switch raw {
		case "good":
			return auth.Identity{UserID: "u1"}, nil
		case "expired":
			return auth.Identity{}, fmt.Errorf("%w: %w", auth.ErrUnauthenticated, auth.ErrExpired)
		case "deleted":
			return auth.Identity{}, auth.ErrUnauthenticated
		default:
			return auth.Identity{}, fmt.Errorf("%w: %w", auth.ErrUnauthenticated, auth.ErrInvalidSignature)
		}
	}}
	r := setupGuardRouter(authn)

	tests := []struct {
		name   string
		header string
	}{
		{name: "absent", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "empty bearer", header: "Bearer "},
		{name: "bearer with spaces", header: "Bearer a b"},
		{name: "expired", header: "Bearer expired"},
		{name: "tampered", header: "Bearer tampered"},
		{name: "deleted user", header: "Bearer deleted"},
	}

	var first string
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("X-Request-Id", "fixed")
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d body=%s", w.Code, w.Body.String())
			}

			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error.Code != "unauthenticated" {
				t.Fatalf("code = %q", body.Error.Code)
			}

			if first == "" {
				first = w.Body.String()
			} else if w.Body.String() != first {
				t.Fatalf("responses differ:\n%s\n%s", first, w.Body.String())
			}
		})
	}
}

func TestRequireAuth_PassesIdentity(t *testing.T) {
	r := setupGuardRouter(fakeAuthenticator{fn: func(_ context.Context, raw string) (auth.Identity, error) {
		return auth.Identity{UserID: "u1", Username: "alice"}, nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"userId":"u1"}` {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRequireAuth_StoreOutageIs500(t *testing.T) {
	r := setupGuardRouter(fakeAuthenticator{fn: func(context.Context, string) (auth.Identity, error) {
		return auth.Identity{}, fmt.Errorf("%w: %w", auth.ErrInternal, errors.New("db down"))
	}})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestRequireSelf(t *testing.T) {
	r := setupGuardRouter(fakeAuthenticator{fn: func(context.Context, string) (auth.Identity, error) {
		return auth.Identity{UserID: "u1"}, nil
	}})

	for path, want := range map[string]int{
		"/users/u1": http.StatusOK,
		"/users/u2": http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}
