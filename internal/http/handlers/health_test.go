package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PeterWorld816/movieapi/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		checks   map[string]handlers.Pinger
		draining bool
		want     int
	}{
		{name: "no checks", want: http.StatusOK},
		{
			name:   "store up",
			checks: map[string]handlers.Pinger{"store": func(context.Context) error { return nil }},
			want:   http.StatusOK,
		},
		{
			name: "redis down",
			checks: map[string]handlers.Pinger{
				"store": func(context.Context) error { return nil },
				"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
			},
			want: http.StatusServiceUnavailable,
		},
		{
			name:     "draining",
			checks:   map[string]handlers.Pinger{"store": func(context.Context) error { return nil }},
			draining: true,
			want:     http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tc.checks, func() bool { return tc.draining })
			r := gin.New()
			r.GET("/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
