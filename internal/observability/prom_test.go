package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinHandleMiddleware_CountsByRouteTemplate(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/movies/:title", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, title := range []string{"Alien", "Heat"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/movies/"+title, nil))
	}

	got := testutil.ToFloat64(p.RequestsTotal.WithLabelValues(http.MethodGet, "/movies/:title", "200"))
	if got != 2 {
		t.Fatalf("requests_total = %v, want 2", got)
	}
}

func TestObserveDB_ClassifiesErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("users.create", func() error {
		return &pgconn.PgError{Code: "23505"}
	})
	_ = p.ObserveDB("users.create", func() error { return nil })
	_ = p.ObserveDB("users.find_by_id", func() error {
		return errors.New("dial tcp: connection refused")
	})

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")); got != 1 {
		t.Fatalf("unique_violation = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.find_by_id", "connection")); got != 1 {
		t.Fatalf("connection = %v, want 1", got)
	}
}

func TestObserveDB_NilProm(t *testing.T) {
	var p *Prom
	want := errors.New("boom")

	if err := p.ObserveDB("op", func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
}
