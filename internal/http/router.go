package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/PeterWorld816/movieapi/internal/domain/movie"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/PeterWorld816/movieapi/internal/http/handlers"
	"github.com/PeterWorld816/movieapi/internal/http/middlewares"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Accounts is everything the HTTP layer needs from the auth service.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (user.User, error)
	Login(ctx context.Context, username, password string) (auth.Token, error)
	Authenticate(ctx context.Context, rawToken string) (auth.Identity, error)
	UpdateProfile(ctx context.Context, id string, in auth.ProfileUpdate) (user.User, error)
	Deregister(ctx context.Context, id string) error
}

type Deps struct {
	Log         *slog.Logger
	Env         string
	ServiceName string

	Accounts Accounts
	Users    user.Repository
	Movies   movie.Repository

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// RateStore backs the login and register limiter. Nil means in-process.
	RateStore      middlewares.CounterStore
	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	// Ready lists the dependencies /readyz pings.
	Ready map[string]handlers.Pinger
	// Draining flips /readyz to 503 while the server shuts down.
	Draining func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && d.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.ServiceName == "" {
		d.ServiceName = "movieapi"
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// ops
	h := handlers.NewHealthHandler(d.Ready, d.Draining)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	rateStore := d.RateStore
	if rateStore == nil {
		rateStore = middlewares.NewMemoryCounter()
	}
	limiter := middlewares.NewRateLimiter(rateStore, d.AuthRateLimit, d.AuthRateWindow, d.Prom, d.Log)
	limitByIP := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Log)
	usersHandler := handlers.NewUsersHandler(d.Accounts, d.Users, d.Movies, d.Log)
	moviesHandler := handlers.NewMoviesHandler(d.Movies, d.Log)
	authMW := middlewares.NewAuthMiddleware(d.Accounts, d.Log)

	// public
	r.POST("/users/register", limitByIP, authHandler.Register)
	r.POST("/users", limitByIP, authHandler.Register)
	r.POST("/login", limitByIP, authHandler.Login)

	// catalog
	protected := r.Group("/", authMW.RequireAuth())
	protected.GET("/movies", moviesHandler.List)
	protected.GET("/movies/:title", moviesHandler.GetByTitle)
	protected.GET("/genres/:name", moviesHandler.GetGenre)
	protected.GET("/directors/:name", moviesHandler.GetDirector)

	// own account only
	self := protected.Group("/users/:id", authMW.RequireSelf("id"))
	self.PUT("", usersHandler.UpdateProfile)
	self.DELETE("", usersHandler.Deregister)
	self.POST("/favorites/:movieId", usersHandler.AddFavorite)
	self.DELETE("/favorites/:movieId", usersHandler.RemoveFavorite)

	return r
}
