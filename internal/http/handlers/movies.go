package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/PeterWorld816/movieapi/internal/config"
	"github.com/PeterWorld816/movieapi/internal/domain/movie"
	"github.com/gin-gonic/gin"
)

type MoviesHandler struct {
	repo movie.Repository
	log  *slog.Logger
}

func NewMoviesHandler(repo movie.Repository, log *slog.Logger) *MoviesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MoviesHandler{repo: repo, log: log}
}

// List handles GET /movies.
func (h *MoviesHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	movies, err := h.repo.List(cctx)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list movies failed", "err", err)
		RespondInternal(ctx, "Could not list movies")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, movies)
}

// GetByTitle handles GET /movies/:title.
func (h *MoviesHandler) GetByTitle(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	m, err := h.repo.FindByTitle(cctx, ctx.Param("title"))
	if err != nil {
		h.respondLookupError(ctx, err, movie.ErrNotFound, "Movie not found")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, m)
}

// GetGenre handles GET /genres/:name.
func (h *MoviesHandler) GetGenre(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	g, err := h.repo.GenreByName(cctx, ctx.Param("name"))
	if err != nil {
		h.respondLookupError(ctx, err, movie.ErrGenreNotFound, "Genre not found")
		return
	}

	ctx.JSON(http.StatusOK, g)
}

// GetDirector handles GET /directors/:name.
func (h *MoviesHandler) GetDirector(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	d, err := h.repo.DirectorByName(cctx, ctx.Param("name"))
	if err != nil {
		h.respondLookupError(ctx, err, movie.ErrDirectorNotFound, "Director not found")
		return
	}

	ctx.JSON(http.StatusOK, d)
}

func (h *MoviesHandler) respondLookupError(ctx *gin.Context, err, notFound error, message string) {
	if errors.Is(err, notFound) {
		RespondNotFound(ctx, message)
		return
	}

	h.log.ErrorContext(ctx.Request.Context(), "movie lookup failed", "err", err)
	RespondInternal(ctx, "Something went wrong")
}
