package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/PeterWorld816/movieapi/internal/config"
	"github.com/PeterWorld816/movieapi/internal/domain/movie"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	UpdateProfile(ctx context.Context, id string, in auth.ProfileUpdate) (user.User, error)
	Deregister(ctx context.Context, id string) error
}

type FavoritesStore interface {
	AddFavorite(ctx context.Context, id, movieID string) (user.User, error)
	RemoveFavorite(ctx context.Context, id, movieID string) (user.User, error)
}

type MovieFinder interface {
	FindByID(ctx context.Context, id string) (movie.Movie, error)
}

type UsersHandler struct {
	accounts  AccountService
	favorites FavoritesStore
	movies    MovieFinder
	log       *slog.Logger
}

func NewUsersHandler(accounts AccountService, favorites FavoritesStore, movies MovieFinder, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{
		accounts:  accounts,
		favorites: favorites,
		movies:    movies,
		log:       log,
	}
}

// UpdateProfile handles PUT /users/:id.
func (h *UsersHandler) UpdateProfile(ctx *gin.Context) {
	var req user.UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	in := auth.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.DateOfBirth != nil {
		dob, err := user.ParseDate(*req.DateOfBirth)
		if err != nil {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "dateOfBirth",
				Rule:    "datetime",
				Param:   user.DateLayout,
				Message: validationMessage("datetime", user.DateLayout),
			}}})
			return
		}
		in.DateOfBirth = &dob
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	u, err := h.accounts.UpdateProfile(cctx, ctx.Param("id"), in)
	if err != nil {
		respondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// AddFavorite handles POST /users/:id/favorites/:movieId.
func (h *UsersHandler) AddFavorite(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	movieID := ctx.Param("movieId")

	if _, err := h.movies.FindByID(cctx, movieID); err != nil {
		if errors.Is(err, movie.ErrNotFound) {
			RespondNotFound(ctx, "Movie not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "find movie failed", "err", err)
		RespondInternal(ctx, "Something went wrong")
		return
	}

	u, err := h.favorites.AddFavorite(cctx, ctx.Param("id"), movieID)
	if err != nil {
		h.respondFavoritesError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"favorites": u.Favorites})
}

// RemoveFavorite handles DELETE /users/:id/favorites/:movieId. Removing a
// movie that is not a favorite is not an error.
func (h *UsersHandler) RemoveFavorite(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.favorites.RemoveFavorite(cctx, ctx.Param("id"), ctx.Param("movieId"))
	if err != nil {
		h.respondFavoritesError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"favorites": u.Favorites})
}

// Deregister handles DELETE /users/:id.
func (h *UsersHandler) Deregister(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.accounts.Deregister(cctx, ctx.Param("id")); err != nil {
		respondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deregistered successfully"})
}

func (h *UsersHandler) respondFavoritesError(ctx *gin.Context, err error) {
	if errors.Is(err, user.ErrNotFound) {
		RespondNotFound(ctx, "User not found")
		return
	}
	h.log.ErrorContext(ctx.Request.Context(), "update favorites failed", "err", err)
	RespondInternal(ctx, "Something went wrong")
}
