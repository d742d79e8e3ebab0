package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/PeterWorld816/movieapi/internal/config"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Register(ctx context.Context, in auth.RegisterInput) (user.User, error)
	Login(ctx context.Context, username, password string) (auth.Token, error)
}

type AuthHandler struct {
	svc Authenticator
	log *slog.Logger
}

func NewAuthHandler(svc Authenticator, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{svc: svc, log: log}
}

// Register handles POST /users/register and its alias POST /users.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	dob, err := user.ParseDate(req.DateOfBirth)
	if err != nil {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
			Field:   "dateOfBirth",
			Rule:    "datetime",
			Param:   user.DateLayout,
			Message: validationMessage("datetime", user.DateLayout),
		}}})
		return
	}

	// hashing waits on the hash semaphore, so this budget is generous
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	u, err := h.svc.Register(cctx, auth.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		DateOfBirth: dob,
	})
	if err != nil {
		respondAccountError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"id":      u.ID,
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	tok, err := h.svc.Login(cctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			RespondUnauthorized(ctx, "invalid_credentials", "Invalid username or password")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "login failed", "err", err)
		RespondInternal(ctx, "Something went wrong")
		return
	}

	ctx.JSON(http.StatusOK, tok)
}
