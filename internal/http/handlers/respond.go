package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/PeterWorld816/movieapi/internal/http/middlewares"
	"github.com/PeterWorld816/movieapi/internal/security"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

// respondAccountError maps registration and profile errors. Store details
// are logged, never returned.
func respondAccountError(ctx *gin.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, user.ErrDuplicateEmail):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "Email is already registered", nil)
	case errors.Is(err, user.ErrDuplicateUsername):
		RespondError(ctx, http.StatusBadRequest, "username_taken", "Username is already taken", nil)
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmptyUsername):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
			Field:   "username",
			Rule:    "required",
			Message: "must not be blank",
		}}})
	case errors.Is(err, security.ErrEmptyPassword), errors.Is(err, security.ErrPasswordTooLong):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
			Field:   "password",
			Rule:    "max",
			Param:   "72",
			Message: "must be between 1 and 72 bytes",
		}}})
	case errors.Is(err, auth.ErrPersistence):
		log.ErrorContext(ctx.Request.Context(), "persist user failed", "err", err)
		RespondError(ctx, http.StatusBadRequest, "persistence_failure", "Could not save user", nil)
	default:
		log.ErrorContext(ctx.Request.Context(), "account operation failed", "err", err)
		RespondInternal(ctx, "Something went wrong")
	}
}
