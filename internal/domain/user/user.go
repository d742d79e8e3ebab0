package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DateLayout is how dates of birth travel over the wire.
const DateLayout = "2006-01-02"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	DateOfBirth  Date      `json:"dateOfBirth"`
	Favorites    []string  `json:"favorites"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrEmptyUsername     = errors.New("username is empty")
)

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	DateOfBirth  *Date
}

func (p Patch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.PasswordHash == nil && p.DateOfBirth == nil
}

// Repository is the credential store.
type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, id string, p Patch) (User, error)
	Delete(ctx context.Context, id string) error
	AddFavorite(ctx context.Context, id, movieID string) (User, error)
	RemoveFavorite(ctx context.Context, id, movieID string) (User, error)
}

// NormalizeUsername is applied wherever a username is stored or looked up.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=1,max=64"`
	Password    string `json:"password" binding:"required,max=72"`
	Email       string `json:"email" binding:"required,email,max=254"`
	DateOfBirth string `json:"dateOfBirth" binding:"required,datetime=2006-01-02"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries optional fields, absent ones are untouched.
type UpdateProfileRequest struct {
	Username    *string `json:"username" binding:"omitempty,min=1,max=64"`
	Password    *string `json:"password" binding:"omitempty,min=1,max=72"`
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	DateOfBirth *string `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
}
