package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/google/uuid"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
	order []string // insertion order, oldest first

	uniqueUsername bool
}

func NewUsersRepo(uniqueUsername bool) *UsersRepo {
	return &UsersRepo{
		items:          make(map[string]user.User),
		uniqueUsername: uniqueUsername,
	}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique("", u.Username, u.Email); err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Favorites == nil {
		u.Favorites = []string{}
	}

	r.items[u.ID] = clone(u)
	r.order = append(r.order, u.ID)

	return clone(u), nil
}

func (r *UsersRepo) FindByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return clone(u), nil
}

// FindByUsername returns the oldest account with that username.
func (r *UsersRepo) FindByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if u := r.items[id]; u.Username == username {
			return clone(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if u := r.items[id]; u.Email == email {
			return clone(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Update(_ context.Context, id string, p user.Patch) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	name, email := u.Username, u.Email
	if p.Username != nil {
		name = *p.Username
	}
	if p.Email != nil {
		email = *p.Email
	}
	if err := r.checkUnique(id, name, email); err != nil {
		return user.User{}, err
	}

	u.Username = name
	u.Email = email
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
	u.UpdatedAt = time.Now().UTC()

	r.items[id] = u
	return clone(u), nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return nil
}

func (r *UsersRepo) AddFavorite(_ context.Context, id, movieID string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if !slices.Contains(u.Favorites, movieID) {
		u.Favorites = append(slices.Clone(u.Favorites), movieID)
		u.UpdatedAt = time.Now().UTC()
		r.items[id] = u
	}
	return clone(u), nil
}

func (r *UsersRepo) RemoveFavorite(_ context.Context, id, movieID string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if slices.Contains(u.Favorites, movieID) {
		u.Favorites = slices.DeleteFunc(slices.Clone(u.Favorites), func(v string) bool { return v == movieID })
		u.UpdatedAt = time.Now().UTC()
		r.items[id] = u
	}
	return clone(u), nil
}

// checkUnique mirrors the unique indexes of the real stores. Caller holds mu.
func (r *UsersRepo) checkUnique(selfID, username, email string) error {
	for id, u := range r.items {
		if id == selfID {
			continue
		}
		if u.Email == email {
			return user.ErrDuplicateEmail
		}
		if r.uniqueUsername && u.Username == username {
			return user.ErrDuplicateUsername
		}
	}
	return nil
}

func clone(u user.User) user.User {
	u.Favorites = slices.Clone(u.Favorites)
	if u.Favorites == nil {
		u.Favorites = []string{}
	}
	return u
}
