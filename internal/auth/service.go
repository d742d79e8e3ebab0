package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PeterWorld816/movieapi/internal/audit"
	"github.com/PeterWorld816/movieapi/internal/cache"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"github.com/PeterWorld816/movieapi/internal/security"
	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, hash string) (bool, error)
}

type TokenManager interface {
	Issue(userID string) (string, time.Time, error)
	Verify(token string) (*Claims, error)
}

// Identity is what a verified request carries forward.
type Identity struct {
	UserID   string
	Username string
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"-"`
}

type RegisterInput struct {
	Username    string
	Password    string
	Email       string
	DateOfBirth user.Date
}

type ProfileUpdate struct {
	Username    *string
	Email       *string
	Password    *string
	DateOfBirth *user.Date
}

type Deps struct {
	Users      user.Repository
	Hasher     PasswordHasher
	Tokens     TokenManager
	Identities *cache.Cache[Identity]
	Audit      audit.Recorder
	Prom       *observability.Prom
}

type Service struct {
	users      user.Repository
	hasher     PasswordHasher
	tokens     TokenManager
	identities *cache.Cache[Identity]
	audit      audit.Recorder
	prom       *observability.Prom

	// dummyHash is compared against when the username is unknown so both
	// login failures cost one bcrypt comparison.
	dummyHash string
}

func NewService(ctx context.Context, d Deps) (*Service, error) {
	if d.Users == nil || d.Hasher == nil || d.Tokens == nil {
		return nil, errors.New("auth: users, hasher and tokens are required")
	}
	if d.Identities == nil {
		d.Identities = cache.New[Identity](30 * time.Second)
	}
	if d.Audit == nil {
		d.Audit = audit.Discard{}
	}

	dummy, err := d.Hasher.Hash(ctx, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}

	return &Service{
		users:      d.Users,
		hasher:     d.Hasher,
		tokens:     d.Tokens,
		identities: d.Identities,
		audit:      d.Audit,
		prom:       d.Prom,
		dummyHash:  dummy,
	}, nil
}

// Register stores a new user with a hashed password. The email must be
// unused; the username may repeat unless the store enforces it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	in.Email = user.NormalizeEmail(in.Email)
	in.Username = user.NormalizeUsername(in.Username)

	fail := func(reason string, err error) (user.User, error) {
		s.audit.Record(ctx, audit.Event{Action: audit.ActionRegister, Outcome: audit.OutcomeFailure, Reason: reason, Subject: in.Username})
		return user.User{}, err
	}

	if in.Username == "" {
		return fail(audit.ReasonInvalidInput, user.ErrEmptyUsername)
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return fail(audit.ReasonDuplicateEmail, user.ErrDuplicateEmail)
	case !errors.Is(err, user.ErrNotFound):
		return fail(audit.ReasonStoreError, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	hash, err := s.hash(ctx, in.Password)
	if err != nil {
		return user.User{}, err
	}

	created, err := s.users.Create(ctx, user.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		DateOfBirth:  in.DateOfBirth,
		Favorites:    []string{},
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			return fail(audit.ReasonDuplicateEmail, user.ErrDuplicateEmail)
		case errors.Is(err, user.ErrDuplicateUsername):
			return fail(audit.ReasonDuplicateName, user.ErrDuplicateUsername)
		default:
			return fail(audit.ReasonStoreError, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
	}

	s.audit.Record(ctx, audit.Event{Action: audit.ActionRegister, Outcome: audit.OutcomeSuccess, UserID: created.ID, Subject: created.Username})
	return created, nil
}

// Login verifies the credential pair and issues a token with the default
// lifetime. Unknown user and wrong password both yield ErrInvalidCredential.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	username = user.NormalizeUsername(username)

	fail := func(reason, userID string, err error) (Token, error) {
		s.audit.Record(ctx, audit.Event{Action: audit.ActionLogin, Outcome: audit.OutcomeFailure, Reason: reason, UserID: userID, Subject: username})
		return Token{}, err
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_, _ = s.verify(ctx, password, s.dummyHash)
			return fail(audit.ReasonUserNotFound, "", ErrInvalidCredential)
		}
		return fail(audit.ReasonStoreError, "", fmt.Errorf("%w: %w", ErrInternal, err))
	}

	ok, err := s.verify(ctx, password, u.PasswordHash)
	if err != nil {
		if errors.Is(err, security.ErrMalformedHash) {
			return fail(audit.ReasonMalformedHash, u.ID, fmt.Errorf("%w: %w", ErrInternal, err))
		}
		return fail(audit.ReasonStoreError, u.ID, fmt.Errorf("%w: %w", ErrInternal, err))
	}
	if !ok {
		return fail(audit.ReasonPasswordMismatch, u.ID, ErrInvalidCredential)
	}

	raw, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return fail("issue_failed", u.ID, fmt.Errorf("%w: %w", ErrInternal, err))
	}

	s.identities.Set(u.ID, Identity{UserID: u.ID, Username: u.Username})
	s.audit.Record(ctx, audit.Event{Action: audit.ActionLogin, Outcome: audit.OutcomeSuccess, UserID: u.ID, Subject: username})

	return Token{Token: raw, ExpiresAt: exp, UserID: u.ID}, nil
}

// Authenticate verifies a bearer token and resolves its subject to a user
// that still exists. Every failure wraps ErrUnauthenticated except store
// outages, which wrap ErrInternal.
func (s *Service) Authenticate(ctx context.Context, raw string) (Identity, error) {
	fail := func(reason, userID string, err error) (Identity, error) {
		s.audit.Record(ctx, audit.Event{Action: audit.ActionAuthenticate, Outcome: audit.OutcomeFailure, Reason: reason, UserID: userID})
		return Identity{}, err
	}

	if raw == "" {
		return fail(audit.ReasonMissingToken, "", ErrUnauthenticated)
	}

	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return fail(tokenReason(err), "", fmt.Errorf("%w: %w", ErrUnauthenticated, err))
	}

	id := claims.UserID()
	if ident, ok := s.identities.Get(id); ok {
		return ident, nil
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return fail(audit.ReasonUserNotFound, id, fmt.Errorf("%w: %w", ErrUnauthenticated, err))
		}
		return fail(audit.ReasonStoreError, id, fmt.Errorf("%w: %w", ErrInternal, err))
	}

	ident := Identity{UserID: u.ID, Username: u.Username}
	s.identities.Set(u.ID, ident)

	return ident, nil
}

// UpdateProfile applies a partial update. A new password goes through the
// same hasher as registration.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (user.User, error) {
	fail := func(reason string, err error) (user.User, error) {
		s.audit.Record(ctx, audit.Event{Action: audit.ActionUpdate, Outcome: audit.OutcomeFailure, Reason: reason, UserID: id})
		return user.User{}, err
	}

	var patch user.Patch

	if in.Username != nil {
		name := user.NormalizeUsername(*in.Username)
		if name == "" {
			return fail(audit.ReasonInvalidInput, user.ErrEmptyUsername)
		}
		patch.Username = &name
	}

	if in.Email != nil {
		email := user.NormalizeEmail(*in.Email)

		existing, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return fail(audit.ReasonDuplicateEmail, user.ErrDuplicateEmail)
		case err != nil && !errors.Is(err, user.ErrNotFound):
			return fail(audit.ReasonStoreError, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
		patch.Email = &email
	}

	if in.Password != nil {
		hash, err := s.hash(ctx, *in.Password)
		if err != nil {
			return user.User{}, err
		}
		patch.PasswordHash = &hash
	}

	if in.DateOfBirth != nil {
		dob := *in.DateOfBirth
		patch.DateOfBirth = &dob
	}

	if patch.Empty() {
		return s.users.FindByID(ctx, id)
	}

	updated, err := s.users.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return user.User{}, user.ErrNotFound
		case errors.Is(err, user.ErrDuplicateEmail):
			return fail(audit.ReasonDuplicateEmail, user.ErrDuplicateEmail)
		case errors.Is(err, user.ErrDuplicateUsername):
			return fail(audit.ReasonDuplicateName, user.ErrDuplicateUsername)
		default:
			return fail(audit.ReasonStoreError, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
	}

	s.identities.Set(updated.ID, Identity{UserID: updated.ID, Username: updated.Username})
	s.audit.Record(ctx, audit.Event{Action: audit.ActionUpdate, Outcome: audit.OutcomeSuccess, UserID: id})

	return updated, nil
}

// Deregister deletes the account. Outstanding tokens stop resolving once
// the cached identity is gone.
func (s *Service) Deregister(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.identities.Delete(id)
	s.audit.Record(ctx, audit.Event{Action: audit.ActionDeregister, Outcome: audit.OutcomeSuccess, UserID: id})

	return nil
}

func (s *Service) hash(ctx context.Context, plain string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.Hash(ctx, plain)
	if s.prom != nil {
		s.prom.ObserveHash("hash", start)
	}
	if err != nil {
		if errors.Is(err, security.ErrEmptyPassword) || errors.Is(err, security.ErrPasswordTooLong) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return hash, nil
}

func (s *Service) verify(ctx context.Context, plain, hash string) (bool, error) {
	start := time.Now()
	ok, err := s.hasher.Verify(ctx, plain, hash)
	if s.prom != nil {
		s.prom.ObserveHash("verify", start)
	}
	return ok, err
}

func tokenReason(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return audit.ReasonExpired
	case errors.Is(err, ErrInvalidSignature):
		return audit.ReasonBadSignature
	default:
		return audit.ReasonMalformedToken
	}
}
