package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PeterWorld816/movieapi/internal/audit"
	"github.com/PeterWorld816/movieapi/internal/auth"
	"github.com/PeterWorld816/movieapi/internal/cache"
	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/PeterWorld816/movieapi/internal/repo/memory"
	"github.com/PeterWorld816/movieapi/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Record(_ context.Context, ev audit.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) last() audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	svc   *auth.Service
	users *memory.UsersRepo
	rec   *recorder
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users: memory.NewUsersRepo(false),
		rec:   &recorder{},
		now:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	hasher, err := security.NewHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)

	tokens, err := auth.NewManager("service-test-secret-service-test", time.Hour, auth.WithClock(clock))
	require.NoError(t, err)

	f.svc, err = auth.NewService(context.Background(), auth.Deps{
		Users:      f.users,
		Hasher:     hasher,
		Tokens:     tokens,
		Identities: cache.New[auth.Identity](time.Minute, cache.WithClock(clock)),
		Audit:      f.rec,
	})
	require.NoError(t, err)

	return f
}

func register(t *testing.T, f *fixture, username, email string) user.User {
	t.Helper()

	u, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Username:    username,
		Password:    "p@ss",
		Email:       email,
		DateOfBirth: user.NewDate(1990, time.January, 2),
	})
	require.NoError(t, err)
	return u
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := register(t, f, "alice", "Alice@Example.com ")
	assert.Equal(t, "alice@example.com", u.Email)

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "p@ss", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("p@ss")))

	tok, err := f.svc.Login(ctx, "alice", "p@ss")
	require.NoError(t, err)
	assert.Equal(t, u.ID, tok.UserID)
	assert.Equal(t, f.now.Add(time.Hour), tok.ExpiresAt)

	ident, err := f.svc.Authenticate(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, ident.UserID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	register(t, f, "alice", "alice@example.com")

	_, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Username: "alice2", Password: "x", Email: "ALICE@example.com",
	})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
	assert.Equal(t, audit.ReasonDuplicateEmail, f.rec.last().Reason)
}

func TestRegister_SameUsernameDistinctEmails(t *testing.T) {
	f := newFixture(t)

	a := register(t, f, "sam", "sam1@example.com")
	b := register(t, f, "sam", "sam2@example.com")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	f := newFixture(t)

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'x'
	}

	_, err := f.svc.Register(context.Background(), auth.RegisterInput{
		Username: "a", Password: string(long), Email: "a@example.com",
	})
	assert.ErrorIs(t, err, security.ErrPasswordTooLong)
}

type failingUsers struct {
	user.Repository
	err error
}

func (f failingUsers) FindByEmail(context.Context, string) (user.User, error) {
	return user.User{}, user.ErrNotFound
}

func (f failingUsers) FindByUsername(context.Context, string) (user.User, error) {
	return user.User{}, f.err
}

func (f failingUsers) Create(context.Context, user.User) (user.User, error) {
	return user.User{}, f.err
}

func TestStoreFailures(t *testing.T) {
	hasher, err := security.NewHasher(bcrypt.MinCost, 1)
	require.NoError(t, err)
	tokens, err := auth.NewManager("secret", time.Hour)
	require.NoError(t, err)

	storeErr := errors.New("connection reset by peer")
	svc, err := auth.NewService(context.Background(), auth.Deps{
		Users:  failingUsers{err: storeErr},
		Hasher: hasher,
		Tokens: tokens,
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), auth.RegisterInput{Username: "a", Password: "b", Email: "c@example.com"})
	assert.ErrorIs(t, err, auth.ErrPersistence)

	_, err = svc.Login(context.Background(), "a", "b")
	assert.ErrorIs(t, err, auth.ErrInternal)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredential)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	register(t, f, "alice", "alice@example.com")

	_, errUnknown := f.svc.Login(context.Background(), "nobody", "p@ss")
	assert.ErrorIs(t, errUnknown, auth.ErrInvalidCredential)
	assert.Equal(t, audit.ReasonUserNotFound, f.rec.last().Reason)

	_, errWrong := f.svc.Login(context.Background(), "alice", "nope")
	assert.ErrorIs(t, errWrong, auth.ErrInvalidCredential)
	assert.Equal(t, audit.ReasonPasswordMismatch, f.rec.last().Reason)

	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_MalformedStoredHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, user.User{Username: "legacy", Email: "legacy@example.com", PasswordHash: "plaintext"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "legacy", "plaintext")
	assert.ErrorIs(t, err, auth.ErrInternal)
	assert.Equal(t, audit.ReasonMalformedHash, f.rec.last().Reason)
}

func TestAuthenticate_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := register(t, f, "alice", "alice@example.com")

	tok, err := f.svc.Login(ctx, "alice", "p@ss")
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.ErrorIs(t, err, auth.ErrMalformed)

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.svc.Authenticate(ctx, tok.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.ErrorIs(t, err, auth.ErrExpired)
	assert.Equal(t, audit.ReasonExpired, f.rec.last().Reason)

	f.now = f.now.Add(-2 * time.Hour)
	require.NoError(t, f.svc.Deregister(ctx, u.ID))
	_, err = f.svc.Authenticate(ctx, tok.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Equal(t, audit.ReasonUserNotFound, f.rec.last().Reason)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "alice", "alice@example.com")
	register(t, f, "bob", "bob@example.com")

	taken := "BOB@example.com"
	_, err := f.svc.UpdateProfile(ctx, a.ID, auth.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	same := "alice@example.com"
	newPass := "n3w-pass"
	updated, err := f.svc.UpdateProfile(ctx, a.ID, auth.ProfileUpdate{Email: &same, Password: &newPass})
	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)

	_, err = f.svc.Login(ctx, "alice", "p@ss")
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)
	_, err = f.svc.Login(ctx, "alice", newPass)
	assert.NoError(t, err)

	fresh := "fresh@example.com"
	_, err = f.svc.UpdateProfile(ctx, "missing", auth.ProfileUpdate{Email: &fresh})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestDeregister_Unknown(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Deregister(context.Background(), "missing"), user.ErrNotFound)
}

func TestUsernamePaddingIsNormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := register(t, f, "dave ", "dave@example.com")
	assert.Equal(t, "dave", u.Username)

	for _, name := range []string{"dave ", "dave", "  dave"} {
		tok, err := f.svc.Login(ctx, name, "p@ss")
		require.NoError(t, err, "login as %q", name)
		assert.Equal(t, u.ID, tok.UserID)
	}

	padded := "  david\t"
	updated, err := f.svc.UpdateProfile(ctx, u.ID, auth.ProfileUpdate{Username: &padded})
	require.NoError(t, err)
	assert.Equal(t, "david", updated.Username)

	_, err = f.svc.Login(ctx, "david ", "p@ss")
	assert.NoError(t, err)
}

func TestBlankUsernameRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, auth.RegisterInput{
		Username: "   ", Password: "p@ss", Email: "blank@example.com",
	})
	assert.ErrorIs(t, err, user.ErrEmptyUsername)
	assert.Equal(t, audit.ReasonInvalidInput, f.rec.last().Reason)

	_, err = f.users.FindByEmail(ctx, "blank@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound, "no account may be created")

	u := register(t, f, "erin", "erin@example.com")
	blank := " \t "
	_, err = f.svc.UpdateProfile(ctx, u.ID, auth.ProfileUpdate{Username: &blank})
	assert.ErrorIs(t, err, user.ErrEmptyUsername)

	stored, err := f.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "erin", stored.Username)
}
