package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/PeterWorld816/movieapi/internal/domain/user"
	"github.com/PeterWorld816/movieapi/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	emailUniqueIndex    = "users_email_unique"
	usernameUniqueIndex = "users_username_unique"
)

const userColumns = `id, username, email, password_hash, date_of_birth, favorites, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

// EnsureUniqueUsername adds the optional username index. Existing
// duplicates make it fail, which is reported to the caller.
func (r *UsersRepo) EnsureUniqueUsername(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS `+usernameUniqueIndex+` ON users (username)`)
	return err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	favs := u.Favorites
	if favs == nil {
		favs = []string{}
	}

	var out user.User
	err := r.prom.ObserveDB("users.create", func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO users (id, username, email, password_hash, date_of_birth, favorites)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING `+userColumns,
			uuid.NewString(), u.Username, u.Email, u.PasswordHash, dateArg(u.DateOfBirth), favs,
		)
		var err error
		out, err = scanUser(row)
		return err
	})
	if err != nil {
		return user.User{}, mapWriteErr(err)
	}

	return out, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	return r.findOne(ctx, "users.find_by_id", `WHERE id = $1`, id)
}

// FindByUsername returns the oldest account with that username.
func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, error) {
	return r.findOne(ctx, "users.find_by_username", `WHERE username = $1 ORDER BY created_at, id LIMIT 1`, username)
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.find_by_email", `WHERE email = $1`, email)
}

func (r *UsersRepo) findOne(ctx context.Context, op, where string, arg any) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, p user.Patch) (user.User, error) {
	var dob *time.Time
	if p.DateOfBirth != nil {
		t := p.DateOfBirth.Time
		dob = &t
	}

	return r.updateOne(ctx, "users.update",
		`UPDATE users SET
			username      = COALESCE($2, username),
			email         = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			date_of_birth = COALESCE($5, date_of_birth),
			updated_at    = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, p.Username, p.Email, p.PasswordHash, dob,
	)
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return user.ErrNotFound
	}

	var tag pgconn.CommandTag
	err := r.prom.ObserveDB("users.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) AddFavorite(ctx context.Context, id, movieID string) (user.User, error) {
	return r.updateOne(ctx, "users.add_favorite",
		`UPDATE users SET
			favorites  = CASE WHEN $2::text = ANY(favorites) THEN favorites ELSE array_append(favorites, $2::text) END,
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, movieID,
	)
}

func (r *UsersRepo) RemoveFavorite(ctx context.Context, id, movieID string) (user.User, error) {
	return r.updateOne(ctx, "users.remove_favorite",
		`UPDATE users SET
			favorites  = array_remove(favorites, $2::text),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, movieID,
	)
}

func (r *UsersRepo) updateOne(ctx context.Context, op, sql, id string, args ...any) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var u user.User
	err := r.prom.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, sql, append([]any{id}, args...)...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, mapWriteErr(err)
	}

	return u, nil
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u   user.User
		dob *time.Time
	)

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &dob, &u.Favorites, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}

	if dob != nil {
		u.DateOfBirth = user.Date{Time: dob.UTC()}
	}
	if u.Favorites == nil {
		u.Favorites = []string{}
	}
	return u, nil
}

func dateArg(d user.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	if pgErr.ConstraintName == usernameUniqueIndex {
		return user.ErrDuplicateUsername
	}
	return user.ErrDuplicateEmail
}
