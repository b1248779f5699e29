package postgres

import (
	"context"
	"errors"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// poolIface is the subset of *pgxpool.Pool the store uses, so tests can
// substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id::text, email, firstname, lastname, mobile, password_hash, is_blocked,
	refresh_token_hash, refresh_token_expires_at, reset_token_hash, reset_token_expires_at,
	created_at, updated_at`

// Store implements goAccount.UserStore on a users table.
type Store struct {
	pool poolIface
	now  func() time.Time
}

// New returns a store using pool.
func New(pool poolIface) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Connect opens a pgx pool for dsn and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

func (s *Store) CreateUser(ctx context.Context, user *goAccount.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	refreshHash, refreshExp := tokenArgs(user.Refresh)
	resetHash, resetExp := tokenArgs(user.Reset)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, firstname, lastname, mobile, password_hash, is_blocked,
			refresh_token_hash, refresh_token_expires_at, reset_token_hash, reset_token_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		user.ID, user.Email, user.FirstName, user.LastName, user.Mobile, user.PasswordHash, user.IsBlocked,
		refreshHash, refreshExp, resetHash, resetExp,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isCode(err, pgerrcode.UniqueViolation) {
			return oops.Code("USER_EXISTS").With("email", user.Email).Wrap(goAccount.ErrAlreadyExists)
		}
		return oops.Code("USER_CREATE_FAILED").With("operation", "insert user").Wrap(err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*goAccount.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return s.scanOne(row, "id", userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*goAccount.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return s.scanOne(row, "email", email)
}

func (s *Store) GetUserByRefreshHash(ctx context.Context, hash string) (*goAccount.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token_hash = $1`, hash)
	return s.scanOne(row, "refresh_token_hash", "<redacted>")
}

func (s *Store) SetRefreshToken(ctx context.Context, userID string, state goAccount.TokenState) error {
	hash, exp := tokenArgs(state)
	return s.execOne(ctx, "set refresh token", userID, `
		UPDATE users
		SET refresh_token_hash = $2, refresh_token_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, userID, hash, exp, s.now().UTC())
}

func (s *Store) SetResetToken(ctx context.Context, userID string, state goAccount.TokenState) error {
	hash, exp := tokenArgs(state)
	return s.execOne(ctx, "set reset token", userID, `
		UPDATE users
		SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = $4
		WHERE id = $1
	`, userID, hash, exp, s.now().UTC())
}

// TakeResetToken clears the matching reset token in one statement. The row
// lock taken by the CTE makes concurrent callers with the same hash
// re-evaluate against the cleared row, so only one of them matches.
func (s *Store) TakeResetToken(ctx context.Context, hash string) (*goAccount.User, error) {
	row := s.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, reset_token_hash, reset_token_expires_at
			FROM users
			WHERE reset_token_hash = $1
			FOR UPDATE
		)
		UPDATE users u
		SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $2
		FROM prev
		WHERE u.id = prev.id
		RETURNING u.id::text, u.email, u.firstname, u.lastname, u.mobile, u.password_hash, u.is_blocked,
			u.refresh_token_hash, u.refresh_token_expires_at, prev.reset_token_hash, prev.reset_token_expires_at,
			u.created_at, u.updated_at
	`, hash, s.now().UTC())
	return s.scanOne(row, "reset_token_hash", "<redacted>")
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	return s.execOne(ctx, "update password hash", userID, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, userID, passwordHash, s.now().UTC())
}

// SetBlocked flips the blocked flag for administrative tooling.
func (s *Store) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	return s.execOne(ctx, "set blocked", userID, `
		UPDATE users SET is_blocked = $2, updated_at = $3 WHERE id = $1
	`, userID, blocked, s.now().UTC())
}

func (s *Store) execOne(ctx context.Context, op, userID, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		if isCode(err, pgerrcode.InvalidTextRepresentation) {
			return oops.Code("USER_NOT_FOUND").With("id", userID).Wrap(goAccount.ErrNotFound)
		}
		return oops.Code("USER_UPDATE_FAILED").With("operation", op).With("id", userID).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", userID).Wrap(goAccount.ErrNotFound)
	}
	return nil
}

func (s *Store) scanOne(row pgx.Row, key, value string) (*goAccount.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) || isCode(err, pgerrcode.InvalidTextRepresentation) {
		return nil, oops.Code("USER_NOT_FOUND").With(key, value).Wrap(goAccount.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With("operation", "get user by "+key).Wrap(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*goAccount.User, error) {
	var (
		u                      goAccount.User
		refreshHash, resetHash *string
		refreshExp, resetExp   *time.Time
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Mobile, &u.PasswordHash, &u.IsBlocked,
		&refreshHash, &refreshExp, &resetHash, &resetExp,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Refresh = tokenState(refreshHash, refreshExp)
	u.Reset = tokenState(resetHash, resetExp)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func tokenArgs(s goAccount.TokenState) (any, any) {
	if s.IsZero() {
		return nil, nil
	}
	return s.Hash, s.ExpiresAt.UTC()
}

func tokenState(hash *string, exp *time.Time) goAccount.TokenState {
	if hash == nil {
		return goAccount.TokenState{}
	}
	st := goAccount.TokenState{Hash: *hash}
	if exp != nil {
		st.ExpiresAt = exp.UTC()
	}
	return st
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ goAccount.UserStore = (*Store)(nil)
