package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var userColumnNames = []string{
	"id", "email", "firstname", "lastname", "mobile", "password_hash", "is_blocked",
	"refresh_token_hash", "refresh_token_expires_at", "reset_token_hash", "reset_token_expires_at",
	"created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)

	s := New(mock)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func userRow(refreshHash *string, refreshExp *time.Time, resetHash *string, resetExp *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(userColumnNames).AddRow(
		"6f1c2d3e-0000-4000-8000-000000000001", "ada@example.com", "Ada", "Lovelace", "", "hash", false,
		refreshHash, refreshExp, resetHash, resetExp,
		fixedNow, fixedNow,
	)
}

func TestCreateUser(t *testing.T) {
	insertArgs := []any{
		pgxmock.AnyArg(), "ada@example.com", "Ada", "", "", "hash", false,
		nil, nil, nil, nil, fixedNow, fixedNow,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "inserts with generated id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(insertArgs...).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(insertArgs...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr:  goAccount.ErrAlreadyExists,
			wantCode: "USER_EXISTS",
		},
		{
			name: "connection failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(insertArgs...).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			tt.setupMock(mock)

			u := &goAccount.User{Email: "ada@example.com", FirstName: "Ada", PasswordHash: "hash"}
			err := s.CreateUser(context.Background(), u)

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, u.ID)
				assert.Equal(t, fixedNow, u.CreatedAt)
			} else {
				require.Error(t, err)
				assertCode(t, err, tt.wantCode)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestGetUserByID(t *testing.T) {
	refreshExp := fixedNow.Add(72 * time.Hour)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE id = \$1`).
					WithArgs("6f1c2d3e-0000-4000-8000-000000000001").
					WillReturnRows(userRow(strPtr("refresh-hash"), timePtr(refreshExp), nil, nil))
			},
		},
		{
			name: "no rows",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE id = \$1`).
					WithArgs("6f1c2d3e-0000-4000-8000-000000000001").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr:  goAccount.ErrNotFound,
			wantCode: "USER_NOT_FOUND",
		},
		{
			name: "malformed uuid",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE id = \$1`).
					WithArgs("6f1c2d3e-0000-4000-8000-000000000001").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})
			},
			wantErr:  goAccount.ErrNotFound,
			wantCode: "USER_NOT_FOUND",
		},
		{
			name: "query failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE id = \$1`).
					WithArgs("6f1c2d3e-0000-4000-8000-000000000001").
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: "USER_GET_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			tt.setupMock(mock)

			u, err := s.GetUserByID(context.Background(), "6f1c2d3e-0000-4000-8000-000000000001")

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "ada@example.com", u.Email)
				assert.Equal(t, goAccount.TokenState{Hash: "refresh-hash", ExpiresAt: refreshExp}, u.Refresh)
				assert.True(t, u.Reset.IsZero())
			} else {
				require.Error(t, err)
				assert.Nil(t, u)
				assertCode(t, err, tt.wantCode)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRefreshToken(t *testing.T) {
	exp := fixedNow.Add(72 * time.Hour)

	t.Run("stores hash and expiry", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("id-1", "h", exp, fixedNow).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := s.SetRefreshToken(context.Background(), "id-1", goAccount.TokenState{Hash: "h", ExpiresAt: exp})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero state clears columns", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("id-1", nil, nil, fixedNow).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.SetRefreshToken(context.Background(), "id-1", goAccount.TokenState{}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("id-1", "h", exp, fixedNow).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.SetRefreshToken(context.Background(), "id-1", goAccount.TokenState{Hash: "h", ExpiresAt: exp})
		assert.ErrorIs(t, err, goAccount.ErrNotFound)
		assertCode(t, err, "USER_NOT_FOUND")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdatePasswordHashFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs("id-1", "new-hash", fixedNow).
		WillReturnError(errors.New("connection reset"))

	err := s.UpdatePasswordHash(context.Background(), "id-1", "new-hash")
	require.Error(t, err)
	assertCode(t, err, "USER_UPDATE_FAILED")
	assert.NotErrorIs(t, err, goAccount.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBlocked(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE users SET is_blocked`).
		WithArgs("id-1", true, fixedNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.SetBlocked(context.Background(), "id-1", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTakeResetToken(t *testing.T) {
	resetExp := fixedNow.Add(10 * time.Minute)

	t.Run("returns record before clearing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`WITH prev AS`).
			WithArgs("reset-hash", fixedNow).
			WillReturnRows(userRow(nil, nil, strPtr("reset-hash"), timePtr(resetExp)))

		u, err := s.TakeResetToken(context.Background(), "reset-hash")
		require.NoError(t, err)
		assert.Equal(t, goAccount.TokenState{Hash: "reset-hash", ExpiresAt: resetExp}, u.Reset)
		assert.True(t, u.Refresh.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already taken", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`WITH prev AS`).
			WithArgs("reset-hash", fixedNow).
			WillReturnError(pgx.ErrNoRows)

		_, err := s.TakeResetToken(context.Background(), "reset-hash")
		assert.ErrorIs(t, err, goAccount.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
