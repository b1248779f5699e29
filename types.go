package goAccount

import (
	"context"
	"time"
)

// TokenState is the persisted half of a refresh or reset token: the hex
// sha256 of the raw value and its expiry. The zero value means no token.
type TokenState struct {
	Hash      string
	ExpiresAt time.Time
}

// IsZero reports whether no token is stored.
func (s TokenState) IsZero() bool {
	return s.Hash == ""
}

// Expired reports whether the state expired at or before now.
func (s TokenState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// User is the account record owned by a [UserStore]. The engine mutates only
// the token fields and the password hash.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstname,omitempty"`
	LastName     string    `json:"lastname,omitempty"`
	Mobile       string    `json:"mobile,omitempty"`
	IsBlocked    bool      `json:"isBlocked"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	PasswordHash string    `json:"-"`

	Refresh TokenState `json:"-"`
	Reset   TokenState `json:"-"`
}

// Clone returns a copy safe to hand across store boundaries.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

// NewUser is the registration input.
type NewUser struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
}

// UserStore persists user records. Every method is a single-record atomic
// operation; implementations return [ErrNotFound] for missing records and
// [ErrAlreadyExists] for a duplicate email on create.
//
// Emails arrive already normalized (trimmed, lower-cased).
type UserStore interface {
	// CreateUser inserts the user, assigning ID when empty.
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUserByRefreshHash resolves the user whose stored refresh hash equals hash.
	GetUserByRefreshHash(ctx context.Context, hash string) (*User, error)
	// SetRefreshToken overwrites the stored refresh state. A zero state clears it.
	SetRefreshToken(ctx context.Context, userID string, state TokenState) error
	// SetResetToken overwrites the stored reset state. A zero state clears it.
	SetResetToken(ctx context.Context, userID string, state TokenState) error
	// TakeResetToken atomically clears the reset state of the user whose
	// stored reset hash equals hash and returns the record as it was before
	// clearing.
	TakeResetToken(ctx context.Context, hash string) (*User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// Email is an outbound message handed to a [Mailer].
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *User
}

// RefreshResult is returned by [Engine.Refresh]. The refresh token itself is
// not rotated.
type RefreshResult struct {
	AccessToken string
	UserID      string
}
