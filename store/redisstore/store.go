package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const maxRetries = 8

var (
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("redis unavailable")
	// ErrContention is returned when a record kept changing across every retry.
	ErrContention = errors.New("redis transaction contention")

	errCorrupt = errors.New("corrupt user record")
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Store implements goAccount.UserStore on Redis. It is safe for concurrent
// use, including across processes sharing the same keyspace.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New returns a store writing keys under prefix ("ga" when empty).
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ga"
	}
	return &Store{redis: client, prefix: prefix, now: time.Now}
}

func (s *Store) userKey(id string) string      { return s.prefix + ":u:" + id }
func (s *Store) emailKey(email string) string  { return s.prefix + ":ue:" + email }
func (s *Store) refreshKey(hash string) string { return s.prefix + ":ur:" + hash }
func (s *Store) resetKey(hash string) string   { return s.prefix + ":ux:" + hash }

func (s *Store) CreateUser(ctx context.Context, user *goAccount.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	data, err := encodeRecord(fromUser(user))
	if err != nil {
		return err
	}

	emailKey := s.emailKey(user.Email)
	userKey := s.userKey(user.ID)

	return s.retry(ctx, func() error {
		return s.redis.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, emailKey, userKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("email %q: %w", user.Email, goAccount.ErrAlreadyExists)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, userKey, data, 0)
				pipe.Set(ctx, emailKey, user.ID, 0)
				if user.Refresh.Hash != "" {
					pipe.Set(ctx, s.refreshKey(user.Refresh.Hash), user.ID, 0)
				}
				if user.Reset.Hash != "" {
					pipe.Set(ctx, s.resetKey(user.Reset.Hash), user.ID, 0)
				}
				return nil
			})
			return err
		}, emailKey, userKey)
	})
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*goAccount.User, error) {
	rec, err := s.load(ctx, s.redis, userID)
	if err != nil {
		return nil, err
	}
	return rec.user(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*goAccount.User, error) {
	rec, err := s.resolve(ctx, s.emailKey(email))
	if err != nil {
		return nil, err
	}
	if rec.Email != email {
		return nil, goAccount.ErrNotFound
	}
	return rec.user(), nil
}

func (s *Store) GetUserByRefreshHash(ctx context.Context, hash string) (*goAccount.User, error) {
	rec, err := s.resolve(ctx, s.refreshKey(hash))
	if err != nil {
		return nil, err
	}
	if rec.RefreshHash != hash {
		return nil, goAccount.ErrNotFound
	}
	return rec.user(), nil
}

func (s *Store) SetRefreshToken(ctx context.Context, userID string, state goAccount.TokenState) error {
	return s.update(ctx, userID, func(rec *record, pipe redis.Pipeliner) {
		if rec.RefreshHash != "" {
			pipe.Del(ctx, s.refreshKey(rec.RefreshHash))
		}
		rec.RefreshHash, rec.RefreshExp = state.Hash, state.ExpiresAt
		if state.Hash != "" {
			pipe.Set(ctx, s.refreshKey(state.Hash), userID, 0)
		}
	})
}

func (s *Store) SetResetToken(ctx context.Context, userID string, state goAccount.TokenState) error {
	return s.update(ctx, userID, func(rec *record, pipe redis.Pipeliner) {
		if rec.ResetHash != "" {
			pipe.Del(ctx, s.resetKey(rec.ResetHash))
		}
		rec.ResetHash, rec.ResetExp = state.Hash, state.ExpiresAt
		if state.Hash != "" {
			pipe.Set(ctx, s.resetKey(state.Hash), userID, 0)
		}
	})
}

// TakeResetToken clears the reset state matching hash. Of several
// concurrent callers presenting the same hash, exactly one gets the user.
func (s *Store) TakeResetToken(ctx context.Context, hash string) (*goAccount.User, error) {
	indexKey := s.resetKey(hash)
	var before *goAccount.User

	err := s.retry(ctx, func() error {
		return s.redis.Watch(ctx, func(tx *redis.Tx) error {
			id, err := tx.Get(ctx, indexKey).Result()
			if errors.Is(err, redis.Nil) {
				return goAccount.ErrNotFound
			}
			if err != nil {
				return err
			}

			if err := tx.Watch(ctx, s.userKey(id)).Err(); err != nil {
				return err
			}
			rec, err := s.load(ctx, tx, id)
			if err != nil {
				return err
			}
			if rec.ResetHash != hash {
				return goAccount.ErrNotFound
			}
			before = rec.user()

			rec.ResetHash, rec.ResetExp = "", time.Time{}
			rec.UpdatedAt = s.now().UTC()
			data, err := encodeRecord(*rec)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, indexKey)
				pipe.Set(ctx, s.userKey(id), data, 0)
				return nil
			})
			return err
		}, indexKey)
	})
	if err != nil {
		return nil, err
	}
	return before, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	return s.update(ctx, userID, func(rec *record, _ redis.Pipeliner) {
		rec.PasswordHash = passwordHash
	})
}

// SetBlocked flips the blocked flag for administrative tooling.
func (s *Store) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	return s.update(ctx, userID, func(rec *record, _ redis.Pipeliner) {
		rec.IsBlocked = blocked
	})
}

// update loads the record under WATCH, lets mutate change it and queue index
// commands, then writes it back in the same transaction.
func (s *Store) update(ctx context.Context, userID string, mutate func(*record, redis.Pipeliner)) error {
	userKey := s.userKey(userID)

	return s.retry(ctx, func() error {
		return s.redis.Watch(ctx, func(tx *redis.Tx) error {
			rec, err := s.load(ctx, tx, userID)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				mutate(rec, pipe)
				rec.UpdatedAt = s.now().UTC()
				data, err := encodeRecord(*rec)
				if err != nil {
					return err
				}
				pipe.Set(ctx, userKey, data, 0)
				return nil
			})
			return err
		}, userKey)
	})
}

func (s *Store) resolve(ctx context.Context, indexKey string) (*record, error) {
	id, err := s.redis.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goAccount.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.load(ctx, s.redis, id)
}

func (s *Store) load(ctx context.Context, c getter, userID string) (*record, error) {
	data, err := c.Get(ctx, s.userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goAccount.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", userID, errCorrupt)
	}
	return rec, nil
}

func (s *Store) retry(ctx context.Context, fn func() error) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err == nil ||
			errors.Is(err, goAccount.ErrNotFound) ||
			errors.Is(err, goAccount.ErrAlreadyExists) ||
			errors.Is(err, ErrUnavailable) ||
			errors.Is(err, errCorrupt) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ErrContention
}

var _ goAccount.UserStore = (*Store)(nil)
