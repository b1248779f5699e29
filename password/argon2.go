package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes caps input size when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
)

var (
	// ErrTooShort is returned when a password is below the configured minimum.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned when a password exceeds the configured maximum.
	ErrTooLong = errors.New("password too long")
	// ErrMalformedHash is returned when a stored hash is not an argon2id PHC
	// string this package can verify.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Config holds argon2id cost parameters and input length bounds.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MinPasswordBytes defaults to 1.
	MinPasswordBytes int
	// MaxPasswordBytes defaults to DefaultMaxPasswordBytes.
	MaxPasswordBytes int
}

// Params are the cost settings recorded in every hash.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	KeyLength   uint32
}

// weakerThan reports whether p costs less than want on any axis, or derives
// a key of a different length.
func (p Params) weakerThan(want Params) bool {
	return p.Memory < want.Memory ||
		p.Time < want.Time ||
		p.Parallelism < want.Parallelism ||
		p.KeyLength != want.KeyLength
}

// Argon2 hashes and verifies passwords. It is immutable and safe for
// concurrent use.
type Argon2 struct {
	params     Params
	saltLength uint32
	minBytes   int
	maxBytes   int
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MinPasswordBytes == 0 {
		cfg.MinPasswordBytes = 1
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}

	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	case cfg.MinPasswordBytes < 1:
		return nil, errors.New("password min length must be >= 1")
	case cfg.MaxPasswordBytes < cfg.MinPasswordBytes:
		return nil, errors.New("password max length must be >= min length")
	}

	return &Argon2{
		params: Params{
			Memory:      cfg.Memory,
			Time:        cfg.Time,
			Parallelism: cfg.Parallelism,
			KeyLength:   cfg.KeyLength,
		},
		saltLength: cfg.SaltLength,
		minBytes:   cfg.MinPasswordBytes,
		maxBytes:   cfg.MaxPasswordBytes,
	}, nil
}

// CheckPolicy applies the length bounds. Lengths are raw bytes with no
// Unicode normalization.
func (a *Argon2) CheckPolicy(password string) error {
	if len(password) < a.minBytes {
		return ErrTooShort
	}
	if len(password) > a.maxBytes {
		return ErrTooLong
	}
	return nil
}

// Hash returns the PHC encoding of password under a fresh random salt.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.CheckPolicy(password); err != nil {
		return "", err
	}

	salt := make([]byte, a.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := derive(password, salt, a.params)

	return encode(a.params, salt, key), nil
}

// Verify reports whether password matches encodedHash in constant time.
// Inputs over the maximum length are rejected before any key derivation.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.maxBytes {
		return false, ErrTooLong
	}

	params, salt, key, err := decode(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(derive(password, salt, params), key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the hasher's. Login re-hashes such passwords.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	params, _, _, err := decode(encodedHash)
	if err != nil {
		return false, err
	}
	return params.weakerThan(a.params), nil
}

func derive(password string, salt []byte, p Params) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
}

func encode(p Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

// decode parses $argon2id$v=19$m=..,t=..,p=..$salt$key. The parameter
// segment must round-trip exactly so trailing or reordered fields are
// rejected.
func decode(encoded string) (Params, []byte, []byte, error) {
	var p Params

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[2])
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil ||
		fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Time, p.Parallelism) != fields[3] {
		return p, nil, nil, fmt.Errorf("%w: bad parameters %q", ErrMalformedHash, fields[3])
	}
	if p.Memory < minMemoryKB || p.Time < 1 || p.Parallelism < 1 {
		return p, nil, nil, fmt.Errorf("%w: parameters below minimum", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return p, nil, nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) < int(minKeyLength) {
		return p, nil, nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}
