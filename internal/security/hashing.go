package security

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// SecretHasher produces salted one-way digests of short secrets (OTP codes,
// placeholder passwords) and verifies candidates against them. Callers must
// not log or persist plaintext secrets.
type SecretHasher interface {
	Hash(secret string) (string, error)
	// Verify reports whether secret matches hashed. A malformed hash is a mismatch.
	Verify(secret, hashed string) bool
}

// NewSecretHasher returns the hasher named by algorithm ("bcrypt" or "argon2id").
func NewSecretHasher(algorithm string, bcryptCost int) (SecretHasher, error) {
	switch algorithm {
	case "", "bcrypt":
		return NewBcryptHasher(bcryptCost), nil
	case "argon2id":
		return NewArgon2idHasher(nil), nil
	default:
		return nil, fmt.Errorf("security: unknown hasher %q", algorithm)
	}
}

// BcryptHasher hashes secrets with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a BcryptHasher with the given cost clamped to 4–31.
// Cost 12 is a reasonable default for interactive login.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash produces a bcrypt hash of secret suitable for storage.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compares in constant time via bcrypt.
func (h *BcryptHasher) Verify(secret, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}

// Argon2idHasher hashes secrets with argon2id in the PHC string format.
type Argon2idHasher struct {
	Params *argon2id.Params
}

// NewArgon2idHasher returns an Argon2idHasher; nil params selects argon2id.DefaultParams.
func NewArgon2idHasher(params *argon2id.Params) *Argon2idHasher {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &Argon2idHasher{Params: params}
}

func (h *Argon2idHasher) Hash(secret string) (string, error) {
	return argon2id.CreateHash(secret, h.Params)
}

func (h *Argon2idHasher) Verify(secret, hashed string) bool {
	ok, err := argon2id.ComparePasswordAndHash(secret, hashed)
	return err == nil && ok
}

var (
	_ SecretHasher = (*BcryptHasher)(nil)
	_ SecretHasher = (*Argon2idHasher)(nil)
)
