package security

import (
	"crypto/rand"
	"math/big"
)

const (
	placeholderAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	placeholderLength   = 40
)

// RandomSecret returns an n-character random alphanumeric string from crypto/rand.
func RandomSecret(n int) (string, error) {
	max := big.NewInt(int64(len(placeholderAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = placeholderAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// PlaceholderPasswordHash hashes a random 40-character secret that is never
// returned, so accounts created by OTP or a provider have no usable password.
func PlaceholderPasswordHash(h SecretHasher) (string, error) {
	secret, err := RandomSecret(placeholderLength)
	if err != nil {
		return "", err
	}
	return h.Hash(secret)
}
