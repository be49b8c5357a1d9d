// Package otp holds the phone one-time-passcode primitives shared by the
// challenge service, its stores and its handlers.
package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"unicode"
)

const (
	codeMin   = 100000
	codeRange = 900000

	// Phone and code length bounds checked before normalization.
	PhoneMinLen = 8
	PhoneMaxLen = 20
	CodeMinLen  = 4
	CodeMaxLen  = 10
)

// GenerateCode returns a 6-digit code drawn uniformly from 100000–999999 using crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(codeMin+n.Int64(), 10), nil
}

// NormalizePhone removes every whitespace character. No other canonicalization
// is applied, so "+1 555" and "1555" stay distinct keys.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// MaskPhone keeps only the last four characters for logs.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// LastDigits returns the final n characters of phone, or all of it when shorter.
func LastDigits(phone string, n int) string {
	if len(phone) <= n {
		return phone
	}
	return phone[len(phone)-n:]
}
