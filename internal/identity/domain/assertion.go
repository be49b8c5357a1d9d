package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Provider names an external identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// DisplayName title-cases the provider, e.g. "google" becomes "Google".
func (p Provider) DisplayName() string {
	r, size := utf8.DecodeRuneInString(string(p))
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r)) + string(p)[size:]
}

// Assertion is what a provider vouches for after a completed login.
// Email ownership is taken on the provider's word.
type Assertion struct {
	Provider   Provider
	ProviderID string
	Name       string
	Email      string
}

// Normalize trims every field, lower-cases provider and email, and returns the result.
func (a Assertion) Normalize() Assertion {
	return Assertion{
		Provider:   Provider(strings.ToLower(strings.TrimSpace(string(a.Provider)))),
		ProviderID: strings.TrimSpace(a.ProviderID),
		Name:       strings.TrimSpace(a.Name),
		Email:      NormalizeEmail(a.Email),
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
