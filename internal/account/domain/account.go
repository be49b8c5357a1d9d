package domain

import "time"

// Account is an end user. Empty Email, Phone, Provider and ProviderID mean absent.
// Provider and ProviderID are set together or not at all.
type Account struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	PhoneVerifiedAt *time.Time
	Provider        string
	ProviderID      string
	PasswordHash    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PhoneVerified reports whether the phone has been proven by an OTP.
func (a *Account) PhoneVerified() bool {
	return a.PhoneVerifiedAt != nil
}

// HasProvider reports whether the account is linked to a federated identity.
func (a *Account) HasProvider() bool {
	return a.Provider != "" && a.ProviderID != ""
}

// Profile is the client-facing view of an account. It never carries the password hash.
type Profile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at,omitempty"`
	Provider        string     `json:"provider,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Profile returns the client-facing view of a.
func (a *Account) Profile() Profile {
	return Profile{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Phone:           a.Phone,
		PhoneVerifiedAt: a.PhoneVerifiedAt,
		Provider:        a.Provider,
		CreatedAt:       a.CreatedAt,
	}
}
