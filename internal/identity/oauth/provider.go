// Package oauth runs the authorization-code flow (with PKCE) against Google and
// Facebook and turns the provider's profile into an identity assertion.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"identity-gateway/backend/internal/identity/domain"
)

const (
	googleUserInfoURL   = "https://openidconnect.googleapis.com/v1/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email"

	profileTimeout  = 10 * time.Second
	maxProfileBytes = 1 << 20
)

// ErrExchange wraps failures of the token exchange or profile fetch.
var ErrExchange = errors.New("oauth exchange failed")

// Credentials are the client registration for one provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether the provider can be offered.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// Provider is one configured OAuth provider.
type Provider struct {
	name        domain.Provider
	config      *oauth2.Config
	userInfoURL string
	client      *http.Client
	profile     func([]byte) (domain.Assertion, error)
}

// Option customizes a Provider.
type Option func(*Provider)

// WithEndpoint overrides the authorization and token URLs.
func WithEndpoint(authURL, tokenURL string) Option {
	return func(p *Provider) {
		p.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

// WithUserInfoURL overrides the profile URL.
func WithUserInfoURL(u string) Option {
	return func(p *Provider) { p.userInfoURL = u }
}

// WithHTTPClient sets the client used for token exchange and profile fetch.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

func newProvider(name domain.Provider, creds Credentials, endpoint oauth2.Endpoint, scopes []string,
	userInfoURL string, profile func([]byte) (domain.Assertion, error), opts []Option) *Provider {
	p := &Provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		client:      &http.Client{Timeout: profileTimeout},
		profile:     profile,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewGoogle returns the Google provider (OpenID Connect userinfo).
func NewGoogle(creds Credentials, opts ...Option) *Provider {
	return newProvider(domain.ProviderGoogle, creds, endpoints.Google,
		[]string{"openid", "email", "profile"}, googleUserInfoURL, googleProfile, opts)
}

// NewFacebook returns the Facebook provider (Graph API /me).
func NewFacebook(creds Credentials, opts ...Option) *Provider {
	return newProvider(domain.ProviderFacebook, creds, endpoints.Facebook,
		[]string{"email", "public_profile"}, facebookUserInfoURL, facebookProfile, opts)
}

// Name returns the provider name used in routes and account links.
func (p *Provider) Name() domain.Provider { return p.name }

// AuthCodeURL returns the consent URL carrying state and the S256 challenge for verifier.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades code for a token and fetches the user's profile.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (domain.Assertion, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return domain.Assertion{}, fmt.Errorf("%w: token: %w", ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.Assertion{}, fmt.Errorf("%w: %w", ErrExchange, err)
	}
	resp, err := p.config.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.Assertion{}, fmt.Errorf("%w: profile: %w", ErrExchange, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return domain.Assertion{}, fmt.Errorf("%w: profile: %w", ErrExchange, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Assertion{}, fmt.Errorf("%w: profile status %d", ErrExchange, resp.StatusCode)
	}

	a, err := p.profile(body)
	if err != nil {
		return domain.Assertion{}, fmt.Errorf("%w: profile: %w", ErrExchange, err)
	}
	a.Provider = p.name
	if a.ProviderID == "" {
		return domain.Assertion{}, fmt.Errorf("%w: profile has no subject", ErrExchange)
	}
	return a, nil
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// googleProfile drops the email unless Google reports it verified.
func googleProfile(body []byte) (domain.Assertion, error) {
	var u googleUserInfo
	if err := json.Unmarshal(body, &u); err != nil {
		return domain.Assertion{}, err
	}
	a := domain.Assertion{ProviderID: u.Sub, Name: u.Name}
	if u.EmailVerified {
		a.Email = u.Email
	}
	return a, nil
}

type facebookUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func facebookProfile(body []byte) (domain.Assertion, error) {
	var u facebookUser
	if err := json.Unmarshal(body, &u); err != nil {
		return domain.Assertion{}, err
	}
	return domain.Assertion{ProviderID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// Registry holds the configured providers by name.
type Registry map[domain.Provider]*Provider

// NewRegistry keeps only the non-nil providers.
func NewRegistry(providers ...*Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		if p != nil {
			r[p.name] = p
		}
	}
	return r
}

// Get returns the provider registered under name.
func (r Registry) Get(name string) (*Provider, bool) {
	p, ok := r[domain.Provider(name)]
	return p, ok
}
