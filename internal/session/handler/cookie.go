package handler

import (
	"net/http"
	"time"

	"identity-gateway/backend/internal/session/domain"
)

// DefaultCookieName names the session cookie set after a browser login.
const DefaultCookieName = "session"

// Cookies writes and clears the session cookie.
type Cookies struct {
	Name   string
	Secure bool
}

// Set writes sess as an HttpOnly cookie that expires with the token.
func (c Cookies) Set(w http.ResponseWriter, sess *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}
