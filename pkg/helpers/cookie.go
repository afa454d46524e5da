package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie holding the backend session secret.
const SessionCookieName = "appwrite-session"

// Manager writes the session cookie: Path=/, HttpOnly, SameSite=Strict, Secure.
type Manager struct {
	Domain string
}

func NewCookie(domain string) *Manager {
	return &Manager{Domain: domain}
}

// SetSession stores the secret. A zero expiry leaves it a browser-session cookie.
func (m *Manager) SetSession(c *gin.Context, secret string, exp time.Time) {
	c.SetSameSite(http.SameSiteStrictMode)
	maxAge := 0
	if !exp.IsZero() {
		maxAge = maxAgeFrom(exp)
		if maxAge == 0 {
			maxAge = -1
		}
	}
	c.SetCookie(SessionCookieName, secret, maxAge, "/", m.Domain, true, true)
}

// Session returns the secret sent by the caller, or "".
func (m *Manager) Session(c *gin.Context) string {
	v, err := c.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return v
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, "", -1, "/", m.Domain, true, true)
}

func maxAgeFrom(exp time.Time) int {
	sec := int(time.Until(exp).Seconds())
	if sec < 0 {
		return 0
	}
	return sec
}

// RequestScope binds the cookie manager to a single request.
type RequestScope struct {
	c *gin.Context
	m *Manager
}

// Scope returns the caller view of c used by the auth service.
func (m *Manager) Scope(c *gin.Context) *RequestScope {
	return &RequestScope{c: c, m: m}
}

func (s *RequestScope) SessionSecret() string { return s.m.Session(s.c) }

func (s *RequestScope) SetSession(secret string, expire time.Time) {
	s.m.SetSession(s.c, secret, expire)
}

func (s *RequestScope) ClearSession() { s.m.Clear(s.c) }

// Redirect answers with 303 so a POST is followed by a GET.
func (s *RequestScope) Redirect(location string) {
	s.c.Redirect(http.StatusSeeOther, location)
}
