package auth

import (
	"net/http"
	"time"
)

const (
	// MemberSessionCookie and CompanySessionCookie name the signed session
	// cookies for the two first-party channels.
	MemberSessionCookie  = "GEWISSESSTOKEN"
	CompanySessionCookie = "GEWISCOMPANYSESSTOKEN"

	// SessionTTL is the lifetime of a persisted session cookie.
	SessionTTL = 14 * 24 * time.Hour
)

// SessionConfig carries the cookie parameters of one session channel.
type SessionConfig struct {
	CookieName string
	Domain     string
	Secure     bool // secure + http-only flags, enabled in production
	TTL        time.Duration
}

// Session binds the signed session cookie of one request to an in-memory
// identity slot, so identity survives across requests without server-side
// session storage. A Session is request-scoped: once the slot is filled
// it is never re-validated within the same request.
type Session struct {
	cfg  SessionConfig
	keys Keyring
	req  *http.Request
	resp http.ResponseWriter
	now  func() time.Time

	subject  string
	loaded   bool
	remember bool
}

// NewSession constructs the session bridge for one request/response pair.
func NewSession(w http.ResponseWriter, r *http.Request, keys Keyring, cfg SessionConfig) *Session {
	if cfg.CookieName == "" {
		cfg.CookieName = MemberSessionCookie
	}
	if cfg.TTL <= 0 {
		cfg.TTL = SessionTTL
	}
	return &Session{cfg: cfg, keys: keys, req: r, resp: w, now: time.Now}
}

// SetRememberMe toggles whether Write persists the session to a cookie.
// Enabling it immediately persists the current slot value.
func (s *Session) SetRememberMe(remember bool) {
	s.remember = remember
	if remember && s.loaded {
		s.persist(s.subject)
	}
}

// IsEmpty reports whether neither the slot nor a valid cookie holds an
// identity.
func (s *Session) IsEmpty() bool {
	if s.loaded {
		return false
	}
	return !s.validate()
}

// Read returns the subject in the slot, validating the cookie first if
// the slot is still unset.
func (s *Session) Read() (string, bool) {
	if s.loaded {
		return s.subject, true
	}
	if !s.validate() {
		return "", false
	}
	return s.subject, true
}

// Write fills the slot and, when remember-me is active, issues a fresh
// signed cookie.
func (s *Session) Write(subject string) {
	s.subject = subject
	s.loaded = true
	if s.remember {
		s.persist(subject)
	}
}

// Clear empties the slot and overwrites the cookie with an already
// expired value so the browser deletes it.
func (s *Session) Clear() {
	s.subject = ""
	s.loaded = false
	s.clearCookie()
}

// validate loads the session from the cookie when possible. An unreadable
// public key, a missing cookie and a token that fails verification are
// indistinguishable to callers: all leave the session absent. A key read
// failure must never fail open to an identity.
func (s *Session) validate() bool {
	pub, err := s.keys.Public()
	if err != nil {
		return false
	}

	cookie, err := s.req.Cookie(s.cfg.CookieName)
	if err != nil {
		return false
	}

	claims, err := Verify(cookie.Value, ModeSession, pub)
	if err != nil {
		return false
	}

	s.subject = claims.Lidnr
	s.loaded = true
	// Sliding window: re-persist so active users keep their session.
	s.persist(s.subject)
	return true
}

func (s *Session) persist(subject string) {
	priv, err := s.keys.Private()
	if err != nil {
		// Key not readable; the session stays request-local.
		return
	}
	token, err := Issue(subject, s.cfg.TTL, ModeSession, priv)
	if err != nil {
		return
	}
	http.SetCookie(s.resp, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.cfg.Domain,
		Expires:  s.now().Add(s.cfg.TTL),
		Secure:   s.cfg.Secure,
		HttpOnly: s.cfg.Secure,
	})
}

func (s *Session) clearCookie() {
	http.SetCookie(s.resp, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "deleted",
		Path:     "/",
		Domain:   s.cfg.Domain,
		Expires:  s.now().AddDate(-1, 0, 0),
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
	})
}
