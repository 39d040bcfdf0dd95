package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Yoronex/gewisweb/internal/audit"
	"github.com/Yoronex/gewisweb/internal/auth"
	"github.com/Yoronex/gewisweb/internal/obs"
)

type loginResponse struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

func (a *API) handleMemberLogin(w http.ResponseWriter, r *http.Request) {
	a.handleLogin(w, r, "member")
}

func (a *API) handleCompanyLogin(w http.ResponseWriter, r *http.Request) {
	a.handleLogin(w, r, "company")
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request, channel string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form data")
		return
	}

	creds := auth.Credentials{
		Login:    r.PostFormValue("login"),
		Password: r.PostFormValue("password"),
	}
	if creds.Login == "" || creds.Password == "" {
		writeError(w, r, http.StatusBadRequest, "login and password are required")
		return
	}
	remember := r.PostFormValue("remember") != ""

	resolver, ok := auth.ResolverFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "authentication not initialized")
		return
	}

	var sess *auth.Session
	if channel == "company" {
		sess = resolver.CompanySession()
	} else {
		sess = resolver.MemberSession()
	}
	sess.SetRememberMe(remember)

	address := clientIP(r)
	var (
		ident auth.Identity
		err   error
	)
	if channel == "company" {
		ident, err = a.auth.AuthenticateCompany(r.Context(), sess, address, creds)
	} else {
		ident, err = a.auth.AuthenticateMember(r.Context(), sess, address, creds)
	}
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRateLimited):
			_ = audit.LogEvent(r.Context(), "login.ratelimited", map[string]any{
				"channel": channel,
				"address": address,
			})
			writeError(w, r, http.StatusTooManyRequests, "too many failed login attempts")
		case errors.Is(err, auth.ErrInvalidCredentials):
			_ = audit.LogEvent(r.Context(), "login.failure", map[string]any{
				"channel": channel,
				"address": address,
			})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		default:
			obs.LogRequest(map[string]any{
				"level": "error",
				"msg":   "login failed",
				"error": err.Error(),
			})
			writeError(w, r, http.StatusInternalServerError, "login failed")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "login.success", map[string]any{
		"channel": channel,
		"subject": ident.Subject(),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Subject: ident.Subject(),
		Role:    ident.RoleID(),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	resolver, ok := auth.ResolverFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "authentication not initialized")
		return
	}

	channel := strings.TrimSpace(r.PostFormValue("user_type"))
	switch channel {
	case "company":
		resolver.CompanySession().Clear()
	default:
		channel = "member"
		resolver.MemberSession().Clear()
	}

	_ = audit.LogEvent(r.Context(), "logout", map[string]any{"channel": channel})
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}
