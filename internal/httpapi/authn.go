package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Yoronex/gewisweb/internal/auth"
)

// apiTokenHeader carries a bearer token for API-user authentication. It
// is checked on every inbound request, independent of session state.
const apiTokenHeader = "X-Auth-Token"

// withAuth is the authentication bootstrap. It resolves an API identity
// when the token header is present, and binds the member and company
// session channels so handlers can resolve them lazily. All failures
// collapse to "not logged in"; no detail reaches the client here.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		memberSess := auth.NewSession(w, r, a.keys, auth.SessionConfig{
			CookieName: auth.MemberSessionCookie,
			Domain:     a.cookieDomain,
			Secure:     a.production,
		})
		companySess := auth.NewSession(w, r, a.keys, auth.SessionConfig{
			CookieName: auth.CompanySessionCookie,
			Domain:     a.cookieDomain,
			Secure:     a.production,
		})
		resolver := auth.NewResolver(a.auth, memberSess, companySess)

		if token := strings.TrimSpace(r.Header.Get(apiTokenHeader)); token != "" {
			ident, err := a.auth.AuthenticateAPI(ctx, token)
			switch {
			case err == nil:
				resolver.SetAPI(ident)
				ctx = auth.ContextWithSubject(ctx, ident.Subject())
			case errors.Is(err, auth.ErrInvalidToken):
				// Invalid bearer tokens leave the request unauthenticated.
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
				return
			}
		}

		ctx = auth.ContextWithResolver(ctx, resolver)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
