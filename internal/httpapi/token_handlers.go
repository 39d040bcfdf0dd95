package httpapi

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/Yoronex/gewisweb/internal/audit"
	"github.com/Yoronex/gewisweb/internal/auth"
	"github.com/Yoronex/gewisweb/internal/obs"
)

var consentTemplate = template.Must(template.New("consent").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Authorize {{.App}}</title>
</head>
<body>
{{if .Remind}}
<p>You last authorized {{.App}} more than three months ago. Do you want to continue?</p>
{{else}}
<p>{{.App}} requests access to your account.</p>
{{if .Claims}}
<ul>
{{range .Claims}}<li>{{.}}</li>
{{end}}</ul>
{{end}}
{{end}}
<form method="post">
<button type="submit" name="confirm" value="1">Confirm</button>
<button type="submit" name="cancel" value="1">Cancel</button>
</form>
</body>
</html>
`))

type consentPage struct {
	App    string
	Claims []string
	Remind bool
}

// handleAppToken drives the delegated authorization flow for one
// registered application: GET enters the flow, POST submits the consent
// or reminder form.
func (a *API) handleAppToken(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")
	if appID == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	resolver, ok := auth.ResolverFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "authentication not initialized")
		return
	}
	ident := resolver.Identity(r.Context())

	switch r.Method {
	case http.MethodGet:
		a.beginAppToken(w, r, ident, appID)
	case http.MethodPost:
		a.submitAppToken(w, r, ident, appID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) beginAppToken(w http.ResponseWriter, r *http.Request, ident auth.Identity, appID string) {
	grant, err := a.apps.Begin(r.Context(), ident, appID)
	if err != nil {
		a.writeAppTokenError(w, r, err)
		return
	}

	if grant.CallbackURL != "" {
		// Fresh prior grant: skip consent and hand over directly.
		_ = audit.LogEvent(r.Context(), "token.issued", map[string]any{
			"app":     appID,
			"subject": ident.Subject(),
		})
		a.redirect.Redirect(w, r, appID, grant.CallbackURL)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = consentTemplate.Execute(w, consentPage{
		App:    grant.App.ID,
		Claims: grant.App.Claims,
		Remind: grant.Remind,
	})
}

func (a *API) submitAppToken(w http.ResponseWriter, r *http.Request, ident auth.Identity, appID string) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid form data")
		return
	}

	if r.PostFormValue("cancel") != "" {
		url, err := a.apps.Cancel(r.Context(), ident, appID)
		if err != nil {
			a.writeAppTokenError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "consent.cancelled", map[string]any{"app": appID})
		a.redirect.Redirect(w, r, appID, url)
		return
	}

	url, err := a.apps.Confirm(r.Context(), ident, appID)
	if err != nil {
		a.writeAppTokenError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "token.issued", map[string]any{
		"app":     appID,
		"subject": ident.Subject(),
	})
	a.redirect.Redirect(w, r, appID, url)
}

func (a *API) writeAppTokenError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAllowed):
		// Expected and frequent; not logged as an error.
		writeError(w, r, http.StatusForbidden, "user not fully authenticated")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "unknown application")
	default:
		obs.LogRequest(map[string]any{
			"level": "error",
			"msg":   "delegated authorization failed",
			"error": err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "authorization failed")
	}
}
