package httpapi

import (
	"html/template"
	"net/http"
)

// RedirectStrategy delivers the browser to a URL after the authorization
// flow completes.
type RedirectStrategy interface {
	Redirect(w http.ResponseWriter, r *http.Request, appID, url string)
}

// DirectRedirect answers with a plain HTTP redirect.
type DirectRedirect struct{}

func (DirectRedirect) Redirect(w http.ResponseWriter, r *http.Request, appID, url string) {
	http.Redirect(w, r, url, http.StatusFound)
}

// RenderedRedirect serves a page that navigates itself to the target URL.
// Chromium refuses a Location redirect immediately after a form POST
// under strict content-security-policy settings, so the page "manually"
// refreshes instead.
type RenderedRedirect struct{}

var redirectTemplate = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="0;url={{.URL}}">
<title>Redirecting…</title>
</head>
<body>
<p>You are being sent back to {{.App}}. <a href="{{.URL}}">Continue</a> if nothing happens.</p>
</body>
</html>
`))

func (RenderedRedirect) Redirect(w http.ResponseWriter, r *http.Request, appID, url string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = redirectTemplate.Execute(w, map[string]string{"App": appID, "URL": url})
}

// StrategyFromName maps a configuration value to a strategy, defaulting
// to the rendered page.
func StrategyFromName(name string) RedirectStrategy {
	if name == "direct" {
		return DirectRedirect{}
	}
	return RenderedRedirect{}
}
