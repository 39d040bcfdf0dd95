package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Yoronex/gewisweb/internal/auth"
	"github.com/Yoronex/gewisweb/internal/obs"
)

// ReadyProbe checks dependencies for the readiness endpoint.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config wires the HTTP layer to its collaborators.
type Config struct {
	Auth     *auth.Service
	Apps     *auth.AppService
	Keys     auth.Keyring
	Redirect RedirectStrategy

	CookieDomain string
	Production   bool

	ReadyProbe ReadyProbe
	Version    string
}

// API is the HTTP layer of the portal's authentication core.
type API struct {
	mux      *http.ServeMux
	auth     *auth.Service
	apps     *auth.AppService
	keys     auth.Keyring
	redirect RedirectStrategy

	cookieDomain string
	production   bool

	readyProbe ReadyProbe
	version    string
}

func New(cfg Config) *API {
	a := &API{
		mux:          http.NewServeMux(),
		auth:         cfg.Auth,
		apps:         cfg.Apps,
		keys:         cfg.Keys,
		redirect:     cfg.Redirect,
		cookieDomain: cfg.CookieDomain,
		production:   cfg.Production,
		readyProbe:   cfg.ReadyProbe,
		version:      cfg.Version,
	}
	if a.redirect == nil {
		a.redirect = RenderedRedirect{}
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/user/login", a.handleMemberLogin)
	a.mux.HandleFunc("/user/login/company", a.handleCompanyLogin)
	a.mux.HandleFunc("/user/logout", a.handleLogout)
	a.mux.HandleFunc("/token/{appId}", a.handleAppToken)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 20, 10)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "gewisweb",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "gewisweb",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
