package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDirectRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/token/sudosos", nil)

	DirectRedirect{}.Redirect(rec, req, "sudosos", "https://sudosos.gewis.nl/callback?token=abc")

	if rec.Code != http.StatusFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://sudosos.gewis.nl/callback?token=abc" {
		t.Fatalf("unexpected location: %q", got)
	}
}

func TestRenderedRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/token/sudosos", nil)

	RenderedRedirect{}.Redirect(rec, req, "sudosos", "https://sudosos.gewis.nl/callback?token=abc")

	// The rendered page must not be a Location redirect; the browser
	// navigates itself.
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatal("rendered redirect must not set Location")
	}
	body := rec.Body.String()
	if !strings.Contains(body, "https://sudosos.gewis.nl/callback?token=abc") {
		t.Fatalf("target URL missing from page: %s", body)
	}
	if !strings.Contains(body, "sudosos") {
		t.Fatal("application name missing from page")
	}
}

func TestStrategyFromName(t *testing.T) {
	if _, ok := StrategyFromName("direct").(DirectRedirect); !ok {
		t.Fatal(`"direct" must map to DirectRedirect`)
	}
	if _, ok := StrategyFromName("rendered").(RenderedRedirect); !ok {
		t.Fatal(`"rendered" must map to RenderedRedirect`)
	}
	if _, ok := StrategyFromName("").(RenderedRedirect); !ok {
		t.Fatal("the default strategy must be the rendered page")
	}
}
