package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Yoronex/gewisweb/internal/auth"
)

// fakeData is the in-memory backend shared by the fake store views.
type fakeData struct {
	members   map[int]*auth.Member
	companies map[string]*auth.CompanyAccount
	clients   map[string]*auth.APIClient
	apps      map[string]*auth.RegisteredApp
	records   []*auth.AuthenticationRecord
	attempts  []*auth.LoginAttempt
}

func newFakeData() *fakeData {
	return &fakeData{
		members:   make(map[int]*auth.Member),
		companies: make(map[string]*auth.CompanyAccount),
		clients:   make(map[string]*auth.APIClient),
		apps:      make(map[string]*auth.RegisteredApp),
	}
}

type fakeStore struct{ d *fakeData }

func (s fakeStore) Members() auth.MemberStore             { return fakeMembers{s.d} }
func (s fakeStore) Companies() auth.CompanyStore          { return fakeCompanies{s.d} }
func (s fakeStore) APIClients() auth.APIClientStore       { return fakeClients{s.d} }
func (s fakeStore) Apps() auth.AppStore                   { return fakeApps{s.d} }
func (s fakeStore) AuthRecords() auth.AuthRecordStore     { return &fakeRecords{s.d} }
func (s fakeStore) LoginAttempts() auth.LoginAttemptStore { return &fakeAttempts{s.d} }

type fakeMembers struct{ d *fakeData }

func (s fakeMembers) Find(ctx context.Context, lidnr int) (*auth.Member, error) {
	if m, ok := s.d.members[lidnr]; ok {
		return m, nil
	}
	return nil, auth.ErrNotFound
}

func (s fakeMembers) FindByLogin(ctx context.Context, login string) (*auth.Member, error) {
	for _, m := range s.d.members {
		if m.Email == login || strconv.Itoa(m.Lidnr) == login {
			return m, nil
		}
	}
	return nil, auth.ErrNotFound
}

type fakeCompanies struct{ d *fakeData }

func (s fakeCompanies) Find(ctx context.Context, id string) (*auth.CompanyAccount, error) {
	if c, ok := s.d.companies[id]; ok {
		return c, nil
	}
	return nil, auth.ErrNotFound
}

func (s fakeCompanies) FindByEmail(ctx context.Context, email string) (*auth.CompanyAccount, error) {
	for _, c := range s.d.companies {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, auth.ErrNotFound
}

type fakeClients struct{ d *fakeData }

func (s fakeClients) FindByToken(ctx context.Context, token string) (*auth.APIClient, error) {
	if c, ok := s.d.clients[token]; ok {
		return c, nil
	}
	return nil, auth.ErrNotFound
}

type fakeApps struct{ d *fakeData }

func (s fakeApps) FindByAppID(ctx context.Context, appID string) (*auth.RegisteredApp, error) {
	if a, ok := s.d.apps[appID]; ok {
		return a, nil
	}
	return nil, auth.ErrNotFound
}

type fakeRecords struct{ d *fakeData }

func (s *fakeRecords) Last(ctx context.Context, subject, appID string) (*auth.AuthenticationRecord, error) {
	var last *auth.AuthenticationRecord
	for _, rec := range s.d.records {
		if rec.Subject != subject || rec.AppID != appID {
			continue
		}
		if last == nil || rec.OccurredAt.After(last.OccurredAt) {
			last = rec
		}
	}
	if last == nil {
		return nil, auth.ErrNotFound
	}
	return last, nil
}

func (s *fakeRecords) Record(ctx context.Context, rec *auth.AuthenticationRecord) error {
	s.d.records = append(s.d.records, rec)
	return nil
}

type fakeAttempts struct{ d *fakeData }

func (s *fakeAttempts) CountSince(ctx context.Context, address string, since time.Time) (int, error) {
	count := 0
	for _, a := range s.d.attempts {
		if a.Address == address && !a.AttemptedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *fakeAttempts) Record(ctx context.Context, attempt *auth.LoginAttempt) error {
	s.d.attempts = append(s.d.attempts, attempt)
	return nil
}

func (s *fakeAttempts) Clear(ctx context.Context, address string) error {
	kept := s.d.attempts[:0]
	for _, a := range s.d.attempts {
		if a.Address != address {
			kept = append(kept, a)
		}
	}
	s.d.attempts = kept
	return nil
}

// testKeys writes a fresh RSA keypair to disk and returns the keyring
// reading it back, plus the private key for crafting cookies directly.
func testKeys(t *testing.T) (auth.Keyring, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	dir := t.TempDir()
	privPath := filepath.Join(dir, "jwt.key")
	pubPath := filepath.Join(dir, "jwt.pub")

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o600); err != nil {
		t.Fatalf("write public key: %v", err)
	}

	return auth.Keyring{PrivatePath: privPath, PublicPath: pubPath}, key
}

// testEnv bundles a ready API over the fake store for handler tests.
type testEnv struct {
	api  *API
	data *fakeData
	keys auth.Keyring
}

func newTestEnv(t *testing.T, opts ...auth.AppServiceOption) *testEnv {
	t.Helper()

	data := newFakeData()
	keys, _ := testKeys(t)
	store := fakeStore{d: data}
	svc := auth.NewService(store, auth.WithPasswordCost(4))
	apps := auth.NewAppService(store.Apps(), store.AuthRecords(), opts...)

	api := New(Config{
		Auth:     svc,
		Apps:     apps,
		Keys:     keys,
		Redirect: DirectRedirect{},
		Version:  "test",
	})
	return &testEnv{api: api, data: data, keys: keys}
}

// handler returns the mux behind the authentication bootstrap, skipping
// the transport middleware that handler tests do not exercise.
func (e *testEnv) handler() http.Handler {
	return RequestID(e.api.withAuth(e.api.mux))
}

// memberCookie forges a valid member session cookie for lidnr.
func (e *testEnv) memberCookie(t *testing.T, lidnr int) *http.Cookie {
	t.Helper()
	priv, err := e.keys.Private()
	if err != nil {
		t.Fatalf("Private: %v", err)
	}
	token, err := auth.Issue(strconv.Itoa(lidnr), auth.SessionTTL, auth.ModeSession, priv)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return &http.Cookie{Name: auth.MemberSessionCookie, Value: token}
}

func (e *testEnv) addMember(t *testing.T, lidnr int, email, password string) {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	now := time.Now()
	e.data.members[lidnr] = &auth.Member{
		Lidnr:        lidnr,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (e *testEnv) addApp(appID, secret, callback, url string, claims ...string) {
	e.data.apps[appID] = &auth.RegisteredApp{
		ID:       appID,
		Secret:   secret,
		Callback: callback,
		URL:      url,
		Claims:   claims,
	}
}

func doRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
