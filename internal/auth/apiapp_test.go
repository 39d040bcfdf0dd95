package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func appClock(t *testing.T) func() time.Time {
	t.Helper()
	fixed := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return fixed }
}

func expectAppRow(mock sqlmock.Sqlmock, secret string) {
	mock.ExpectQuery("from api_apps").
		WithArgs("sudosos").
		WillReturnRows(sqlmock.NewRows([]string{"app_id", "secret", "callback", "url", "claims"}).
			AddRow("sudosos", secret, "https://sudosos.gewis.nl/callback", "https://sudosos.gewis.nl", []byte(`["lidnr"]`)))
}

func TestBeginWithoutPriorGrantAsksConsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectAppRow(mock, "shh")
	mock.ExpectQuery("from app_authentications").
		WithArgs("8000", "sudosos").
		WillReturnError(sql.ErrNoRows)

	store := NewPGStore(db)
	svc := NewAppService(store.Apps(), store.AuthRecords(), WithAppClock(appClock(t)))

	grant, err := svc.Begin(context.Background(), &Member{Lidnr: 8000}, "sudosos")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if grant.Remind || grant.CallbackURL != "" {
		t.Fatalf("expected initial consent, got %+v", grant)
	}
	if grant.App.ID != "sudosos" {
		t.Fatalf("unexpected app: %s", grant.App.ID)
	}
}

func TestBeginWithFreshGrantIssuesDirectly(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := appClock(t)
	expectAppRow(mock, "shh")
	mock.ExpectQuery("from app_authentications").
		WithArgs("8000", "sudosos").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "app_id", "occurred_at"}).
			AddRow("rec-1", "8000", "sudosos", now().AddDate(0, 0, -45)))
	mock.ExpectExec("insert into app_authentications").
		WithArgs(sqlmock.AnyArg(), "8000", "sudosos", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	svc := NewAppService(store.Apps(), store.AuthRecords(), WithAppClock(now))

	grant, err := svc.Begin(context.Background(), &Member{Lidnr: 8000}, "sudosos")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if grant.Remind {
		t.Fatal("fresh grant must not remind")
	}
	if !strings.HasPrefix(grant.CallbackURL, "https://sudosos.gewis.nl/callback?token=") {
		t.Fatalf("unexpected callback URL: %s", grant.CallbackURL)
	}

	// The appended token must verify against the app secret and carry the
	// member as subject.
	token := strings.TrimPrefix(grant.CallbackURL, "https://sudosos.gewis.nl/callback?token=")
	claims, err := Verify(token, ModeDelegated, []byte("shh"))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.Lidnr != "8000" {
		t.Fatalf("unexpected token subject: %s", claims.Lidnr)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBeginWithStaleGrantReminds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := appClock(t)
	expectAppRow(mock, "shh")
	mock.ExpectQuery("from app_authentications").
		WithArgs("8000", "sudosos").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "app_id", "occurred_at"}).
			AddRow("rec-1", "8000", "sudosos", now().AddDate(0, 0, -120)))

	store := NewPGStore(db)
	svc := NewAppService(store.Apps(), store.AuthRecords(), WithAppClock(now))

	grant, err := svc.Begin(context.Background(), &Member{Lidnr: 8000}, "sudosos")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !grant.Remind {
		t.Fatal("expected reminder for stale grant")
	}
	if grant.CallbackURL != "" {
		t.Fatal("stale grant must not issue directly")
	}
}

func TestBeginAtExactWindowDoesNotRemind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := appClock(t)
	expectAppRow(mock, "shh")
	mock.ExpectQuery("from app_authentications").
		WithArgs("8000", "sudosos").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "app_id", "occurred_at"}).
			AddRow("rec-1", "8000", "sudosos", now().AddDate(0, 0, -90)))
	mock.ExpectExec("insert into app_authentications").
		WithArgs(sqlmock.AnyArg(), "8000", "sudosos", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	svc := NewAppService(store.Apps(), store.AuthRecords(), WithAppClock(now))

	grant, err := svc.Begin(context.Background(), &Member{Lidnr: 8000}, "sudosos")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if grant.Remind {
		t.Fatal("exactly at the window boundary must not remind")
	}
	if grant.CallbackURL == "" {
		t.Fatal("expected direct issuance at the boundary")
	}
}

func TestConfirmIssuesAndRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectAppRow(mock, "shh")
	mock.ExpectExec("insert into app_authentications").
		WithArgs(sqlmock.AnyArg(), "8000", "sudosos", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	svc := NewAppService(store.Apps(), store.AuthRecords(), WithAppClock(appClock(t)))

	url, err := svc.Confirm(context.Background(), &Member{Lidnr: 8000}, "sudosos")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !strings.Contains(url, "?token=") {
		t.Fatalf("expected token in callback URL, got %s", url)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelReturnsFallbackWithoutRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	expectAppRow(mock, "shh")

	store := NewPGStore(db)
	svc := NewAppService(store.Apps(), store.AuthRecords(), WithAppClock(appClock(t)))

	url, err := svc.Cancel(context.Background(), &Member{Lidnr: 8000}, "sudosos")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if url != "https://sudosos.gewis.nl" {
		t.Fatalf("expected fallback URL, got %s", url)
	}

	// No insert expectation was registered; any write would fail here.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBeginRejectsUnknownApp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("from api_apps").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	store := NewPGStore(db)
	svc := NewAppService(store.Apps(), store.AuthRecords())

	if _, err := svc.Begin(context.Background(), &Member{Lidnr: 8000}, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBeginRequiresFirstPartyIdentity(t *testing.T) {
	store := NewPGStore(nil)
	svc := NewAppService(store.Apps(), store.AuthRecords())

	if _, err := svc.Begin(context.Background(), nil, "sudosos"); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed for nil identity, got %v", err)
	}
	client := &APIClient{ID: "client-1"}
	if _, err := svc.Begin(context.Background(), client, "sudosos"); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed for API identity, got %v", err)
	}
}
