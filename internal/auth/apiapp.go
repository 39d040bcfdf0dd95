package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Yoronex/gewisweb/internal/ids"
	"github.com/Yoronex/gewisweb/internal/obs"
)

const (
	// DelegatedTokenTTL bounds the window in which a third party can
	// redeem an issued token.
	DelegatedTokenTTL = 5 * time.Minute

	// remindAfterDays is the staleness window: a prior grant older than
	// this requires explicit re-confirmation. Exactly 90 days does not.
	remindAfterDays = 90
)

// AppService drives the delegated authorization flow for registered
// third-party applications.
type AppService struct {
	apps    AppStore
	records AuthRecordStore
	now     func() time.Time
}

// AppServiceOption configures AppService behavior.
type AppServiceOption func(*AppService)

// WithAppClock overrides the time source, for tests.
func WithAppClock(fn func() time.Time) AppServiceOption {
	return func(s *AppService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewAppService constructs the flow over the application registry and the
// authentication history.
func NewAppService(apps AppStore, records AuthRecordStore, opts ...AppServiceOption) *AppService {
	svc := &AppService{apps: apps, records: records, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Grant is the outcome of entering the flow for an identity and app.
type Grant struct {
	App *RegisteredApp

	// Remind is set when a prior grant exists but is stale; the caller
	// must show the reminder form before issuing.
	Remind bool

	// CallbackURL carries the token-bearing callback when a fresh prior
	// grant allowed issuing directly, skipping the consent form.
	CallbackURL string
}

// Begin enters the flow. It requires a resolved first-party identity and
// a known application; depending on the authentication history it either
// issues directly or asks the caller to show the consent/reminder form.
func (s *AppService) Begin(ctx context.Context, ident Identity, appID string) (*Grant, error) {
	app, err := s.lookup(ctx, ident, appID)
	if err != nil {
		return nil, err
	}

	last, err := s.records.Last(ctx, ident.Subject(), app.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// No prior grant: initial consent.
			return &Grant{App: app}, nil
		}
		return nil, err
	}

	if staleDays(last.OccurredAt, s.now()) > remindAfterDays {
		return &Grant{App: app, Remind: true}, nil
	}

	url, err := s.grant(ctx, ident, app)
	if err != nil {
		return nil, err
	}
	return &Grant{App: app, CallbackURL: url}, nil
}

// Confirm issues a token after the user confirmed the consent or reminder
// form and returns the token-bearing callback URL.
func (s *AppService) Confirm(ctx context.Context, ident Identity, appID string) (string, error) {
	app, err := s.lookup(ctx, ident, appID)
	if err != nil {
		return "", err
	}
	return s.grant(ctx, ident, app)
}

// Cancel aborts the flow; the user navigates back to the application's
// fallback URL and no record is written.
func (s *AppService) Cancel(ctx context.Context, ident Identity, appID string) (string, error) {
	app, err := s.lookup(ctx, ident, appID)
	if err != nil {
		return "", err
	}
	return app.URL, nil
}

func (s *AppService) lookup(ctx context.Context, ident Identity, appID string) (*RegisteredApp, error) {
	if ident == nil || ident.ResourceID() == "api" {
		// Entry requires a fully authenticated first-party identity.
		return nil, ErrNotAllowed
	}
	app, err := s.apps.FindByAppID(ctx, appID)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// grant issues the short-lived symmetric token, appends it to the app's
// callback URL and advances the staleness clock.
func (s *AppService) grant(ctx context.Context, ident Identity, app *RegisteredApp) (string, error) {
	token, err := Issue(ident.Subject(), DelegatedTokenTTL, ModeDelegated, []byte(app.Secret))
	if err != nil {
		return "", err
	}
	rec := &AuthenticationRecord{
		ID:         ids.New(),
		Subject:    ident.Subject(),
		AppID:      app.ID,
		OccurredAt: s.now().UTC(),
	}
	if err := s.records.Record(ctx, rec); err != nil {
		return "", err
	}
	obs.ObserveDelegatedToken(app.ID)
	return app.Callback + "?token=" + token, nil
}

// staleDays counts the whole days elapsed between then and now.
func staleDays(then, now time.Time) int {
	if now.Before(then) {
		return 0
	}
	return int(now.Sub(then).Hours() / 24)
}
