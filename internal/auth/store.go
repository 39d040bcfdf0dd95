package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Members() MemberStore
	Companies() CompanyStore
	APIClients() APIClientStore
	Apps() AppStore
	AuthRecords() AuthRecordStore
	LoginAttempts() LoginAttemptStore
}

// MemberStore manages member login records.
type MemberStore interface {
	Find(ctx context.Context, lidnr int) (*Member, error)
	FindByLogin(ctx context.Context, login string) (*Member, error)
}

// CompanyStore manages company account records.
type CompanyStore interface {
	Find(ctx context.Context, id string) (*CompanyAccount, error)
	FindByEmail(ctx context.Context, email string) (*CompanyAccount, error)
}

// APIClientStore manages API bearer-token clients.
type APIClientStore interface {
	FindByToken(ctx context.Context, token string) (*APIClient, error)
}

// AppStore is the read-only registry of third-party applications.
type AppStore interface {
	FindByAppID(ctx context.Context, appID string) (*RegisteredApp, error)
}

// AuthRecordStore tracks delegated authentications per (subject, app).
type AuthRecordStore interface {
	Last(ctx context.Context, subject, appID string) (*AuthenticationRecord, error)
	Record(ctx context.Context, rec *AuthenticationRecord) error
}

// LoginAttemptStore persists failed login attempts for rate limiting.
// Counters are shared across requests; row-level isolation is enough,
// no cross-request lock is held.
type LoginAttemptStore interface {
	CountSince(ctx context.Context, address string, since time.Time) (int, error)
	Record(ctx context.Context, attempt *LoginAttempt) error
	Clear(ctx context.Context, address string) error
}
