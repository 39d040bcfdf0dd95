package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/Yoronex/gewisweb/internal/obs"
)

// Service is the single entry point for resolving "who is making this
// request". It dispatches to the member, company and API channels, each
// pairing one storage backend with one credential adapter.
type Service struct {
	store    Store
	throttle *LoginThrottle
	member   Adapter
	company  Adapter
	api      Adapter
	hashCost int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithLoginThrottle overrides the default login rate limiter.
func WithLoginThrottle(t *LoginThrottle) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.throttle = t
		}
	}
}

// WithPasswordCost sets the bcrypt cost used when hashing new passwords.
func WithPasswordCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.hashCost = cost
		}
	}
}

// WithMemberAdapter replaces the member credential adapter.
func WithMemberAdapter(a Adapter) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.member = a
		}
	}
}

// WithCompanyAdapter replaces the company credential adapter.
func WithCompanyAdapter(a Adapter) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.company = a
		}
	}
}

// WithAPIAdapter replaces the API token adapter.
func WithAPIAdapter(a Adapter) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.api = a
		}
	}
}

// NewService constructs a Service with default adapters over the store.
func NewService(store Store, opts ...ServiceOption) *Service {
	svc := &Service{
		store:    store,
		throttle: NewLoginThrottle(store.LoginAttempts(), 0, 0),
		member:   MemberAdapter{Members: store.Members()},
		company:  CompanyAdapter{Companies: store.Companies()},
		api:      APITokenAdapter{Clients: store.APIClients()},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// HashPassword hashes a password with the configured cost.
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.hashCost)
}

// AuthenticateMember verifies member credentials, updates the rate-limit
// counter for the address and on success writes the member session.
func (s *Service) AuthenticateMember(ctx context.Context, sess *Session, address string, creds Credentials) (Identity, error) {
	return s.authenticatePassword(ctx, s.member, "member", sess, address, creds)
}

// AuthenticateCompany is the company-channel counterpart of
// AuthenticateMember with its own storage and session.
func (s *Service) AuthenticateCompany(ctx context.Context, sess *Session, address string, creds Credentials) (Identity, error) {
	return s.authenticatePassword(ctx, s.company, "company", sess, address, creds)
}

func (s *Service) authenticatePassword(ctx context.Context, adapter Adapter, channel string, sess *Session, address string, creds Credentials) (Identity, error) {
	allowed, err := s.throttle.Allow(ctx, address)
	if err != nil {
		return nil, err
	}
	if !allowed {
		obs.ObserveLogin(channel, "rate_limited")
		return nil, ErrRateLimited
	}

	ident, err := adapter.Verify(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			if recErr := s.throttle.Failure(ctx, address); recErr != nil {
				return nil, recErr
			}
			obs.ObserveLogin(channel, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.throttle.Reset(ctx, address); err != nil {
		return nil, err
	}
	if sess != nil {
		sess.Write(ident.Subject())
	}
	obs.ObserveLogin(channel, "success")
	return ident, nil
}

// AuthenticateAPI resolves an API client from a bearer token. Misses fail
// with ErrInvalidToken; the identity only lives for this request.
func (s *Service) AuthenticateAPI(ctx context.Context, token string) (Identity, error) {
	ident, err := s.api.Verify(ctx, Credentials{Token: token})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			obs.ObserveLogin("api", "invalid_credentials")
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	obs.ObserveLogin("api", "success")
	return ident, nil
}

// MemberBySubject loads the member identity behind a session subject.
func (s *Service) MemberBySubject(ctx context.Context, subject string) (Identity, error) {
	lidnr, err := strconv.Atoi(subject)
	if err != nil {
		return nil, ErrNotFound
	}
	member, err := s.store.Members().Find(ctx, lidnr)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// CompanyBySubject loads the company identity behind a session subject.
func (s *Service) CompanyBySubject(ctx context.Context, subject string) (Identity, error) {
	account, err := s.store.Companies().Find(ctx, subject)
	if err != nil {
		return nil, err
	}
	return account, nil
}
