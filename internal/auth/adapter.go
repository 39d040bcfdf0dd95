package auth

import (
	"context"
	"errors"
	"strings"
)

// Credentials is whatever a client presented to authenticate: a
// login/password pair on the first-party channels, a bearer token on the
// API channel.
type Credentials struct {
	Login    string
	Password string
	Token    string
}

// Adapter verifies presented credentials against one user-record backend.
type Adapter interface {
	Verify(ctx context.Context, creds Credentials) (Identity, error)
}

// MemberAdapter authenticates members by membership number or email.
type MemberAdapter struct {
	Members MemberStore
}

func (a MemberAdapter) Verify(ctx context.Context, creds Credentials) (Identity, error) {
	login := strings.TrimSpace(creds.Login)
	if login == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	member, err := a.Members.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !member.Active {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(member.PasswordHash, creds.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return member, nil
}

// CompanyAdapter authenticates company accounts by email.
type CompanyAdapter struct {
	Companies CompanyStore
}

func (a CompanyAdapter) Verify(ctx context.Context, creds Credentials) (Identity, error) {
	email := strings.TrimSpace(strings.ToLower(creds.Login))
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	account, err := a.Companies.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !account.Active {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(account.PasswordHash, creds.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// APITokenAdapter authenticates API clients by direct token lookup; there
// is no password involved.
type APITokenAdapter struct {
	Clients APIClientStore
}

func (a APITokenAdapter) Verify(ctx context.Context, creds Credentials) (Identity, error) {
	token := strings.TrimSpace(creds.Token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	client, err := a.Clients.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return client, nil
}
