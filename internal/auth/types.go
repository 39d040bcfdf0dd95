package auth

import (
	"strconv"
	"time"
)

// Identity is the resolved principal making a request. Exactly one identity
// (or none) is current per request; the role and resource tags feed the
// downstream permission checks.
type Identity interface {
	Subject() string
	RoleID() string
	ResourceID() string
}

// Member is a regular association member identified by membership number.
type Member struct {
	Lidnr        int
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (m *Member) Subject() string    { return strconv.Itoa(m.Lidnr) }
func (m *Member) RoleID() string     { return "user" }
func (m *Member) ResourceID() string { return "user" }

// CompanyAccount is a login for a company on the job board. Company
// sessions are orthogonal to member sessions; one request can carry both.
type CompanyAccount struct {
	ID           string
	CompanyName  string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *CompanyAccount) Subject() string    { return c.ID }
func (c *CompanyAccount) RoleID() string     { return "company_user" }
func (c *CompanyAccount) ResourceID() string { return "company" }

// APIClient authenticates with a static bearer token and only lives for
// the duration of one request.
type APIClient struct {
	ID    string
	Name  string
	Token string
}

func (a *APIClient) Subject() string    { return a.ID }
func (a *APIClient) RoleID() string     { return "apiuser" }
func (a *APIClient) ResourceID() string { return "api" }

// RegisteredApp is a pre-provisioned third-party application that may
// request delegated tokens. Read-only to this service.
type RegisteredApp struct {
	ID       string
	Secret   string
	Callback string
	URL      string
	Claims   []string
}

// AuthenticationRecord marks the last successful delegated authentication
// of a subject against an application. Last write wins.
type AuthenticationRecord struct {
	ID         string
	Subject    string
	AppID      string
	OccurredAt time.Time
}

// LoginAttempt is one failed password authentication from an address.
type LoginAttempt struct {
	ID          string
	Address     string
	AttemptedAt time.Time
}
