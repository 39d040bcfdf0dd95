package auth

import (
	"context"
	"strings"
)

// Resolver holds the per-request identity slots for the three channels.
// Each slot resolves at most once per request and is cached afterwards;
// nothing is re-validated mid-request. Precedence is member, then
// company, then API client: first-party sessions outlive the request
// while the API identity is per-request only.
type Resolver struct {
	svc     *Service
	member  *Session
	company *Session

	api          Identity
	memberIdent  Identity
	companyIdent Identity
	memberDone   bool
	companyDone  bool
}

// NewResolver binds the request's two session channels to the service.
func NewResolver(svc *Service, member, company *Session) *Resolver {
	return &Resolver{svc: svc, member: member, company: company}
}

// SetAPI stores the API identity resolved by the bootstrap step.
func (r *Resolver) SetAPI(ident Identity) {
	r.api = ident
}

// MemberSession exposes the member session channel of this request.
func (r *Resolver) MemberSession() *Session { return r.member }

// CompanySession exposes the company session channel of this request.
func (r *Resolver) CompanySession() *Session { return r.company }

// Member resolves the member identity, if any.
func (r *Resolver) Member(ctx context.Context) Identity {
	if r.memberDone {
		return r.memberIdent
	}
	r.memberDone = true
	if r.svc == nil || r.member == nil {
		return nil
	}
	subject, ok := r.member.Read()
	if !ok {
		return nil
	}
	ident, err := r.svc.MemberBySubject(ctx, subject)
	if err != nil {
		return nil
	}
	r.memberIdent = ident
	return ident
}

// Company resolves the company identity, if any.
func (r *Resolver) Company(ctx context.Context) Identity {
	if r.companyDone {
		return r.companyIdent
	}
	r.companyDone = true
	if r.svc == nil || r.company == nil {
		return nil
	}
	subject, ok := r.company.Read()
	if !ok {
		return nil
	}
	ident, err := r.svc.CompanyBySubject(ctx, subject)
	if err != nil {
		return nil
	}
	r.companyIdent = ident
	return ident
}

// API returns the per-request API identity, if any.
func (r *Resolver) API() Identity { return r.api }

// Identity returns the current identity under the documented precedence,
// or nil when the request is unauthenticated.
func (r *Resolver) Identity(ctx context.Context) Identity {
	if ident := r.Member(ctx); ident != nil {
		return ident
	}
	if ident := r.Company(ctx); ident != nil {
		return ident
	}
	return r.api
}

type resolverContextKey struct{}
type subjectContextKey struct{}

// ContextWithResolver attaches the request's identity resolver.
func ContextWithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, resolverContextKey{}, r)
}

// ResolverFromContext extracts the identity resolver, if present.
func ResolverFromContext(ctx context.Context) (*Resolver, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(resolverContextKey{}).(*Resolver)
	if !ok || r == nil {
		return nil, false
	}
	return r, true
}

// ContextWithSubject stores the resolved subject for audit enrichment.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ctx
	}
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// SubjectFromContext returns the resolved subject, if one was attached.
func SubjectFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(subjectContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
