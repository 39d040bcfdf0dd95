package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Yoronex/gewisweb/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Members() MemberStore           { return &memberStore{db: s.db} }
func (s *PGStore) Companies() CompanyStore        { return &companyStore{db: s.db} }
func (s *PGStore) APIClients() APIClientStore     { return &apiClientStore{db: s.db} }
func (s *PGStore) Apps() AppStore                 { return &appStore{db: s.db} }
func (s *PGStore) AuthRecords() AuthRecordStore   { return &authRecordStore{db: s.db} }
func (s *PGStore) LoginAttempts() LoginAttemptStore {
	return &loginAttemptStore{db: s.db}
}

// Member store --------------------------------------------------------------
type memberStore struct{ db *sql.DB }

func (s *memberStore) Find(ctx context.Context, lidnr int) (*Member, error) {
	row := s.db.QueryRowContext(ctx,
		`select lidnr, email, password_hash, active, created_at, updated_at from members where lidnr=$1`, lidnr)
	return scanMember(row)
}

func (s *memberStore) FindByLogin(ctx context.Context, login string) (*Member, error) {
	// Members may log in with their membership number or email address.
	row := s.db.QueryRowContext(ctx,
		`select lidnr, email, password_hash, active, created_at, updated_at from members
		 where email=$1 or cast(lidnr as text)=$1`, login)
	return scanMember(row)
}

func scanMember(row *sql.Row) (*Member, error) {
	var m Member
	if err := row.Scan(&m.Lidnr, &m.Email, &m.PasswordHash, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Company store -------------------------------------------------------------
type companyStore struct{ db *sql.DB }

func (s *companyStore) Find(ctx context.Context, id string) (*CompanyAccount, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, company_name, email, password_hash, active, created_at, updated_at from company_accounts where id=$1`, id)
	return scanCompany(row)
}

func (s *companyStore) FindByEmail(ctx context.Context, email string) (*CompanyAccount, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, company_name, email, password_hash, active, created_at, updated_at from company_accounts where email=$1`, email)
	return scanCompany(row)
}

func scanCompany(row *sql.Row) (*CompanyAccount, error) {
	var c CompanyAccount
	if err := row.Scan(&c.ID, &c.CompanyName, &c.Email, &c.PasswordHash, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// API client store ----------------------------------------------------------
type apiClientStore struct{ db *sql.DB }

func (s *apiClientStore) FindByToken(ctx context.Context, token string) (*APIClient, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, token from api_clients where token=$1`, token)
	var c APIClient
	if err := row.Scan(&c.ID, &c.Name, &c.Token); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Application registry ------------------------------------------------------
type appStore struct{ db *sql.DB }

func (s *appStore) FindByAppID(ctx context.Context, appID string) (*RegisteredApp, error) {
	row := s.db.QueryRowContext(ctx,
		`select app_id, secret, callback, url, claims from api_apps where app_id=$1`, appID)
	var (
		app    RegisteredApp
		claims []byte
	)
	if err := row.Scan(&app.ID, &app.Secret, &app.Callback, &app.URL, &claims); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(claims, &app.Claims)
	return &app, nil
}

// Authentication history ----------------------------------------------------
type authRecordStore struct{ db *sql.DB }

func (s *authRecordStore) Last(ctx context.Context, subject, appID string) (*AuthenticationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, subject, app_id, occurred_at from app_authentications
		 where subject=$1 and app_id=$2 order by occurred_at desc limit 1`, subject, appID)
	var rec AuthenticationRecord
	if err := row.Scan(&rec.ID, &rec.Subject, &rec.AppID, &rec.OccurredAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *authRecordStore) Record(ctx context.Context, rec *AuthenticationRecord) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into app_authentications(id, subject, app_id, occurred_at) values($1,$2,$3,$4)`,
		rec.ID, rec.Subject, rec.AppID, rec.OccurredAt,
	)
	return err
}

// Login attempts ------------------------------------------------------------
type loginAttemptStore struct{ db *sql.DB }

func (s *loginAttemptStore) CountSince(ctx context.Context, address string, since time.Time) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`select count(*) from login_attempts where address=$1 and attempted_at >= $2`, address, since)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *loginAttemptStore) Record(ctx context.Context, attempt *LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = ids.New()
	}
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into login_attempts(id, address, attempted_at) values($1,$2,$3)`,
		attempt.ID, attempt.Address, attempt.AttemptedAt,
	)
	return err
}

func (s *loginAttemptStore) Clear(ctx context.Context, address string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from login_attempts where address=$1`, address)
	return err
}
