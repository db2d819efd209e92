package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"authgate.io/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(context context.Context) UserStore { return &userStore{db: s.db} }
func (s *PGStore) Organizations(context context.Context) OrganizationStore {
	return &orgStore{db: s.db}
}
func (s *PGStore) Audit(context context.Context) AuditStore { return &auditStore{db: s.db} }

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

const userColumns = `id, email, password_hash, full_name, role, organization_id, created_by, last_login, last_ip, is_active, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	createdBy := sql.NullString{String: u.CreatedBy, Valid: u.CreatedBy != ""}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, full_name, role, organization_id, created_by, is_active)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, string(u.Role), u.OrganizationID, createdBy, u.IsActive,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) CountActiveByOrg(ctx context.Context, orgID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where organization_id=$1 and is_active`, orgID).Scan(&count)
	return count, err
}

func (s *userStore) UpdateLoginMetadata(ctx context.Context, id string, at time.Time, ip string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_login=$2, last_ip=$3, updated_at=now() where id=$1`,
		id, at, ip,
	)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u         User
		role      string
		createdBy sql.NullString
		lastLogin sql.NullTime
		lastIP    sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.OrganizationID,
		&createdBy, &lastLogin, &lastIP, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	u.CreatedBy = createdBy.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	u.LastIP = lastIP.String
	return &u, nil
}

// Organization store -------------------------------------------------------
type orgStore struct{ db *sql.DB }

const orgColumns = `id, name, license_type, license_expires_at, max_users, features_enabled, allowed_ips, is_active, created_at, updated_at`

func (s *orgStore) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	features, _ := json.Marshal(org.FeaturesEnabled)
	allowed, _ := json.Marshal(org.AllowedIPs)
	_, err := s.db.ExecContext(ctx,
		`insert into organizations(id, name, license_type, license_expires_at, max_users, features_enabled, allowed_ips, is_active)
		 values($1,$2,$3,$4,$5,$6,$7,$8)`,
		org.ID, org.Name, string(org.LicenseType), org.LicenseExpiresAt, org.MaxUsers, features, allowed, org.IsActive,
	)
	return err
}

func (s *orgStore) Find(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where id=$1`, id)
	return scanOrganization(row)
}

func (s *orgStore) FindByName(ctx context.Context, name string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where name=$1`, name)
	return scanOrganization(row)
}

func scanOrganization(row *sql.Row) (*Organization, error) {
	var (
		org         Organization
		licenseType string
		features    []byte
		allowed     []byte
	)
	err := row.Scan(&org.ID, &org.Name, &licenseType, &org.LicenseExpiresAt, &org.MaxUsers,
		&features, &allowed, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	org.LicenseType = LicenseType(licenseType)
	_ = json.Unmarshal(features, &org.FeaturesEnabled)
	_ = json.Unmarshal(allowed, &org.AllowedIPs)
	return &org, nil
}

// Audit store --------------------------------------------------------------
type auditStore struct{ db *sql.DB }

func (s *auditStore) Append(ctx context.Context, rec *AuditRecord) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	details, _ := json.Marshal(rec.Details)
	_, err := s.db.ExecContext(ctx,
		`insert into audit_logs(id, timestamp, action, user_id, user_email, organization_id, target_id, target_type, ip_address, user_agent, details, status, error_message)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.ID, rec.Timestamp, string(rec.Action),
		nullable(rec.UserID), nullable(rec.UserEmail), nullable(rec.OrganizationID),
		nullable(rec.TargetID), nullable(rec.TargetType),
		nullable(rec.IPAddress), nullable(rec.UserAgent),
		details, nullable(rec.Status), nullable(rec.ErrorMessage),
	)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
