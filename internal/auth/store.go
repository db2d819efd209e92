package auth

import (
	"context"
	"time"
)

// Store describes the persistence operations required by the auth core.
type Store interface {
	Users(ctx context.Context) UserStore
	Organizations(ctx context.Context) OrganizationStore
	Audit(ctx context.Context) AuditStore
}

// UserStore manages principals.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	CountActiveByOrg(ctx context.Context, orgID string) (int, error)
	UpdateLoginMetadata(ctx context.Context, id string, at time.Time, ip string) error
}

// OrganizationStore manages tenants.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	FindByName(ctx context.Context, name string) (*Organization, error)
}

// AuditStore appends immutable audit records.
type AuditStore interface {
	Append(ctx context.Context, rec *AuditRecord) error
}

// TokenStore is the fast key-value store tracking refresh-token state and
// short-lived license snapshots. Implementations must provide per-key
// atomicity: Set replaces any prior value in one step, Delete of a missing
// key is not an error, and Get returns ErrNotFound for absent keys.
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

func refreshTokenKey(userID string) string { return "refresh_token:" + userID }

func licenseKey(orgID string) string { return "license:" + orgID }
