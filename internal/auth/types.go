package auth

import "time"

// Role is the closed set of principal roles. The admin role is scoped to the
// auth portal itself; the product roles grant graduated module access.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
	RoleOps       Role = "ops"
)

// Valid reports whether the role belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleTester, RoleOps:
		return true
	}
	return false
}

// LicenseType classifies an organization's entitlement tier.
type LicenseType string

const (
	LicenseTrial      LicenseType = "trial"
	LicenseStandard   LicenseType = "standard"
	LicenseEnterprise LicenseType = "enterprise"
)

// User is a human or service principal belonging to exactly one organization.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	FullName       string
	Role           Role
	OrganizationID string
	CreatedBy      string
	LastLogin      *time.Time
	LastIP         string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Organization is a tenant with a license and optional origin restrictions.
// An empty AllowedIPs list means no origin restriction.
type Organization struct {
	ID               string
	Name             string
	LicenseType      LicenseType
	LicenseExpiresAt time.Time
	MaxUsers         int
	FeaturesEnabled  []string
	AllowedIPs       []string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Action is the closed set of audit-worthy events.
type Action string

const (
	ActionLogin             Action = "login"
	ActionLogout            Action = "logout"
	ActionLoginFailed       Action = "login_failed"
	ActionUserCreated       Action = "user_created"
	ActionUserUpdated       Action = "user_updated"
	ActionUserDeleted       Action = "user_deleted"
	ActionOrgCreated        Action = "org_created"
	ActionOrgUpdated        Action = "org_updated"
	ActionOrgDeleted        Action = "org_deleted"
	ActionLicenseExtended   Action = "license_extended"
	ActionLicenseExpired    Action = "license_expired"
	ActionPasswordChanged   Action = "password_changed"
	ActionPermissionChanged Action = "permission_changed"
	ActionAPIKeyCreated     Action = "api_key_created"
	ActionAPIKeyRevoked     Action = "api_key_revoked"
)

// AuditRecord is one append-only entry in the security audit trail. Records
// are created once per decision point and never mutated afterwards.
type AuditRecord struct {
	ID             string
	Timestamp      time.Time
	Action         Action
	UserID         string
	UserEmail      string
	OrganizationID string
	TargetID       string
	TargetType     string
	IPAddress      string
	UserAgent      string
	Details        map[string]any
	Status         string
	ErrorMessage   string
}

// Audit outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
