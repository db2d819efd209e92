package auth

import "time"

// License status codes reported by the gate and echoed in validation
// responses. Inactive organization and time-expired license are deliberately
// distinct so that audit details never collapse them.
const (
	LicenseStatusActive      = "active"
	LicenseStatusOrgInactive = "organization_inactive"
	LicenseStatusExpired     = "expired"
	WarningUserLimitReached  = "user_limit_reached"
)

// LicenseStatus is the gate's verdict for one organization at one instant.
type LicenseStatus struct {
	Valid         bool
	Reason        string
	ExpiresAt     time.Time
	DaysRemaining int
}

// EvaluateLicense decides current entitlement validity: an organization is
// licensed iff it is active and the expiry instant has not passed. The check
// is dependency free and usable by any collaborator that only needs the
// boolean plus the distinguishing reason.
func EvaluateLicense(org *Organization, now time.Time) LicenseStatus {
	status := LicenseStatus{ExpiresAt: org.LicenseExpiresAt}
	if !org.IsActive {
		status.Reason = LicenseStatusOrgInactive
		return status
	}
	if !now.Before(org.LicenseExpiresAt) {
		status.Reason = LicenseStatusExpired
		return status
	}
	status.Valid = true
	status.Reason = LicenseStatusActive
	status.DaysRemaining = int(org.LicenseExpiresAt.Sub(now).Hours() / 24)
	return status
}

// UserLimitWarning returns a non-fatal warning tag when the active principal
// count has reached the organization's seat limit. Over-limit is never a
// hard authentication failure.
func UserLimitWarning(activeUsers, maxUsers int) string {
	if maxUsers > 0 && activeUsers >= maxUsers {
		return WarningUserLimitReached
	}
	return ""
}
