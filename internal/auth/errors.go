package auth

import "errors"

// Authentication failures. Each carries a machine-readable reason used in
// audit details; the HTTP layer is responsible for collapsing
// ErrInvalidCredentials into a generic message so that unknown email and
// wrong password stay indistinguishable to clients.
var (
	ErrNotFound             = errors.New("auth: not found")
	ErrInvalidCredentials   = errors.New("auth: invalid email or password")
	ErrUserInactive         = errors.New("auth: user account is disabled")
	ErrOrganizationNotFound = errors.New("auth: organization not found")
	ErrOrganizationInactive = errors.New("auth: organization is disabled")
	ErrLicenseExpired       = errors.New("auth: organization license has expired")
	ErrIPNotAllowed         = errors.New("auth: ip address is not whitelisted")
	ErrUnauthorized         = errors.New("auth: unauthorized")
)

// Reason codes recorded in audit details for failed authentications.
const (
	ReasonInvalidCredentials   = "invalid_credentials"
	ReasonUserInactive         = "user_inactive"
	ReasonOrganizationInactive = "organization_inactive"
	ReasonLicenseExpired       = "license_expired"
	ReasonIPNotWhitelisted     = "ip_not_whitelisted"
)

// ErrInvalidToken is the umbrella token failure; every TokenError matches it
// via errors.Is so callers that do not care about the reason can test once.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenFailure enumerates the distinct ways token verification can fail.
type TokenFailure int

const (
	TokenMalformed TokenFailure = iota + 1
	TokenExpired
	TokenWrongKind
	TokenRevoked
)

func (f TokenFailure) String() string {
	switch f {
	case TokenMalformed:
		return "malformed"
	case TokenExpired:
		return "expired"
	case TokenWrongKind:
		return "wrong_kind"
	case TokenRevoked:
		return "revoked"
	}
	return "unknown"
}

// TokenError reports a verification failure with its reason.
type TokenError struct {
	Reason TokenFailure
}

func (e *TokenError) Error() string {
	return "auth: invalid token (" + e.Reason.String() + ")"
}

// Is makes every TokenError match ErrInvalidToken.
func (e *TokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

// TokenFailureReason extracts the failure reason from err, if it is a
// TokenError.
func TokenFailureReason(err error) (TokenFailure, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason, true
	}
	return 0, false
}
