package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"authgate.io/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type validateRequest struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
}

type logoutRequest struct {
	UserID string `json:"user_id"`
}

type userPayload struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	FullName         string   `json:"full_name,omitempty"`
	Role             string   `json:"role"`
	OrganizationID   string   `json:"organization_id"`
	OrganizationName string   `json:"organization_name,omitempty"`
	Modules          []string `json:"modules"`
}

type licensePayload struct {
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
	Features  []string  `json:"features"`
	IsValid   bool      `json:"is_valid"`
	Warning   string    `json:"warning,omitempty"`
}

type sessionResponse struct {
	AccessToken      string         `json:"access_token"`
	RefreshToken     string         `json:"refresh_token"`
	TokenType        string         `json:"token_type"`
	AccessExpiresAt  time.Time      `json:"access_expires_at"`
	RefreshExpiresAt time.Time      `json:"refresh_expires_at"`
	User             userPayload    `json:"user"`
	License          licensePayload `json:"license"`
}

type validateResponse struct {
	Valid         bool       `json:"valid"`
	LicenseStatus string     `json:"license_status"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Modules       []string   `json:"modules"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := a.auth.Login(r.Context(),
		auth.Credentials{Email: req.Email, Password: req.Password},
		clientInfo(r),
	)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshToken == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	session, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" || req.OrganizationID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id and organization_id are required")
		return
	}

	result, err := a.auth.Validate(r.Context(), req.UserID, req.OrganizationID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "validation failed")
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:         result.Valid,
		LicenseStatus: result.LicenseStatus,
		ExpiresAt:     result.ExpiresAt,
		Modules:       result.Modules,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := a.auth.Logout(r.Context(), req.UserID, clientInfo(r)); err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	writeJSON(w, http.StatusOK, userPayload{
		ID:             claims.Subject,
		Email:          claims.Email,
		Role:           string(claims.Role),
		OrganizationID: claims.OrgID,
		Modules:        claims.Modules,
	})
}

func sessionPayload(s *auth.Session) sessionResponse {
	features := s.License.Features
	if features == nil {
		features = []string{}
	}
	return sessionResponse{
		AccessToken:      s.AccessToken,
		RefreshToken:     s.RefreshToken,
		TokenType:        "bearer",
		AccessExpiresAt:  s.AccessExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
		User: userPayload{
			ID:               s.User.ID,
			Email:            s.User.Email,
			FullName:         s.User.FullName,
			Role:             string(s.User.Role),
			OrganizationID:   s.User.OrganizationID,
			OrganizationName: s.User.OrganizationName,
			Modules:          s.User.Modules,
		},
		License: licensePayload{
			Type:      string(s.License.Type),
			ExpiresAt: s.License.ExpiresAt,
			Features:  features,
			IsValid:   s.License.Valid,
			Warning:   s.License.Warning,
		},
	}
}

// writeAuthError maps core failures onto HTTP statuses. Credential failures
// stay generic so the response never reveals whether the email exists.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrUserInactive):
		writeError(w, r, http.StatusForbidden, "user account is disabled")
	case errors.Is(err, auth.ErrOrganizationNotFound):
		writeError(w, r, http.StatusNotFound, "organization not found")
	case errors.Is(err, auth.ErrOrganizationInactive):
		writeError(w, r, http.StatusForbidden, "organization is disabled")
	case errors.Is(err, auth.ErrLicenseExpired):
		writeError(w, r, http.StatusForbidden, "organization license has expired")
	case errors.Is(err, auth.ErrIPNotAllowed):
		writeError(w, r, http.StatusForbidden, "ip address is not whitelisted for this organization")
	case errors.Is(err, auth.ErrInvalidToken):
		if reason, ok := auth.TokenFailureReason(err); ok && reason == auth.TokenRevoked {
			writeError(w, r, http.StatusUnauthorized, "refresh token has been revoked")
			return
		}
		writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RealIP:       r.Header.Get("X-Real-IP"),
		RemoteAddr:   r.RemoteAddr,
		UserAgent:    r.Header.Get("User-Agent"),
	}
}
