package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"authgate.io/internal/obs"
)

// Service orchestrates the login, refresh, validate and logout flows. It
// composes the license gate, IP admission, capability resolution, credential
// issuance and audit recording; it owns issued credential pairs but never
// owns principal or organization storage.
type Service struct {
	store    Store
	tokens   *TokenService
	recorder *Recorder

	// Optional fast-store cache for license snapshots.
	cache    TokenStore
	cacheTTL time.Duration

	now func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLicenseCache enables caching of license validity in the fast store
// under license:{org_id}, refreshed on every successful login.
func WithLicenseCache(cache TokenStore, ttl time.Duration) Option {
	return func(s *Service) {
		if cache != nil && ttl > 0 {
			s.cache = cache
			s.cacheTTL = ttl
		}
	}
}

// NewService constructs the session orchestrator.
func NewService(store Store, tokens *TokenService, recorder *Recorder, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tokens:   tokens,
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Credentials is a credential presentation.
type Credentials struct {
	Email    string
	Password string
}

// Entitlement is the license snapshot returned alongside issued tokens.
type Entitlement struct {
	Type      LicenseType
	ExpiresAt time.Time
	Features  []string
	Valid     bool
	Warning   string
}

// Profile describes the authenticated principal in session results.
type Profile struct {
	ID               string
	Email            string
	FullName         string
	Role             Role
	OrganizationID   string
	OrganizationName string
	Modules          []string
}

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	User             Profile
	License          Entitlement
}

// ValidationResult is the outcome of the stateless corroboration flow.
type ValidationResult struct {
	Valid         bool
	LicenseStatus string
	ExpiresAt     *time.Time
	Modules       []string
}

// Login authenticates a credential presentation and mints a token pair.
// Each check short-circuits with its own audit record and distinct reason;
// invalid email and invalid password both surface as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, creds Credentials, client ClientInfo) (*Session, error) {
	clientIP := client.Address()
	email := strings.TrimSpace(strings.ToLower(creds.Email))

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || VerifyPassword(user.PasswordHash, creds.Password) != nil {
		rec := &AuditRecord{
			Action:       ActionLoginFailed,
			UserEmail:    email,
			IPAddress:    clientIP,
			UserAgent:    client.UserAgent,
			Status:       StatusFailed,
			ErrorMessage: "invalid email or password",
			Details:      map[string]any{"reason": ReasonInvalidCredentials, "email": email},
		}
		if user != nil {
			rec.UserID = user.ID
			rec.OrganizationID = user.OrganizationID
		}
		s.recordFailure(ctx, rec)
		obs.RecordLoginAttempt("failed", ReasonInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.recordFailure(ctx, &AuditRecord{
			Action:         ActionLoginFailed,
			UserID:         user.ID,
			UserEmail:      user.Email,
			OrganizationID: user.OrganizationID,
			IPAddress:      clientIP,
			UserAgent:      client.UserAgent,
			Status:         StatusFailed,
			ErrorMessage:   "user account is disabled",
			Details:        map[string]any{"reason": ReasonUserInactive, "email": user.Email},
		})
		obs.RecordLoginAttempt("failed", ReasonUserInactive)
		return nil, ErrUserInactive
	}

	org, err := s.store.Organizations(ctx).Find(ctx, user.OrganizationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}

	if !org.IsActive {
		s.recordFailure(ctx, &AuditRecord{
			Action:         ActionLoginFailed,
			UserID:         user.ID,
			UserEmail:      user.Email,
			OrganizationID: org.ID,
			IPAddress:      clientIP,
			UserAgent:      client.UserAgent,
			Status:         StatusFailed,
			ErrorMessage:   "organization is disabled",
			Details:        map[string]any{"reason": ReasonOrganizationInactive, "organization": org.Name},
		})
		obs.RecordLoginAttempt("failed", ReasonOrganizationInactive)
		return nil, ErrOrganizationInactive
	}

	license := EvaluateLicense(org, s.now())
	if !license.Valid {
		s.recordFailure(ctx, &AuditRecord{
			Action:         ActionLoginFailed,
			UserID:         user.ID,
			UserEmail:      user.Email,
			OrganizationID: org.ID,
			IPAddress:      clientIP,
			UserAgent:      client.UserAgent,
			Status:         StatusFailed,
			ErrorMessage:   "organization license has expired",
			Details:        map[string]any{"reason": ReasonLicenseExpired, "license_status": license.Reason, "organization": org.Name},
		})
		obs.RecordLoginAttempt("failed", ReasonLicenseExpired)
		return nil, ErrLicenseExpired
	}

	if !IPAllowed(clientIP, org.AllowedIPs) {
		s.recordFailure(ctx, &AuditRecord{
			Action:         ActionLoginFailed,
			UserID:         user.ID,
			UserEmail:      user.Email,
			OrganizationID: org.ID,
			IPAddress:      clientIP,
			UserAgent:      client.UserAgent,
			Status:         StatusFailed,
			ErrorMessage:   fmt.Sprintf("ip address %s is not whitelisted", clientIP),
			Details:        map[string]any{"reason": ReasonIPNotWhitelisted, "ip": clientIP, "allowed_ips": org.AllowedIPs},
		})
		obs.RecordLoginAttempt("failed", ReasonIPNotWhitelisted)
		return nil, ErrIPNotAllowed
	}

	modules := ModulesForRole(user.Role)

	accessToken, accessExp, err := s.tokens.IssueAccess(user, modules)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.tokens.IssueRefresh(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	obs.RecordTokenIssued(string(TokenKindAccess))
	obs.RecordTokenIssued(string(TokenKindRefresh))

	now := s.now().UTC()
	if err := s.store.Users(ctx).UpdateLoginMetadata(ctx, user.ID, now, clientIP); err != nil {
		return nil, fmt.Errorf("update login metadata: %w", err)
	}

	if err := s.recorder.Record(ctx, &AuditRecord{
		Action:         ActionLogin,
		UserID:         user.ID,
		UserEmail:      user.Email,
		OrganizationID: org.ID,
		IPAddress:      clientIP,
		UserAgent:      client.UserAgent,
		Status:         StatusSuccess,
		Details:        map[string]any{"organization": org.Name, "role": string(user.Role)},
	}); err != nil {
		obs.Error("audit append failed", err)
	}
	obs.RecordLoginAttempt("success", "")

	entitlement := s.entitlement(ctx, org, license)
	s.cacheLicense(ctx, org.ID, license)

	return &Session{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		User: Profile{
			ID:               user.ID,
			Email:            user.Email,
			FullName:         user.FullName,
			Role:             user.Role,
			OrganizationID:   org.ID,
			OrganizationName: org.Name,
			Modules:          modules,
		},
		License: entitlement,
	}, nil
}

// Refresh validates a renewal credential and mints a fresh access token.
// The principal is resolved from the verified claims, never from request
// input, and the still-valid refresh token is echoed rather than rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.Verify(ctx, refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	org, err := s.store.Organizations(ctx).Find(ctx, user.OrganizationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	if !org.IsActive {
		return nil, ErrOrganizationInactive
	}
	license := EvaluateLicense(org, s.now())
	if !license.Valid {
		return nil, ErrLicenseExpired
	}

	modules := ModulesForRole(user.Role)
	accessToken, accessExp, err := s.tokens.IssueAccess(user, modules)
	if err != nil {
		return nil, err
	}
	obs.RecordTokenIssued(string(TokenKindAccess))

	return &Session{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: claims.ExpiresAt.Time,
		User: Profile{
			ID:               user.ID,
			Email:            user.Email,
			FullName:         user.FullName,
			Role:             user.Role,
			OrganizationID:   org.ID,
			OrganizationName: org.Name,
			Modules:          modules,
		},
		License: s.entitlement(ctx, org, license),
	}, nil
}

// Validate is the stateless corroboration flow: principal active,
// organization exists, license valid. It never authenticates and returns
// capabilities only while the license holds.
func (s *Service) Validate(ctx context.Context, userID, orgID string) (*ValidationResult, error) {
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return &ValidationResult{Valid: false, LicenseStatus: ReasonUserInactive, Modules: []string{}}, nil
	}

	org, err := s.store.Organizations(ctx).Find(ctx, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationResult{Valid: false, LicenseStatus: "organization_not_found", Modules: []string{}}, nil
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}

	license := EvaluateLicense(org, s.now())
	result := &ValidationResult{
		Valid:         license.Valid,
		LicenseStatus: license.Reason,
		ExpiresAt:     &org.LicenseExpiresAt,
		Modules:       []string{},
	}
	if license.Valid {
		result.Modules = ModulesForRole(user.Role)
	}
	return result, nil
}

// Logout revokes the principal's refresh token. The operation is idempotent
// and succeeds even when nothing was revoked.
func (s *Service) Logout(ctx context.Context, userID string, client ClientInfo) error {
	if err := s.tokens.Revoke(ctx, userID); err != nil {
		return err
	}
	if err := s.recorder.Record(ctx, &AuditRecord{
		Action:    ActionLogout,
		UserID:    userID,
		IPAddress: client.Address(),
		UserAgent: client.UserAgent,
		Status:    StatusSuccess,
	}); err != nil {
		obs.Error("audit append failed", err)
	}
	return nil
}

// entitlement builds the license snapshot, including the non-fatal seat
// limit warning.
func (s *Service) entitlement(ctx context.Context, org *Organization, license LicenseStatus) Entitlement {
	ent := Entitlement{
		Type:      org.LicenseType,
		ExpiresAt: org.LicenseExpiresAt,
		Features:  org.FeaturesEnabled,
		Valid:     license.Valid,
	}
	if active, err := s.store.Users(ctx).CountActiveByOrg(ctx, org.ID); err == nil {
		ent.Warning = UserLimitWarning(active, org.MaxUsers)
	}
	return ent
}

// recordFailure appends a failed-login audit record. The append is
// synchronous and durable when it succeeds; when it fails the original
// authentication failure still propagates.
func (s *Service) recordFailure(ctx context.Context, rec *AuditRecord) {
	if err := s.recorder.Record(ctx, rec); err != nil {
		obs.Error("audit append failed", err)
	}
}

func (s *Service) cacheLicense(ctx context.Context, orgID string, license LicenseStatus) {
	if s.cache == nil {
		return
	}
	value := "false"
	if license.Valid {
		value = "true"
	}
	// Best effort: a cache miss only costs collaborators a re-check.
	_ = s.cache.Set(ctx, licenseKey(orgID), value, s.cacheTTL)
}
