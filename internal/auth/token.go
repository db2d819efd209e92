package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind discriminates access credentials from renewal credentials.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

const (
	defaultIssuer     = "authgate"
	defaultAccessTTL  = 8 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims are the JWT claims carried by issued credentials. Access tokens
// carry the full set; refresh tokens carry only the subject and lifetime.
type Claims struct {
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role,omitempty"`
	OrgID     string    `json:"org,omitempty"`
	Modules   []string  `json:"modules,omitempty"`
	TokenType TokenKind `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed credentials. Access tokens are
// self-contained; refresh-token validity is additionally tracked in the fast
// store so that issuing a new one atomically supersedes the previous.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	tokens     TokenStore
	now        func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithAccessTTL configures the access-token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures the refresh-token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService. The signing secret is explicit
// configuration, never ambient state.
func NewTokenService(secret string, tokens TokenStore, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token store is required")
	}
	s := &TokenService{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		tokens:     tokens,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessTTL returns the configured access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess signs a self-contained access token for the user. Issuance is
// pure: no store interaction.
func (s *TokenService) IssueAccess(user *User, modules []string) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Email:     user.Email,
		Role:      user.Role,
		OrgID:     user.OrganizationID,
		Modules:   modules,
		TokenType: TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefresh signs a renewal token carrying only the principal id and
// durably records it as the single current refresh token for that
// principal, superseding any prior value.
func (s *TokenService) IssueRefresh(ctx context.Context, userID string) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.refreshTTL)
	claims := Claims{
		TokenType: TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.tokens.Set(ctx, refreshTokenKey(userID), signed, s.refreshTTL); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, structure, expiry and kind. For refresh tokens it
// additionally requires the fast-store value to match the presented token
// exactly, which covers both logout and token rotation.
func (s *TokenService) Verify(ctx context.Context, token string, kind TokenKind) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, &TokenError{Reason: TokenMalformed}
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &TokenError{Reason: TokenExpired}
		}
		return nil, &TokenError{Reason: TokenMalformed}
	}
	if !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, &TokenError{Reason: TokenMalformed}
	}
	if claims.Issuer != s.issuer {
		return nil, &TokenError{Reason: TokenMalformed}
	}
	// The parser treats the exact expiry instant as still valid; issued
	// credentials are already dead at that instant.
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, &TokenError{Reason: TokenExpired}
	}
	if claims.TokenType != kind {
		return nil, &TokenError{Reason: TokenWrongKind}
	}
	if kind == TokenKindRefresh {
		stored, err := s.tokens.Get(ctx, refreshTokenKey(claims.Subject))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &TokenError{Reason: TokenRevoked}
			}
			return nil, fmt.Errorf("load refresh token: %w", err)
		}
		if stored != token {
			return nil, &TokenError{Reason: TokenRevoked}
		}
	}
	return claims, nil
}

// Revoke deletes the principal's current refresh token. Revocation is
// idempotent: a missing entry is not an error.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	return s.tokens.Delete(ctx, refreshTokenKey(userID))
}
