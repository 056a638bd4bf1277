// Package token issues and verifies the access and refresh JWTs.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"jobboard/pkg/domain"
)

const (
	defaultIssuer     = "jobboard-api"
	defaultAudience   = "jobboard-web"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultLeeway     = 30 * time.Second
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRevoked      = errors.New("token revoked")
	// ErrReplayed means another caller already consumed the token.
	ErrReplayed = errors.New("token already consumed")
)

// Revoker tracks revoked token ids and per-user revocation cutoffs.
type Revoker interface {
	Revoke(jti string, ttl time.Duration) error
	// Claim revokes jti only if it is not revoked yet and reports whether
	// this call did it.
	Claim(jti string, ttl time.Duration) (bool, error)
	IsRevoked(jti string) (bool, error)
	RevokeUser(userID string, cutoff time.Time) error
	RevokedAfter(userID string) (time.Time, error)
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	UserID   string          `json:"id"`
	Email    string          `json:"email"`
	UserType domain.UserRole `json:"userType"`
	jwt.RegisteredClaims
}

// Options configures a Service. Zero durations fall back to defaults.
type Options struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	Revoker       Revoker
}

// Service signs access and refresh tokens with independent HMAC secrets.
type Service struct {
	access     []byte
	refresh    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   string
	leeway     time.Duration
	revoker    Revoker
}

// New validates the options and builds a Service.
func New(opts Options) (*Service, error) {
	if strings.TrimSpace(opts.AccessSecret) == "" || strings.TrimSpace(opts.RefreshSecret) == "" {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if opts.AccessSecret == opts.RefreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultLeeway
	}
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}
	opts.Audience = strings.TrimSpace(opts.Audience)
	if opts.Audience == "" {
		opts.Audience = defaultAudience
	}
	return &Service{
		access:     []byte(opts.AccessSecret),
		refresh:    []byte(opts.RefreshSecret),
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		issuer:     opts.Issuer,
		audience:   opts.Audience,
		leeway:     opts.Leeway,
		revoker:    opts.Revoker,
	}, nil
}

// RefreshTTL is the lifetime of refresh tokens, also used for the cookie max-age.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssueAccess signs a short-lived access token for the user.
func (s *Service) IssueAccess(u domain.User) (string, error) {
	return s.sign(u, s.access, s.accessTTL)
}

// IssueRefresh signs a refresh token for the user.
func (s *Service) IssueRefresh(u domain.User) (string, error) {
	return s.sign(u, s.refresh, s.refreshTTL)
}

// VerifyAccess validates an access token and returns its claims.
func (s *Service) VerifyAccess(raw string) (Claims, error) {
	return s.verify(raw, s.access)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *Service) VerifyRefresh(raw string) (Claims, error) {
	return s.verify(raw, s.refresh)
}

// Revoke invalidates a verified token until its natural expiry.
func (s *Service) Revoke(c Claims) error {
	if s.revoker == nil || c.ExpiresAt == nil {
		return nil
	}
	return s.revoker.Revoke(c.ID, time.Until(c.ExpiresAt.Time))
}

// Consume spends a verified single-use token. Exactly one of any number of
// concurrent callers succeeds; the rest get ErrReplayed.
func (s *Service) Consume(c Claims) error {
	if s.revoker == nil {
		return nil
	}
	if c.ExpiresAt == nil {
		return ErrInvalidToken
	}
	ttl := time.Until(c.ExpiresAt.Time)
	if ttl <= 0 {
		return ErrInvalidToken
	}
	claimed, err := s.revoker.Claim(c.ID, ttl)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !claimed {
		return ErrReplayed
	}
	return nil
}

// RevokeUser invalidates every token of the user issued before the second of at.
func (s *Service) RevokeUser(userID string, at time.Time) error {
	if s.revoker == nil {
		return nil
	}
	return s.revoker.RevokeUser(userID, at.UTC().Truncate(time.Second))
}

func (s *Service) sign(u domain.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:   u.ID,
		Email:    u.Email,
		UserType: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) verify(raw string, secret []byte) (Claims, error) {
	claims := Claims{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return claims, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.ID) == "" || strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return Claims{}, ErrInvalidToken
	}
	if err := s.checkRevoked(claims); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (s *Service) checkRevoked(c Claims) error {
	if s.revoker == nil {
		return nil
	}
	revoked, err := s.revoker.IsRevoked(c.ID)
	if err != nil {
		return fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return ErrRevoked
	}
	cutoff, err := s.revoker.RevokedAfter(c.UserID)
	if err != nil {
		return fmt.Errorf("check user revocation: %w", err)
	}
	if cutoff.IsZero() {
		return nil
	}
	if c.IssuedAt == nil || c.IssuedAt.Time.UTC().Before(cutoff) {
		return ErrRevoked
	}
	return nil
}
