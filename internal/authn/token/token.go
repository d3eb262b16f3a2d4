// Package token builds and decodes the signed claim-bearing tokens used by the
// session subsystem. Access tokens are stateless: validity is signature plus
// expiry only. Refresh tokens carry the same claims but are additionally
// tracked server-side by their jti.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type distinguishes access tokens from refresh tokens. A token of one type is
// never honored where the other is required.
type Type string

const (
	// TypeAccess marks short-lived bearer tokens validated without a store lookup.
	TypeAccess Type = "access"
	// TypeRefresh marks long-lived tokens that must also exist in the refresh store.
	TypeRefresh Type = "refresh"
)

var (
	// ErrInvalidToken is returned for bad signatures, malformed payloads and
	// elapsed expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when an access token is presented where a
	// refresh token is required, or the other way around.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrMissingSubject is returned when the sub claim is absent or empty.
	ErrMissingSubject = errors.New("missing subject")
)

// Claims is the decoded payload of a Revline token.
type Claims struct {
	Subject   string
	Type      Type
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type wireClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Config holds the codec's signing parameters. Signing is symmetric (HS256)
// only.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// Manager signs and verifies tokens. Construct once at startup; safe for
// concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a token Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("token: refresh TTL must not be shorter than access TTL")
	}
	return &Manager{config: cfg}, nil
}

// AccessTTL reports the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// CreateAccess mints a signed access token for subject and returns the token
// with its freshly generated jti.
func (m *Manager) CreateAccess(subject string) (string, string, error) {
	return m.create(subject, TypeAccess, m.config.AccessTTL)
}

// CreateRefresh mints a signed refresh token for subject and returns the token
// with its freshly generated jti. The caller is responsible for recording the
// jti in the refresh store.
func (m *Manager) CreateRefresh(subject string) (string, string, error) {
	return m.create(subject, TypeRefresh, m.config.RefreshTTL)
}

func (m *Manager) create(subject string, typ Type, ttl time.Duration) (string, string, error) {
	jti := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)

	claims := wireClaims{
		Type: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, jti, nil
}

// Decode verifies the signature and expiry of raw and returns its claims.
// Every failure mode collapses to ErrInvalidToken: callers must not be able to
// distinguish tampering from expiry.
func (m *Manager) Decode(raw string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(raw, &wireClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	wc, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		Subject: wc.Subject,
		Type:    Type(wc.Type),
		JTI:     wc.ID,
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time
	}
	if wc.ExpiresAt != nil {
		claims.ExpiresAt = wc.ExpiresAt.Time
	}
	return claims, nil
}

// VerifyAccess decodes raw and requires it to be an access token with a
// non-empty subject. This is the only validation protected endpoints perform:
// no store round-trip is involved.
func (m *Manager) VerifyAccess(raw string) (*Claims, error) {
	claims, err := m.Decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrWrongTokenType
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
