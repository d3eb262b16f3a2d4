package session

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/revlinehq/revline/internal/authn/token"
)

// Pair is an issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
	RefreshJTI   string
	// ExpiresIn is the access token lifetime in seconds, for the response body.
	ExpiresIn int
}

// Rotator drives the refresh session lifecycle: issuance on login, atomic
// rotation with reuse detection on refresh, and best-effort revocation on
// logout. Correctness under concurrent refreshes rests entirely on
// Store.Take being atomic.
type Rotator struct {
	tokens   *token.Manager
	store    *Store
	strategy Strategy
	log      zerolog.Logger
}

// NewRotator wires the rotation protocol.
func NewRotator(tokens *token.Manager, store *Store, strategy Strategy, log zerolog.Logger) *Rotator {
	return &Rotator{tokens: tokens, store: store, strategy: strategy, log: log}
}

// Login issues an access/refresh pair for subject and records the refresh
// jti as Issued. Under the family strategy the session gets a fresh family id
// that every later rotation inherits.
func (r *Rotator) Login(ctx context.Context, subject string) (Pair, error) {
	familyID, err := r.strategy.OnLogin(ctx, subject)
	if err != nil {
		return Pair{}, err
	}
	return r.issue(ctx, subject, familyID)
}

// Rotate consumes refreshToken and issues a replacement pair. At most one
// concurrent caller presenting the same token succeeds; all others receive
// ErrTokenReused. A store outage rejects the rotation (fail-closed): allowing
// rotation without being able to check revocation state would defeat reuse
// detection.
func (r *Rotator) Rotate(ctx context.Context, refreshToken string) (Pair, error) {
	claims, err := r.tokens.Decode(refreshToken)
	if err != nil {
		return Pair{}, err
	}
	if claims.Type != token.TypeRefresh {
		return Pair{}, token.ErrWrongTokenType
	}
	if strings.TrimSpace(claims.JTI) == "" || strings.TrimSpace(claims.Subject) == "" {
		return Pair{}, token.ErrInvalidToken
	}

	rec, err := r.store.Take(ctx, claims.JTI)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenReused):
			r.strategy.OnReuseDetected(ctx, claims.JTI)
			return Pair{}, ErrTokenReused
		case errors.Is(err, ErrRecordCorrupt):
			return Pair{}, token.ErrInvalidToken
		default:
			return Pair{}, err
		}
	}

	if rec.Subject != claims.Subject {
		// The signature checked out but the store disagrees about ownership.
		r.log.Error().
			Str("jti", claims.JTI).
			Str("claim_subject", claims.Subject).
			Str("record_subject", rec.Subject).
			Msg("refresh session integrity violation")
		return Pair{}, token.ErrInvalidToken
	}

	return r.issue(ctx, claims.Subject, rec.FamilyID)
}

// Logout revokes the session behind refreshToken. It never returns an error:
// the caller clears the cookie and reports success regardless, so a malformed
// token or store failure is only logged here.
func (r *Rotator) Logout(ctx context.Context, refreshToken string) {
	claims, err := r.tokens.Decode(refreshToken)
	if err != nil {
		r.log.Debug().Err(err).Msg("invalid refresh token during logout")
		return
	}
	if claims.JTI == "" {
		return
	}
	if err := r.store.Delete(ctx, claims.JTI); err != nil {
		r.log.Warn().Err(err).Str("jti", claims.JTI).Msg("failed to revoke refresh token during logout")
	}
}

func (r *Rotator) issue(ctx context.Context, subject, familyID string) (Pair, error) {
	refresh, jti, err := r.tokens.CreateRefresh(subject)
	if err != nil {
		return Pair{}, err
	}
	if err := r.store.Save(ctx, jti, Record{Subject: subject, FamilyID: familyID}); err != nil {
		return Pair{}, err
	}

	access, _, err := r.tokens.CreateAccess(subject)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		RefreshJTI:   jti,
		ExpiresIn:    int(r.tokens.AccessTTL().Seconds()),
	}, nil
}
