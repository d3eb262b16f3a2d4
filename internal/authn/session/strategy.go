package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Strategy is the revocation policy applied to refresh sessions. Selected
// once at startup; handlers never branch on a strategy name per request.
type Strategy interface {
	// OnLogin runs when a login mints the first refresh token of a session
	// and returns the family id its records will carry ("" when the strategy
	// does not group tokens).
	OnLogin(ctx context.Context, subject string) (string, error)
	// OnReuseDetected runs when a refresh jti with no store record is
	// presented. The record is already gone, so neither strategy can widen
	// revocation from here; the value of the hook is the audit trail.
	OnReuseDetected(ctx context.Context, jti string)
}

// NuclearStrategy is the simple policy: no token grouping. Reuse is logged
// and the attempt rejected. Known limitation: sibling sessions of the same
// subject are not proactively invalidated.
type NuclearStrategy struct {
	log zerolog.Logger
}

// NewNuclearStrategy returns the ungrouped revocation policy.
func NewNuclearStrategy(log zerolog.Logger) *NuclearStrategy {
	return &NuclearStrategy{log: log}
}

func (s *NuclearStrategy) OnLogin(ctx context.Context, subject string) (string, error) {
	return "", nil
}

func (s *NuclearStrategy) OnReuseDetected(ctx context.Context, jti string) {
	s.log.Warn().Str("jti", jti).Str("strategy", "nuclear").Msg("refresh token reuse detected")
}

// FamilyStrategy groups every rotation of one login under a family id so a
// compromised session can be revoked without logging the subject out
// everywhere. On reuse the record, and with it the family id, is already
// deleted, so the attempt is rejected without broader revocation; the family
// mapping would have to be reachable by another key to do more.
type FamilyStrategy struct {
	families *Families
	log      zerolog.Logger
}

// NewFamilyStrategy returns the per-login family revocation policy.
func NewFamilyStrategy(families *Families, log zerolog.Logger) *FamilyStrategy {
	return &FamilyStrategy{families: families, log: log}
}

func (s *FamilyStrategy) OnLogin(ctx context.Context, subject string) (string, error) {
	id, err := s.families.Create(ctx, subject)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *FamilyStrategy) OnReuseDetected(ctx context.Context, jti string) {
	s.log.Warn().Str("jti", jti).Str("strategy", "family").Msg("refresh token reuse detected")
}

// NewStrategy builds the configured strategy. The name is examined exactly
// once, here.
func NewStrategy(name string, families *Families, log zerolog.Logger) (Strategy, error) {
	switch name {
	case "", "nuclear":
		return NewNuclearStrategy(log), nil
	case "family":
		return NewFamilyStrategy(families, log), nil
	default:
		return nil, fmt.Errorf("unknown refresh revocation strategy %q", name)
	}
}
