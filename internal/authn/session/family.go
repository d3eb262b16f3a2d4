package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrFamilyNotFound is returned when a family id has no owner mapping.
var ErrFamilyNotFound = errors.New("token family not found")

// Families groups the refresh tokens descended from one login session so they
// can be revoked together without touching the subject's other sessions.
// Membership is maintained as a redis set keyed by family id rather than a
// key-pattern scan.
type Families struct {
	redis redis.UniversalClient
	ttl   time.Duration
	log   zerolog.Logger
}

// NewFamilies returns a family manager whose mappings live as long as the
// refresh token lifetime.
func NewFamilies(redisClient redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *Families {
	return &Families{redis: redisClient, ttl: ttl, log: log}
}

// Create mints a new family id owned by subject. Called once per login.
func (f *Families) Create(ctx context.Context, subject string) (string, error) {
	id := uuid.NewString()
	if err := f.redis.Set(ctx, familyKey(id), subject, f.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return id, nil
}

// Owner returns the subject that owns the family.
func (f *Families) Owner(ctx context.Context, id string) (string, error) {
	subject, err := f.redis.Get(ctx, familyKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrFamilyNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return subject, nil
}

// Revoke deletes the family mapping and every refresh record in its member
// index. The member walk is not transactional against concurrent rotations: a
// rotation racing this call can mint a record the walk never observes. That
// gap is accepted; revocation here is best-effort, not guaranteed-complete.
func (f *Families) Revoke(ctx context.Context, id string) error {
	members, err := f.redis.SMembers(ctx, membersKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	keys := make([]string, 0, len(members)+2)
	for _, jti := range members {
		keys = append(keys, refreshKey(jti))
	}
	keys = append(keys, membersKey(id), familyKey(id))

	if err := f.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	f.log.Info().Str("family_id", id).Int("revoked", len(members)).Msg("token family revoked")
	return nil
}
