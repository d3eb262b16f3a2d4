// Package session tracks issued refresh tokens in redis and implements the
// rotation protocol with reuse detection. A refresh jti moves through
// Issued -> Consumed (rotated away) -> Expired; any presentation of a jti the
// store no longer holds is treated as reuse. All coordination between server
// processes is delegated to redis atomic primitives; the package takes no
// in-process locks.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	// ErrTokenReused is returned when a presented refresh jti has no store
	// record: it was already consumed by a rotation, revoked, or expired.
	ErrTokenReused = errors.New("refresh token reused or revoked")
	// ErrStoreUnavailable is returned when redis itself cannot be reached.
	// The rotation path treats this as fail-closed.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrRecordCorrupt is returned when a stored record cannot be decoded.
	ErrRecordCorrupt = errors.New("refresh session record corrupt")
)

const (
	refreshKeyPrefix = "refresh:"
	familyKeyPrefix  = "family:"
	membersKeySuffix = ":members"
)

// Record is the server-side state held for one issued refresh jti.
type Record struct {
	Subject  string
	FamilyID string
}

func encodeRecord(rec Record) string {
	if rec.FamilyID == "" {
		return rec.Subject
	}
	return rec.Subject + ":" + rec.FamilyID
}

func decodeRecord(raw string) (Record, error) {
	if raw == "" {
		return Record{}, ErrRecordCorrupt
	}
	subject, familyID, _ := strings.Cut(raw, ":")
	if subject == "" {
		return Record{}, ErrRecordCorrupt
	}
	return Record{Subject: subject, FamilyID: familyID}, nil
}

// Record write and family member index update happen in one script so a new
// jti can never be issued without appearing in its family's index.
var saveWithFamily = redis.NewScript(`
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
redis.call("SADD", KEYS[2], ARGV[3])
redis.call("EXPIRE", KEYS[2], ARGV[2])
return 1
`)

// Store persists refresh session records with a TTL equal to the refresh
// token lifetime.
type Store struct {
	redis redis.UniversalClient
	ttl   time.Duration
	log   zerolog.Logger
}

// NewStore returns a Store writing records with the given TTL.
func NewStore(redisClient redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *Store {
	return &Store{redis: redisClient, ttl: ttl, log: log}
}

// TTL reports the record lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Save records a newly issued refresh jti. When the record belongs to a
// family, the family's member index is updated in the same round trip.
func (s *Store) Save(ctx context.Context, jti string, rec Record) error {
	ttlSeconds := int(s.ttl.Seconds())
	if rec.FamilyID == "" {
		if err := s.redis.Set(ctx, refreshKey(jti), encodeRecord(rec), s.ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}

	keys := []string{refreshKey(jti), membersKey(rec.FamilyID)}
	if err := saveWithFamily.Run(ctx, s.redis, keys, encodeRecord(rec), ttlSeconds, jti).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Take atomically reads and deletes the record for jti. Exactly one of N
// concurrent callers presenting the same jti observes the record; all others
// get ErrTokenReused. This single GETDEL round trip is what makes rotation
// at-most-once.
func (s *Store) Take(ctx context.Context, jti string) (Record, error) {
	raw, err := s.redis.GetDel(ctx, refreshKey(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrTokenReused
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		s.log.Error().Str("jti", jti).Msg("undecodable refresh session record")
		return Record{}, err
	}
	return rec, nil
}

// Delete removes the record for jti, if present. Used by logout; absence is
// not an error.
func (s *Store) Delete(ctx context.Context, jti string) error {
	if err := s.redis.Del(ctx, refreshKey(jti)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func refreshKey(jti string) string { return refreshKeyPrefix + jti }

func familyKey(id string) string { return familyKeyPrefix + id }

func membersKey(id string) string { return familyKeyPrefix + id + membersKeySuffix }
