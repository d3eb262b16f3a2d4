// Package ratelimit enforces sliding-window request quotas with exponential
// penalty backoff for the authentication endpoints. All counters live in
// redis so independent server processes agree on quota state. The limiter is
// best-effort: when redis is unreachable it logs and allows the request.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Scope selects which identities a limiter buckets by.
type Scope string

const (
	// ScopeIP buckets by client network identity.
	ScopeIP Scope = "ip"
	// ScopeSubject buckets by authenticated subject.
	ScopeSubject Scope = "user"
	// ScopeBoth evaluates independent IP and subject buckets; a request is
	// rejected if any applicable bucket is exceeded.
	ScopeBoth Scope = "both"
)

// ErrRateLimited is the sentinel under every limiter rejection.
var ErrRateLimited = errors.New("rate limited")

// RetryError is a limiter rejection carrying the backoff hint.
type RetryError struct {
	RetryAfter time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Unwrap makes errors.Is(err, ErrRateLimited) hold for every RetryError.
func (e *RetryError) Unwrap() error { return ErrRateLimited }

const (
	keyPrefix         = "ratelimit"
	penaltySuffix     = ":penalty"
	penaltyWindowMult = 10
	maxPenaltyShift   = 3 // multiplier capped at 2^3 = 8x
)

// Counter increment and first-hit expiry collapse into one round trip so a
// failure between the two steps cannot leave a counter with no expiry.
var incrWithExpire = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Config tunes one limiter instance.
type Config struct {
	// Limit is the number of requests allowed per Window.
	Limit int
	// Window is the sliding window duration.
	Window time.Duration
	// Scope selects the identities bucketed by this limiter.
	Scope Scope
	// StoreTimeout bounds every redis call so a store outage never stalls
	// caller-visible latency. Defaults to 150ms.
	StoreTimeout time.Duration
}

// Limiter evaluates sliding-window quotas against redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	log    zerolog.Logger
}

// New creates a Limiter backed by the given redis client.
func New(redisClient redis.UniversalClient, cfg Config, log zerolog.Logger) *Limiter {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 150 * time.Millisecond
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeIP
	}
	return &Limiter{redis: redisClient, config: cfg, log: log}
}

// Scope reports the limiter's configured scope.
func (l *Limiter) Scope() Scope { return l.config.Scope }

// Allow checks the bucket (path, scope, identity) and returns nil when the
// request is within budget. Over budget it returns a *RetryError whose
// RetryAfter grows exponentially with repeated violations, capped at 8x the
// window. Store errors fail open.
func (l *Limiter) Allow(ctx context.Context, path string, scope Scope, identity string) error {
	key := fmt.Sprintf("%s:%s:%s:%s", keyPrefix, path, scope, identity)

	ctx, cancel := context.WithTimeout(ctx, l.config.StoreTimeout)
	defer cancel()

	count, err := incrWithExpire.Run(ctx, l.redis, []string{key}, int(l.config.Window.Seconds())).Int64()
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("rate limiter store error, failing open")
		return nil
	}
	if count <= int64(l.config.Limit) {
		return nil
	}

	retryAfter, err := l.recordViolation(ctx, key)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("rate limiter penalty store error, failing open")
		return nil
	}

	l.log.Warn().
		Str("path", path).
		Str("scope", string(scope)).
		Str("identity", identity).
		Int64("count", count).
		Int("limit", l.config.Limit).
		Dur("retry_after", retryAfter).
		Msg("rate limit exceeded")

	return &RetryError{RetryAfter: retryAfter}
}

// recordViolation reads the penalty counter for key, derives the backoff
// multiplier min(2^p, 8), and increments the penalty under a refreshed
// 10-window expiry.
func (l *Limiter) recordViolation(ctx context.Context, key string) (time.Duration, error) {
	penaltyKey := key + penaltySuffix

	penalty, err := l.redis.Get(ctx, penaltyKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	shift := penalty
	if shift > maxPenaltyShift {
		shift = maxPenaltyShift
	}
	retryAfter := l.config.Window * time.Duration(int64(1)<<shift)

	penaltyTTL := time.Duration(penaltyWindowMult) * l.config.Window
	if err := l.redis.Set(ctx, penaltyKey, penalty+1, penaltyTTL).Err(); err != nil {
		return 0, err
	}

	return retryAfter, nil
}

// ClientIP resolves the client's network identity: first hop of the
// X-Forwarded-For header, else the transport-level peer address, else a fixed
// sentinel. Resolution never fails the request.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
