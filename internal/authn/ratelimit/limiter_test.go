package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg, zerolog.Nop()), mr
}

func TestWithinLimitAllowed(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Limit: 5, Window: 60 * time.Second})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))
	}
}

func TestSixthRequestRejected(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Limit: 5, Window: 60 * time.Second})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))
	}

	err := l.Allow(ctx, "/login", ScopeIP, "10.0.0.1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var retryErr *RetryError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, 60*time.Second, retryErr.RetryAfter)
}

func TestWindowResetAllowsAgain(t *testing.T) {
	l, mr := newTestLimiter(t, Config{Limit: 2, Window: 60 * time.Second})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))
	require.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))
	require.Error(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))

	mr.FastForward(61 * time.Second)

	assert.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))
}

func TestExponentialBackoff(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Limit: 1, Window: 60 * time.Second})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.2"))

	// Consecutive violations double retry-after: 1x, 2x, 4x, 8x, then cap.
	want := []time.Duration{
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		480 * time.Second,
	}
	for i, expected := range want {
		err := l.Allow(ctx, "/login", ScopeIP, "10.0.0.2")
		var retryErr *RetryError
		require.ErrorAs(t, err, &retryErr, "violation %d", i)
		assert.Equal(t, expected, retryErr.RetryAfter, "violation %d", i)
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Limit: 1, Window: 60 * time.Second})
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))
	require.Error(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.1"))

	// Different identity, path and scope each get their own bucket.
	assert.NoError(t, l.Allow(ctx, "/login", ScopeIP, "10.0.0.9"))
	assert.NoError(t, l.Allow(ctx, "/refresh", ScopeIP, "10.0.0.1"))
	assert.NoError(t, l.Allow(ctx, "/login", ScopeSubject, "10.0.0.1"))
}

func TestFailOpenOnStoreOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := New(rdb, Config{Limit: 1, Window: time.Minute, StoreTimeout: 100 * time.Millisecond}, zerolog.Nop())

	mr.Close()

	// Store is gone: every request is allowed.
	for i := 0; i < 10; i++ {
		assert.NoError(t, l.Allow(context.Background(), "/login", ScopeIP, "10.0.0.1"))
	}
	_ = rdb.Close()
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.10:4312"
	assert.Equal(t, "192.0.2.10", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	bare := httptest.NewRequest(http.MethodPost, "/login", nil)
	bare.RemoteAddr = ""
	assert.Equal(t, "unknown", ClientIP(bare))
}

func TestMiddlewareSetsRetryAfterHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newTestLimiter(t, Config{Limit: 1, Window: 60 * time.Second, Scope: ScopeIP})

	router := gin.New()
	router.POST("/login", l.Middleware(nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.1:1000"
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestMiddlewareSubjectScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newTestLimiter(t, Config{Limit: 1, Window: 60 * time.Second, Scope: ScopeSubject})

	router := gin.New()
	extract := func(c *gin.Context) string { return c.GetHeader("X-Test-Subject") }
	router.POST("/refresh", l.Middleware(extract), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func(subject string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.RemoteAddr = "198.51.100.1:1000"
		if subject != "" {
			req.Header.Set("X-Test-Subject", subject)
		}
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("alice"))
	assert.Equal(t, http.StatusTooManyRequests, do("alice"))
	assert.Equal(t, http.StatusOK, do("bob"))
	// Unresolvable subject skips the bucket rather than failing the request.
	assert.Equal(t, http.StatusOK, do(""))
}

func TestRetryErrorUnwrap(t *testing.T) {
	err := &RetryError{RetryAfter: time.Minute}
	assert.True(t, errors.Is(err, ErrRateLimited))
}
