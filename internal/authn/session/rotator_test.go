package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revlinehq/revline/internal/authn/token"
)

func newTestRotator(t *testing.T, strategyName string) (*Rotator, *Families, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens, err := token.NewManager(token.Config{
		Secret:     []byte("rotator-test-secret-rotator-test"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	store := NewStore(rdb, time.Hour, zerolog.Nop())
	families := NewFamilies(rdb, time.Hour, zerolog.Nop())
	strategy, err := NewStrategy(strategyName, families, zerolog.Nop())
	require.NoError(t, err)

	return NewRotator(tokens, store, strategy, zerolog.Nop()), families, mr
}

func TestLoginThenRotate(t *testing.T) {
	r, _, _ := newTestRotator(t, "nuclear")
	ctx := context.Background()

	first, err := r.Login(ctx, "42")
	require.NoError(t, err)
	require.NotEmpty(t, first.AccessToken)
	require.NotEmpty(t, first.RefreshToken)
	assert.Equal(t, 60, first.ExpiresIn)

	second, err := r.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshJTI, second.RefreshJTI)

	// The consumed token stays rejected even though its signature is valid.
	_, err = r.Rotate(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)
	_, err = r.Rotate(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)

	// The rotated token works.
	_, err = r.Rotate(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRotateRejectsAccessToken(t *testing.T) {
	r, _, _ := newTestRotator(t, "nuclear")
	ctx := context.Background()

	pair, err := r.Login(ctx, "42")
	require.NoError(t, err)

	_, err = r.Rotate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, token.ErrWrongTokenType)
}

func TestRotateRejectsGarbage(t *testing.T) {
	r, _, _ := newTestRotator(t, "nuclear")

	_, err := r.Rotate(context.Background(), "garbage")
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRotateRaceSingleWinner(t *testing.T) {
	r, _, _ := newTestRotator(t, "nuclear")
	ctx := context.Background()

	pair, err := r.Login(ctx, "42")
	require.NoError(t, err)

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := r.Rotate(ctx, pair.RefreshToken)
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrTokenReused):
		default:
			t.Fatalf("unexpected rotate error: %v", err)
		}
	}

	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}

func TestFamilyStrategyPropagatesFamilyAcrossRotations(t *testing.T) {
	r, families, _ := newTestRotator(t, "family")
	ctx := context.Background()

	pair, err := r.Login(ctx, "42")
	require.NoError(t, err)

	// Walk a few rotations, then revoke the family: the live token dies.
	for i := 0; i < 3; i++ {
		pair, err = r.Rotate(ctx, pair.RefreshToken)
		require.NoError(t, err)
	}

	rec, err := r.store.Take(ctx, pair.RefreshJTI)
	require.NoError(t, err)
	require.NotEmpty(t, rec.FamilyID)
	require.NoError(t, r.store.Save(ctx, pair.RefreshJTI, rec))

	require.NoError(t, families.Revoke(ctx, rec.FamilyID))

	_, err = r.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)
}

func TestFamilyRevocationDoesNotAffectSiblingLogin(t *testing.T) {
	r, families, _ := newTestRotator(t, "family")
	ctx := context.Background()

	sessionA, err := r.Login(ctx, "42")
	require.NoError(t, err)
	sessionB, err := r.Login(ctx, "42")
	require.NoError(t, err)

	recA, err := r.store.Take(ctx, sessionA.RefreshJTI)
	require.NoError(t, err)
	require.NoError(t, r.store.Save(ctx, sessionA.RefreshJTI, recA))

	require.NoError(t, families.Revoke(ctx, recA.FamilyID))

	_, err = r.Rotate(ctx, sessionA.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)

	_, err = r.Rotate(ctx, sessionB.RefreshToken)
	assert.NoError(t, err)
}

func TestRotateFailsClosedOnStoreOutage(t *testing.T) {
	r, _, mr := newTestRotator(t, "nuclear")
	ctx := context.Background()

	pair, err := r.Login(ctx, "42")
	require.NoError(t, err)

	mr.Close()

	_, err = r.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRotateSubjectMismatchRejected(t *testing.T) {
	r, _, _ := newTestRotator(t, "nuclear")
	ctx := context.Background()

	pair, err := r.Login(ctx, "42")
	require.NoError(t, err)

	// Corrupt the store record so its subject disagrees with the signed claim.
	rec, err := r.store.Take(ctx, pair.RefreshJTI)
	require.NoError(t, err)
	rec.Subject = "99"
	require.NoError(t, r.store.Save(ctx, pair.RefreshJTI, rec))

	_, err = r.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestLogoutRevokesRecord(t *testing.T) {
	r, _, _ := newTestRotator(t, "nuclear")
	ctx := context.Background()

	pair, err := r.Login(ctx, "42")
	require.NoError(t, err)

	r.Logout(ctx, pair.RefreshToken)

	_, err = r.Rotate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)
}

func TestLogoutSwallowsGarbageToken(t *testing.T) {
	r, _, _ := newTestRotator(t, "nuclear")
	assert.NotPanics(t, func() {
		r.Logout(context.Background(), "not-a-token")
	})
}

func TestNewStrategyUnknownName(t *testing.T) {
	_, err := NewStrategy("scorched-earth", nil, zerolog.Nop())
	assert.Error(t, err)
}
