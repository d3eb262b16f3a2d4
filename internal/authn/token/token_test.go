package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret:     []byte("test-secret-test-secret-test-secret"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Issuer:     "revline-test",
	})
	require.NoError(t, err)
	return m
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing secret", Config{AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero access ttl", Config{Secret: []byte("s"), RefreshTTL: time.Hour}},
		{"zero refresh ttl", Config{Secret: []byte("s"), AccessTTL: time.Minute}},
		{"refresh shorter than access", Config{Secret: []byte("s"), AccessTTL: time.Hour, RefreshTTL: time.Minute}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewManager(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestAccessRoundTrip(t *testing.T) {
	m := newTestManager(t)

	raw, jti, err := m.CreateAccess("42")
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := m.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.Equal(t, jti, claims.JTI)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
	assert.WithinDuration(t, claims.IssuedAt.Add(time.Minute), claims.ExpiresAt, time.Second)
}

func TestRefreshRoundTrip(t *testing.T) {
	m := newTestManager(t)

	raw, jti, err := m.CreateRefresh("7")
	require.NoError(t, err)

	claims, err := m.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, TypeRefresh, claims.Type)
	assert.Equal(t, jti, claims.JTI)
}

func TestJTIUniqueness(t *testing.T) {
	m := newTestManager(t)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		_, jti, err := m.CreateAccess("1")
		require.NoError(t, err)
		require.False(t, seen[jti], "jti repeated: %s", jti)
		seen[jti] = true

		_, jti, err = m.CreateRefresh("1")
		require.NoError(t, err)
		require.False(t, seen[jti], "jti repeated: %s", jti)
		seen[jti] = true
	}
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t)

	raw, _, err := m.CreateAccess("42")
	require.NoError(t, err)

	_, err = m.Decode(raw + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Decode("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(Config{
		Secret:     []byte("another-secret-entirely"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	raw, _, err := other.CreateAccess("42")
	require.NoError(t, err)

	_, err = m.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	m, err := NewManager(Config{
		Secret:     []byte("test-secret-test-secret-test-secret"),
		AccessTTL:  time.Nanosecond,
		RefreshTTL: time.Nanosecond,
	})
	require.NoError(t, err)

	raw, _, err := m.CreateAccess("42")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = m.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccess(t *testing.T) {
	m := newTestManager(t)

	t.Run("accepts access token", func(t *testing.T) {
		raw, _, err := m.CreateAccess("42")
		require.NoError(t, err)
		claims, err := m.VerifyAccess(raw)
		require.NoError(t, err)
		assert.Equal(t, "42", claims.Subject)
	})

	t.Run("rejects refresh token", func(t *testing.T) {
		raw, _, err := m.CreateRefresh("42")
		require.NoError(t, err)
		_, err = m.VerifyAccess(raw)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("rejects empty subject", func(t *testing.T) {
		raw, _, err := m.CreateAccess("")
		require.NoError(t, err)
		_, err = m.VerifyAccess(raw)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})
}
