package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Issue(42, "alice")
	require.NoError(t, err)

	userID, username, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, 42, userID)
	require.Equal(t, "alice", username)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	_, _, err := m.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(7, "bob")
	require.NoError(t, err)

	_, _, err = verifier.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Issue(7, "bob")
	require.NoError(t, err)

	_, _, err = m.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", hash)

	require.True(t, CheckPassword("hunter2", hash))
	require.False(t, CheckPassword("hunter3", hash))
}
