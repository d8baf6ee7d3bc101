package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier("s3cret")
	tok, err := v.Issue("owner-1", time.Hour)
	require.NoError(t, err)

	owner, err := v.OwnerID(tok)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier("s3cret")

	expired, err := v.Issue("owner-1", -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewTokenVerifier("other").Issue("owner-1", time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "owner-1",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":    "not-a-token",
		"expired":    expired,
		"wrong key":  otherKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.OwnerID(tok)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}
