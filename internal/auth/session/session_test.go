package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueThenAuthenticateRoundTrips(t *testing.T) {
	p := NewProvider([]byte("test-secret"))

	token, err := p.Issue(42)
	require.NoError(t, err)

	userID, err := p.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestAuthenticateRejectsWrongSecret(t *testing.T) {
	issuer := NewProvider([]byte("secret-a"))
	verifier := NewProvider([]byte("secret-b"))

	token, err := issuer.Issue(7)
	require.NoError(t, err)

	_, err = verifier.Authenticate(context.Background(), token)
	assert.Error(t, err)
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	p := NewProvider([]byte("test-secret"))

	c := claims{
		UserID: 9,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * ttl)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), token)
	assert.Error(t, err)
}

func TestIDIsSession(t *testing.T) {
	p := NewProvider([]byte("test-secret"))
	assert.Equal(t, "session", p.ID())
}
