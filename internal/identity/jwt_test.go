package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://authgate.local"

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = "test-key"

	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestJWTVerifier(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	verifier := NewJWTVerifier(testIssuer, NewStaticKey(&key.PublicKey), nil)
	ctx := context.Background()

	validClaims := jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	t.Run("valid token", func(t *testing.T) {
		token, err := verifier.Verify(ctx, signToken(t, key, validClaims))
		require.NoError(t, err)
		require.Equal(t, "user-1", token.SubjectID)
		require.False(t, token.Revoked)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

		_, err := verifier.Verify(ctx, signToken(t, key, claims))
		require.Equal(t, CodeExpired, AuthCodeOf(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := validClaims
		claims.Issuer = "https://evil.example.com"

		_, err := verifier.Verify(ctx, signToken(t, key, claims))
		require.Equal(t, CodeInvalidCredential, AuthCodeOf(err))
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := validClaims
		claims.Subject = ""

		_, err := verifier.Verify(ctx, signToken(t, key, claims))
		require.Equal(t, CodeInvalidCredential, AuthCodeOf(err))
	})

	t.Run("wrong key", func(t *testing.T) {
		otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, signToken(t, otherKey, validClaims))
		require.Equal(t, CodeInvalidCredential, AuthCodeOf(err))
	})

	t.Run("garbage credential", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "not-a-jwt")
		require.Equal(t, CodeInvalidCredential, AuthCodeOf(err))
	})

	t.Run("hs256 rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims)
		token.Header["kid"] = "test-key"
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, signed)
		require.Equal(t, CodeInvalidCredential, AuthCodeOf(err))
	})
}

func TestJWTVerifier_Revocation(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	revocations := NewMemoryRevocationList()
	verifier := NewJWTVerifier(testIssuer, NewStaticKey(&key.PublicKey), revocations)
	ctx := context.Background()

	claims := jwt.RegisteredClaims{
		ID:        "token-1",
		Issuer:    testIssuer,
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	credential := signToken(t, key, claims)

	t.Run("not revoked", func(t *testing.T) {
		token, err := verifier.Verify(ctx, credential)
		require.NoError(t, err)
		require.False(t, token.Revoked)
	})

	t.Run("revoked by token id", func(t *testing.T) {
		revocations.Revoke("token-1")
		defer revocations.Restore("token-1")

		token, err := verifier.Verify(ctx, credential)
		require.NoError(t, err)
		require.True(t, token.Revoked)
	})

	t.Run("revoked by subject", func(t *testing.T) {
		revocations.Revoke("user-1")
		defer revocations.Restore("user-1")

		token, err := verifier.Verify(ctx, credential)
		require.NoError(t, err)
		require.True(t, token.Revoked)
	})
}

func TestNewStaticKeyFromPEM(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := NewStaticKeyFromPEM("")
		require.Error(t, err)
	})

	t.Run("not pem", func(t *testing.T) {
		_, err := NewStaticKeyFromPEM("definitely not pem")
		require.Error(t, err)
	})
}
