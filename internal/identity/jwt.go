package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// KeySource provides public keys for credential verification, looked up by
// key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (*ecdsa.PublicKey, error)
}

// RevocationChecker reports whether a verified credential has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
}

// JWTVerifier verifies ES256-signed bearer JWTs against keys from a
// KeySource. It implements TokenVerifier and maps library errors onto the
// AuthError taxonomy.
type JWTVerifier struct {
	issuer      string
	keys        KeySource
	revocations RevocationChecker
}

// NewJWTVerifier creates a verifier that accepts tokens from the given
// issuer. revocations may be nil when no revocation list exists.
func NewJWTVerifier(issuer string, keys KeySource, revocations RevocationChecker) *JWTVerifier {
	return &JWTVerifier{
		issuer:      issuer,
		keys:        keys,
		revocations: revocations,
	}
}

// Verify parses and verifies the credential and returns a Token for the
// resolver. Expired tokens classify as CodeExpired, everything else that
// fails parsing or signature checks as CodeInvalidCredential.
func (v *JWTVerifier) Verify(ctx context.Context, credential string) (*Token, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodES256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}

		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, NewAuthError(CodeExpired, err)
		}
		return nil, NewAuthError(CodeInvalidCredential, err)
	}

	if !parsed.Valid {
		return nil, NewAuthError(CodeInvalidCredential, errors.New("token invalid"))
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, NewAuthError(CodeInvalidCredential, fmt.Errorf("unknown issuer: %s", claims.Issuer))
	}

	if claims.Subject == "" {
		return nil, NewAuthError(CodeInvalidCredential, errors.New("missing subject claim"))
	}

	token := &Token{SubjectID: claims.Subject}
	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time
	}

	if v.revocations != nil {
		// Prefer the token id for revocation, fall back to the subject so a
		// whole account can be cut off at once.
		if v.revocations.IsRevoked(ctx, claims.ID) || v.revocations.IsRevoked(ctx, claims.Subject) {
			token.Revoked = true
		}
	}

	return token, nil
}

// StaticKey is a KeySource holding a single public key, ignoring kid. Used
// for single-key deployments and tests.
type StaticKey struct {
	key *ecdsa.PublicKey
}

// NewStaticKey wraps an already-parsed public key.
func NewStaticKey(key *ecdsa.PublicKey) *StaticKey {
	return &StaticKey{key: key}
}

// NewStaticKeyFromPEM parses a PEM-encoded ECDSA public key.
func NewStaticKeyFromPEM(pemStr string) (*StaticKey, error) {
	if pemStr == "" {
		return nil, errors.New("public key not provided")
	}

	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an ECDSA public key")
	}

	return &StaticKey{key: ecdsaPub}, nil
}

// Key returns the static key for any kid.
func (s *StaticKey) Key(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	return s.key, nil
}
