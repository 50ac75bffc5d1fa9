package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog/log"
)

// JWKSCache is a KeySource that fetches keys from a JWKS endpoint. Parsed
// keys are cached in memory with a TTL; the HTTP layer additionally honours
// Cache-Control headers via an httpcache transport.
type JWKSCache struct {
	jwksURL    string
	httpClient *http.Client
	ttl        time.Duration

	mu        sync.RWMutex
	keys      map[string]*ecdsa.PublicKey
	expiresAt time.Time
}

// NewJWKSCache creates a cache for the given JWKS URL. httpClient may be nil,
// in which case a client with an in-memory caching transport is used.
func NewJWKSCache(jwksURL string, httpClient *http.Client) *JWKSCache {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
			Timeout:   10 * time.Second,
		}
	}

	return &JWKSCache{
		jwksURL:    jwksURL,
		httpClient: httpClient,
		ttl:        time.Hour,
		keys:       make(map[string]*ecdsa.PublicKey),
	}
}

// WithTTL overrides the default one hour cache TTL.
func (c *JWKSCache) WithTTL(ttl time.Duration) *JWKSCache {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// Key returns the public key for kid, refreshing the JWKS document when the
// cached copy is stale or does not contain the kid.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := time.Now().Before(c.expiresAt)
	c.mu.RUnlock()

	if ok && fresh {
		log.Debug().Str("kid", kid).Msg("JWKS cache hit")
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown key id: %s", kid)
	}

	return key, nil
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	log.Debug().Str("jwks_url", c.jwksURL).Msg("Fetching JWKS")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create JWKS request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS request failed: %s", resp.Status)
	}

	var jwks struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*ecdsa.PublicKey)
	for _, jwk := range jwks.Keys {
		kid, ok := jwk["kid"].(string)
		if !ok || kid == "" {
			log.Warn().Msg("JWK missing kid")
			continue
		}

		key, err := parseJWK(jwk)
		if err != nil {
			log.Warn().Err(err).Str("kid", kid).Msg("Failed to parse JWK")
			continue
		}

		keys[kid] = key
	}

	c.mu.Lock()
	c.keys = keys
	c.expiresAt = time.Now().Add(c.ttl)
	c.mu.Unlock()

	log.Debug().Int("count", len(keys)).Msg("Refreshed JWKS cache")
	return nil
}

// parseJWK converts a P-256 EC JWK into an ecdsa.PublicKey.
func parseJWK(jwk map[string]any) (*ecdsa.PublicKey, error) {
	kty, _ := jwk["kty"].(string)
	if kty != "EC" {
		return nil, fmt.Errorf("unsupported key type: %s", kty)
	}

	crv, _ := jwk["crv"].(string)
	if crv != "P-256" {
		return nil, fmt.Errorf("unsupported curve: %s", crv)
	}

	xStr, _ := jwk["x"].(string)
	yStr, _ := jwk["y"].(string)
	if xStr == "" || yStr == "" {
		return nil, fmt.Errorf("missing x or y coordinate")
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode x coordinate: %w", err)
	}

	yBytes, err := base64.RawURLEncoding.DecodeString(yStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
