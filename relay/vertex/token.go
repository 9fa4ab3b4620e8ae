// Package vertex mints and caches the OAuth access tokens Vertex/Vertex
// OpenAI providers need in place of a bearer api key, grounded on the
// vertexai adaptor's per-channel token lookup (meta.Config.VertexAIADC)
// generalized to this gateway's ProviderApiKey-keyed cache model.
package vertex

import (
	"context"
	"strconv"
	"time"

	"github.com/Laisky/errors/v2"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/cyder-hub/cyder-gateway/common/config"
)

// Scope is the OAuth scope requested for Vertex AI access.
const Scope = "https://www.googleapis.com/auth/cloud-platform"

// minter mints a fresh access token and its expiry from a service account
// blob; swappable in tests to avoid hitting Google's real token endpoint.
type minter func(ctx context.Context, serviceAccountJSON []byte) (accessToken string, expiry time.Time, err error)

// TokenCache mints and caches per-ProviderApiKey OAuth tokens, deduping
// concurrent misses on the same key via a singleflight group (a duplicate
// fetch is a correctness no-op, so best-effort coalescing is sufficient).
// Expiry is delegated to go-cache's own per-item TTL rather than a
// hand-rolled timestamp comparison.
type TokenCache struct {
	cache  *gocache.Cache
	group  singleflight.Group
	mintFn minter
}

// NewTokenCache builds an empty TokenCache. go-cache's janitor sweeps
// expired tokens every minute; no expiration is set as the default since
// every entry carries its own TTL from the minted token's expiry.
func NewTokenCache() *TokenCache {
	return &TokenCache{cache: gocache.New(gocache.NoExpiration, time.Minute), mintFn: mintGoogleToken}
}

// Get returns a valid access token for the ProviderApiKey identified by
// keyID, minting one from serviceAccountJSON on miss or expiry. The minted
// token is cached with its expiry reduced by config.VertexTokenCacheMargin
// so callers never observe a token that expires mid-flight.
func (t *TokenCache) Get(ctx context.Context, keyID int64, serviceAccountJSON []byte) (string, error) {
	if tok, ok := t.cache.Get(keyIDKey(keyID)); ok {
		return tok.(string), nil
	}

	v, err, _ := t.group.Do(keyIDKey(keyID), func() (any, error) {
		if tok, ok := t.cache.Get(keyIDKey(keyID)); ok {
			return tok.(string), nil
		}
		return t.mint(ctx, keyID, serviceAccountJSON)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (t *TokenCache) mint(ctx context.Context, keyID int64, serviceAccountJSON []byte) (string, error) {
	accessToken, expiry, err := t.mintFn(ctx, serviceAccountJSON)
	if err != nil {
		return "", err
	}

	// A non-positive ttl means the token is already past its margin-adjusted
	// expiry; skip caching it so the next Get re-mints instead of serving a
	// token go-cache would otherwise treat as non-expiring.
	if ttl := time.Until(expiry.Add(-config.VertexTokenCacheMargin)); ttl > 0 {
		t.cache.Set(keyIDKey(keyID), accessToken, ttl)
	}

	return accessToken, nil
}

func mintGoogleToken(ctx context.Context, serviceAccountJSON []byte) (string, time.Time, error) {
	jwtConfig, err := google.JWTConfigFromJSON(serviceAccountJSON, Scope)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "parse vertex service account json")
	}

	token, err := jwtConfig.TokenSource(ctx).Token()
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "mint vertex oauth token")
	}

	return token.AccessToken, token.Expiry, nil
}

func keyIDKey(keyID int64) string {
	return "vertex-token:" + strconv.FormatInt(keyID, 10)
}
