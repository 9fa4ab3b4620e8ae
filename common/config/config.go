// Package config gathers the gateway's environment-driven settings into
// package-level vars, the way one-api's common/config does.
package config

import (
	"strings"
	"time"

	"github.com/cyder-hub/cyder-gateway/common/env"
)

var (
	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)

	// ServerPort is the HTTP listen port.
	ServerPort = env.String("PORT", "3000")

	// NodeId identifies this process for the Snowflake-style id generator.
	// Must be unique per running instance when horizontally scaled.
	NodeId = int64(env.Int("NODE_ID", 1))

	// CacheBackend selects the cache layer's storage backend: "memory" or "redis".
	CacheBackend = strings.ToLower(strings.TrimSpace(env.String("CACHE_BACKEND", "memory")))
	// RedisConnString is the Redis connection URL used when CacheBackend=="redis".
	RedisConnString = strings.TrimSpace(env.String("REDIS_CONN_STRING", ""))
	// RedisKeyPrefix namespaces every key the Redis backend writes.
	RedisKeyPrefix = env.String("REDIS_KEY_PREFIX", "cyder-gateway:")

	// PositiveCacheTTL is the default TTL for a found cache entry.
	PositiveCacheTTL = time.Duration(env.Int("CACHE_POSITIVE_TTL_SECONDS", 300)) * time.Second
	// NegativeCacheTTLAlias is the TTL for a missed model-alias lookup (spec.md §4.3 example).
	NegativeCacheTTLAlias = time.Duration(env.Int("CACHE_NEGATIVE_TTL_ALIAS_SECONDS", 30)) * time.Second
	// NegativeCacheTTLDefault is the TTL for any other negative cache entry.
	NegativeCacheTTLDefault = time.Duration(env.Int("CACHE_NEGATIVE_TTL_SECONDS", 60)) * time.Second
	// CacheSweepInterval is how often the memory backend's expiry sweeper ticks.
	CacheSweepInterval = time.Minute

	// VertexTokenCacheMargin is subtracted from a minted Vertex OAuth token's
	// expires_in before it's cached, so it's never served stale.
	VertexTokenCacheMargin = time.Duration(env.Int("VERTEX_TOKEN_CACHE_MARGIN_SECONDS", 60)) * time.Second

	// FirstByteTimeout bounds how long StreamRelay waits for the first byte of
	// an upstream response before failing with UpstreamTimeout.
	FirstByteTimeout = time.Duration(env.Int("UPSTREAM_FIRST_BYTE_TIMEOUT_SECONDS", 30)) * time.Second

	// JWTSecret signs/verifies the "jwt-"-prefixed caller credentials.
	JWTSecret = env.String("JWT_SECRET", "")

	// RelayProxy, when set, routes outbound upstream requests that have
	// use_proxy=true through this HTTP(S) proxy URL.
	RelayProxy = env.String("RELAY_PROXY", "")

	// ErrorBodyTruncateBytes is read from ERROR_BODY_TRUNCATE_BYTES, but no
	// code consults it: RequestLog bodies are cut at controller's fixed
	// maxTruncatedBody and upstream error bodies at streamrelay's own fixed
	// limit (2000 bytes each).
	ErrorBodyTruncateBytes = env.Int("ERROR_BODY_TRUNCATE_BYTES", 2000)

	// SQLiteDSN is the reference store's database file when no SQL_DSN is given.
	SQLiteDSN = env.String("SQLITE_DSN", "cyder-gateway.db")

	// SQLDSN selects a MySQL or PostgreSQL reference database instead of the
	// SQLite default; a "postgres://" prefix picks PostgreSQL, any other
	// non-empty value is treated as a MySQL DSN.
	SQLDSN = env.String("SQL_DSN", "")

	// EnablePrometheusMetrics exposes /metrics for Prometheus scrapers.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)
)
