package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/asciiutil"
	"github.com/cyder-hub/cyder-gateway/common/config"
	"github.com/cyder-hub/cyder-gateway/common/ctxkey"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/model"
)

// raspberry is the literal bearer/header credential value the original
// parse_token_from_request treats as absent, letting resolution fall
// through to the query-param credential instead of failing outright at
// the header stage.
const raspberry = "raspberry"

const (
	staticPrefix = "cyder-"
	jwtPrefix    = "jwt-"
)

// CredentialPosition records where in the request the caller's credential
// was found. Authenticate stores it under ctxkey.CredentialPosition; nothing
// downstream reads it, and the header scrubber strips every inbound
// credential header and the "key" query parameter whatever the position.
type CredentialPosition string

const (
	PositionHeader CredentialPosition = "header"
	PositionQuery  CredentialPosition = "query"
)

// extractor pulls the raw credential string and its position out of a
// request for one dialect; ok is false when nothing was presented.
type extractor func(c *gin.Context) (value string, pos CredentialPosition, ok bool)

var extractors = map[string]extractor{
	"openai": func(c *gin.Context) (string, CredentialPosition, bool) {
		if v, ok := bearerToken(c.GetHeader("Authorization")); ok && v != raspberry {
			return v, PositionHeader, true
		}
		if v := c.Query("key"); v != "" {
			return v, PositionQuery, true
		}
		return "", "", false
	},
	"anthropic": func(c *gin.Context) (string, CredentialPosition, bool) {
		if v := c.GetHeader("x-api-key"); v != "" {
			return v, PositionHeader, true
		}
		return "", "", false
	},
	"gemini": func(c *gin.Context) (string, CredentialPosition, bool) {
		if v := c.GetHeader("X-Goog-Api-Key"); v != "" && v != raspberry {
			return v, PositionHeader, true
		}
		if v := c.Query("key"); v != "" {
			return v, PositionQuery, true
		}
		return "", "", false
	},
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimPrefix(header, prefix), true
}

// Authenticate extracts, classifies, and resolves the caller's credential
// for the given dialect, attaching the resolved *model.SystemApiKey (and,
// for jwt- credentials, the external_id/channel claims) to the gin.Context.
func Authenticate(dialectName string, caches *cache.Collections) gin.HandlerFunc {
	extract, ok := extractors[dialectName]
	if !ok {
		panic("middleware: no credential extractor registered for dialect " + dialectName)
	}

	return func(c *gin.Context) {
		raw, pos, found := extract(c)
		if !found {
			abort(c, gatewayerr.New(gatewayerr.MissingCredential, "missing credential"))
			return
		}
		if !asciiutil.IsASCII(raw) {
			abort(c, gatewayerr.New(gatewayerr.BadHeader, "credential is not valid ASCII"))
			return
		}

		key, err := resolveCredential(c, raw, caches)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(ctxkey.SystemAPIKey, key)
		c.Set(ctxkey.CredentialPosition, pos)
		c.Next()
	}
}

func resolveCredential(c *gin.Context, raw string, caches *cache.Collections) (*model.SystemApiKey, error) {
	switch {
	case strings.HasPrefix(raw, staticPrefix):
		key, found, err := caches.SystemApiKeyByKey.Get(c.Request.Context(), raw)
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.CacheError, err, "system api key lookup")
		}
		if !found {
			return nil, gatewayerr.New(gatewayerr.InvalidCredential, "unknown credential")
		}
		return &key, nil

	case strings.HasPrefix(raw, jwtPrefix):
		claims, err := parseJWT(strings.TrimPrefix(raw, jwtPrefix))
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.InvalidCredential, err, "invalid jwt credential")
		}

		keyRef, _ := claims["key_ref"].(string)
		if keyRef == "" {
			return nil, gatewayerr.New(gatewayerr.InvalidCredential, "jwt credential missing key_ref claim")
		}

		key, found, err := caches.SystemApiKeyByRef.Get(c.Request.Context(), keyRef)
		if err != nil {
			return nil, gatewayerr.Wrap(gatewayerr.CacheError, err, "system api key lookup by ref")
		}
		if !found {
			return nil, gatewayerr.New(gatewayerr.InvalidCredential, "unknown credential ref")
		}

		if sub, _ := claims["sub"].(string); sub != "" {
			c.Set(ctxkey.ExternalID, sub)
		}
		if channel, _ := claims["channel"].(string); channel != "" {
			c.Set(ctxkey.Channel, channel)
		}
		return &key, nil

	default:
		return nil, gatewayerr.New(gatewayerr.InvalidCredential, "unrecognized credential format")
	}
}

// parseJWT decodes token with the out-of-band shared secret, returning its
// claims without enforcing expiry beyond what the jwt library checks by
// default (exp/nbf, when present).
func parseJWT(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, gatewayerr.New(gatewayerr.InvalidCredential, "unexpected jwt signing method")
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, gatewayerr.New(gatewayerr.InvalidCredential, "invalid jwt claims")
	}
	return claims, nil
}

func abort(c *gin.Context, err error) {
	ge, ok := gatewayerr.As(err)
	if !ok {
		ge = gatewayerr.New(gatewayerr.InternalError, err.Error())
	}
	c.JSON(statusOrDefault(ge.HTTPStatus()), ge.ToEnvelope())
	c.Abort()
}

func statusOrDefault(status int) int {
	if status == 0 {
		return http.StatusInternalServerError
	}
	return status
}
