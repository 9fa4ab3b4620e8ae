// Package resolver turns a client-supplied model string into a concrete
// (Provider, Model) pair, consulting aliases before falling back to
// "provider_key/model_name" syntax.
package resolver

import (
	"context"
	"strings"

	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/model"
)

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	Provider model.Provider
	Model    model.Model
}

// Resolver resolves a logical model string against the cache collections.
type Resolver struct {
	caches *cache.Collections
}

// New builds a Resolver over the given cache collections.
func New(caches *cache.Collections) *Resolver {
	return &Resolver{caches: caches}
}

// Resolve implements the alias-then-provider/model-split algorithm: an
// enabled alias whose target Model and Provider are both enabled wins
// outright; otherwise the string is split on the first '/' and looked up
// as provider_key/model_name.
func (r *Resolver) Resolve(ctx context.Context, modelStr string) (Resolved, error) {
	if alias, ok, err := r.caches.ModelAliasByName.Get(ctx, modelStr); err != nil {
		return Resolved{}, gatewayerr.Wrap(gatewayerr.CacheError, err, "alias lookup")
	} else if ok && alias.Enabled {
		m, ok, err := r.caches.ModelByID.Get(ctx, cache.IDKey(alias.ModelID))
		if err != nil {
			return Resolved{}, gatewayerr.Wrap(gatewayerr.CacheError, err, "model lookup by alias target")
		}
		if ok && m.Enabled {
			p, ok, err := r.caches.ProviderByID.Get(ctx, cache.IDKey(m.ProviderID))
			if err != nil {
				return Resolved{}, gatewayerr.Wrap(gatewayerr.CacheError, err, "provider lookup by alias target")
			}
			if ok && p.Enabled {
				return Resolved{Provider: p, Model: m}, nil
			}
		}
	}

	providerKey, modelName, ok := strings.Cut(modelStr, "/")
	if !ok || providerKey == "" || modelName == "" {
		return Resolved{}, gatewayerr.New(gatewayerr.ModelNotFound, "model not found: "+modelStr)
	}

	p, ok, err := r.caches.ProviderByKey.Get(ctx, providerKey)
	if err != nil {
		return Resolved{}, gatewayerr.Wrap(gatewayerr.CacheError, err, "provider lookup by key")
	}
	if !ok {
		return Resolved{}, gatewayerr.New(gatewayerr.ModelNotFound, "model not found: "+modelStr)
	}

	m, ok, err := r.caches.ModelByProviderAndName.Get(ctx, cache.ProviderModelKey(p.ID, modelName))
	if err != nil {
		return Resolved{}, gatewayerr.Wrap(gatewayerr.CacheError, err, "model lookup by provider+name")
	}
	if !ok || m.ProviderID != p.ID {
		return Resolved{}, gatewayerr.New(gatewayerr.ModelNotFound, "model not found: "+modelStr)
	}

	return Resolved{Provider: p, Model: m}, nil
}
