// Package app wires the gateway's collaborators into one aggregate owned
// by main and passed by router to each handler and middleware constructor
// as an argument, replacing the teacher's
// package-level globals ("Global Lazy config/ID-generator" design note:
// the generator, caches, and store are value objects owned here, not
// package-level singletons).
package app

import (
	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/config"
	"github.com/cyder-hub/cyder-gateway/common/idgen"
	"github.com/cyder-hub/cyder-gateway/common/redisclient"
	"github.com/cyder-hub/cyder-gateway/model"
	"github.com/cyder-hub/cyder-gateway/relay/dialect"
	"github.com/cyder-hub/cyder-gateway/relay/keypicker"
	"github.com/cyder-hub/cyder-gateway/relay/prepare"
	"github.com/cyder-hub/cyder-gateway/relay/resolver"
	"github.com/cyder-hub/cyder-gateway/relay/upstream"
	"github.com/cyder-hub/cyder-gateway/relay/vertex"
)

// App bundles every process-wide collaborator a request handler needs.
type App struct {
	Store    model.Store
	Caches   *cache.Collections
	IDs      *idgen.Generator
	Dialects *dialect.Registry
	Resolver *resolver.Resolver
	Picker   *keypicker.Picker
	Tokens   *vertex.TokenCache
	Preparer *prepare.Preparer
	Upstream *upstream.Client
}

// New builds an App over store, opening the configured cache backend.
func New(store model.Store) (*App, error) {
	if config.CacheBackend == "redis" {
		if err := redisclient.Init(); err != nil {
			return nil, err
		}
	}

	caches := cache.NewCollections(cache.Config{
		Backend:           config.CacheBackend,
		RedisClient:       redisclient.Client,
		RedisKeyPrefix:    config.RedisKeyPrefix,
		PositiveTTL:       config.PositiveCacheTTL,
		NegativeTTLAlias:  config.NegativeCacheTTLAlias,
		NegativeTTLOthers: config.NegativeCacheTTLDefault,
		SweepInterval:     config.CacheSweepInterval,
	}, store)

	picker := keypicker.New(caches)
	tokens := vertex.NewTokenCache()

	return &App{
		Store:    store,
		Caches:   caches,
		IDs:      idgen.New(config.NodeId),
		Dialects: dialect.NewRegistry(),
		Resolver: resolver.New(caches),
		Picker:   picker,
		Tokens:   tokens,
		Preparer: prepare.New(caches, picker, tokens),
		Upstream: upstream.New(),
	}, nil
}
