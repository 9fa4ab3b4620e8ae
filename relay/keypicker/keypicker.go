// Package keypicker selects which of a provider's ProviderApiKeys to use
// for one outbound request, per spec.md's QUEUE (round-robin) and RANDOM
// strategies.
package keypicker

import (
	"context"
	"math/rand"
	"sync"

	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/model"
)

// Picker rotates through a provider's enabled api keys. The round-robin
// cursor lives only in-process and resets on restart; contention on the
// same counter is acceptable (keys are interchangeable within a provider).
type Picker struct {
	caches  *cache.Collections
	mu      sync.Mutex
	cursors map[int64]uint64
}

// New builds a Picker over the given cache collections.
func New(caches *cache.Collections) *Picker {
	return &Picker{caches: caches, cursors: make(map[int64]uint64)}
}

// Pick selects one ProviderApiKey for providerID according to strategy.
func (p *Picker) Pick(ctx context.Context, providerID int64, strategy model.KeyStrategy) (model.ProviderApiKey, error) {
	keys, ok, err := p.caches.ProviderApiKeysByProvider.Get(ctx, cache.IDKey(providerID))
	if err != nil {
		return model.ProviderApiKey{}, gatewayerr.Wrap(gatewayerr.CacheError, err, "provider api keys lookup")
	}

	enabled := make([]model.ProviderApiKey, 0, len(keys))
	for _, k := range keys {
		if k.Enabled {
			enabled = append(enabled, k)
		}
	}
	if !ok || len(enabled) == 0 {
		return model.ProviderApiKey{}, gatewayerr.New(gatewayerr.NoUpstreamKey, "no enabled api key for provider")
	}

	if strategy == model.KeyStrategyRandom {
		return enabled[rand.Intn(len(enabled))], nil
	}
	return enabled[p.next(providerID, len(enabled))], nil
}

func (p *Picker) next(providerID int64, n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.cursors[providerID]
	p.cursors[providerID] = cur + 1
	return int(cur % uint64(n))
}
