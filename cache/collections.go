package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/cyder-hub/cyder-gateway/model"
)

// Collections is every named cache the relay path reads from, each backed
// by either an in-process MemoryBackend or a shared RedisBackend depending
// on config.CacheBackend.
type Collections struct {
	SystemApiKeyByKey         *ReadThrough[model.SystemApiKey]
	SystemApiKeyByRef         *ReadThrough[model.SystemApiKey]
	ProviderByID              *ReadThrough[model.Provider]
	ProviderByKey             *ReadThrough[model.Provider]
	ProviderApiKeysByProvider *ReadThrough[[]model.ProviderApiKey]
	ModelByID                 *ReadThrough[model.Model]
	ModelByProviderAndName    *ReadThrough[model.Model]
	ModelAliasByName          *ReadThrough[model.ModelAlias]
	AccessControlPolicyByID   *ReadThrough[model.AccessControlPolicy]
	CustomFieldsByProvider    *ReadThrough[[]model.CustomField]
	CustomFieldsByModel       *ReadThrough[[]model.CustomField]
	BillingPlanByID           *ReadThrough[model.BillingPlan]
}

// Config bundles the knobs NewCollections needs, letting callers avoid an
// import of common/config (which would make this package depend on it
// directly; app wires the two together instead).
type Config struct {
	Backend           string // "memory" | "redis"
	RedisClient       redis.Cmdable
	RedisKeyPrefix    string
	PositiveTTL       time.Duration
	NegativeTTLAlias  time.Duration
	NegativeTTLOthers time.Duration
	SweepInterval     time.Duration
}

func backendFor[T any](cfg Config, collection string) Backend[T] {
	if cfg.Backend == "redis" && cfg.RedisClient != nil {
		return NewRedisBackend[T](cfg.RedisClient, cfg.RedisKeyPrefix, collection)
	}
	return NewMemoryBackend[T](collection, cfg.SweepInterval)
}

// NewCollections builds every named collection, wiring each ReadThrough's
// loader to store.
func NewCollections(cfg Config, store model.Store) *Collections {
	neg := cfg.NegativeTTLOthers

	return &Collections{
		SystemApiKeyByKey: NewReadThrough(
			backendFor[model.SystemApiKey](cfg, "system_api_key_by_key"),
			func(ctx context.Context, key string) (model.SystemApiKey, bool, error) {
				return loadOne(store.GetSystemApiKeyByKey(key))
			}, cfg.PositiveTTL, neg),

		SystemApiKeyByRef: NewReadThrough(
			backendFor[model.SystemApiKey](cfg, "system_api_key_by_ref"),
			func(ctx context.Context, key string) (model.SystemApiKey, bool, error) {
				return loadOne(store.GetSystemApiKeyByRef(key))
			}, cfg.PositiveTTL, neg),

		ProviderByID: NewReadThrough(
			backendFor[model.Provider](cfg, "provider_by_id"),
			func(ctx context.Context, key string) (model.Provider, bool, error) {
				id, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return model.Provider{}, false, nil
				}
				return loadOne(store.GetProviderByID(id))
			}, cfg.PositiveTTL, neg),

		ProviderByKey: NewReadThrough(
			backendFor[model.Provider](cfg, "provider_by_key"),
			func(ctx context.Context, key string) (model.Provider, bool, error) {
				return loadOne(store.GetProviderByKey(key))
			}, cfg.PositiveTTL, neg),

		ProviderApiKeysByProvider: NewReadThrough(
			backendFor[[]model.ProviderApiKey](cfg, "provider_api_keys_by_provider"),
			func(ctx context.Context, key string) ([]model.ProviderApiKey, bool, error) {
				id, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return nil, false, nil
				}
				keys, err := store.GetProviderApiKeysByProvider(id)
				if err != nil {
					return nil, false, err
				}
				return keys, len(keys) > 0, nil
			}, cfg.PositiveTTL, neg),

		ModelByID: NewReadThrough(
			backendFor[model.Model](cfg, "model_by_id"),
			func(ctx context.Context, key string) (model.Model, bool, error) {
				id, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return model.Model{}, false, nil
				}
				return loadOne(store.GetModelByID(id))
			}, cfg.PositiveTTL, neg),

		ModelByProviderAndName: NewReadThrough(
			backendFor[model.Model](cfg, "model_by_provider_and_name"),
			func(ctx context.Context, key string) (model.Model, bool, error) {
				providerID, name, ok := splitProviderAndName(key)
				if !ok {
					return model.Model{}, false, nil
				}
				return loadOne(store.GetModelByProviderAndName(providerID, name))
			}, cfg.PositiveTTL, neg),

		ModelAliasByName: NewReadThrough(
			backendFor[model.ModelAlias](cfg, "model_alias_by_name"),
			func(ctx context.Context, key string) (model.ModelAlias, bool, error) {
				return loadOne(store.GetModelAliasByName(key))
			}, cfg.PositiveTTL, cfg.NegativeTTLAlias),

		AccessControlPolicyByID: NewReadThrough(
			backendFor[model.AccessControlPolicy](cfg, "access_control_policy_by_id"),
			func(ctx context.Context, key string) (model.AccessControlPolicy, bool, error) {
				id, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return model.AccessControlPolicy{}, false, nil
				}
				return loadOne(store.GetAccessControlPolicy(id))
			}, cfg.PositiveTTL, neg),

		CustomFieldsByProvider: NewReadThrough(
			backendFor[[]model.CustomField](cfg, "custom_fields_by_provider_id"),
			func(ctx context.Context, key string) ([]model.CustomField, bool, error) {
				id, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return nil, false, nil
				}
				fields, err := store.GetCustomFieldsByProvider(id)
				if err != nil {
					return nil, false, err
				}
				return fields, true, nil // empty slice is a valid, cacheable "no custom fields" answer
			}, cfg.PositiveTTL, neg),

		CustomFieldsByModel: NewReadThrough(
			backendFor[[]model.CustomField](cfg, "custom_fields_by_model_id"),
			func(ctx context.Context, key string) ([]model.CustomField, bool, error) {
				id, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return nil, false, nil
				}
				fields, err := store.GetCustomFieldsByModel(id)
				if err != nil {
					return nil, false, err
				}
				return fields, true, nil
			}, cfg.PositiveTTL, neg),

		BillingPlanByID: NewReadThrough(
			backendFor[model.BillingPlan](cfg, "billing_plan_by_id"),
			func(ctx context.Context, key string) (model.BillingPlan, bool, error) {
				id, err := strconv.ParseInt(key, 10, 64)
				if err != nil {
					return model.BillingPlan{}, false, nil
				}
				return loadOne(store.GetBillingPlan(id))
			}, cfg.PositiveTTL, neg),
	}
}

// loadOne adapts a *T, error Store getter (ErrNotFound on miss) into the
// (T, bool, error) Loader shape.
func loadOne[T any](row *T, err error) (T, bool, error) {
	var zero T
	if err != nil {
		if err == model.ErrNotFound {
			return zero, false, nil
		}
		return zero, false, err
	}
	return *row, true, nil
}
