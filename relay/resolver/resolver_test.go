package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/model"
)

type fakeStore struct {
	providersByKey map[string]*model.Provider
	providersByID  map[int64]*model.Provider
	modelsByID     map[int64]*model.Model
	modelsByPK     map[string]*model.Model
	aliases        map[string]*model.ModelAlias
}

func (s *fakeStore) GetSystemApiKeyByKey(string) (*model.SystemApiKey, error) { return nil, model.ErrNotFound }
func (s *fakeStore) GetSystemApiKeyByRef(string) (*model.SystemApiKey, error) { return nil, model.ErrNotFound }

func (s *fakeStore) GetProviderByID(id int64) (*model.Provider, error) {
	if p, ok := s.providersByID[id]; ok {
		return p, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetProviderByKey(key string) (*model.Provider, error) {
	if p, ok := s.providersByKey[key]; ok {
		return p, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetProviderApiKeysByProvider(int64) ([]model.ProviderApiKey, error) { return nil, nil }

func (s *fakeStore) GetModelByID(id int64) (*model.Model, error) {
	if m, ok := s.modelsByID[id]; ok {
		return m, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetModelByProviderAndName(providerID int64, name string) (*model.Model, error) {
	if m, ok := s.modelsByPK[cache.ProviderModelKey(providerID, name)]; ok {
		return m, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetModelAliasByName(alias string) (*model.ModelAlias, error) {
	if a, ok := s.aliases[alias]; ok {
		return a, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetAccessControlPolicy(int64) (*model.AccessControlPolicy, error) {
	return nil, model.ErrNotFound
}
func (s *fakeStore) GetCustomFieldsByProvider(int64) ([]model.CustomField, error) { return nil, nil }
func (s *fakeStore) GetCustomFieldsByModel(int64) ([]model.CustomField, error)    { return nil, nil }
func (s *fakeStore) GetBillingPlan(int64) (*model.BillingPlan, error)             { return nil, model.ErrNotFound }
func (s *fakeStore) InsertRequestLog(*model.RequestLog) error                     { return nil }
func (s *fakeStore) UpdateRequestLog(*model.RequestLog) error                     { return nil }
func (s *fakeStore) ListEnabledProviders() ([]model.Provider, error)              { return nil, nil }
func (s *fakeStore) ListEnabledModelsByProvider(int64) ([]model.Model, error)     { return nil, nil }
func (s *fakeStore) ListEnabledModelAliases() ([]model.ModelAlias, error)         { return nil, nil }

func newTestResolver(store model.Store) *Resolver {
	caches := cache.NewCollections(cache.Config{
		Backend:           "memory",
		PositiveTTL:       time.Minute,
		NegativeTTLAlias:  time.Second,
		NegativeTTLOthers: time.Second,
	}, store)
	return New(caches)
}

func TestResolve_ByAlias(t *testing.T) {
	provider := &model.Provider{ID: 1, ProviderKey: "openai", Enabled: true}
	m := &model.Model{ID: 10, ProviderID: 1, ModelName: "gpt-4o", Enabled: true}
	store := &fakeStore{
		providersByID: map[int64]*model.Provider{1: provider},
		modelsByID:    map[int64]*model.Model{10: m},
		aliases:       map[string]*model.ModelAlias{"fast": {ID: 1, Alias: "fast", ModelID: 10, Enabled: true}},
	}

	resolved, err := newTestResolver(store).Resolve(context.Background(), "fast")
	require.NoError(t, err)
	require.Equal(t, int64(1), resolved.Provider.ID)
	require.Equal(t, int64(10), resolved.Model.ID)
}

func TestResolve_DisabledAliasIsIgnored(t *testing.T) {
	provider := &model.Provider{ID: 1, ProviderKey: "openai", Enabled: true}
	m := &model.Model{ID: 10, ProviderID: 1, ModelName: "gpt-4o", Enabled: true}
	store := &fakeStore{
		providersByID: map[int64]*model.Provider{1: provider},
		modelsByID:    map[int64]*model.Model{10: m},
		aliases:       map[string]*model.ModelAlias{"fast": {ID: 1, Alias: "fast", ModelID: 10, Enabled: false}},
	}

	_, err := newTestResolver(store).Resolve(context.Background(), "fast")
	require.Error(t, err)
	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	require.Equal(t, gatewayerr.ModelNotFound, ge.Kind)
}

func TestResolve_ByProviderSlashModel(t *testing.T) {
	provider := &model.Provider{ID: 2, ProviderKey: "anthropic", Enabled: true}
	m := &model.Model{ID: 20, ProviderID: 2, ModelName: "claude-3"}
	store := &fakeStore{
		providersByKey: map[string]*model.Provider{"anthropic": provider},
		modelsByPK:     map[string]*model.Model{cache.ProviderModelKey(2, "claude-3"): m},
	}

	resolved, err := newTestResolver(store).Resolve(context.Background(), "anthropic/claude-3")
	require.NoError(t, err)
	require.Equal(t, int64(2), resolved.Provider.ID)
	require.Equal(t, int64(20), resolved.Model.ID)
}

func TestResolve_NotFound(t *testing.T) {
	store := &fakeStore{}

	_, err := newTestResolver(store).Resolve(context.Background(), "unknown/thing")
	require.Error(t, err)
	ge, ok := gatewayerr.As(err)
	require.True(t, ok)
	require.Equal(t, gatewayerr.ModelNotFound, ge.Kind)
}

func TestResolve_BareStringWithNoSlashAndNoAlias(t *testing.T) {
	store := &fakeStore{}

	_, err := newTestResolver(store).Resolve(context.Background(), "gpt-4o")
	require.Error(t, err)
}
