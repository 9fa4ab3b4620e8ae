package keypicker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/model"
)

type stubStore struct {
	keys []model.ProviderApiKey
}

func (s *stubStore) GetSystemApiKeyByKey(string) (*model.SystemApiKey, error) { return nil, model.ErrNotFound }
func (s *stubStore) GetSystemApiKeyByRef(string) (*model.SystemApiKey, error) { return nil, model.ErrNotFound }
func (s *stubStore) GetProviderByID(int64) (*model.Provider, error)          { return nil, model.ErrNotFound }
func (s *stubStore) GetProviderByKey(string) (*model.Provider, error)        { return nil, model.ErrNotFound }
func (s *stubStore) GetProviderApiKeysByProvider(int64) ([]model.ProviderApiKey, error) {
	return s.keys, nil
}
func (s *stubStore) GetModelByID(int64) (*model.Model, error)                       { return nil, model.ErrNotFound }
func (s *stubStore) GetModelByProviderAndName(int64, string) (*model.Model, error)  { return nil, model.ErrNotFound }
func (s *stubStore) GetModelAliasByName(string) (*model.ModelAlias, error)          { return nil, model.ErrNotFound }
func (s *stubStore) GetAccessControlPolicy(int64) (*model.AccessControlPolicy, error) {
	return nil, model.ErrNotFound
}
func (s *stubStore) GetCustomFieldsByProvider(int64) ([]model.CustomField, error) { return nil, nil }
func (s *stubStore) GetCustomFieldsByModel(int64) ([]model.CustomField, error)    { return nil, nil }
func (s *stubStore) GetBillingPlan(int64) (*model.BillingPlan, error)             { return nil, model.ErrNotFound }
func (s *stubStore) InsertRequestLog(*model.RequestLog) error                     { return nil }
func (s *stubStore) UpdateRequestLog(*model.RequestLog) error                     { return nil }
func (s *stubStore) ListEnabledProviders() ([]model.Provider, error)              { return nil, nil }
func (s *stubStore) ListEnabledModelsByProvider(int64) ([]model.Model, error)     { return nil, nil }
func (s *stubStore) ListEnabledModelAliases() ([]model.ModelAlias, error)         { return nil, nil }

func newTestPicker(keys []model.ProviderApiKey) *Picker {
	caches := cache.NewCollections(cache.Config{
		Backend:           "memory",
		PositiveTTL:       time.Minute,
		NegativeTTLAlias:  time.Second,
		NegativeTTLOthers: time.Second,
	}, &stubStore{keys: keys})
	return New(caches)
}

func TestPick_QueueRoundRobin(t *testing.T) {
	picker := newTestPicker([]model.ProviderApiKey{
		{ID: 1, ProviderID: 1, Enabled: true},
		{ID: 2, ProviderID: 1, Enabled: true},
	})

	first, err := picker.Pick(context.Background(), 1, model.KeyStrategyQueue)
	require.NoError(t, err)
	second, err := picker.Pick(context.Background(), 1, model.KeyStrategyQueue)
	require.NoError(t, err)
	third, err := picker.Pick(context.Background(), 1, model.KeyStrategyQueue)
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, first.ID, third.ID, "cursor wraps modulo key count")
}

func TestPick_SkipsDisabledKeys(t *testing.T) {
	picker := newTestPicker([]model.ProviderApiKey{
		{ID: 1, ProviderID: 1, Enabled: false},
		{ID: 2, ProviderID: 1, Enabled: true},
	})

	k, err := picker.Pick(context.Background(), 1, model.KeyStrategyQueue)
	require.NoError(t, err)
	require.Equal(t, int64(2), k.ID)
}

func TestPick_NoEnabledKeysFails(t *testing.T) {
	picker := newTestPicker(nil)

	_, err := picker.Pick(context.Background(), 1, model.KeyStrategyQueue)
	require.Error(t, err)
}

func TestPick_RandomStrategyReturnsSomeEnabledKey(t *testing.T) {
	picker := newTestPicker([]model.ProviderApiKey{
		{ID: 1, ProviderID: 1, Enabled: true},
		{ID: 2, ProviderID: 1, Enabled: true},
	})

	k, err := picker.Pick(context.Background(), 1, model.KeyStrategyRandom)
	require.NoError(t, err)
	require.Contains(t, []int64{1, 2}, k.ID)
}
