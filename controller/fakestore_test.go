package controller

import (
	"sync"

	"github.com/cyder-hub/cyder-gateway/model"
)

// fakeStore is a minimal in-memory model.Store for controller integration
// tests, in the style of middleware/auth_test.go's authFakeStore.
type fakeStore struct {
	mu sync.Mutex

	providersByKey map[string]model.Provider
	providersByID  map[int64]model.Provider
	providerKeys   map[int64][]model.ProviderApiKey
	models         map[int64]model.Model
	modelsByPK     map[int64]map[string]model.Model
	aliases        map[string]model.ModelAlias
	policies       map[int64]model.AccessControlPolicy
	billingPlans   map[int64]model.BillingPlan
	logs           []*model.RequestLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		providersByKey: map[string]model.Provider{},
		providersByID:  map[int64]model.Provider{},
		providerKeys:   map[int64][]model.ProviderApiKey{},
		models:         map[int64]model.Model{},
		modelsByPK:     map[int64]map[string]model.Model{},
		aliases:        map[string]model.ModelAlias{},
		policies:       map[int64]model.AccessControlPolicy{},
		billingPlans:   map[int64]model.BillingPlan{},
	}
}

func (s *fakeStore) addProvider(p model.Provider, keys ...model.ProviderApiKey) {
	s.providersByKey[p.ProviderKey] = p
	s.providersByID[p.ID] = p
	s.providerKeys[p.ID] = keys
	s.modelsByPK[p.ID] = map[string]model.Model{}
}

func (s *fakeStore) addModel(m model.Model) {
	s.models[m.ID] = m
	s.modelsByPK[m.ProviderID][m.ModelName] = m
}

func (s *fakeStore) GetSystemApiKeyByKey(string) (*model.SystemApiKey, error) { return nil, model.ErrNotFound }
func (s *fakeStore) GetSystemApiKeyByRef(string) (*model.SystemApiKey, error) { return nil, model.ErrNotFound }

func (s *fakeStore) GetProviderByID(id int64) (*model.Provider, error) {
	if p, ok := s.providersByID[id]; ok {
		return &p, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetProviderByKey(key string) (*model.Provider, error) {
	if p, ok := s.providersByKey[key]; ok {
		return &p, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetProviderApiKeysByProvider(providerID int64) ([]model.ProviderApiKey, error) {
	return s.providerKeys[providerID], nil
}

func (s *fakeStore) GetModelByID(id int64) (*model.Model, error) {
	if m, ok := s.models[id]; ok {
		return &m, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetModelByProviderAndName(providerID int64, name string) (*model.Model, error) {
	if byName, ok := s.modelsByPK[providerID]; ok {
		if m, ok := byName[name]; ok {
			return &m, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetModelAliasByName(alias string) (*model.ModelAlias, error) {
	if a, ok := s.aliases[alias]; ok {
		return &a, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetAccessControlPolicy(id int64) (*model.AccessControlPolicy, error) {
	if p, ok := s.policies[id]; ok {
		return &p, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) GetCustomFieldsByProvider(int64) ([]model.CustomField, error) { return nil, nil }
func (s *fakeStore) GetCustomFieldsByModel(int64) ([]model.CustomField, error)    { return nil, nil }

func (s *fakeStore) GetBillingPlan(id int64) (*model.BillingPlan, error) {
	if p, ok := s.billingPlans[id]; ok {
		return &p, nil
	}
	return nil, model.ErrNotFound
}

func (s *fakeStore) InsertRequestLog(log *model.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

// UpdateRequestLog overwrites the row in place, the way GormStore's
// Updates(log) targets the row by id rather than appending a new one.
func (s *fakeStore) UpdateRequestLog(log *model.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.logs {
		if l.ID == log.ID {
			s.logs[i] = log
			return nil
		}
	}
	return model.ErrNotFound
}

func (s *fakeStore) ListEnabledProviders() ([]model.Provider, error) {
	out := make([]model.Provider, 0, len(s.providersByID))
	for _, p := range s.providersByID {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) ListEnabledModelsByProvider(providerID int64) ([]model.Model, error) {
	var out []model.Model
	for _, m := range s.modelsByPK[providerID] {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) ListEnabledModelAliases() ([]model.ModelAlias, error) {
	out := make([]model.ModelAlias, 0, len(s.aliases))
	for _, a := range s.aliases {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}
