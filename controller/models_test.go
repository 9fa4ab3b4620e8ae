package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/common/ctxkey"
	"github.com/cyder-hub/cyder-gateway/model"
)

func TestListModels_FiltersByAccessPolicy(t *testing.T) {
	store := newFakeStore()
	store.addProvider(model.Provider{ID: 1, ProviderKey: "openai", Type: model.ProviderTypeOpenAI, Enabled: true},
		model.ProviderApiKey{ID: 1, ProviderID: 1, ApiKey: "sk-test", Enabled: true})
	store.addModel(model.Model{ID: 1, ProviderID: 1, ModelName: "gpt-4o", Enabled: true})
	store.addModel(model.Model{ID: 2, ProviderID: 1, ModelName: "gpt-4o-mini", Enabled: true})
	store.policies[1] = model.AccessControlPolicy{
		ID:            1,
		DefaultAction: model.ActionDeny,
		Rules: []model.AccessControlRule{
			{RuleType: model.ActionAllow, Priority: 1, Scope: model.RuleScopeModel, ModelID: ptrInt64(1), Enabled: true},
		},
	}

	a := newTestApp(t, store)
	policyID := int64(1)
	key := &model.SystemApiKey{ID: 1, Enabled: true, AccessControlPolicyID: &policyID}

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	c.Set(ctxkey.SystemAPIKey, key)

	ListModels(a)(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Object string `json:"object"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Data, 1)
	require.Equal(t, "openai/gpt-4o", out.Data[0].ID)
}

func TestListModelsGemini_UnrestrictedKeySeesEverything(t *testing.T) {
	store := newFakeStore()
	store.addProvider(model.Provider{ID: 1, ProviderKey: "gemini", Type: model.ProviderTypeGemini, Enabled: true},
		model.ProviderApiKey{ID: 1, ProviderID: 1, ApiKey: "g-key", Enabled: true})
	store.addModel(model.Model{ID: 1, ProviderID: 1, ModelName: "gemini-2.5-pro", Enabled: true})
	store.aliases["gemini-2.5-pro"] = model.ModelAlias{ID: 1, Alias: "gemini-2.5-pro", ModelID: 1, Enabled: true}

	a := newTestApp(t, store)
	key := &model.SystemApiKey{ID: 1, Enabled: true}

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/gemini/v1beta/models", nil)
	c.Set(ctxkey.SystemAPIKey, key)

	ListModelsGemini(a)(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	names := make([]string, len(out.Models))
	for i, m := range out.Models {
		names[i] = m.Name
	}
	require.ElementsMatch(t, []string{"gemini/gemini-2.5-pro", "gemini-2.5-pro"}, names)
}

func ptrInt64(v int64) *int64 { return &v }
