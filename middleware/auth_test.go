package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/config"
	"github.com/cyder-hub/cyder-gateway/common/ctxkey"
	"github.com/cyder-hub/cyder-gateway/model"
)

type authFakeStore struct {
	byKey map[string]model.SystemApiKey
	byRef map[string]model.SystemApiKey
}

func (s *authFakeStore) GetSystemApiKeyByKey(key string) (*model.SystemApiKey, error) {
	if k, ok := s.byKey[key]; ok {
		return &k, nil
	}
	return nil, model.ErrNotFound
}
func (s *authFakeStore) GetSystemApiKeyByRef(ref string) (*model.SystemApiKey, error) {
	if k, ok := s.byRef[ref]; ok {
		return &k, nil
	}
	return nil, model.ErrNotFound
}
func (s *authFakeStore) GetProviderByID(int64) (*model.Provider, error)   { return nil, model.ErrNotFound }
func (s *authFakeStore) GetProviderByKey(string) (*model.Provider, error) { return nil, model.ErrNotFound }
func (s *authFakeStore) GetProviderApiKeysByProvider(int64) ([]model.ProviderApiKey, error) {
	return nil, nil
}
func (s *authFakeStore) GetModelByID(int64) (*model.Model, error) { return nil, model.ErrNotFound }
func (s *authFakeStore) GetModelByProviderAndName(int64, string) (*model.Model, error) {
	return nil, model.ErrNotFound
}
func (s *authFakeStore) GetModelAliasByName(string) (*model.ModelAlias, error) {
	return nil, model.ErrNotFound
}
func (s *authFakeStore) GetAccessControlPolicy(int64) (*model.AccessControlPolicy, error) {
	return nil, model.ErrNotFound
}
func (s *authFakeStore) GetCustomFieldsByProvider(int64) ([]model.CustomField, error) { return nil, nil }
func (s *authFakeStore) GetCustomFieldsByModel(int64) ([]model.CustomField, error)    { return nil, nil }
func (s *authFakeStore) GetBillingPlan(int64) (*model.BillingPlan, error)             { return nil, model.ErrNotFound }
func (s *authFakeStore) InsertRequestLog(*model.RequestLog) error                     { return nil }
func (s *authFakeStore) UpdateRequestLog(*model.RequestLog) error                     { return nil }
func (s *authFakeStore) ListEnabledProviders() ([]model.Provider, error)              { return nil, nil }
func (s *authFakeStore) ListEnabledModelsByProvider(int64) ([]model.Model, error)     { return nil, nil }
func (s *authFakeStore) ListEnabledModelAliases() ([]model.ModelAlias, error)         { return nil, nil }

func newTestCaches(store model.Store) *cache.Collections {
	return cache.NewCollections(cache.Config{
		Backend:           "memory",
		PositiveTTL:       time.Minute,
		NegativeTTLAlias:  time.Second,
		NegativeTTLOthers: time.Second,
	}, store)
}

func runAuth(t *testing.T, dialectName string, caches *cache.Collections, setup func(r *http.Request)) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	setup(req)
	c.Request = req

	Authenticate(dialectName, caches)(c)
	return rec, c
}

func TestAuthenticate_OpenAI_StaticKey(t *testing.T) {
	store := &authFakeStore{byKey: map[string]model.SystemApiKey{"cyder-abc": {ID: 1, Key: "cyder-abc", Enabled: true}}}
	rec, c := runAuth(t, "openai", newTestCaches(store), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer cyder-abc")
	})
	require.False(t, c.IsAborted())
	require.Equal(t, http.StatusOK, rec.Code)
	key := c.MustGet(ctxkey.SystemAPIKey).(*model.SystemApiKey)
	require.Equal(t, int64(1), key.ID)
}

func TestAuthenticate_MissingCredentialRejects(t *testing.T) {
	store := &authFakeStore{}
	rec, c := runAuth(t, "openai", newTestCaches(store), func(r *http.Request) {})
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_TripwireValueRejected(t *testing.T) {
	store := &authFakeStore{}
	rec, c := runAuth(t, "openai", newTestCaches(store), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer raspberry")
	})
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_TripwireValueFallsThroughToQueryParam(t *testing.T) {
	store := &authFakeStore{byKey: map[string]model.SystemApiKey{"cyder-abc": {ID: 1, Key: "cyder-abc", Enabled: true}}}
	rec, c := runAuth(t, "openai", newTestCaches(store), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer raspberry")
		q := r.URL.Query()
		q.Set("key", "cyder-abc")
		r.URL.RawQuery = q.Encode()
	})
	require.False(t, c.IsAborted())
	require.Equal(t, http.StatusOK, rec.Code)
	key := c.MustGet(ctxkey.SystemAPIKey).(*model.SystemApiKey)
	require.Equal(t, int64(1), key.ID)
}

func TestAuthenticate_Gemini_TripwireValueFallsThroughToQueryParam(t *testing.T) {
	store := &authFakeStore{byKey: map[string]model.SystemApiKey{"cyder-geo": {ID: 2, Enabled: true}}}
	rec, c := runAuth(t, "gemini", newTestCaches(store), func(r *http.Request) {
		r.Header.Set("X-Goog-Api-Key", "raspberry")
		q := r.URL.Query()
		q.Set("key", "cyder-geo")
		r.URL.RawQuery = q.Encode()
	})
	require.False(t, c.IsAborted())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_NonASCIIHeaderRejected(t *testing.T) {
	store := &authFakeStore{}
	rec, c := runAuth(t, "openai", newTestCaches(store), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer cyder-é")
	})
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthenticate_UnknownFormatRejected(t *testing.T) {
	store := &authFakeStore{}
	rec, c := runAuth(t, "openai", newTestCaches(store), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer nonsense")
	})
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_JWTCredentialAttachesClaims(t *testing.T) {
	config.JWTSecret = "test-secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"key_ref": "ref-1", "sub": "user-42", "channel": "web",
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	store := &authFakeStore{byRef: map[string]model.SystemApiKey{"ref-1": {ID: 9, Ref: "ref-1", Enabled: true}}}
	rec, c := runAuth(t, "openai", newTestCaches(store), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer jwt-"+signed)
	})
	require.False(t, c.IsAborted())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-42", c.MustGet(ctxkey.ExternalID))
	require.Equal(t, "web", c.MustGet(ctxkey.Channel))
}

func TestAuthenticate_Gemini_FallsBackToQueryParam(t *testing.T) {
	store := &authFakeStore{byKey: map[string]model.SystemApiKey{"cyder-geo": {ID: 2, Enabled: true}}}
	rec, c := runAuth(t, "gemini", newTestCaches(store), func(r *http.Request) {
		q := r.URL.Query()
		q.Set("key", "cyder-geo")
		r.URL.RawQuery = q.Encode()
	})
	require.False(t, c.IsAborted())
	require.Equal(t, http.StatusOK, rec.Code)
}
