package controller

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/cyder-hub/cyder-gateway/app"
	"github.com/cyder-hub/cyder-gateway/common/ctxkey"
	"github.com/cyder-hub/cyder-gateway/model"
)

// catalogEntry is one advertised model, either a direct provider/model pair
// or an alias, before access filtering.
type catalogEntry struct {
	id         string
	ownedBy    string
	providerID int64
	modelID    int64
}

// ListModels serves the OpenAI/Anthropic-shaped `{object:"list", data:[...]}`
// catalog, filtered by the caller's access policy. It never calls upstream.
func ListModels(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := allowedCatalog(c.Request.Context(), a, c.MustGet(ctxkey.SystemAPIKey).(*model.SystemApiKey))
		if err != nil {
			respondErr(c, err)
			return
		}

		data := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			data = append(data, gin.H{"id": e.id, "object": "model", "owned_by": e.ownedBy})
		}
		c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
	}
}

// ListModelsGemini serves the `{"models":[{"name":"<id>"}]}` shape Gemini's
// ListModels RPC uses.
func ListModelsGemini(a *app.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := allowedCatalog(c.Request.Context(), a, c.MustGet(ctxkey.SystemAPIKey).(*model.SystemApiKey))
		if err != nil {
			respondErr(c, err)
			return
		}

		data := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			data = append(data, gin.H{"name": e.id})
		}
		c.JSON(http.StatusOK, gin.H{"models": data})
	}
}

// allowedCatalog builds the full provider/model/alias catalog and drops any
// entry the caller's access policy denies, sorted alphabetically by id for
// a stable response.
func allowedCatalog(ctx context.Context, a *app.App, key *model.SystemApiKey) ([]catalogEntry, error) {
	entries, err := fullCatalog(a)
	if err != nil {
		return nil, err
	}

	allowed := make([]catalogEntry, 0, len(entries))
	for _, e := range entries {
		if verdict := checkAccess(ctx, a, key, e.providerID, e.modelID); verdict.Allowed {
			allowed = append(allowed, e)
		}
	}

	sort.Slice(allowed, func(i, j int) bool { return allowed[i].id < allowed[j].id })
	return allowed, nil
}

// fullCatalog enumerates every enabled provider/model pair plus every
// enabled alias, unfiltered.
func fullCatalog(a *app.App) ([]catalogEntry, error) {
	providers, err := a.Store.ListEnabledProviders()
	if err != nil {
		return nil, err
	}

	var entries []catalogEntry
	modelsByID := make(map[int64]model.Model)
	for _, p := range providers {
		models, err := a.Store.ListEnabledModelsByProvider(p.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range models {
			modelsByID[m.ID] = m
			entries = append(entries, catalogEntry{
				id:         p.ProviderKey + "/" + m.ModelName,
				ownedBy:    p.ProviderKey,
				providerID: p.ID,
				modelID:    m.ID,
			})
		}
	}

	aliases, err := a.Store.ListEnabledModelAliases()
	if err != nil {
		return nil, err
	}
	for _, alias := range aliases {
		m, ok := modelsByID[alias.ModelID]
		if !ok {
			continue // alias points at a model whose provider is disabled or unknown
		}
		entries = append(entries, catalogEntry{
			id:         alias.Alias,
			ownedBy:    "cyder-api",
			providerID: m.ProviderID,
			modelID:    m.ID,
		})
	}

	return entries, nil
}
