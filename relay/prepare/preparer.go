package prepare

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cyder-hub/cyder-gateway/cache"
	"github.com/cyder-hub/cyder-gateway/common/gatewayerr"
	"github.com/cyder-hub/cyder-gateway/model"
	"github.com/cyder-hub/cyder-gateway/relay/keypicker"
	"github.com/cyder-hub/cyder-gateway/relay/vertex"
)

// Preparer assembles an outbound request for one resolved (Provider, Model)
// pair, picking a credential, building the URL, and applying CustomFields.
type Preparer struct {
	caches *cache.Collections
	picker *keypicker.Picker
	vertex *vertex.TokenCache
}

// New builds a Preparer over the given collaborators.
func New(caches *cache.Collections, picker *keypicker.Picker, tokens *vertex.TokenCache) *Preparer {
	return &Preparer{caches: caches, picker: picker, vertex: tokens}
}

// Inbound is everything about the client's original request the Preparer
// needs: its headers, query string, and (already translated) upstream body.
type Inbound struct {
	Header http.Header
	Query  url.Values
	Body   []byte
	Stream bool
}

// Prepare builds the final URL, headers, and body for dispatching to
// provider/m, picking a ProviderApiKey via picker and applying CustomFields
// last so they can override client-supplied values.
func (p *Preparer) Prepare(ctx context.Context, provider model.Provider, m model.Model, in Inbound) (Prepared, error) {
	key, err := p.picker.Pick(ctx, provider.ID, provider.KeyStrategy)
	if err != nil {
		return Prepared{}, err
	}

	apiKey := key.ApiKey
	if provider.Type == model.ProviderTypeVertex || provider.Type == model.ProviderTypeVertexOpenAI {
		apiKey, err = p.vertex.Get(ctx, key.ID, []byte(key.ApiKey))
		if err != nil {
			return Prepared{}, gatewayerr.Wrap(gatewayerr.InternalError, err, "mint vertex token")
		}
	}

	header := ScrubHeaders(in.Header)
	InjectCredential(header, provider.Type, apiKey)

	body, err := RewriteModelField(in.Body, m.RealModelName, m.ModelName)
	if err != nil {
		return Prepared{}, gatewayerr.Wrap(gatewayerr.TranslationError, err, "rewrite model field")
	}

	if isOpenAIFamily(provider.Type) && in.Stream {
		body, err = EnsureStreamUsage(body)
		if err != nil {
			return Prepared{}, gatewayerr.Wrap(gatewayerr.TranslationError, err, "ensure stream usage")
		}
	}

	providerFields, err := p.customFields(ctx, p.caches.CustomFieldsByProvider, provider.ID)
	if err != nil {
		return Prepared{}, err
	}
	modelFields, err := p.customFields(ctx, p.caches.CustomFieldsByModel, m.ID)
	if err != nil {
		return Prepared{}, err
	}

	query := cloneQuery(in.Query)
	body, err = ApplyCustomFields(body, header, query, providerFields, modelFields)
	if err != nil {
		return Prepared{}, gatewayerr.Wrap(gatewayerr.TranslationError, err, "apply custom fields")
	}

	requestURL, err := p.buildURL(provider, m, in.Stream, query)
	if err != nil {
		return Prepared{}, err
	}

	return Prepared{URL: requestURL, Header: header, Body: body, ProviderKey: key}, nil
}

func (p *Preparer) buildURL(provider model.Provider, m model.Model, stream bool, query url.Values) (string, error) {
	switch provider.Type {
	case model.ProviderTypeGemini, model.ProviderTypeVertex:
		action := ActionGenerateContent
		if stream {
			action = ActionStreamGenerateContent
		}
		realName := m.RealModelName
		if realName == "" {
			realName = m.ModelName
		}
		return ForwardQuery(GeminiURL(provider.Endpoint, realName, action), query)
	case model.ProviderTypeOllama:
		return ForwardQuery(OpenAIURL(provider.Endpoint, "api/chat"), query)
	default:
		return ForwardQuery(OpenAIURL(provider.Endpoint, "chat/completions"), query)
	}
}

func (p *Preparer) customFields(ctx context.Context, rt *cache.ReadThrough[[]model.CustomField], id int64) ([]model.CustomField, error) {
	fields, _, err := rt.Get(ctx, cache.IDKey(id))
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.CacheError, err, "custom fields lookup")
	}
	return fields, nil
}

func isOpenAIFamily(t model.ProviderType) bool {
	return t == model.ProviderTypeOpenAI || t == model.ProviderTypeVertexOpenAI
}

func cloneQuery(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, vs := range in {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
