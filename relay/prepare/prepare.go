// Package prepare assembles the four pieces UpstreamClient needs to
// dispatch a request: the final URL, headers, body, and which
// ProviderApiKey was used (for logging), per spec.md's Preparer.
package prepare

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/cyder-hub/cyder-gateway/model"
)

// scrubbedHeaders are stripped from the inbound request before forwarding;
// the upstream's own credential is injected fresh afterward.
var scrubbedHeaders = map[string]struct{}{
	"Host":            {},
	"Content-Length":  {},
	"Accept-Encoding": {},
	"Authorization":   {},
	"X-Api-Key":       {},
	"X-Goog-Api-Key":  {},
	"Cookie":          {},
}

// Prepared is the outbound request assembled for one relay.
type Prepared struct {
	URL         string
	Header      http.Header
	Body        []byte
	ProviderKey model.ProviderApiKey
}

// Action is the Gemini/Vertex path verb.
type Action string

const (
	ActionGenerateContent       Action = "generateContent"
	ActionStreamGenerateContent Action = "streamGenerateContent"
)

// ScrubHeaders copies incoming headers, dropping the ones the upstream
// should never see (inbound credential headers and hop-by-hop headers the
// outbound client sets itself).
func ScrubHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for k, vs := range in {
		if _, blocked := scrubbedHeaders[http.CanonicalHeaderKey(k)]; blocked {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// InjectCredential sets the upstream-shaped credential header for
// providerType, replacing whatever ScrubHeaders left behind.
func InjectCredential(header http.Header, providerType model.ProviderType, apiKey string) {
	switch providerType {
	case model.ProviderTypeGemini:
		header.Set("X-Goog-Api-Key", apiKey)
	default: // OpenAI-family, Vertex, Vertex OpenAI, Ollama all use a bearer token
		header.Set("Authorization", "Bearer "+apiKey)
	}
}

// OpenAIURL builds the "{endpoint}/{path}" URL OpenAI-family upstreams use.
func OpenAIURL(endpoint, path string) string {
	return strings.TrimRight(endpoint, "/") + "/" + strings.TrimLeft(path, "/")
}

// GeminiURL builds the Gemini/Vertex "{endpoint}/{model}:{action}" URL,
// appending "?alt=sse" for the streaming action.
func GeminiURL(endpoint, realModelName string, action Action) string {
	u := strings.TrimRight(endpoint, "/") + "/" + realModelName + ":" + string(action)
	if action == ActionStreamGenerateContent {
		u += "?alt=sse"
	}
	return u
}

// ForwardQuery copies the incoming query string, dropping "key" (the
// client's own inbound credential when presented as a query parameter).
func ForwardQuery(baseURL string, in url.Values) (string, error) {
	if len(in) == 0 {
		return baseURL, nil
	}

	out := url.Values{}
	for k, vs := range in {
		if k == "key" {
			continue
		}
		out[k] = vs
	}
	if len(out) == 0 {
		return baseURL, nil
	}

	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + out.Encode(), nil
}

// RewriteModelField replaces the "model" field of body with realModelName
// (falling back to modelName when realModelName is empty).
func RewriteModelField(body []byte, realModelName, modelName string) ([]byte, error) {
	name := realModelName
	if name == "" {
		name = modelName
	}
	out, err := sjson.SetBytes(body, "model", name)
	if err != nil {
		return nil, errors.Wrap(err, "rewrite model field")
	}
	return out, nil
}

// EnsureStreamUsage sets stream_options.include_usage=true on OpenAI-family
// streaming requests that don't already request it.
func EnsureStreamUsage(body []byte) ([]byte, error) {
	if !gjson.GetBytes(body, "stream").Bool() {
		return body, nil
	}
	if gjson.GetBytes(body, "stream_options.include_usage").Exists() {
		return body, nil
	}
	out, err := sjson.SetBytes(body, "stream_options.include_usage", true)
	if err != nil {
		return nil, errors.Wrap(err, "set stream_options.include_usage")
	}
	return out, nil
}

// ApplyCustomFields applies the union of provider- and model-scoped
// CustomFields to header, query, and body, keyed by definition id so a
// model-scoped field overrides a provider-scoped one sharing the same id.
// Body-placed fields use a dotted gjson/sjson path; UNSET removes the path
// (or header/query entry) instead of setting a value.
func ApplyCustomFields(body []byte, header http.Header, query url.Values, providerFields, modelFields []model.CustomField) ([]byte, error) {
	merged := mergeByID(providerFields, modelFields)

	var err error
	for _, f := range merged {
		switch f.FieldPlacement {
		case model.FieldPlacementBody:
			body, err = applyBodyField(body, f)
		case model.FieldPlacementQuery:
			applyQueryField(query, f)
		case model.FieldPlacementHeader:
			applyHeaderField(header, f)
		}
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

// mergeByID combines provider and model custom fields keyed by id, letting
// a model-scoped entry overwrite a provider-scoped one of the same id.
func mergeByID(providerFields, modelFields []model.CustomField) []model.CustomField {
	byID := make(map[int64]model.CustomField, len(providerFields)+len(modelFields))
	order := make([]int64, 0, len(providerFields)+len(modelFields))

	for _, f := range providerFields {
		byID[f.ID] = f
		order = append(order, f.ID)
	}
	for _, f := range modelFields {
		if _, existed := byID[f.ID]; !existed {
			order = append(order, f.ID)
		}
		byID[f.ID] = f
	}

	out := make([]model.CustomField, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

func applyBodyField(body []byte, f model.CustomField) ([]byte, error) {
	if f.FieldType == model.FieldTypeUnset {
		out, err := sjson.DeleteBytes(body, f.FieldName)
		if err != nil {
			return nil, errors.Wrap(err, "delete body field "+f.FieldName)
		}
		return out, nil
	}

	v, ok := fieldValue(f)
	if !ok {
		return body, nil
	}
	out, err := sjson.SetBytes(body, f.FieldName, v)
	if err != nil {
		return nil, errors.Wrap(err, "set body field "+f.FieldName)
	}
	return out, nil
}

func applyQueryField(query url.Values, f model.CustomField) {
	if f.FieldType == model.FieldTypeUnset {
		query.Del(f.FieldName)
		return
	}
	if v, ok := fieldValue(f); ok {
		query.Set(f.FieldName, stringify(v))
	}
}

func applyHeaderField(header http.Header, f model.CustomField) {
	if f.FieldType == model.FieldTypeUnset {
		header.Del(f.FieldName)
		return
	}
	if v, ok := fieldValue(f); ok {
		header.Set(f.FieldName, stringify(v))
	}
}

// fieldValue resolves f's typed value column; FieldTypeJSON parses
// StringValue as JSON, logging-by-omission (callers skip the field) on a
// parse failure rather than failing the whole request.
func fieldValue(f model.CustomField) (any, bool) {
	switch f.FieldType {
	case model.FieldTypeString:
		if f.StringValue != nil {
			return *f.StringValue, true
		}
	case model.FieldTypeInteger:
		if f.IntegerValue != nil {
			return *f.IntegerValue, true
		}
	case model.FieldTypeNumber:
		if f.NumberValue != nil {
			return *f.NumberValue, true
		}
	case model.FieldTypeBoolean:
		if f.BooleanValue != nil {
			return *f.BooleanValue, true
		}
	case model.FieldTypeJSON:
		if f.StringValue == nil {
			return nil, false
		}
		var v any
		if err := json.Unmarshal([]byte(*f.StringValue), &v); err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}
