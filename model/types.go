// Package model holds the gateway's reference data types (providers, models,
// api keys, access control, billing) and the gorm-backed store that serves
// them, mirroring the teacher's model package shape.
package model

// ProviderType enumerates the upstream wire dialects a Provider speaks.
type ProviderType string

const (
	ProviderTypeOpenAI       ProviderType = "openai"
	ProviderTypeGemini       ProviderType = "gemini"
	ProviderTypeVertex       ProviderType = "vertex"
	ProviderTypeVertexOpenAI ProviderType = "vertex_openai"
	ProviderTypeOllama       ProviderType = "ollama"
)

// Action is the access-control verdict a rule or default_action carries.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// RuleScope says what an AccessControlRule matches against.
type RuleScope string

const (
	RuleScopeProvider RuleScope = "provider"
	RuleScopeModel    RuleScope = "model"
)

// FieldPlacement says where a CustomField is injected.
type FieldPlacement string

const (
	FieldPlacementHeader FieldPlacement = "header"
	FieldPlacementQuery  FieldPlacement = "query"
	FieldPlacementBody   FieldPlacement = "body"
)

// FieldType says which typed value column on a CustomField is populated.
type FieldType string

const (
	FieldTypeUnset   FieldType = "unset"
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeJSON    FieldType = "json_string"
)

// KeyStrategy selects how a ProviderKeyPicker walks a provider's api keys.
type KeyStrategy string

const (
	KeyStrategyQueue  KeyStrategy = "queue"
	KeyStrategyRandom KeyStrategy = "random"
)

// SystemApiKey is a credential minted by an operator and presented by a
// client. Ref, when set, is an indirection used by the "jwt-" credential
// scheme to look up the policy without storing the client's bearer value.
type SystemApiKey struct {
	ID                    int64  `gorm:"primaryKey" json:"id"`
	Name                  string `json:"name"`
	Key                   string `gorm:"uniqueIndex" json:"-"`
	Ref                   string `gorm:"index" json:"ref,omitempty"`
	AccessControlPolicyID *int64 `json:"access_control_policy_id,omitempty"`
	Enabled               bool   `gorm:"default:true" json:"enabled"`
	CreatedAt             int64  `gorm:"bigint;autoCreateTime:milli" json:"created_at"`
}

// Provider is an upstream LLM vendor account: an endpoint plus the dialect
// it speaks and whether outbound traffic should route through the relay
// proxy.
type Provider struct {
	ID          int64        `gorm:"primaryKey" json:"id"`
	ProviderKey string       `gorm:"uniqueIndex" json:"provider_key"`
	Name        string       `json:"name"`
	Endpoint    string       `json:"endpoint"`
	UseProxy    bool         `json:"use_proxy"`
	Type        ProviderType `json:"type"`
	KeyStrategy KeyStrategy  `gorm:"default:queue" json:"key_strategy"`
	Enabled     bool         `gorm:"default:true" json:"enabled"`
}

// ProviderApiKey is one credential belonging to a Provider; a provider may
// hold several, rotated by a ProviderKeyPicker.
type ProviderApiKey struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	ProviderID int64  `gorm:"index" json:"provider_id"`
	ApiKey     string `json:"-"`
	Enabled    bool   `gorm:"default:true" json:"enabled"`
}

// Model is a model name exposed by a Provider, optionally remapped to a
// different name on the wire (real_model_name) and billed under a plan.
type Model struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	ProviderID     int64  `gorm:"index" json:"provider_id"`
	ModelName      string `gorm:"index" json:"model_name"`
	RealModelName  string `json:"real_model_name,omitempty"`
	BillingPlanID  *int64 `json:"billing_plan_id,omitempty"`
	Enabled        bool   `gorm:"default:true" json:"enabled"`
}

// ModelAlias maps a client-facing short name to a concrete provider/model
// pair so "gpt-4o" can resolve without the caller naming a provider.
type ModelAlias struct {
	ID      int64  `gorm:"primaryKey" json:"id"`
	Alias   string `gorm:"uniqueIndex" json:"alias"`
	ModelID int64  `json:"model_id"`
	Enabled bool   `gorm:"default:true" json:"enabled"`
}

// AccessControlRule is one ordered entry of an AccessControlPolicy.
type AccessControlRule struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	PolicyID   int64     `gorm:"index" json:"policy_id"`
	RuleType   Action    `json:"rule_type"`
	Priority   int32     `json:"priority"`
	Scope      RuleScope `json:"scope"`
	ProviderID *int64    `json:"provider_id,omitempty"`
	ModelID    *int64    `json:"model_id,omitempty"`
	Enabled    bool      `gorm:"default:true" json:"enabled"`
}

// AccessControlPolicy gates which providers/models a SystemApiKey may reach.
type AccessControlPolicy struct {
	ID            int64                `gorm:"primaryKey" json:"id"`
	Name          string               `json:"name"`
	DefaultAction Action               `json:"default_action"`
	Rules         []AccessControlRule  `gorm:"-" json:"rules"`
}

// CustomField is a header/query/body value injected into every request a
// Provider or Model handles, keyed by id so model-scoped fields can
// override provider-scoped ones of the same id.
type CustomField struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	ProviderID     *int64         `json:"provider_id,omitempty"`
	ModelID        *int64         `json:"model_id,omitempty"`
	FieldName      string         `json:"field_name"`
	FieldPlacement FieldPlacement `json:"field_placement"`
	FieldType      FieldType      `json:"field_type"`
	StringValue    *string        `json:"string_value,omitempty"`
	IntegerValue   *int64         `json:"integer_value,omitempty"`
	NumberValue    *float32       `json:"number_value,omitempty"`
	BooleanValue   *bool          `json:"boolean_value,omitempty"`
	Enabled        bool           `gorm:"default:true" json:"enabled"`
}

// PriceRule is one tier of a BillingPlan, selected by the largest
// effective_from <= now whose effective_until (if any) has not yet passed.
type PriceRule struct {
	ID                    int64  `gorm:"primaryKey" json:"id"`
	BillingPlanID         int64  `gorm:"index" json:"billing_plan_id"`
	EffectiveFrom         int64  `json:"effective_from"`
	EffectiveUntil        *int64 `json:"effective_until,omitempty"`
	PeriodStartSecondsUTC *int32 `json:"period_start_seconds_utc,omitempty"`
	PeriodEndSecondsUTC   *int32 `json:"period_end_seconds_utc,omitempty"`
	UsageType             string `json:"usage_type"` // PROMPT | COMPLETION | INVOCATION
	MediaType             string `json:"media_type"`
	ConditionHadReasoning *int32 `json:"condition_had_reasoning,omitempty"`
	TierFromTokens        *int32 `json:"tier_from_tokens,omitempty"`
	TierToTokens           *int32 `json:"tier_to_tokens,omitempty"`
	PriceInMicroUnits      *int64 `json:"price_in_micro_units,omitempty"`
}

// BillingPlan groups the PriceRules that price one Model's usage.
type BillingPlan struct {
	ID         int64       `gorm:"primaryKey" json:"id"`
	Name       string      `json:"name"`
	Currency   string      `json:"currency"`
	PriceRules []PriceRule `gorm:"-" json:"price_rules"`
}

// RequestLogStatus is where one RequestLog row sits in its lifecycle. A row
// is created PENDING and transitions exactly once, to SUCCESS, ERROR, or
// CANCELLED; it never transitions back to PENDING.
type RequestLogStatus string

const (
	RequestLogStatusPending   RequestLogStatus = "PENDING"
	RequestLogStatusSuccess   RequestLogStatus = "SUCCESS"
	RequestLogStatusError     RequestLogStatus = "ERROR"
	RequestLogStatusCancelled RequestLogStatus = "CANCELLED"
)

// RequestLog records one relayed request for billing and observability. A
// row is inserted PENDING as soon as the request arrives and provider/model
// are known, then updated once to its terminal status when the relay ends -
// the row is owned exclusively by the handling request from creation to
// that update.
type RequestLog struct {
	ID                int64            `gorm:"primaryKey" json:"id"`
	RequestID         string           `gorm:"index" json:"request_id"`
	Status            RequestLogStatus `gorm:"default:PENDING;index" json:"status"`
	SystemApiKeyID    int64            `json:"system_api_key_id"`
	ProviderID        int64            `json:"provider_id"`
	ModelID           int64            `json:"model_id"`
	ProviderApiKeyID  int64            `json:"provider_api_key_id,omitempty"`
	ModelName         string           `json:"model_name"`
	RealModelName     string           `json:"real_model_name,omitempty"`
	Channel           string           `json:"channel,omitempty"`
	ExternalID        string           `json:"external_id,omitempty"`
	ClientIP          string           `json:"client_ip"`
	RequestURI        string           `json:"request_uri,omitempty"`
	UpstreamURI       string           `json:"upstream_uri,omitempty"`
	IsStream          bool             `json:"is_stream"`
	StatusCode        int              `json:"status_code"`
	RequestBody       string           `json:"request_body,omitempty"`
	ResponseBody      string           `json:"response_body,omitempty"`
	PromptTokens      int64            `json:"prompt_tokens"`
	CompletionTokens  int64            `json:"completion_tokens"`
	ReasoningTokens   int64            `json:"reasoning_tokens"`
	TotalTokens       int64            `json:"total_tokens"`
	CostMicroUnits    int64            `json:"cost_micro_units"`
	CostCurrency      string           `json:"cost_currency,omitempty"`
	LatencyMs         int64            `json:"latency_ms"`
	ErrorCode         int              `json:"error_code,omitempty"`
	ErrorMsg          string           `json:"error_msg,omitempty"`
	LLMSentAtMs       int64            `json:"llm_sent_at_ms,omitempty"`
	FirstChunkAtMs    int64            `json:"first_chunk_at_ms,omitempty"`
	CompletedAtMs     int64            `json:"completed_at_ms,omitempty"`
	ResponseSentAtMs  int64            `json:"response_sent_at_ms,omitempty"`
	// CreatedAtMs is the request's arrival time ("received" in the wire spec).
	CreatedAtMs int64 `gorm:"bigint;index" json:"created_at_ms"`
}
