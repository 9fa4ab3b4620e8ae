package dialect

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/cyder-hub/cyder-gateway/common/idgen"
	"github.com/cyder-hub/cyder-gateway/relay/ir"
)

// geminiDialect translates Gemini's generateContent wire format, grounded
// directly on service/transform/gemini.rs. Gemini's functionCall/
// functionResponse parts carry no id, only a name, so one is minted on
// first sight of a call and recovered by name on the matching result via
// a per-request FIFO queue (gemini.rs's tool_call_ids: HashMap<String,
// VecDeque<String>>).
type geminiDialect struct {
	ids *idgen.Generator
}

// NewGemini builds the Gemini Translator. It mints its own tool-call ids
// since Gemini's wire format never carries one.
func NewGemini() Translator { return geminiDialect{ids: idgen.New(0)} }

func (geminiDialect) Name() string { return "gemini" }

func (geminiDialect) TerminalSentinel() []byte { return nil } // Gemini streams end on HTTP close

type gmPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *gmFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *gmFunctionResponse `json:"functionResponse,omitempty"`
}

type gmFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type gmFunctionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmSystemInstruction struct {
	Parts []gmPart `json:"parts"`
}

type gmFunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type gmTools struct {
	FunctionDeclarations []gmFunctionDeclaration `json:"functionDeclarations"`
}

type gmGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int32   `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type gmRequest struct {
	Contents          []gmContent          `json:"contents"`
	SystemInstruction *gmSystemInstruction `json:"systemInstruction,omitempty"`
	Tools             []gmTools            `json:"tools,omitempty"`
	GenerationConfig  *gmGenerationConfig  `json:"generationConfig,omitempty"`
}

func (d geminiDialect) DecodeRequest(body []byte) (*ir.Request, error) {
	var req gmRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.Wrap(err, "decode gemini request")
	}

	var messages []ir.Message
	if req.SystemInstruction != nil {
		if text := joinText(req.SystemInstruction.Parts); text != "" {
			messages = append(messages, ir.Message{Role: ir.RoleSystem, Text: text})
		}
	}

	pendingIDs := make(map[string][]string) // name -> FIFO of minted ids awaiting a response
	for _, c := range req.Contents {
		role := c.Role
		if role == "" {
			role = "user"
		}

		hasCall, hasResponse := false, false
		for _, p := range c.Parts {
			hasCall = hasCall || p.FunctionCall != nil
			hasResponse = hasResponse || p.FunctionResponse != nil
		}

		switch {
		case role == "model" && hasCall:
			var calls []ir.ToolCall
			for _, p := range c.Parts {
				if p.FunctionCall == nil {
					continue
				}
				id := "call_" + strconvInt64(d.ids.Next())
				pendingIDs[p.FunctionCall.Name] = append(pendingIDs[p.FunctionCall.Name], id)
				calls = append(calls, ir.ToolCall{ID: id, Name: p.FunctionCall.Name, Arguments: p.FunctionCall.Args})
			}
			messages = append(messages, ir.Message{Role: ir.RoleAssistant, ToolCalls: calls})
		case role == "user" && hasResponse:
			for _, p := range c.Parts {
				if p.FunctionResponse == nil {
					continue
				}
				id := popFIFO(pendingIDs, p.FunctionResponse.Name)
				if id == "" {
					id = "call_" + strconvInt64(d.ids.Next())
				}
				messages = append(messages, ir.Message{
					Role: ir.RoleTool,
					ToolResult: &ir.ToolResult{
						ToolCallID: id,
						Name:       p.FunctionResponse.Name,
						Content:    resultContent(p.FunctionResponse.Response),
					},
				})
			}
		default:
			if text := joinText(c.Parts); text != "" {
				r := ir.RoleUser
				if role == "model" {
					r = ir.RoleAssistant
				}
				messages = append(messages, ir.Message{Role: r, Text: text})
			}
		}
	}

	var tools []ir.Tool
	for _, t := range req.Tools {
		for _, fd := range t.FunctionDeclarations {
			tools = append(tools, ir.Tool{
				Type: "function",
				Function: ir.FunctionDefinition{
					Name:        fd.Name,
					Description: fd.Description,
					Parameters:  lowercaseSchemaTypes(fd.Parameters),
				},
			})
		}
	}

	out := &ir.Request{Messages: messages, Tools: tools}
	if req.GenerationConfig != nil {
		out.Temperature = req.GenerationConfig.Temperature
		out.MaxTokens = req.GenerationConfig.MaxOutputTokens
		out.TopP = req.GenerationConfig.TopP
		out.Stop = req.GenerationConfig.StopSequences
	}
	return out, nil
}

func joinText(parts []gmPart) string {
	var texts []string
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func popFIFO(m map[string][]string, name string) string {
	ids := m[name]
	if len(ids) == 0 {
		return ""
	}
	m[name] = ids[1:]
	return ids[0]
}

func resultContent(raw json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if result, ok := obj["result"]; ok {
			var s string
			if json.Unmarshal(result, &s) == nil {
				return s
			}
		}
	}
	return string(raw)
}

// lowercaseSchemaTypes lowercases primitive type names throughout a tool
// schema, filling the role of the original's
// transform_gemini_tool_params_to_openai: Gemini's JSON-Schema dialect
// uppercases them (STRING, OBJECT) where OpenAI's expects lowercase.
// Recursing into the schema tree is done in relay/dialect/schema.go.
func lowercaseSchemaTypes(schema json.RawMessage) json.RawMessage {
	return normalizeSchemaCase(schema, toLower)
}

func strconvInt64(n int64) string {
	return formatInt64(n)
}

func (d geminiDialect) EncodeRequest(req *ir.Request) ([]byte, error) {
	out := gmRequest{}
	pendingNames := make(map[string]string) // tool call id -> name, so the matching tool_result part can carry it

	for _, m := range req.Messages {
		switch {
		case m.Role == ir.RoleSystem:
			out.SystemInstruction = &gmSystemInstruction{Parts: []gmPart{{Text: m.Text}}}
		case len(m.ToolCalls) > 0:
			var parts []gmPart
			for _, tc := range m.ToolCalls {
				pendingNames[tc.ID] = tc.Name
				parts = append(parts, gmPart{FunctionCall: &gmFunctionCall{Name: tc.Name, Args: tc.Arguments}})
			}
			out.Contents = append(out.Contents, gmContent{Role: "model", Parts: parts})
		case m.ToolResult != nil:
			name := m.ToolResult.Name
			if name == "" {
				name = pendingNames[m.ToolResult.ToolCallID]
			}
			resp, _ := json.Marshal(map[string]string{"result": m.ToolResult.Content})
			out.Contents = append(out.Contents, gmContent{
				Role:  "user",
				Parts: []gmPart{{FunctionResponse: &gmFunctionResponse{Name: name, Response: resp}}},
			})
		default:
			role := "user"
			if m.Role == ir.RoleAssistant {
				role = "model"
			}
			out.Contents = append(out.Contents, gmContent{Role: role, Parts: []gmPart{{Text: m.Text}}})
		}
	}

	if len(req.Tools) > 0 {
		var decls []gmFunctionDeclaration
		for _, t := range req.Tools {
			decls = append(decls, gmFunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  normalizeSchemaCase(t.Function.Parameters, toUpper),
			})
		}
		out.Tools = []gmTools{{FunctionDeclarations: decls}}
	}

	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil || len(req.Stop) > 0 {
		out.GenerationConfig = &gmGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            req.TopP,
			StopSequences:   req.Stop,
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode gemini request")
	}
	return raw, nil
}

type gmUsageMetadata struct {
	PromptTokenCount     int32 `json:"promptTokenCount"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount"`
	TotalTokenCount      int32 `json:"totalTokenCount"`
}

type gmCandidate struct {
	Content      gmContent `json:"content"`
	FinishReason string    `json:"finishReason,omitempty"`
	Index        int32     `json:"index"`
}

type gmResponse struct {
	Candidates    []gmCandidate    `json:"candidates"`
	UsageMetadata *gmUsageMetadata `json:"usageMetadata,omitempty"`
}

func (d geminiDialect) DecodeResponse(body []byte) (*ir.Response, error) {
	var resp gmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode gemini response")
	}

	var choices []ir.Choice
	for _, c := range resp.Candidates {
		msgs := d.decodeCandidateParts(c.Content.Parts)
		merged := mergeMessages(msgs)
		choices = append(choices, ir.Choice{Index: c.Index, Message: merged, FinishReason: geminiFinishToIR(c.FinishReason, len(merged.ToolCalls) > 0)})
	}

	out := &ir.Response{Choices: choices, Object: "chat.completion"}
	if resp.UsageMetadata != nil {
		out.Usage = &ir.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

func (d geminiDialect) decodeCandidateParts(parts []gmPart) []ir.Message {
	var msgs []ir.Message
	var text string
	var calls []ir.ToolCall
	for _, p := range parts {
		switch {
		case p.Text != "":
			text += p.Text
		case p.FunctionCall != nil:
			calls = append(calls, ir.ToolCall{ID: "call_" + strconvInt64(d.ids.Next()), Name: p.FunctionCall.Name, Arguments: p.FunctionCall.Args})
		}
	}
	if text != "" {
		msgs = append(msgs, ir.Message{Role: ir.RoleAssistant, Text: text})
	}
	if len(calls) > 0 {
		msgs = append(msgs, ir.Message{Role: ir.RoleAssistant, ToolCalls: calls})
	}
	return msgs
}

func geminiFinishToIR(r string, hasToolCalls bool) string {
	switch r {
	case "STOP":
		if hasToolCalls {
			return "tool_calls"
		}
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	case "TOOL_USE":
		return "tool_calls"
	default:
		return strings.ToLower(r)
	}
}

func irFinishToGemini(f string) string {
	switch f {
	case "stop":
		return "STOP"
	case "length":
		return "MAX_TOKENS"
	case "tool_calls":
		return "STOP"
	case "content_filter":
		return "SAFETY"
	default:
		return strings.ToUpper(f)
	}
}

func (d geminiDialect) EncodeResponse(resp *ir.Response) ([]byte, error) {
	var candidates []gmCandidate
	for _, c := range resp.Choices {
		candidates = append(candidates, gmCandidate{
			Content:      gmContent{Role: "model", Parts: encodeMessageToParts(c.Message)},
			FinishReason: irFinishToGemini(c.FinishReason),
			Index:        c.Index,
		})
	}

	out := gmResponse{Candidates: candidates}
	if resp.Usage != nil {
		out.UsageMetadata = &gmUsageMetadata{
			PromptTokenCount:     resp.Usage.PromptTokens,
			CandidatesTokenCount: resp.Usage.CompletionTokens,
			TotalTokenCount:      resp.Usage.TotalTokens,
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode gemini response")
	}
	return raw, nil
}

func encodeMessageToParts(m ir.Message) []gmPart {
	var parts []gmPart
	if m.Text != "" {
		parts = append(parts, gmPart{Text: m.Text})
	}
	for _, tc := range m.ToolCalls {
		parts = append(parts, gmPart{FunctionCall: &gmFunctionCall{Name: tc.Name, Args: tc.Arguments}})
	}
	return parts
}

// DecodeChunk decodes one streamGenerateContent SSE event payload, which
// carries a single gmResponse object.
func (d geminiDialect) DecodeChunk(raw []byte, state *StreamState) (*ir.Chunk, bool, error) {
	var resp gmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, errors.Wrap(err, "decode gemini stream chunk")
	}
	if len(resp.Candidates) == 0 {
		return nil, false, nil
	}

	var choices []ir.ChunkChoice
	for _, c := range resp.Candidates {
		msgs := d.decodeCandidateParts(c.Content.Parts)
		merged := mergeMessages(msgs)
		var toolCalls []ir.ToolCall
		for _, tc := range merged.ToolCalls {
			id := tc.ID
			if existing, ok := state.ToolCallIDByIndex[c.Index]; ok {
				id = existing
			} else {
				state.ToolCallIDByIndex[c.Index] = id
			}
			toolCalls = append(toolCalls, ir.ToolCall{ID: id, Name: tc.Name, Arguments: tc.Arguments})
		}
		choices = append(choices, ir.ChunkChoice{
			Index:        c.Index,
			Delta:        ir.MessageDelta{Content: merged.Text, ToolCalls: toolCalls},
			FinishReason: geminiFinishToIR(c.FinishReason, len(toolCalls) > 0),
		})
	}

	chunk := &ir.Chunk{Choices: choices}
	if resp.UsageMetadata != nil {
		chunk.Usage = &ir.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return chunk, true, nil
}

func (d geminiDialect) EncodeChunk(chunk *ir.Chunk, state *StreamState) ([]byte, error) {
	var candidates []gmCandidate
	for _, cc := range chunk.Choices {
		candidates = append(candidates, gmCandidate{
			Content:      gmContent{Role: "model", Parts: encodeMessageToParts(ir.Message{Text: cc.Delta.Content, ToolCalls: cc.Delta.ToolCalls})},
			FinishReason: irFinishToGemini(cc.FinishReason),
			Index:        cc.Index,
		})
	}
	out := gmResponse{Candidates: candidates}
	if chunk.Usage != nil {
		out.UsageMetadata = &gmUsageMetadata{
			PromptTokenCount:     chunk.Usage.PromptTokens,
			CandidatesTokenCount: chunk.Usage.CompletionTokens,
			TotalTokenCount:      chunk.Usage.TotalTokens,
		}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode gemini stream chunk")
	}
	return raw, nil
}
