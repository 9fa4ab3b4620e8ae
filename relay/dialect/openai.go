package dialect

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"

	"github.com/cyder-hub/cyder-gateway/relay/ir"
)

// openaiDialect translates OpenAI's chat-completions wire format, grounded
// on the original service/transform/openai.rs From<> conversions.
type openaiDialect struct{}

// NewOpenAI builds the OpenAI Translator.
func NewOpenAI() Translator { return openaiDialect{} }

func (openaiDialect) Name() string { return "openai" }

func (openaiDialect) TerminalSentinel() []byte { return []byte("[DONE]") }

type oaMessage struct {
	Role             string          `json:"role"`
	Content          json.RawMessage `json:"content,omitempty"`
	ToolCalls        []oaToolCall    `json:"tool_calls,omitempty"`
	Name             string          `json:"name,omitempty"`
	ToolCallID       string          `json:"tool_call_id,omitempty"`
	ReasoningContent string          `json:"reasoning_content,omitempty"`
}

type oaToolCall struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Function oaFunction `json:"function"`
}

type oaFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaRequest struct {
	Model            string          `json:"model,omitempty"`
	Messages         []oaMessage     `json:"messages"`
	Tools            []ir.Tool       `json:"tools,omitempty"`
	Stream           *bool           `json:"stream,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxTokens        *int32          `json:"max_tokens,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	Stop             json.RawMessage `json:"stop,omitempty"`
	Seed             *int64          `json:"seed,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
}

func roleFromWire(s string) ir.Role {
	switch s {
	case "system":
		return ir.RoleSystem
	case "assistant":
		return ir.RoleAssistant
	case "tool":
		return ir.RoleTool
	default:
		return ir.RoleUser
	}
}

func (openaiDialect) DecodeRequest(body []byte) (*ir.Request, error) {
	var req oaRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.Wrap(err, "decode openai request")
	}

	messages := make([]ir.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, decodeOAMessage(m))
	}

	var stop []string
	if len(req.Stop) > 0 {
		stop = decodeStopValue(req.Stop)
	}

	stream := false
	if req.Stream != nil {
		stream = *req.Stream
	}

	return &ir.Request{
		Model:            req.Model,
		Messages:         messages,
		Tools:            req.Tools,
		Stream:           stream,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		Stop:             stop,
		Seed:             req.Seed,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}, nil
}

func decodeOAMessage(m oaMessage) ir.Message {
	role := roleFromWire(m.Role)
	msg := ir.Message{Role: role, ThinkingContent: m.ReasoningContent}

	switch {
	case len(m.ToolCalls) > 0:
		calls := make([]ir.ToolCall, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			calls = append(calls, ir.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
		msg.ToolCalls = calls
	case m.ToolCallID != "":
		msg.ToolResult = &ir.ToolResult{
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
			Content:    rawStringOrEmpty(m.Content),
		}
	default:
		msg.Text = rawStringOrEmpty(m.Content)
	}
	return msg
}

func rawStringOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeStopValue(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}
	return nil
}

func (openaiDialect) EncodeRequest(req *ir.Request) ([]byte, error) {
	messages := make([]oaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, encodeOAMessage(m))
	}

	stream := req.Stream
	out := oaRequest{
		Model:            req.Model,
		Messages:         messages,
		Tools:            req.Tools,
		Stream:           &stream,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		Seed:             req.Seed,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}
	if len(req.Stop) == 1 {
		out.Stop, _ = json.Marshal(req.Stop[0])
	} else if len(req.Stop) > 1 {
		out.Stop, _ = json.Marshal(req.Stop)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode openai request")
	}
	return raw, nil
}

func encodeOAMessage(m ir.Message) oaMessage {
	out := oaMessage{Role: string(m.Role), ReasoningContent: m.ThinkingContent}
	switch {
	case len(m.ToolCalls) > 0:
		calls := make([]oaToolCall, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			calls = append(calls, oaToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: oaFunction{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out.ToolCalls = calls
	case m.ToolResult != nil:
		out.Name = m.ToolResult.Name
		out.ToolCallID = m.ToolResult.ToolCallID
		out.Content, _ = json.Marshal(m.ToolResult.Content)
	default:
		out.Content, _ = json.Marshal(m.Text)
	}
	return out
}

type oaChoice struct {
	Index        int32     `json:"index"`
	Message      oaMessage `json:"message"`
	FinishReason string    `json:"finish_reason,omitempty"`
}

type oaUsage struct {
	PromptTokens     int32 `json:"prompt_tokens"`
	CompletionTokens int32 `json:"completion_tokens"`
	TotalTokens      int32 `json:"total_tokens"`
}

type oaResponse struct {
	ID      string     `json:"id"`
	Model   string     `json:"model"`
	Choices []oaChoice `json:"choices"`
	Usage   *oaUsage   `json:"usage,omitempty"`
	Created int64      `json:"created,omitempty"`
	Object  string     `json:"object,omitempty"`
}

func (openaiDialect) DecodeResponse(body []byte) (*ir.Response, error) {
	var resp oaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode openai response")
	}

	choices := make([]ir.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, ir.Choice{
			Index:        c.Index,
			Message:      decodeOAMessage(c.Message),
			FinishReason: c.FinishReason,
		})
	}

	return &ir.Response{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage:   decodeOAUsage(resp.Usage),
		Created: resp.Created,
		Object:  resp.Object,
	}, nil
}

func decodeOAUsage(u *oaUsage) *ir.Usage {
	if u == nil {
		return nil
	}
	return &ir.Usage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

func encodeOAUsage(u *ir.Usage) *oaUsage {
	if u == nil {
		return nil
	}
	return &oaUsage{PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens, TotalTokens: u.TotalTokens}
}

func (openaiDialect) EncodeResponse(resp *ir.Response) ([]byte, error) {
	choices := make([]oaChoice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, oaChoice{
			Index:        c.Index,
			Message:      encodeOAMessage(c.Message),
			FinishReason: c.FinishReason,
		})
	}

	out := oaResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage:   encodeOAUsage(resp.Usage),
		Created: resp.Created,
		Object:  resp.Object,
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode openai response")
	}
	return raw, nil
}

type oaChunkDelta struct {
	Role             string            `json:"role,omitempty"`
	Content          string            `json:"content,omitempty"`
	ToolCalls        []oaChunkToolCall `json:"tool_calls,omitempty"`
	ReasoningContent string            `json:"reasoning_content,omitempty"`
}

type oaChunkToolCall struct {
	Index    int32          `json:"index"`
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function oaChunkFunction `json:"function"`
}

type oaChunkFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type oaChunkChoice struct {
	Index        int32        `json:"index"`
	Delta        oaChunkDelta `json:"delta"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type oaChunkResponse struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Choices []oaChunkChoice `json:"choices"`
	Usage   *oaUsage        `json:"usage,omitempty"`
	Created int64           `json:"created,omitempty"`
	Object  string          `json:"object,omitempty"`
}

func (openaiDialect) DecodeChunk(raw []byte, state *StreamState) (*ir.Chunk, bool, error) {
	var c oaChunkResponse
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, errors.Wrap(err, "decode openai chunk")
	}

	choices := make([]ir.ChunkChoice, 0, len(c.Choices))
	for _, cc := range c.Choices {
		delta := ir.MessageDelta{
			Content:         cc.Delta.Content,
			ThinkingContent: cc.Delta.ReasoningContent,
		}
		if cc.Delta.Role != "" {
			delta.Role = roleFromWire(cc.Delta.Role)
		}
		for _, tc := range cc.Delta.ToolCalls {
			id := tc.ID
			if id == "" {
				// later deltas in the same tool call omit id; recover the one
				// minted on the first delta for this index.
				id = state.ToolCallIDByIndex[tc.Index]
			} else {
				state.ToolCallIDByIndex[tc.Index] = id
			}
			delta.ToolCalls = append(delta.ToolCalls, ir.ToolCall{
				ID:        id,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
		choices = append(choices, ir.ChunkChoice{Index: cc.Index, Delta: delta, FinishReason: cc.FinishReason})
	}

	return &ir.Chunk{
		ID:      c.ID,
		Model:   c.Model,
		Choices: choices,
		Usage:   decodeOAUsage(c.Usage),
		Created: c.Created,
		Object:  c.Object,
	}, true, nil
}

func (openaiDialect) EncodeChunk(chunk *ir.Chunk, state *StreamState) ([]byte, error) {
	choices := make([]oaChunkChoice, 0, len(chunk.Choices))
	for _, cc := range chunk.Choices {
		delta := oaChunkDelta{Content: cc.Delta.Content, ReasoningContent: cc.Delta.ThinkingContent}
		if cc.Delta.Role != "" {
			delta.Role = string(cc.Delta.Role)
		}
		for i, tc := range cc.Delta.ToolCalls {
			delta.ToolCalls = append(delta.ToolCalls, oaChunkToolCall{
				Index: int32(i),
				ID:    tc.ID,
				Type:  "function",
				Function: oaChunkFunction{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		choices = append(choices, oaChunkChoice{Index: cc.Index, Delta: delta, FinishReason: cc.FinishReason})
	}

	out := oaChunkResponse{
		ID:      chunk.ID,
		Model:   chunk.Model,
		Choices: choices,
		Usage:   encodeOAUsage(chunk.Usage),
		Created: chunk.Created,
		Object:  chunk.Object,
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode openai chunk")
	}
	return raw, nil
}
