package dialect

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"

	"github.com/cyder-hub/cyder-gateway/relay/ir"
)

// anthropicDialect translates Claude's Messages API wire format, grounded
// on the teacher's relay/adaptor/openai_compatible/claude_convert.go (which
// performs the OpenAI<->Claude conversion the teacher ships) generalized
// here to convert Claude<->ir instead.
type anthropicDialect struct{}

// NewAnthropic builds the Anthropic Translator.
func NewAnthropic() Translator { return anthropicDialect{} }

func (anthropicDialect) Name() string { return "anthropic" }

func (anthropicDialect) TerminalSentinel() []byte { return nil } // Claude streams end on an HTTP close, no sentinel line

type acBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
}

type acMessage struct {
	Role    string    `json:"role"`
	Content []acBlock `json:"content"`
}

type acRequest struct {
	Model         string          `json:"model"`
	Messages      []acMessage     `json:"messages"`
	System        string          `json:"system,omitempty"`
	MaxTokens     int32           `json:"max_tokens"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Tools         []acTool        `json:"tools,omitempty"`
}

type acTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

func (anthropicDialect) DecodeRequest(body []byte) (*ir.Request, error) {
	var req acRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.Wrap(err, "decode anthropic request")
	}

	var messages []ir.Message
	if req.System != "" {
		messages = append(messages, ir.Message{Role: ir.RoleSystem, Text: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, decodeACMessage(m)...)
	}

	var tools []ir.Tool
	for _, t := range req.Tools {
		tools = append(tools, ir.Tool{
			Type: "function",
			Function: ir.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	maxTokens := req.MaxTokens
	return &ir.Request{
		Model:       req.Model,
		Messages:    messages,
		Tools:       tools,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		MaxTokens:   &maxTokens,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
	}, nil
}

// decodeACMessage may expand to more than one ir.Message: Claude packs
// multiple tool_use/tool_result blocks into a single message, while ir
// models one tool call (or result) per Message the way OpenAI's wire
// format does.
func decodeACMessage(m acMessage) []ir.Message {
	role := ir.RoleUser
	if m.Role == "assistant" {
		role = ir.RoleAssistant
	}

	var text string
	var toolCalls []ir.ToolCall
	var out []ir.Message
	for _, b := range m.Content {
		switch b.Type {
		case "text":
			text += b.Text
		case "thinking":
			out = append(out, ir.Message{Role: role, ThinkingContent: b.Thinking})
		case "tool_use":
			toolCalls = append(toolCalls, ir.ToolCall{ID: b.ID, Name: b.Name, Arguments: b.Input})
		case "tool_result":
			out = append(out, ir.Message{
				Role: ir.RoleTool,
				ToolResult: &ir.ToolResult{
					ToolCallID: b.ToolUseID,
					Content:    rawStringOrEmpty(b.Content),
				},
			})
		}
	}
	if len(toolCalls) > 0 {
		out = append(out, ir.Message{Role: role, ToolCalls: toolCalls})
	}
	if text != "" || len(out) == 0 {
		out = append([]ir.Message{{Role: role, Text: text}}, out...)
	}
	return out
}

func (anthropicDialect) EncodeRequest(req *ir.Request) ([]byte, error) {
	out := acRequest{Model: req.Model, Stream: req.Stream, Temperature: req.Temperature, TopP: req.TopP, StopSequences: req.Stop}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}

	for _, m := range req.Messages {
		if m.Role == ir.RoleSystem {
			out.System += m.Text
			continue
		}
		out.Messages = append(out.Messages, encodeACMessage(m))
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, acTool{Name: t.Function.Name, Description: t.Function.Description, InputSchema: t.Function.Parameters})
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode anthropic request")
	}
	return raw, nil
}

func encodeACMessage(m ir.Message) acMessage {
	role := "user"
	if m.Role == ir.RoleAssistant {
		role = "assistant"
	}
	out := acMessage{Role: role}

	switch {
	case len(m.ToolCalls) > 0:
		for _, tc := range m.ToolCalls {
			out.Content = append(out.Content, acBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Arguments})
		}
	case m.ToolResult != nil:
		content, _ := json.Marshal(m.ToolResult.Content)
		out.Role = "user"
		out.Content = append(out.Content, acBlock{Type: "tool_result", ToolUseID: m.ToolResult.ToolCallID, Content: content})
	default:
		out.Content = append(out.Content, acBlock{Type: "text", Text: m.Text})
	}
	return out
}

type acUsage struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
}

type acResponse struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Role       string    `json:"role"`
	Content    []acBlock `json:"content"`
	StopReason string    `json:"stop_reason,omitempty"`
	Usage      acUsage   `json:"usage"`
}

func (anthropicDialect) DecodeResponse(body []byte) (*ir.Response, error) {
	var resp acResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode anthropic response")
	}

	messages := decodeACMessage(acMessage{Role: "assistant", Content: resp.Content})
	merged := mergeMessages(messages)

	return &ir.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Choices: []ir.Choice{{
			Index:        0,
			Message:      merged,
			FinishReason: stopReasonToFinish(resp.StopReason),
		}},
		Usage: &ir.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Object: "chat.completion",
	}, nil
}

// mergeMessages collapses the several ir.Message values decodeACMessage may
// emit for one Claude turn back into the single ir.Message a non-streaming
// ir.Choice carries; a real response never mixes tool_result into an
// assistant turn, so only text/tool_calls/thinking need merging here.
func mergeMessages(msgs []ir.Message) ir.Message {
	var out ir.Message
	if len(msgs) > 0 {
		out.Role = msgs[0].Role
	}
	for _, m := range msgs {
		out.Text += m.Text
		out.ToolCalls = append(out.ToolCalls, m.ToolCalls...)
		if m.ThinkingContent != "" {
			out.ThinkingContent += m.ThinkingContent
		}
	}
	return out
}

func stopReasonToFinish(r string) string {
	switch r {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	default:
		return r
	}
}

func finishToStopReason(f string) string {
	switch f {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	default:
		return f
	}
}

func (anthropicDialect) EncodeResponse(resp *ir.Response) ([]byte, error) {
	var choice ir.Choice
	if len(resp.Choices) > 0 {
		choice = resp.Choices[0]
	}

	msg := encodeACMessage(choice.Message)
	if choice.Message.ThinkingContent != "" {
		msg.Content = append([]acBlock{{Type: "thinking", Thinking: choice.Message.ThinkingContent}}, msg.Content...)
	}

	out := acResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Role:       "assistant",
		Content:    msg.Content,
		StopReason: finishToStopReason(choice.FinishReason),
	}
	if resp.Usage != nil {
		out.Usage = acUsage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode anthropic response")
	}
	return raw, nil
}

// acStreamEvent is the envelope every Claude SSE event shares; which other
// fields are populated depends on Type.
type acStreamEvent struct {
	Type         string   `json:"type"`
	Index        int32    `json:"index,omitempty"`
	ContentBlock *acBlock `json:"content_block,omitempty"`
	Delta        *acDelta `json:"delta,omitempty"`
	Usage        *acUsage `json:"usage,omitempty"`
	Message      *acResponse `json:"message,omitempty"`
}

type acDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

func (anthropicDialect) DecodeChunk(raw []byte, state *StreamState) (*ir.Chunk, bool, error) {
	var evt acStreamEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, false, errors.Wrap(err, "decode anthropic stream event")
	}

	switch evt.Type {
	case "content_block_delta":
		if evt.Delta == nil {
			return nil, false, nil
		}
		delta := ir.MessageDelta{Content: evt.Delta.Text, ThinkingContent: evt.Delta.Thinking}
		if evt.Delta.PartialJSON != "" {
			id := state.ToolCallIDByIndex[evt.Index]
			delta.ToolCalls = []ir.ToolCall{{ID: id, Arguments: json.RawMessage(evt.Delta.PartialJSON)}}
		}
		return &ir.Chunk{Choices: []ir.ChunkChoice{{Index: evt.Index, Delta: delta}}}, true, nil
	case "content_block_start":
		if evt.ContentBlock != nil && evt.ContentBlock.Type == "tool_use" {
			state.ToolCallIDByIndex[evt.Index] = evt.ContentBlock.ID
			delta := ir.MessageDelta{ToolCalls: []ir.ToolCall{{ID: evt.ContentBlock.ID, Name: evt.ContentBlock.Name}}}
			return &ir.Chunk{Choices: []ir.ChunkChoice{{Index: evt.Index, Delta: delta}}}, true, nil
		}
		return nil, false, nil
	case "message_delta":
		var usage *ir.Usage
		if evt.Usage != nil {
			usage = &ir.Usage{CompletionTokens: evt.Usage.OutputTokens}
		}
		finish := ""
		if evt.Delta != nil {
			finish = stopReasonToFinish(evt.Delta.StopReason)
		}
		return &ir.Chunk{Choices: []ir.ChunkChoice{{FinishReason: finish}}, Usage: usage}, true, nil
	default:
		return nil, false, nil
	}
}

func (anthropicDialect) EncodeChunk(chunk *ir.Chunk, state *StreamState) ([]byte, error) {
	if len(chunk.Choices) == 0 {
		return json.Marshal(acStreamEvent{Type: "ping"})
	}
	cc := chunk.Choices[0]

	if len(cc.Delta.ToolCalls) > 0 {
		tc := cc.Delta.ToolCalls[0]
		if _, started := state.ToolCallIDByIndex[cc.Index]; !started {
			state.ToolCallIDByIndex[cc.Index] = tc.ID
			return json.Marshal(acStreamEvent{
				Type:         "content_block_start",
				Index:        cc.Index,
				ContentBlock: &acBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name},
			})
		}
		return json.Marshal(acStreamEvent{
			Type:  "content_block_delta",
			Index: cc.Index,
			Delta: &acDelta{Type: "input_json_delta", PartialJSON: string(tc.Arguments)},
		})
	}

	if cc.FinishReason != "" {
		return json.Marshal(acStreamEvent{
			Type:  "message_delta",
			Delta: &acDelta{StopReason: finishToStopReason(cc.FinishReason)},
			Usage: encodeACUsage(chunk.Usage),
		})
	}

	return json.Marshal(acStreamEvent{
		Type:  "content_block_delta",
		Index: cc.Index,
		Delta: &acDelta{Type: "text_delta", Text: cc.Delta.Content},
	})
}

func encodeACUsage(u *ir.Usage) *acUsage {
	if u == nil {
		return nil
	}
	return &acUsage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
}
