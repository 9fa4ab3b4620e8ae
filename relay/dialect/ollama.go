package dialect

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"

	"github.com/cyder-hub/cyder-gateway/common/idgen"
	"github.com/cyder-hub/cyder-gateway/relay/ir"
)

// ollamaDialect translates Ollama's /api/chat wire format, grounded on
// service/transform/ollama.rs. Ollama has no notion of tool calls or a
// response id, so ids are minted here the way the original mints
// "chatcmpl-{id}" on every response/chunk.
type ollamaDialect struct {
	ids *idgen.Generator
}

// NewOllama builds the Ollama Translator.
func NewOllama() Translator { return ollamaDialect{ids: idgen.New(0)} }

func (ollamaDialect) Name() string { return "ollama" }

func (ollamaDialect) TerminalSentinel() []byte { return nil } // Ollama signals end via "done":true, not a sentinel line

type olMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type olOptions struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int32   `json:"num_predict,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

type olRequest struct {
	Model    string      `json:"model"`
	Messages []olMessage `json:"messages"`
	Stream   *bool       `json:"stream,omitempty"`
	Options  *olOptions  `json:"options,omitempty"`
}

func (ollamaDialect) DecodeRequest(body []byte) (*ir.Request, error) {
	var req olRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.Wrap(err, "decode ollama request")
	}

	messages := make([]ir.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ir.Message{Role: roleFromWire(m.Role), Text: m.Content})
	}

	out := &ir.Request{Model: req.Model, Messages: messages}
	if req.Stream != nil {
		out.Stream = *req.Stream
	}
	if req.Options != nil {
		out.Temperature = req.Options.Temperature
		out.MaxTokens = req.Options.MaxTokens
		out.TopP = req.Options.TopP
		out.Stop = req.Options.Stop
		out.Seed = req.Options.Seed
		out.PresencePenalty = req.Options.PresencePenalty
		out.FrequencyPenalty = req.Options.FrequencyPenalty
	}
	return out, nil
}

func (ollamaDialect) EncodeRequest(req *ir.Request) ([]byte, error) {
	messages := make([]olMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		// Ollama has no tool role and no tool-call support; both are dropped
		// on egress rather than sent as empty-content messages it can't use.
		if m.Role == ir.RoleTool || m.ToolResult != nil || len(m.ToolCalls) > 0 {
			continue
		}

		content := m.Text
		if m.ThinkingContent != "" {
			content = m.ThinkingContent + "\n" + content
		}
		messages = append(messages, olMessage{Role: string(m.Role), Content: content})
	}

	stream := req.Stream
	out := olRequest{Model: req.Model, Messages: messages, Stream: &stream}
	if req.Temperature != nil || req.MaxTokens != nil || req.TopP != nil || len(req.Stop) > 0 || req.Seed != nil {
		out.Options = &olOptions{
			Temperature:      req.Temperature,
			MaxTokens:        req.MaxTokens,
			TopP:             req.TopP,
			Stop:             req.Stop,
			Seed:             req.Seed,
			PresencePenalty:  req.PresencePenalty,
			FrequencyPenalty: req.FrequencyPenalty,
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode ollama request")
	}
	return raw, nil
}

type olResponse struct {
	Model            string    `json:"model"`
	CreatedAt        string    `json:"created_at"`
	Message          olMessage `json:"message"`
	Done             bool      `json:"done"`
	PromptTokens     *int32    `json:"prompt_eval_count,omitempty"`
	CompletionTokens *int32    `json:"eval_count,omitempty"`
}

func (d ollamaDialect) DecodeResponse(body []byte) (*ir.Response, error) {
	var resp olResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode ollama response")
	}

	finish := ""
	if resp.Done {
		finish = "stop"
	}

	out := &ir.Response{
		ID:      "chatcmpl-" + formatInt64(d.ids.Next()),
		Model:   resp.Model,
		Choices: []ir.Choice{{Message: ir.Message{Role: ir.RoleAssistant, Text: resp.Message.Content}, FinishReason: finish}},
		Object:  "chat.completion",
	}
	if resp.PromptTokens != nil && resp.CompletionTokens != nil {
		out.Usage = &ir.Usage{
			PromptTokens:     *resp.PromptTokens,
			CompletionTokens: *resp.CompletionTokens,
			TotalTokens:      *resp.PromptTokens + *resp.CompletionTokens,
		}
	}
	return out, nil
}

func (ollamaDialect) EncodeResponse(resp *ir.Response) ([]byte, error) {
	var choice ir.Choice
	if len(resp.Choices) > 0 {
		choice = resp.Choices[0]
	}

	content := choice.Message.Text
	if choice.Message.ThinkingContent != "" {
		content = choice.Message.ThinkingContent + "\n" + content
	}

	out := olResponse{
		Model:   resp.Model,
		Message: olMessage{Role: "assistant", Content: content},
		Done:    true,
	}
	if resp.Usage != nil {
		p, c := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		out.PromptTokens, out.CompletionTokens = &p, &c
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode ollama response")
	}
	return raw, nil
}

type olChunkResponse struct {
	Model            string     `json:"model"`
	CreatedAt        string     `json:"created_at"`
	Message          *olMessage `json:"message,omitempty"`
	Done             bool       `json:"done"`
	PromptTokens     *int32     `json:"prompt_eval_count,omitempty"`
	CompletionTokens *int32     `json:"eval_count,omitempty"`
}

func (d ollamaDialect) DecodeChunk(raw []byte, state *StreamState) (*ir.Chunk, bool, error) {
	var c olChunkResponse
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false, errors.Wrap(err, "decode ollama chunk")
	}

	var delta ir.MessageDelta
	if c.Message != nil {
		delta = ir.MessageDelta{Role: ir.RoleAssistant, Content: c.Message.Content}
	}
	finish := ""
	if c.Done {
		finish = "stop"
	}

	chunk := &ir.Chunk{
		ID:      "chatcmpl-" + formatInt64(d.ids.Next()),
		Model:   c.Model,
		Choices: []ir.ChunkChoice{{Delta: delta, FinishReason: finish}},
		Object:  "chat.completion.chunk",
	}
	if c.PromptTokens != nil && c.CompletionTokens != nil {
		chunk.Usage = &ir.Usage{
			PromptTokens:     *c.PromptTokens,
			CompletionTokens: *c.CompletionTokens,
			TotalTokens:      *c.PromptTokens + *c.CompletionTokens,
		}
	}
	return chunk, true, nil
}

func (ollamaDialect) EncodeChunk(chunk *ir.Chunk, state *StreamState) ([]byte, error) {
	var choice ir.ChunkChoice
	if len(chunk.Choices) > 0 {
		choice = chunk.Choices[0]
	}

	out := olChunkResponse{
		Model: chunk.Model,
		Done:  choice.FinishReason != "",
	}
	if choice.Delta.Content != "" || choice.Delta.Role != "" {
		out.Message = &olMessage{Role: "assistant", Content: choice.Delta.Content}
	}
	if chunk.Usage != nil {
		p, c := chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens
		out.PromptTokens, out.CompletionTokens = &p, &c
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "encode ollama chunk")
	}
	return raw, nil
}
