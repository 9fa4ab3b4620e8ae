// Package dialect implements one Translator per upstream wire format
// (OpenAI, Anthropic, Gemini, Ollama), each converting exclusively to and
// from the neutral relay/ir representation. The relay never converts
// dialect A directly to dialect B.
package dialect

import (
	"github.com/cyder-hub/cyder-gateway/relay/ir"
)

// StreamState carries per-stream bookkeeping a Translator's chunk methods
// need across calls: the tool-call id remembered per index, which keeps a
// tool call's id stable across its later chunks. NameQueue and Started are
// carried but no translator reads or writes them.
type StreamState struct {
	// ToolCallIDByIndex remembers the id minted for a given tool-call index
	// the first time that index's name/id appears, so a dialect whose wire
	// format only carries args on later deltas (OpenAI-style streaming tool
	// calls) can still attribute them to the right ToolCall.
	ToolCallIDByIndex map[int32]string
	// NameQueue is a per-stream FIFO of tool-call names; no translator uses
	// it (Gemini's DecodeRequest keeps its own name->id queue locally).
	NameQueue []string
	// Started marks whether a stream's opening chunk has been emitted; no
	// translator uses it.
	Started bool
}

// NewStreamState builds an empty StreamState for one relay stream.
func NewStreamState() *StreamState {
	return &StreamState{ToolCallIDByIndex: make(map[int32]string)}
}

// Translator is the four-operation contract a dialect must satisfy:
// request and response both directions, plus streaming chunk translation.
// A per-request dynamic dispatch across dialects is deliberately avoided;
// callers resolve once to a concrete Translator via Registry and then use
// it for a whole request's lifetime.
type Translator interface {
	// Name identifies the dialect, e.g. "openai", "anthropic", "gemini", "ollama".
	Name() string

	// DecodeRequest parses a client request body in this dialect into ir.Request.
	DecodeRequest(body []byte) (*ir.Request, error)
	// EncodeRequest renders an ir.Request as this dialect's upstream request body.
	EncodeRequest(req *ir.Request) ([]byte, error)

	// DecodeResponse parses an upstream non-streaming response body into ir.Response.
	DecodeResponse(body []byte) (*ir.Response, error)
	// EncodeResponse renders an ir.Response as this dialect's client response body.
	EncodeResponse(resp *ir.Response) ([]byte, error)

	// DecodeChunk parses one upstream SSE event payload (sans "data: " prefix) into ir.Chunk.
	// ok=false means the event carried no translatable content (e.g. a comment/keepalive).
	DecodeChunk(raw []byte, state *StreamState) (chunk *ir.Chunk, ok bool, err error)
	// EncodeChunk renders an ir.Chunk as this dialect's client-facing SSE event payload.
	EncodeChunk(chunk *ir.Chunk, state *StreamState) ([]byte, error)

	// TerminalSentinel is the exact bytes this dialect's wire format uses to
	// end a stream (e.g. OpenAI's "[DONE]"; Anthropic/Gemini/Ollama have none).
	TerminalSentinel() []byte
}

// Registry resolves a dialect name to its Translator.
type Registry struct {
	byName map[string]Translator
}

// NewRegistry builds a Registry over every built-in Translator.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Translator)}
	r.Register(NewOpenAI())
	r.Register(NewAnthropic())
	r.Register(NewGemini())
	r.Register(NewOllama())
	return r
}

// Register adds (or replaces) a Translator under its own Name().
func (r *Registry) Register(t Translator) {
	r.byName[t.Name()] = t
}

// Get resolves name to its Translator.
func (r *Registry) Get(name string) (Translator, bool) {
	t, ok := r.byName[name]
	return t, ok
}
