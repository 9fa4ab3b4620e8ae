package billing

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encMu    sync.Mutex
	encoders = map[string]*tiktoken.Tiktoken{}
)

// EstimateTokens approximates the token count of text for modelName, used as
// a billing fallback when a provider's response carries no usage block at
// all (e.g. an Ollama reply with done=false, or a truncated error body).
// Unknown models fall back to cl100k_base, the encoding shared by the
// GPT-3.5/GPT-4 family, the way the teacher's getTokenEncoder falls back to
// its defaultTokenEncoder for a model it has no mapping for.
func EstimateTokens(modelName, text string) int32 {
	enc := encoderFor(modelName)
	if enc == nil {
		return int32(len(text) / 4)
	}
	return int32(len(enc.Encode(text, nil, nil)))
}

func encoderFor(modelName string) *tiktoken.Tiktoken {
	encMu.Lock()
	defer encMu.Unlock()

	if enc, ok := encoders[modelName]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			encoders[modelName] = nil
			return nil
		}
	}
	encoders[modelName] = enc
	return enc
}
