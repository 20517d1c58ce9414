package tokens

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Default encoding if a model-specific one fails.
const defaultEncoding = "cl100k_base"

// TiktokenCounter counts, encodes, and decodes tokens using the
// tiktoken-go library.
type TiktokenCounter struct {
	encodingName string
	tke          *tiktoken.Tiktoken
	mu           sync.RWMutex // Protects tke if re-initialization is ever needed
}

// NewTiktokenCounter creates a new counter for the given model or encoding.
// If modelOrEncoding is a known model name, it tries to get the encoding for
// that model. Otherwise, it treats modelOrEncoding as an encoding name.
// Falls back to defaultEncoding if the specified one is not found.
func NewTiktokenCounter(modelOrEncoding string) (*TiktokenCounter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}

	var encodingName string
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		// Try as a model name
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			tke, err = tiktoken.GetEncoding(defaultEncoding)
			if err != nil {
				return nil, fmt.Errorf("failed to get default encoding '%s': %w", defaultEncoding, err)
			}
			encodingName = defaultEncoding
		} else {
			// tiktoken-go doesn't expose the resolved encoding name, so
			// recover it from the known model mapping.
			encodingName = getEncodingNameForModel(modelOrEncoding)
		}
	} else {
		encodingName = modelOrEncoding
	}

	return &TiktokenCounter{
		encodingName: encodingName,
		tke:          tke,
	}, nil
}

// CountTokens counts the number of tokens in the given text using the configured encoding.
func (tc *TiktokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.tke == nil {
		return 0, fmt.Errorf("tiktoken encoder is not initialized for encoding %s", tc.encodingName)
	}

	tokens := tc.tke.Encode(text, nil, nil)
	return len(tokens), nil
}

// GetEncoding returns the name of the encoding being used by this counter.
func (tc *TiktokenCounter) GetEncoding() string {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.encodingName
}

// EncodeTokens encodes text into tokens and returns the token IDs.
func (tc *TiktokenCounter) EncodeTokens(_ context.Context, text string) ([]int, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.tke == nil {
		return nil, fmt.Errorf("tiktoken encoder is not initialized for encoding %s", tc.encodingName)
	}

	tokens := tc.tke.Encode(text, nil, nil)
	return tokens, nil
}

// DecodeTokens decodes token IDs back into text.
func (tc *TiktokenCounter) DecodeTokens(_ context.Context, tokens []int) (string, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.tke == nil {
		return "", fmt.Errorf("tiktoken encoder is not initialized for encoding %s", tc.encodingName)
	}

	text := tc.tke.Decode(tokens)
	return text, nil
}

// LenFunc returns a length function suitable for text splitters that
// measure chunk size in tokens.
func (tc *TiktokenCounter) LenFunc() func(string) int {
	return func(text string) int {
		tc.mu.RLock()
		defer tc.mu.RUnlock()
		if tc.tke == nil {
			return len(text)
		}
		return len(tc.tke.Encode(text, nil, nil))
	}
}

// modelToEncodingMap maps common model names to their encoding names
var modelToEncodingMap = map[string]string{
	// GPT-4o and o-series
	"gpt-4o":      "o200k_base",
	"gpt-4o-mini": "o200k_base",
	"o1":          "o200k_base",
	"o1-mini":     "o200k_base",

	// GPT-4 and variants
	"gpt-4":               "cl100k_base",
	"gpt-4-0613":          "cl100k_base",
	"gpt-4-32k":           "cl100k_base",
	"gpt-4-turbo":         "cl100k_base",
	"gpt-4-turbo-preview": "cl100k_base",

	// GPT-3.5-turbo
	"gpt-3.5-turbo":      "cl100k_base",
	"gpt-3.5-turbo-16k":  "cl100k_base",
	"gpt-3.5-turbo-0613": "cl100k_base",

	// Embedding models
	"text-embedding-ada-002": "cl100k_base",
	"text-embedding-3-small": "cl100k_base",
	"text-embedding-3-large": "cl100k_base",

	// Older completion models
	"text-davinci-003": "p50k_base",
	"text-davinci-002": "p50k_base",
	"davinci":          "p50k_base",
	"curie":            "p50k_base",
	"babbage":          "p50k_base",
	"ada":              "p50k_base",

	// Code models
	"code-davinci-002": "p50k_base",
	"code-cushman-001": "p50k_base",
}

// getEncodingNameForModel returns the encoding name for a given model.
// Unknown models fall back to the most common modern encoding.
func getEncodingNameForModel(model string) string {
	if encoding, ok := modelToEncodingMap[model]; ok {
		return encoding
	}
	return defaultEncoding
}

// DefaultTokenCounter creates a counter on the default encoding, useful
// for tests or fallbacks.
func DefaultTokenCounter() (*TiktokenCounter, error) {
	return NewTiktokenCounter(defaultEncoding)
}
