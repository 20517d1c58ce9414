package chunk

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ingenious-ai/ingenious/engine/tokens"
	"github.com/tmc/langchaingo/textsplitter"
)

// NewSplitter builds the text splitter for cfg's strategy. The counter
// supplies token-based length measurement and the resolved tiktoken
// encoding; it is required for every windowed strategy because the default
// overlap unit is tokens. Semantic splitting needs an embedding client and
// is constructed separately via NewSemanticSplitter.
func NewSplitter(cfg *Config, counter *tokens.TiktokenCounter) (textsplitter.TextSplitter, error) {
	if cfg == nil {
		return nil, errors.New("chunk: config is required")
	}
	if counter == nil {
		return nil, errors.New("chunk: token counter is required")
	}
	switch cfg.Strategy() {
	case StrategyRecursive:
		opts := []textsplitter.Option{
			textsplitter.WithChunkSize(cfg.ChunkSize()),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap()),
			textsplitter.WithLenFunc(lenFuncFor(cfg, counter)),
		}
		// An explicitly empty separators list disables the custom hierarchy
		// and keeps the splitter defaults.
		if separators := cfg.Separators(); len(separators) > 0 {
			opts = append(opts, textsplitter.WithSeparators(separators))
		}
		return textsplitter.NewRecursiveCharacter(opts...), nil
	case StrategyMarkdown:
		return textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(cfg.ChunkSize()),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap()),
			textsplitter.WithLenFunc(lenFuncFor(cfg, counter)),
		), nil
	case StrategyToken:
		// The token splitter windows over encoded tokens directly, so size
		// and overlap are token counts regardless of the overlap unit.
		return textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(cfg.ChunkSize()),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap()),
			textsplitter.WithEncodingName(counter.GetEncoding()),
		), nil
	case StrategySemantic:
		return nil, errors.New("chunk: semantic strategy requires an embedding client; use NewSemanticSplitter")
	default:
		return nil, fmt.Errorf("chunk: no splitter for strategy %q", cfg.Strategy())
	}
}

func lenFuncFor(cfg *Config, counter *tokens.TiktokenCounter) func(string) int {
	if cfg.OverlapUnit() == UnitCharacters {
		return utf8.RuneCountInString
	}
	return counter.LenFunc()
}
