package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"sync"

	"github.com/ingenious-ai/ingenious/engine/tokens"
	"github.com/ingenious-ai/ingenious/pkg/logger"
)

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// Processor turns documents into deterministic chunks according to a
// validated configuration.
type Processor struct {
	cfg      *Config
	opts     Options
	ids      *IDGenerator
	counter  *tokens.TiktokenCounter
	split    func(ctx context.Context, text string) ([]string, error)
	warnOnce sync.Once
}

// NewProcessor wires the splitter, identifier generator, and token counter
// for cfg. The semantic strategy requires opts.Embedder.
func NewProcessor(cfg *Config, opts Options) (*Processor, error) {
	if cfg == nil {
		return nil, errors.New("chunk: config is required")
	}
	counter, err := tokens.NewTiktokenCounter(cfg.EncodingName())
	if err != nil {
		return nil, fmt.Errorf("chunk: resolve encoding %q: %w", cfg.EncodingName(), err)
	}
	p := &Processor{
		cfg:     cfg,
		opts:    opts,
		ids:     NewIDGenerator(cfg),
		counter: counter,
	}
	if cfg.Strategy() == StrategySemantic {
		if opts.Embedder == nil {
			return nil, errors.New("chunk: embedder is required for the semantic strategy")
		}
		semantic, err := NewSemanticSplitter(cfg, opts.Embedder, counter)
		if err != nil {
			return nil, err
		}
		p.split = semantic.Split
		return p, nil
	}
	splitter, err := NewSplitter(cfg, counter)
	if err != nil {
		return nil, err
	}
	p.split = func(_ context.Context, text string) ([]string, error) {
		return splitter.SplitText(text)
	}
	return p, nil
}

// Config returns the validated configuration the processor runs with.
func (p *Processor) Config() *Config {
	return p.cfg
}

// Process splits documents into chunks with stable identifiers, content
// hashes, and token counts. Advisory warnings recorded at configuration
// time are logged on the first call only.
func (p *Processor) Process(ctx context.Context, docs []Document) ([]Chunk, error) {
	p.warnOnce.Do(func() {
		log := logger.FromContext(ctx)
		for _, warning := range p.cfg.Warnings() {
			log.Warn(warning)
		}
	})
	if len(docs) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{})
	chunks := make([]Chunk, 0, len(docs))
	for di := range docs {
		doc := docs[di]
		text := p.preprocess(doc.Text)
		if text == "" {
			continue
		}
		source := doc.Source
		if source == "" {
			source = doc.ID
		}
		segments, err := p.split(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("chunk: split document %s: %w", source, err)
		}
		key := p.ids.DocumentKey(source)
		for idx, segment := range segments {
			chunkText := strings.TrimSpace(segment)
			if chunkText == "" {
				continue
			}
			hash := hashText(chunkText)
			if p.opts.Deduplicate {
				if _, exists := seen[hash]; exists {
					continue
				}
				seen[hash] = struct{}{}
			}
			count, err := p.counter.CountTokens(ctx, chunkText)
			if err != nil {
				return nil, fmt.Errorf("chunk: count tokens for %s: %w", source, err)
			}
			metadata := maps.Clone(doc.Metadata)
			if metadata == nil {
				metadata = make(map[string]any, 3)
			}
			metadata["chunk_index"] = idx
			metadata["source"] = source
			if doc.ID != "" {
				metadata["source_id"] = doc.ID
			}
			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("%s#%d", key, idx),
				Text:       chunkText,
				Hash:       hash,
				TokenCount: count,
				Metadata:   metadata,
			})
		}
	}
	return chunks, nil
}

func (p *Processor) preprocess(text string) string {
	normalized := text
	if p.opts.NormalizeNewlines {
		normalized = newlinePattern.ReplaceAllString(normalized, "\n")
	}
	return strings.TrimSpace(normalized)
}

func hashText(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
