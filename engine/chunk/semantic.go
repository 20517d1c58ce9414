package chunk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ingenious-ai/ingenious/engine/tokens"
	"github.com/tmc/langchaingo/textsplitter"
)

// Embedder is the embedding surface semantic splitting needs. The
// langchaingo embeddings.Embedder satisfies it; batching and transport
// concerns stay behind the implementation.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// SemanticSplitter breaks text where the embedding similarity of adjacent
// sentences drops below the configured percentile of observed distances.
// Groups that exceed the chunk size in tokens are re-split on token
// boundaries, and the tail of each group seeds the next one when an
// overlap is configured.
type SemanticSplitter struct {
	cfg      *Config
	embedder Embedder
	counter  *tokens.TiktokenCounter
}

// NewSemanticSplitter builds a splitter for a semantic config.
func NewSemanticSplitter(cfg *Config, embedder Embedder, counter *tokens.TiktokenCounter) (*SemanticSplitter, error) {
	if cfg == nil {
		return nil, errors.New("chunk: config is required")
	}
	if cfg.Strategy() != StrategySemantic {
		return nil, fmt.Errorf("chunk: strategy %q is not semantic", cfg.Strategy())
	}
	if embedder == nil {
		return nil, errors.New("chunk: embedder is required")
	}
	if counter == nil {
		return nil, errors.New("chunk: token counter is required")
	}
	return &SemanticSplitter{cfg: cfg, embedder: embedder, counter: counter}, nil
}

// Split produces the semantic chunks of text.
func (s *SemanticSplitter) Split(ctx context.Context, text string) ([]string, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	groups, err := s.groupSentences(ctx, sentences)
	if err != nil {
		return nil, err
	}
	if overlap := s.cfg.ChunkOverlap(); overlap > 0 && len(groups) > 1 {
		groups, err = s.seedOverlap(ctx, groups, overlap)
		if err != nil {
			return nil, err
		}
	}
	return s.boundGroups(groups)
}

// SplitText satisfies the textsplitter.TextSplitter interface. Callers
// that carry a context should prefer Split.
func (s *SemanticSplitter) SplitText(text string) ([]string, error) {
	return s.Split(context.Background(), text)
}

func (s *SemanticSplitter) groupSentences(ctx context.Context, sentences []string) ([]string, error) {
	if len(sentences) == 1 {
		return sentences, nil
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("chunk: embed sentences: %w", err)
	}
	if len(vectors) != len(sentences) {
		return nil, fmt.Errorf("chunk: embedder returned %d vectors for %d sentences", len(vectors), len(sentences))
	}
	distances := make([]float64, len(sentences)-1)
	for i := range distances {
		distances[i] = cosineDistance(vectors[i], vectors[i+1])
	}
	threshold := percentile(distances, float64(s.cfg.SemanticThresholdPercentile()))
	groups := make([]string, 0, len(sentences))
	current := []string{sentences[0]}
	for i, distance := range distances {
		if distance > threshold {
			groups = append(groups, strings.Join(current, " "))
			current = current[:0]
		}
		current = append(current, sentences[i+1])
	}
	groups = append(groups, strings.Join(current, " "))
	return groups, nil
}

// seedOverlap prepends the last overlap tokens of each group to the group
// that follows it. Tails come from the original groups, so a group never
// inherits text it already contributed downstream.
func (s *SemanticSplitter) seedOverlap(ctx context.Context, groups []string, overlap int) ([]string, error) {
	seeded := make([]string, len(groups))
	seeded[0] = groups[0]
	for i := 1; i < len(groups); i++ {
		tail, err := s.tailTokens(ctx, groups[i-1], overlap)
		if err != nil {
			return nil, err
		}
		if tail == "" {
			seeded[i] = groups[i]
			continue
		}
		seeded[i] = tail + " " + groups[i]
	}
	return seeded, nil
}

func (s *SemanticSplitter) tailTokens(ctx context.Context, text string, n int) (string, error) {
	encoded, err := s.counter.EncodeTokens(ctx, text)
	if err != nil {
		return "", fmt.Errorf("chunk: encode overlap tail: %w", err)
	}
	if len(encoded) <= n {
		return strings.TrimSpace(text), nil
	}
	tail, err := s.counter.DecodeTokens(ctx, encoded[len(encoded)-n:])
	if err != nil {
		return "", fmt.Errorf("chunk: decode overlap tail: %w", err)
	}
	return strings.TrimSpace(tail), nil
}

// boundGroups re-splits any group whose token count exceeds the chunk
// size. The window overlap is clamped below the size here because a
// semantic overlap may legally reach it.
func (s *SemanticSplitter) boundGroups(groups []string) ([]string, error) {
	size := s.cfg.ChunkSize()
	resplitter := textsplitter.NewTokenSplitter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(windowOverlap(s.cfg.ChunkOverlap(), size)),
		textsplitter.WithEncodingName(s.counter.GetEncoding()),
	)
	ctx := context.Background()
	out := make([]string, 0, len(groups))
	for _, group := range groups {
		count, err := s.counter.CountTokens(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("chunk: count group tokens: %w", err)
		}
		if count <= size {
			out = append(out, group)
			continue
		}
		parts, err := resplitter.SplitText(group)
		if err != nil {
			return nil, fmt.Errorf("chunk: bound semantic group: %w", err)
		}
		out = append(out, parts...)
	}
	return out, nil
}

func windowOverlap(overlap, size int) int {
	if overlap < 0 {
		return 0
	}
	if overlap >= size {
		if size <= 4 {
			return 0
		}
		return size / 4
	}
	return overlap
}

func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// percentile interpolates linearly between the closest ranks of the
// distance distribution.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// splitSentences cuts text after terminal punctuation followed by
// whitespace. Trailing text without a terminator forms a final sentence.
func splitSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0)
	var current []rune
	for i := 0; i < len(runes); i++ {
		current = append(current, runes[i])
		if !sentenceEndsAt(runes, i) {
			continue
		}
		if sentence := strings.TrimSpace(string(current)); sentence != "" {
			sentences = append(sentences, sentence)
		}
		current = current[:0]
	}
	if sentence := strings.TrimSpace(string(current)); sentence != "" {
		sentences = append(sentences, sentence)
	}
	return sentences
}

func sentenceEndsAt(runes []rune, i int) bool {
	if !isTerminator(runes[i]) {
		if !isClosingMark(runes[i]) || i == 0 || !isTerminator(runes[i-1]) {
			return false
		}
	}
	next := i + 1
	return next >= len(runes) || unicode.IsSpace(runes[next])
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosingMark(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
