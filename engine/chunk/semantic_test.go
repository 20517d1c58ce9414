package chunk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vectors  map[string][]float32
	err      error
	dropLast bool
	calls    int
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if vec, ok := s.vectors[text]; ok {
			out = append(out, vec)
			continue
		}
		out = append(out, []float32{1, 0})
	}
	if s.dropLast && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func newSemanticConfig(t *testing.T, percentile, overlap int) *Config {
	t.Helper()
	cfg, err := New(Params{
		Strategy:                    StrategySemantic,
		ChunkOverlap:                intPtr(overlap),
		SemanticThresholdPercentile: intPtr(percentile),
		EmbedModel:                  "text-embedding-3-small",
	})
	require.NoError(t, err)
	return cfg
}

func TestSemanticSplitter_Grouping(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"Cats purr softly.":          {1, 0},
		"Dogs bark loudly.":          {0.9, 0.1},
		"Stocks fell sharply today.": {0, 1},
		"Markets closed early.":      {0.1, 0.9},
	}}
	text := "Cats purr softly. Dogs bark loudly. Stocks fell sharply today. Markets closed early."

	t.Run("Should break where adjacent similarity drops", func(t *testing.T) {
		splitter, err := NewSemanticSplitter(newSemanticConfig(t, 50, 0), embedder, newTestCounter(t, "cl100k_base"))
		require.NoError(t, err)
		chunks, err := splitter.Split(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Cats purr softly. Dogs bark loudly.",
			"Stocks fell sharply today. Markets closed early.",
		}, chunks)
	})
	t.Run("Should keep everything together at the top percentile", func(t *testing.T) {
		splitter, err := NewSemanticSplitter(newSemanticConfig(t, 100, 0), embedder, newTestCounter(t, "cl100k_base"))
		require.NoError(t, err)
		chunks, err := splitter.Split(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, []string{text}, chunks)
	})
}

func TestSemanticSplitter_OverlapSeeding(t *testing.T) {
	t.Run("Should seed each group with the previous group's tail tokens", func(t *testing.T) {
		embedder := &stubEmbedder{vectors: map[string][]float32{
			"Cats purr softly.":          {1, 0},
			"Dogs bark loudly.":          {0.9, 0.1},
			"Stocks fell sharply today.": {0, 1},
			"Markets closed early.":      {0.1, 0.9},
		}}
		splitter, err := NewSemanticSplitter(newSemanticConfig(t, 50, 4), embedder, newTestCounter(t, "cl100k_base"))
		require.NoError(t, err)
		chunks, err := splitter.Split(context.Background(), "Cats purr softly. Dogs bark loudly. Stocks fell sharply today. Markets closed early.")
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Cats purr softly. Dogs bark loudly.", chunks[0])
		assert.True(t, strings.HasSuffix(chunks[1], "Stocks fell sharply today. Markets closed early."))
		assert.Contains(t, chunks[1], "loudly.")
		assert.Greater(t, len(chunks[1]), len("Stocks fell sharply today. Markets closed early."))
	})
}

func TestSemanticSplitter_SizeBound(t *testing.T) {
	t.Run("Should re-split groups that exceed the token size", func(t *testing.T) {
		cfg, err := New(Params{
			Strategy:                    StrategySemantic,
			ChunkSize:                   intPtr(10),
			ChunkOverlap:                intPtr(0),
			SemanticThresholdPercentile: intPtr(95),
			EmbedModel:                  "text-embedding-3-small",
		})
		require.NoError(t, err)
		counter := newTestCounter(t, "cl100k_base")
		splitter, err := NewSemanticSplitter(cfg, &stubEmbedder{}, counter)
		require.NoError(t, err)
		text := strings.TrimSpace(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 8))
		chunks, err := splitter.Split(context.Background(), text)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)
		for _, chunk := range chunks {
			count, err := counter.CountTokens(context.Background(), chunk)
			require.NoError(t, err)
			assert.LessOrEqual(t, count, 10)
		}
	})
}

func TestSemanticSplitter_Edges(t *testing.T) {
	t.Run("Should return a lone sentence without embedding", func(t *testing.T) {
		embedder := &stubEmbedder{}
		splitter, err := NewSemanticSplitter(newSemanticConfig(t, 95, 0), embedder, newTestCounter(t, "cl100k_base"))
		require.NoError(t, err)
		chunks, err := splitter.Split(context.Background(), "Just one sentence.")
		require.NoError(t, err)
		assert.Equal(t, []string{"Just one sentence."}, chunks)
		assert.Zero(t, embedder.calls)
	})
	t.Run("Should return nothing for blank input", func(t *testing.T) {
		splitter, err := NewSemanticSplitter(newSemanticConfig(t, 95, 0), &stubEmbedder{}, newTestCounter(t, "cl100k_base"))
		require.NoError(t, err)
		chunks, err := splitter.Split(context.Background(), "   \n\t ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
	t.Run("Should propagate embedder failures", func(t *testing.T) {
		embedder := &stubEmbedder{err: errors.New("backend down")}
		splitter, err := NewSemanticSplitter(newSemanticConfig(t, 95, 0), embedder, newTestCounter(t, "cl100k_base"))
		require.NoError(t, err)
		_, err = splitter.Split(context.Background(), "One sentence. Another sentence.")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embed sentences")
	})
	t.Run("Should reject a vector count mismatch", func(t *testing.T) {
		embedder := &stubEmbedder{dropLast: true}
		splitter, err := NewSemanticSplitter(newSemanticConfig(t, 95, 0), embedder, newTestCounter(t, "cl100k_base"))
		require.NoError(t, err)
		_, err = splitter.Split(context.Background(), "One sentence. Another sentence.")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vectors for")
	})
}

func TestNewSemanticSplitter_Validation(t *testing.T) {
	t.Run("Should reject a non-semantic config", func(t *testing.T) {
		cfg, err := New(Params{Strategy: StrategyRecursive})
		require.NoError(t, err)
		_, err = NewSemanticSplitter(cfg, &stubEmbedder{}, newTestCounter(t, "cl100k_base"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not semantic")
	})
	t.Run("Should require an embedder", func(t *testing.T) {
		_, err := NewSemanticSplitter(newSemanticConfig(t, 95, 0), nil, newTestCounter(t, "cl100k_base"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedder is required")
	})
	t.Run("Should require a token counter", func(t *testing.T) {
		_, err := NewSemanticSplitter(newSemanticConfig(t, 95, 0), &stubEmbedder{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token counter is required")
	})
}

func TestSplitSentences(t *testing.T) {
	t.Run("Should cut after terminal punctuation", func(t *testing.T) {
		assert.Equal(t,
			[]string{"First sentence.", "Second one!", "Third?"},
			splitSentences("First sentence. Second one! Third?"))
	})
	t.Run("Should keep closing quotes with their sentence", func(t *testing.T) {
		assert.Equal(t,
			[]string{`He said "stop."`, "Then he left."},
			splitSentences(`He said "stop." Then he left.`))
	})
	t.Run("Should keep unterminated trailing text", func(t *testing.T) {
		assert.Equal(t,
			[]string{"Complete sentence.", "trailing fragment"},
			splitSentences("Complete sentence. trailing fragment"))
	})
	t.Run("Should not cut decimal points or inline dots", func(t *testing.T) {
		assert.Equal(t,
			[]string{"Version 1.2 shipped today."},
			splitSentences("Version 1.2 shipped today."))
	})
	t.Run("Should return nothing for blank input", func(t *testing.T) {
		assert.Empty(t, splitSentences("  \n "))
	})
}
