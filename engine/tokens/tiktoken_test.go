package tokens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTiktokenCounter(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create counter with default encoding for empty input", func(t *testing.T) {
		counter, err := NewTiktokenCounter("")
		require.NoError(t, err)
		assert.NotNil(t, counter)
		assert.Equal(t, defaultEncoding, counter.GetEncoding())
		count, err := counter.CountTokens(ctx, "hello world")
		assert.NoError(t, err)
		assert.Equal(t, 2, count) // "hello world" is 2 tokens in cl100k_base
	})

	t.Run("Should create counter with specified valid encoding", func(t *testing.T) {
		counter, err := NewTiktokenCounter("p50k_base")
		require.NoError(t, err)
		assert.Equal(t, "p50k_base", counter.GetEncoding())
		count, err := counter.CountTokens(ctx, "hello world")
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Should create counter for a specific model name", func(t *testing.T) {
		counter, err := NewTiktokenCounter("gpt-4")
		require.NoError(t, err)
		assert.Equal(t, "cl100k_base", counter.GetEncoding())
	})

	t.Run("Should resolve embedding models to cl100k_base", func(t *testing.T) {
		counter, err := NewTiktokenCounter("text-embedding-3-small")
		require.NoError(t, err)
		assert.Equal(t, "cl100k_base", counter.GetEncoding())
	})

	t.Run("Should fallback to default encoding for unknown model/encoding", func(t *testing.T) {
		counter, err := NewTiktokenCounter("unknown-model-or-encoding-123")
		require.NoError(t, err) // NewTiktokenCounter is designed to fallback, not error
		assert.Equal(t, defaultEncoding, counter.GetEncoding())
		count, err := counter.CountTokens(ctx, "test string")
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestTiktokenCounter_EncodeDecode(t *testing.T) {
	ctx := context.Background()

	t.Run("Should round-trip text through encode and decode", func(t *testing.T) {
		counter, err := NewTiktokenCounter("cl100k_base")
		require.NoError(t, err)

		text := "The quick brown fox jumps over the lazy dog."
		ids, err := counter.EncodeTokens(ctx, text)
		require.NoError(t, err)
		require.NotEmpty(t, ids)

		decoded, err := counter.DecodeTokens(ctx, ids)
		require.NoError(t, err)
		assert.Equal(t, text, decoded)
	})

	t.Run("Should encode empty text to no tokens", func(t *testing.T) {
		counter, err := DefaultTokenCounter()
		require.NoError(t, err)

		ids, err := counter.EncodeTokens(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestTiktokenCounter_LenFunc(t *testing.T) {
	t.Run("Should agree with CountTokens", func(t *testing.T) {
		counter, err := DefaultTokenCounter()
		require.NoError(t, err)

		lenFn := counter.LenFunc()
		count, err := counter.CountTokens(context.Background(), "hello world")
		require.NoError(t, err)
		assert.Equal(t, count, lenFn("hello world"))
	})
}
