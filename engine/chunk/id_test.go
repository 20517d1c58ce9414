package chunk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_Abs(t *testing.T) {
	t.Run("Should use the cleaned absolute path as the key", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathAbs})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Equal(t, "/data/docs/a.md", gen.DocumentKey("/data//docs/../docs/a.md"))
	})
	t.Run("Should resolve relative sources against the working directory", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathAbs})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		expected, err := filepath.Abs("docs/a.md")
		require.NoError(t, err)
		assert.Equal(t, filepath.ToSlash(expected), gen.DocumentKey("docs/a.md"))
	})
}

func TestIDGenerator_Rel(t *testing.T) {
	t.Run("Should relativize against the configured base", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathRel, IDBase: "/data"})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Equal(t, "docs/a.md", gen.DocumentKey("/data/docs/a.md"))
	})
	t.Run("Should step outside the base with parent segments", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathRel, IDBase: "/data/docs"})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Equal(t, "../other/b.md", gen.DocumentKey("/data/other/b.md"))
	})
	t.Run("Should relativize against the working directory by default", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathRel})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Equal(t, "docs/a.md", gen.DocumentKey("docs/a.md"))
	})
}

func TestIDGenerator_Hash(t *testing.T) {
	t.Run("Should truncate the digest to the configured width", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathHash, IDHashBits: intPtr(64)})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		key := gen.DocumentKey("/data/docs/a.md")
		assert.Len(t, key, 16)
		assert.Regexp(t, "^[0-9a-f]+$", key)
	})
	t.Run("Should honor narrower widths", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathHash, IDHashBits: intPtr(32)})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Len(t, gen.DocumentKey("/data/docs/a.md"), 8)
	})
	t.Run("Should be deterministic per source and distinct across sources", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathHash})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		first := gen.DocumentKey("/data/docs/a.md")
		assert.Equal(t, first, gen.DocumentKey("/data/docs/a.md"))
		assert.NotEqual(t, first, gen.DocumentKey("/data/docs/b.md"))
	})
	t.Run("Should hash equivalent spellings of the same path identically", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathHash})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Equal(t, gen.DocumentKey("/data/docs/a.md"), gen.DocumentKey("/data//docs/../docs/a.md"))
	})
}

func TestIDGenerator_NonPathSources(t *testing.T) {
	t.Run("Should keep URLs verbatim under abs and rel modes", func(t *testing.T) {
		for _, mode := range []IDPathMode{IDPathAbs, IDPathRel} {
			cfg, err := New(Params{IDPathMode: mode, IDBase: ""})
			require.NoError(t, err)
			gen := NewIDGenerator(cfg)
			assert.Equal(t, "https://example.com/doc.md", gen.DocumentKey("https://example.com/doc.md"), "mode %q", mode)
		}
	})
	t.Run("Should keep the stdin marker verbatim", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathAbs})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Equal(t, "-", gen.DocumentKey("-"))
	})
	t.Run("Should hash non-path sources under hash mode", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathHash})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		key := gen.DocumentKey("https://example.com/doc.md")
		assert.Len(t, key, 16)
		assert.NotContains(t, key, "://")
	})
}

func TestIDGenerator_ChunkID(t *testing.T) {
	t.Run("Should join the document key and index with a hash mark", func(t *testing.T) {
		cfg, err := New(Params{IDPathMode: IDPathRel, IDBase: "/data"})
		require.NoError(t, err)
		gen := NewIDGenerator(cfg)
		assert.Equal(t, "docs/a.md#0", gen.ChunkID("/data/docs/a.md", 0))
		assert.Equal(t, "docs/a.md#12", gen.ChunkID("/data/docs/a.md", 12))
	})
}
