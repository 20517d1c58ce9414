package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider_Load(t *testing.T) {
	t.Run("Should return empty map as loading is handled by koanf", func(t *testing.T) {
		// Arrange
		provider := NewEnvProvider()

		// Act
		data, err := provider.Load()

		// Assert
		require.NoError(t, err)
		require.NotNil(t, data)
		assert.Empty(t, data)
	})
}

func TestEnvProvider_Type(t *testing.T) {
	t.Run("Should return SourceEnv", func(t *testing.T) {
		provider := NewEnvProvider()
		assert.Equal(t, SourceEnv, provider.Type())
	})
}

func TestCLIProvider_Load(t *testing.T) {
	t.Run("Should map CLI flags to configuration structure", func(t *testing.T) {
		// Arrange
		flags := map[string]any{
			"strategy":      "markdown",
			"chunk-size":    512,
			"chunk-overlap": 64,
			"id-path-mode":  "hash",
			"id-hash-bits":  96,
			"embed-model":   "text-embedding-3-large",
			"output-dir":    "/tmp/chunks",
		}
		provider := NewCLIProvider(flags)

		// Act
		data, err := provider.Load()

		// Assert
		require.NoError(t, err)
		require.NotNil(t, data)

		chunk, ok := data["chunk"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "markdown", chunk["strategy"])
		assert.Equal(t, 512, chunk["size"])
		assert.Equal(t, 64, chunk["overlap"])
		assert.Equal(t, "hash", chunk["id_path_mode"])
		assert.Equal(t, 96, chunk["id_hash_bits"])

		openai, ok := data["openai"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "text-embedding-3-large", openai["embed_model"])

		output, ok := data["output"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/tmp/chunks", output["dir"])
	})

	t.Run("Should ignore flags without a configuration mapping", func(t *testing.T) {
		// Arrange
		provider := NewCLIProvider(map[string]any{
			"strategy":     "token",
			"unknown-flag": "value",
		})

		// Act
		data, err := provider.Load()

		// Assert
		require.NoError(t, err)
		chunk, ok := data["chunk"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "token", chunk["strategy"])
		assert.NotContains(t, data, "unknown-flag")
	})

	t.Run("Should handle nil flags gracefully", func(t *testing.T) {
		// Arrange
		provider := NewCLIProvider(nil)

		// Act
		data, err := provider.Load()

		// Assert
		require.NoError(t, err)
		require.NotNil(t, data)
		assert.Empty(t, data)
	})
}

func TestYAMLProvider_Load(t *testing.T) {
	t.Run("Should load configuration from YAML file", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		path := filepath.Join(dir, "ingen.yaml")
		content := []byte("chunk:\n  strategy: semantic\n  size: 768\n  overlap_unit: tokens\n")
		require.NoError(t, os.WriteFile(path, content, 0o644))

		provider := NewYAMLProvider(path)

		// Act
		data, err := provider.Load()

		// Assert
		require.NoError(t, err)
		chunk, ok := data["chunk"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "semantic", chunk["strategy"])
		// The YAML parser decodes integers as uint64, so compare by value.
		assert.EqualValues(t, 768, chunk["size"])
		assert.Equal(t, "tokens", chunk["overlap_unit"])
	})

	t.Run("Should return empty map for missing file", func(t *testing.T) {
		// Arrange
		provider := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml"))

		// Act
		data, err := provider.Load()

		// Assert
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Should filter nil values from YAML", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		path := filepath.Join(dir, "ingen.yaml")
		content := []byte("chunk:\n  strategy: recursive\n  id_base:\noutput:\n")
		require.NoError(t, os.WriteFile(path, content, 0o644))

		provider := NewYAMLProvider(path)

		// Act
		data, err := provider.Load()

		// Assert
		require.NoError(t, err)
		chunk, ok := data["chunk"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "recursive", chunk["strategy"])
		assert.NotContains(t, chunk, "id_base")
		assert.NotContains(t, data, "output")
	})

	t.Run("Should report invalid YAML", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		path := filepath.Join(dir, "ingen.yaml")
		require.NoError(t, os.WriteFile(path, []byte("chunk: [unclosed"), 0o644))

		provider := NewYAMLProvider(path)

		// Act
		_, err := provider.Load()

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML file")
	})
}

func TestSetNested(t *testing.T) {
	t.Run("Should report conflicts when a path crosses a scalar", func(t *testing.T) {
		m := map[string]any{"chunk": "scalar"}

		err := setNested(m, "chunk.size", 512)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration conflict")
	})

	t.Run("Should ignore empty paths", func(t *testing.T) {
		m := map[string]any{}

		require.NoError(t, setNested(m, "", "value"))
		assert.Empty(t, m)
	})
}
