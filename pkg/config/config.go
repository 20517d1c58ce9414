package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the ingen toolchain.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Runtime     RuntimeConfig     `koanf:"runtime"      validate:"required"`
	Chunk       ChunkConfig       `koanf:"chunk"`
	OpenAI      OpenAIConfig      `koanf:"openai"`
	AzureOpenAI AzureOpenAIConfig `koanf:"azure_openai"`
	Output      OutputConfig      `koanf:"output"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment    string        `koanf:"environment"      validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel       string        `koanf:"log_level"        validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON        bool          `koanf:"log_json"                                                         env:"RUNTIME_LOG_JSON"`
	EmbedTimeout   time.Duration `koanf:"embed_timeout"                                                    env:"RUNTIME_EMBED_TIMEOUT"`
	EmbedBatchSize int           `koanf:"embed_batch_size" validate:"min=1"                                env:"RUNTIME_EMBED_BATCH_SIZE"`
}

// ChunkConfig carries the chunking settings handed to the engine. Values
// here are file and environment overrides; the engine applies its own
// defaulting and validation rules when the settings are materialized.
type ChunkConfig struct {
	Strategy                    string   `koanf:"strategy"                      env:"CHUNK_STRATEGY"`
	Size                        int      `koanf:"size"                          env:"CHUNK_SIZE"`
	Overlap                     int      `koanf:"overlap"                       env:"CHUNK_OVERLAP"`
	OverlapUnit                 string   `koanf:"overlap_unit"                  env:"CHUNK_OVERLAP_UNIT"`
	EncodingName                string   `koanf:"encoding_name"                 env:"CHUNK_ENCODING_NAME"`
	IDPathMode                  string   `koanf:"id_path_mode"                  env:"CHUNK_ID_PATH_MODE"`
	IDBase                      string   `koanf:"id_base"                       env:"CHUNK_ID_BASE"`
	IDHashBits                  int      `koanf:"id_hash_bits"                  env:"CHUNK_ID_HASH_BITS"`
	SemanticThresholdPercentile int      `koanf:"semantic_threshold_percentile" env:"CHUNK_SEMANTIC_THRESHOLD_PERCENTILE"`
	Separators                  []string `koanf:"separators"                    env:"CHUNK_SEPARATORS"`
}

// OpenAIConfig contains OpenAI API configuration.
type OpenAIConfig struct {
	APIKey     SensitiveString `koanf:"api_key"     env:"OPENAI_API_KEY"     sensitive:"true"`
	BaseURL    string          `koanf:"base_url"    env:"OPENAI_BASE_URL"`
	EmbedModel string          `koanf:"embed_model" env:"OPENAI_EMBED_MODEL"`
}

// AzureOpenAIConfig contains Azure OpenAI service configuration.
type AzureOpenAIConfig struct {
	APIKey     SensitiveString `koanf:"api_key"     env:"AZURE_OPENAI_API_KEY"     sensitive:"true"`
	Endpoint   string          `koanf:"endpoint"    env:"AZURE_OPENAI_ENDPOINT"`
	Deployment string          `koanf:"deployment"  env:"AZURE_OPENAI_DEPLOYMENT"`
	APIVersion string          `koanf:"api_version" env:"AZURE_OPENAI_API_VERSION"`
}

// OutputConfig contains chunk output configuration.
type OutputConfig struct {
	Dir    string `koanf:"dir"    validate:"required"           env:"OUTPUT_DIR"`
	Format string `koanf:"format" validate:"oneof=jsonl json"   env:"OUTPUT_FORMAT"`
}

// Service defines the configuration management service interface.
// It provides methods for loading and validating configuration.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type for a specific configuration key.
	// This tracks which source (env, CLI, YAML, default) provided each value,
	// enabling debugging and precedence verification.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns a Config with default values for development.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			Environment:    "development",
			LogLevel:       "info",
			LogJSON:        false,
			EmbedTimeout:   2 * time.Minute,
			EmbedBatchSize: 16,
		},
		Chunk: ChunkConfig{
			Strategy:                    "recursive",
			Size:                        1024,
			Overlap:                     128,
			OverlapUnit:                 "tokens",
			EncodingName:                "cl100k_base",
			IDPathMode:                  "rel",
			IDHashBits:                  64,
			SemanticThresholdPercentile: 95,
		},
		AzureOpenAI: AzureOpenAIConfig{
			APIVersion: "2024-02-01",
		},
		Output: OutputConfig{
			Dir:    "./chunks",
			Format: "jsonl",
		},
	}
}
