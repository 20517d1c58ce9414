package chunk

import (
	"fmt"
	"os"
)

// Strategy selects the splitting algorithm applied to source documents.
type Strategy string

const (
	// StrategyRecursive splits on a separator hierarchy, falling back to
	// finer separators until chunks fit the configured size.
	StrategyRecursive Strategy = "recursive"
	// StrategyMarkdown splits along markdown structure such as headings
	// and fenced blocks before applying size limits.
	StrategyMarkdown Strategy = "markdown"
	// StrategyToken splits on token boundaries using the configured
	// tiktoken encoding.
	StrategyToken Strategy = "token"
	// StrategySemantic groups sentences by embedding similarity and
	// breaks chunks where adjacent similarity drops.
	StrategySemantic Strategy = "semantic"
)

// IsValid reports whether s names a known splitting strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyRecursive, StrategyMarkdown, StrategyToken, StrategySemantic:
		return true
	}
	return false
}

// OverlapUnit selects how chunk_overlap is measured.
type OverlapUnit string

const (
	// UnitTokens measures overlap in tokens of the configured encoding.
	UnitTokens OverlapUnit = "tokens"
	// UnitCharacters measures overlap in runes of the source text.
	UnitCharacters OverlapUnit = "characters"
)

// IsValid reports whether u names a known overlap unit.
func (u OverlapUnit) IsValid() bool {
	return u == UnitTokens || u == UnitCharacters
}

// IDPathMode selects how a document's path is folded into its chunk IDs.
type IDPathMode string

const (
	// IDPathAbs uses the document's absolute path verbatim.
	IDPathAbs IDPathMode = "abs"
	// IDPathRel uses the document's path relative to the configured base
	// directory.
	IDPathRel IDPathMode = "rel"
	// IDPathHash replaces the path with a truncated digest of it.
	IDPathHash IDPathMode = "hash"
)

// IsValid reports whether m names a known ID path mode.
func (m IDPathMode) IsValid() bool {
	return m == IDPathAbs || m == IDPathRel || m == IDPathHash
}

// Defaults applied by New when the corresponding Params field is omitted.
const (
	DefaultChunkSize                   = 1024
	DefaultChunkOverlap                = 128
	DefaultEncoding                    = "cl100k_base"
	DefaultIDHashBits                  = 64
	DefaultSemanticThresholdPercentile = 95
)

const (
	minIDHashBits = 32
	maxIDHashBits = 256
	// Digests shorter than this keep collisions unlikely only for small
	// corpora, so New warns below it.
	idHashBitsWarnThreshold = 48
)

// Params carries the raw, possibly partial chunking settings handed to New.
// Pointer fields distinguish an omitted value from an explicit zero.
type Params struct {
	Strategy                    Strategy    `json:"strategy,omitempty"                      yaml:"strategy,omitempty"                      mapstructure:"strategy,omitempty"`
	ChunkSize                   *int        `json:"chunk_size,omitempty"                    yaml:"chunk_size,omitempty"                    mapstructure:"chunk_size,omitempty"`
	ChunkOverlap                *int        `json:"chunk_overlap,omitempty"                 yaml:"chunk_overlap,omitempty"                 mapstructure:"chunk_overlap,omitempty"`
	OverlapUnit                 OverlapUnit `json:"overlap_unit,omitempty"                  yaml:"overlap_unit,omitempty"                  mapstructure:"overlap_unit,omitempty"`
	EncodingName                string      `json:"encoding_name,omitempty"                 yaml:"encoding_name,omitempty"                 mapstructure:"encoding_name,omitempty"`
	IDPathMode                  IDPathMode  `json:"id_path_mode,omitempty"                  yaml:"id_path_mode,omitempty"                  mapstructure:"id_path_mode,omitempty"`
	IDBase                      string      `json:"id_base,omitempty"                       yaml:"id_base,omitempty"                       mapstructure:"id_base,omitempty"`
	IDHashBits                  *int        `json:"id_hash_bits,omitempty"                  yaml:"id_hash_bits,omitempty"                  mapstructure:"id_hash_bits,omitempty"`
	SemanticThresholdPercentile *int        `json:"semantic_threshold_percentile,omitempty" yaml:"semantic_threshold_percentile,omitempty" mapstructure:"semantic_threshold_percentile,omitempty"`
	Separators                  []string    `json:"separators,omitempty"                    yaml:"separators,omitempty"                    mapstructure:"separators,omitempty"`
	EmbedModel                  string      `json:"embed_model,omitempty"                   yaml:"embed_model,omitempty"                   mapstructure:"embed_model,omitempty"`
	AzureOpenAIDeployment       string      `json:"azure_openai_deployment,omitempty"       yaml:"azure_openai_deployment,omitempty"       mapstructure:"azure_openai_deployment,omitempty"`
}

// Config is a validated, immutable set of chunking settings. Instances are
// only produced by New; every accessor returns either a value or a copy, so
// a Config shared across goroutines needs no locking.
type Config struct {
	strategy                    Strategy
	chunkSize                   int
	chunkOverlap                int
	overlapUnit                 OverlapUnit
	encodingName                string
	idPathMode                  IDPathMode
	idBase                      string
	idHashBits                  int
	semanticThresholdPercentile int
	separators                  []string
	embedModel                  string
	azureOpenAIDeployment       string
	warnings                    []string
}

// New validates params as a whole and returns the resulting Config. All
// rule violations are collected before returning, so the error reports
// every offending field at once rather than the first one found. Advisory
// findings never block construction; they are exposed via Warnings.
func New(params Params) (*Config, error) {
	cfg := &Config{
		strategy:                    params.Strategy,
		chunkSize:                   intOrDefault(params.ChunkSize, DefaultChunkSize),
		chunkOverlap:                intOrDefault(params.ChunkOverlap, DefaultChunkOverlap),
		overlapUnit:                 params.OverlapUnit,
		encodingName:                params.EncodingName,
		idPathMode:                  params.IDPathMode,
		idBase:                      params.IDBase,
		idHashBits:                  intOrDefault(params.IDHashBits, DefaultIDHashBits),
		semanticThresholdPercentile: intOrDefault(params.SemanticThresholdPercentile, DefaultSemanticThresholdPercentile),
		separators:                  copySeparators(params.Separators),
		embedModel:                  params.EmbedModel,
		azureOpenAIDeployment:       params.AzureOpenAIDeployment,
	}
	if cfg.strategy == "" {
		cfg.strategy = StrategyRecursive
	}
	if cfg.overlapUnit == "" {
		cfg.overlapUnit = UnitTokens
	}
	if cfg.encodingName == "" {
		cfg.encodingName = DefaultEncoding
	}
	if cfg.idPathMode == "" {
		cfg.idPathMode = IDPathRel
	}

	var errs []error
	// The strategy is checked first because it decides which rule set the
	// size and overlap fields are held to. An unknown strategy is reported
	// and then treated as non-semantic so the remaining fields still get
	// checked against the common rules.
	if !cfg.strategy.IsValid() {
		errs = append(errs, fieldErrorf("strategy",
			"strategy %q must be one of recursive, markdown, token, semantic", cfg.strategy))
	}
	semantic := cfg.strategy == StrategySemantic

	if cfg.chunkSize <= 0 {
		errs = append(errs, fieldErrorf("chunk_size",
			"chunk_size %d must be greater than zero", cfg.chunkSize))
	}
	if cfg.chunkOverlap < 0 {
		errs = append(errs, fieldErrorf("chunk_overlap",
			"chunk_overlap %d must not be negative", cfg.chunkOverlap))
	}
	// Semantic chunks are bounded by sentence grouping, not a sliding
	// window, so the overlap only seeds the next chunk and may legally
	// reach or exceed the size.
	if !semantic && cfg.chunkSize > 0 && cfg.chunkOverlap >= 0 && cfg.chunkOverlap >= cfg.chunkSize {
		errs = append(errs, fieldErrorf("chunk_overlap",
			"chunk_overlap %d must be smaller than chunk_size %d", cfg.chunkOverlap, cfg.chunkSize))
	}

	if !cfg.overlapUnit.IsValid() {
		errs = append(errs, fieldErrorf("overlap_unit",
			"overlap_unit %q must be one of tokens, characters", cfg.overlapUnit))
	} else if semantic && cfg.overlapUnit == UnitCharacters {
		errs = append(errs, fieldErrorf("overlap_unit",
			"strategy 'semantic' does not support 'characters' as overlap_unit; use 'tokens'"))
	}

	if !cfg.idPathMode.IsValid() {
		errs = append(errs, fieldErrorf("id_path_mode",
			"id_path_mode %q must be one of abs, rel, hash", cfg.idPathMode))
	}
	switch cfg.idPathMode {
	case IDPathRel:
		if cfg.idBase == "" {
			cwd, err := os.Getwd()
			if err != nil {
				errs = append(errs, fieldErrorf("id_base",
					"id_base could not be derived from the working directory: %s", err))
			} else {
				cfg.idBase = cwd
			}
		}
	default:
		if cfg.idBase != "" {
			errs = append(errs, fieldErrorf("id_base",
				"id_base is only applicable when id_path_mode == 'rel'"))
		}
	}

	if cfg.idHashBits < minIDHashBits || cfg.idHashBits > maxIDHashBits {
		errs = append(errs, fieldErrorf("id_hash_bits",
			"id_hash_bits %d must be between %d and %d", cfg.idHashBits, minIDHashBits, maxIDHashBits))
	} else if cfg.idHashBits%4 != 0 {
		errs = append(errs, fieldErrorf("id_hash_bits",
			"id_hash_bits %d must be a multiple of 4", cfg.idHashBits))
	} else if cfg.idHashBits < idHashBitsWarnThreshold {
		cfg.warnings = append(cfg.warnings, fmt.Sprintf(
			"id_hash_bits %d is below %d, which increases the probability of chunk id collisions",
			cfg.idHashBits, idHashBitsWarnThreshold))
	}

	if semantic && cfg.embedModel == "" && cfg.azureOpenAIDeployment == "" {
		cfg.warnings = append(cfg.warnings,
			"semantic strategy has no embed_model or azure_openai_deployment configured; "+
				"falling back to the public OpenAI endpoint with its default embedding model")
	}

	if cfg.semanticThresholdPercentile < 0 || cfg.semanticThresholdPercentile > 100 {
		errs = append(errs, fieldErrorf("semantic_threshold_percentile",
			"semantic_threshold_percentile %d must be between 0 and 100", cfg.semanticThresholdPercentile))
	}

	if err := NewValidationErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Strategy returns the validated splitting strategy.
func (c *Config) Strategy() Strategy {
	return c.strategy
}

// ChunkSize returns the maximum chunk size in the strategy's native unit.
func (c *Config) ChunkSize() int {
	return c.chunkSize
}

// ChunkOverlap returns the overlap carried between adjacent chunks.
func (c *Config) ChunkOverlap() int {
	return c.chunkOverlap
}

// OverlapUnit returns the unit chunk_overlap is measured in.
func (c *Config) OverlapUnit() OverlapUnit {
	return c.overlapUnit
}

// EncodingName returns the tiktoken encoding used for token counting.
func (c *Config) EncodingName() string {
	return c.encodingName
}

// IDPathMode returns how document paths are folded into chunk IDs.
func (c *Config) IDPathMode() IDPathMode {
	return c.idPathMode
}

// IDBase returns the base directory document paths are relativized
// against. It is empty unless the mode is IDPathRel, in which case it
// defaults to the working directory captured when New ran.
func (c *Config) IDBase() string {
	return c.idBase
}

// IDHashBits returns the digest width used for hashed chunk IDs.
func (c *Config) IDHashBits() int {
	return c.idHashBits
}

// SemanticThresholdPercentile returns the breakpoint percentile for
// semantic splitting.
func (c *Config) SemanticThresholdPercentile() int {
	return c.semanticThresholdPercentile
}

// Separators returns a copy of the custom separator hierarchy, or nil when
// none was configured. An empty non-nil slice means separators were set
// explicitly to none.
func (c *Config) Separators() []string {
	return copySeparators(c.separators)
}

// EmbedModel returns the embedding model requested for semantic splitting.
func (c *Config) EmbedModel() string {
	return c.embedModel
}

// AzureOpenAIDeployment returns the Azure deployment requested for
// semantic splitting.
func (c *Config) AzureOpenAIDeployment() string {
	return c.azureOpenAIDeployment
}

// Warnings returns a copy of the advisory findings recorded during
// construction. The order matches the order the rules run in.
func (c *Config) Warnings() []string {
	if c.warnings == nil {
		return nil
	}
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func copySeparators(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
