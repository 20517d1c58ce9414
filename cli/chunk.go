package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ingenious-ai/ingenious/engine/chunk"
	"github.com/ingenious-ai/ingenious/engine/chunk/embedder"
	"github.com/ingenious-ai/ingenious/engine/chunk/sources"
	"github.com/ingenious-ai/ingenious/pkg/config"
	"github.com/ingenious-ai/ingenious/pkg/logger"
)

func ChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk [patterns...]",
		Short: "Split matching documents into chunk records",
		Long: `Collect documents matching the given glob patterns, split them with the
configured strategy and write one record per chunk to the output directory.
Use "-" as a pattern to read a document from stdin.`,
		Example: `  ingen chunk "docs/**/*.md"
  ingen chunk --strategy token --chunk-size 512 "**/*.txt"
  cat report.txt | ingen chunk -`,
		Args: cobra.MinimumNArgs(1),
		RunE: runChunk,
	}
	addChunkFlags(cmd)
	return cmd
}

func addChunkFlags(cmd *cobra.Command) {
	cmd.Flags().String("strategy", "", "Chunking strategy (recursive, markdown, token, semantic)")
	cmd.Flags().Int("chunk-size", 0, "Maximum chunk size in tokens")
	cmd.Flags().Int("chunk-overlap", 0, "Overlap carried between consecutive chunks")
	cmd.Flags().String("overlap-unit", "", "Unit overlap is measured in (tokens, characters)")
	cmd.Flags().String("encoding-name", "", "Tokenizer encoding or model name")
	cmd.Flags().String("id-path-mode", "", "Identifier derivation for file paths (abs, rel, hash)")
	cmd.Flags().String("id-base", "", "Base directory for relative identifiers")
	cmd.Flags().Int("id-hash-bits", 0, "Identifier hash length in bits for id-path-mode=hash")
	cmd.Flags().Int("semantic-threshold-percentile", 0, "Breakpoint percentile for the semantic strategy")
	cmd.Flags().StringSlice("separators", nil, "Separator hierarchy for the recursive strategy")
	cmd.Flags().String("embed-model", "", "Embedding model for the semantic strategy")
	cmd.Flags().String("azure-deployment", "", "Azure OpenAI deployment for the semantic strategy")
	cmd.Flags().StringP("output-dir", "o", "", "Directory chunk records are written to")
	cmd.Flags().StringP("output-format", "f", "", "Output format (jsonl, json)")
	cmd.Flags().Int64("max-file-size", 0, "Maximum source file size in bytes")
	cmd.Flags().Bool("dedupe", true, "Drop chunks whose content was already emitted")
	cmd.Flags().Bool("normalize-newlines", true, "Normalize CRLF and CR line endings before splitting")
}

type chunkResult struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Strategy  string   `json:"strategy"`
	Output    string   `json:"output,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Duration  string   `json:"duration"`
}

func runChunk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	cfg := config.FromContext(ctx)
	start := time.Now()

	// Settings are validated before any file is touched so configuration
	// mistakes surface immediately.
	settings, err := chunk.New(chunkParams(cfg))
	if err != nil {
		return err
	}
	docs, err := collectDocuments(ctx, cmd, args)
	if err != nil {
		return err
	}
	result := &chunkResult{
		Documents: len(docs),
		Strategy:  string(settings.Strategy()),
		Warnings:  settings.Warnings(),
	}
	if len(docs) == 0 {
		log.Warn("No documents matched the given patterns", "patterns", strings.Join(args, ", "))
		result.Duration = time.Since(start).String()
		return printChunkResult(cmd, result)
	}
	processor, err := buildProcessor(cmd, cfg, settings)
	if err != nil {
		return err
	}
	procCtx := ctx
	if settings.Strategy() == chunk.StrategySemantic && cfg.Runtime.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(ctx, cfg.Runtime.EmbedTimeout)
		defer cancel()
	}
	chunks, err := processor.Process(procCtx, docs)
	if err != nil {
		return err
	}
	outPath, err := chunk.WriteFile(cfg.Output.Dir, cfg.Output.Format, chunks)
	if err != nil {
		return err
	}
	result.Chunks = len(chunks)
	result.Output = outPath
	result.Duration = time.Since(start).String()
	log.Info("Chunking completed",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"strategy", result.Strategy,
		"output", outPath,
		"duration", result.Duration,
	)
	return printChunkResult(cmd, result)
}

// chunkParams maps the loaded configuration onto engine settings. Values
// are passed through as-is; defaulting and validation are engine concerns.
func chunkParams(cfg *config.Config) chunk.Params {
	chunkCfg := cfg.Chunk
	return chunk.Params{
		Strategy:                    chunk.Strategy(chunkCfg.Strategy),
		ChunkSize:                   &chunkCfg.Size,
		ChunkOverlap:                &chunkCfg.Overlap,
		OverlapUnit:                 chunk.OverlapUnit(chunkCfg.OverlapUnit),
		EncodingName:                chunkCfg.EncodingName,
		IDPathMode:                  chunk.IDPathMode(chunkCfg.IDPathMode),
		IDBase:                      chunkCfg.IDBase,
		IDHashBits:                  &chunkCfg.IDHashBits,
		SemanticThresholdPercentile: &chunkCfg.SemanticThresholdPercentile,
		Separators:                  chunkCfg.Separators,
		EmbedModel:                  cfg.OpenAI.EmbedModel,
		AzureOpenAIDeployment:       cfg.AzureOpenAI.Deployment,
	}
}

func collectDocuments(ctx context.Context, cmd *cobra.Command, patterns []string) ([]chunk.Document, error) {
	maxFileSize, err := cmd.Flags().GetInt64("max-file-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-file-size flag: %w", err)
	}
	return sources.Collect(ctx, sources.Options{
		Patterns:    patterns,
		MaxFileSize: maxFileSize,
		Stdin:       cmd.InOrStdin(),
	})
}

func buildProcessor(cmd *cobra.Command, cfg *config.Config, settings *chunk.Config) (*chunk.Processor, error) {
	dedupe, err := cmd.Flags().GetBool("dedupe")
	if err != nil {
		return nil, fmt.Errorf("failed to get dedupe flag: %w", err)
	}
	normalize, err := cmd.Flags().GetBool("normalize-newlines")
	if err != nil {
		return nil, fmt.Errorf("failed to get normalize-newlines flag: %w", err)
	}
	opts := chunk.Options{
		Deduplicate:       dedupe,
		NormalizeNewlines: normalize,
	}
	if settings.Strategy() == chunk.StrategySemantic {
		adapter, err := newEmbedderAdapter(cfg)
		if err != nil {
			return nil, err
		}
		opts.Embedder = adapter
	}
	return chunk.NewProcessor(settings, opts)
}

// newEmbedderAdapter wires the embedding backend from configuration. The
// Azure credential applies only when a deployment routes requests there.
func newEmbedderAdapter(cfg *config.Config) (*embedder.Adapter, error) {
	apiKey := cfg.OpenAI.APIKey.Value()
	if cfg.AzureOpenAI.Deployment != "" {
		apiKey = cfg.AzureOpenAI.APIKey.Value()
	}
	return embedder.New(&embedder.Config{
		Model:           cfg.OpenAI.EmbedModel,
		APIKey:          apiKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		AzureDeployment: cfg.AzureOpenAI.Deployment,
		AzureEndpoint:   cfg.AzureOpenAI.Endpoint,
		AzureAPIVersion: cfg.AzureOpenAI.APIVersion,
		BatchSize:       cfg.Runtime.EmbedBatchSize,
		StripNewLines:   true,
	})
}

func printChunkResult(cmd *cobra.Command, result *chunkResult) error {
	if jsonOutput(cmd) {
		return printJSON(result)
	}
	for _, warning := range result.Warnings {
		printWarning(warning)
	}
	if result.Documents == 0 {
		printWarning("no documents matched the given patterns")
		return nil
	}
	printSuccess(fmt.Sprintf("Chunked %d documents into %d records", result.Documents, result.Chunks))
	printDetail("strategy", result.Strategy)
	printDetail("output", result.Output)
	printDetail("duration", result.Duration)
	return nil
}
