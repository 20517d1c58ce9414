package cli

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ingenious-ai/ingenious/engine/chunk"
	"github.com/ingenious-ai/ingenious/pkg/config"
)

// Pre-compiled regex for URL token redaction
var tokenRegex = regexp.MustCompile(`token=[^&\s]+`)

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management and diagnostics",
	}
	cmd.AddCommand(
		configShowCmd(),
		configValidateCmd(),
	)
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the effective configuration after defaults, environment
variables, the config file and flags have been merged. Secrets are redacted.`,
		RunE: runConfigShow,
	}
	cmd.Flags().StringP("format", "f", "table", "Output format (json, yaml, table)")
	cmd.Flags().Bool("sources", false, "Show which source provided each value")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := config.FromContext(cmd.Context())
	service := config.ManagerFromContext(cmd.Context()).Service
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	showSources, err := cmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	flat := flattenConfig(cfg)
	var sources map[string]config.SourceType
	if showSources {
		sources = make(map[string]config.SourceType, len(flat))
		for key := range flat {
			sources[key] = service.GetSource(key)
		}
	}
	switch format {
	case "json":
		return outputConfigJSON(flat, sources)
	case "yaml":
		return outputConfigYAML(flat, sources)
	case "table":
		return outputConfigTable(flat, sources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validate the effective configuration, including a dry run of the
chunk settings so every violation is reported at once. Advisory warnings
are printed but do not fail validation.`,
		RunE: runConfigValidate,
	}
}

type validationResult struct {
	Valid    bool     `json:"valid"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg := config.FromContext(cmd.Context())
	service := config.ManagerFromContext(cmd.Context()).Service
	result := &validationResult{Valid: true}
	if err := service.Validate(cfg); err != nil {
		result.Valid = false
		result.Error = err.Error()
		return printValidationResult(cmd, result, err)
	}
	settings, err := chunk.New(chunkParams(cfg))
	if err != nil {
		result.Valid = false
		result.Error = err.Error()
		return printValidationResult(cmd, result, err)
	}
	result.Warnings = settings.Warnings()
	return printValidationResult(cmd, result, nil)
}

func printValidationResult(cmd *cobra.Command, result *validationResult, cause error) error {
	if jsonOutput(cmd) {
		if err := printJSON(result); err != nil {
			return err
		}
		return cause
	}
	for _, warning := range result.Warnings {
		printWarning(warning)
	}
	if cause != nil {
		return fmt.Errorf("configuration validation failed: %w", cause)
	}
	printSuccess("Configuration is valid")
	return nil
}

func outputConfigJSON(flat map[string]string, sources map[string]config.SourceType) error {
	output := map[string]any{"config": flat}
	if len(sources) > 0 {
		output["sources"] = sources
	}
	return printJSON(output)
}

func outputConfigYAML(flat map[string]string, sources map[string]config.SourceType) error {
	output := map[string]any{"config": flat}
	if len(sources) > 0 {
		output["sources"] = sources
	}
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	return encoder.Encode(output)
}

func outputConfigTable(flat map[string]string, sources map[string]config.SourceType) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if sources != nil {
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
		fmt.Fprintln(w, "---\t-----\t------")
	} else {
		fmt.Fprintln(w, "KEY\tVALUE")
		fmt.Fprintln(w, "---\t-----")
	}
	for _, key := range keys {
		if sources != nil {
			source := sources[key]
			if source == "" {
				source = config.SourceDefault
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, flat[key], source)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", key, flat[key])
		}
	}
	return nil
}

// flattenConfig converts the nested config to a flat key-value map with
// secrets redacted.
func flattenConfig(cfg *config.Config) map[string]string {
	result := make(map[string]string)
	flattenRuntimeConfig(cfg, result)
	flattenChunkConfig(cfg, result)
	flattenBackendConfig(cfg, result)
	flattenOutputConfig(cfg, result)
	return result
}

func flattenRuntimeConfig(cfg *config.Config, result map[string]string) {
	result["runtime.environment"] = cfg.Runtime.Environment
	result["runtime.log_level"] = cfg.Runtime.LogLevel
	result["runtime.log_json"] = fmt.Sprintf("%v", cfg.Runtime.LogJSON)
	result["runtime.embed_timeout"] = cfg.Runtime.EmbedTimeout.String()
	result["runtime.embed_batch_size"] = fmt.Sprintf("%d", cfg.Runtime.EmbedBatchSize)
}

func flattenChunkConfig(cfg *config.Config, result map[string]string) {
	result["chunk.strategy"] = cfg.Chunk.Strategy
	result["chunk.size"] = fmt.Sprintf("%d", cfg.Chunk.Size)
	result["chunk.overlap"] = fmt.Sprintf("%d", cfg.Chunk.Overlap)
	result["chunk.overlap_unit"] = cfg.Chunk.OverlapUnit
	result["chunk.encoding_name"] = cfg.Chunk.EncodingName
	result["chunk.id_path_mode"] = cfg.Chunk.IDPathMode
	result["chunk.id_base"] = cfg.Chunk.IDBase
	result["chunk.id_hash_bits"] = fmt.Sprintf("%d", cfg.Chunk.IDHashBits)
	result["chunk.semantic_threshold_percentile"] = fmt.Sprintf("%d", cfg.Chunk.SemanticThresholdPercentile)
	result["chunk.separators"] = strings.Join(cfg.Chunk.Separators, ",")
}

func flattenBackendConfig(cfg *config.Config, result map[string]string) {
	result["openai.api_key"] = cfg.OpenAI.APIKey.String()
	result["openai.base_url"] = redactURL(cfg.OpenAI.BaseURL)
	result["openai.embed_model"] = cfg.OpenAI.EmbedModel
	result["azure_openai.api_key"] = cfg.AzureOpenAI.APIKey.String()
	result["azure_openai.endpoint"] = redactURL(cfg.AzureOpenAI.Endpoint)
	result["azure_openai.deployment"] = cfg.AzureOpenAI.Deployment
	result["azure_openai.api_version"] = cfg.AzureOpenAI.APIVersion
}

func flattenOutputConfig(cfg *config.Config, result map[string]string) {
	result["output.dir"] = cfg.Output.Dir
	result["output.format"] = cfg.Output.Format
}

// redactURL redacts credentials embedded in URLs.
func redactURL(urlStr string) string {
	if strings.Contains(urlStr, "://") && strings.Contains(urlStr, "@") {
		protocolEnd := strings.Index(urlStr, "://") + 3
		atIndex := strings.Index(urlStr, "@")
		if atIndex > protocolEnd {
			return urlStr[:protocolEnd] + "[REDACTED]@" + urlStr[atIndex+1:]
		}
	}
	if strings.Contains(urlStr, "token=") {
		return tokenRegex.ReplaceAllString(urlStr, "token=[REDACTED]")
	}
	return urlStr
}
