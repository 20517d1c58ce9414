// Package embedder builds the embedding backend for semantic chunking. A
// configured Azure OpenAI deployment takes precedence; otherwise requests
// go to the public OpenAI endpoint with the configured or default model.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Defaults applied when the corresponding Config field is empty.
const (
	DefaultModel           = "text-embedding-3-small"
	DefaultBatchSize       = 16
	DefaultAzureAPIVersion = "2024-02-01"
)

// Backend names reported by Adapter.Backend.
const (
	BackendOpenAI = "openai"
	BackendAzure  = "azure"
)

var errMissingAzureEndpoint = errors.New("embedder: azure endpoint is required when a deployment is set")

// Config carries the embedding backend settings.
type Config struct {
	// Model is the public OpenAI embedding model. Ignored when an Azure
	// deployment is configured.
	Model string
	// APIKey authenticates against whichever backend is selected.
	APIKey string
	// BaseURL overrides the public OpenAI endpoint.
	BaseURL string
	// AzureDeployment selects the Azure OpenAI backend.
	AzureDeployment string
	// AzureEndpoint is the resource URL, required with AzureDeployment.
	AzureEndpoint string
	// AzureAPIVersion defaults to DefaultAzureAPIVersion.
	AzureAPIVersion string
	// BatchSize bounds how many texts go into one embedding request.
	BatchSize int
	// StripNewLines collapses newlines before embedding.
	StripNewLines bool
}

// Adapter wraps a langchaingo embedder implementation and augments error
// reporting with the backend and model involved.
type Adapter struct {
	backend   string
	model     string
	batchSize int
	impl      embeddings.Embedder
}

// New constructs the backend selected by cfg.
func New(cfg *Config) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder: config is required")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	client, backend, model, err := buildClient(cfg)
	if err != nil {
		return nil, err
	}
	impl, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(cfg.StripNewLines),
	)
	if err != nil {
		return nil, fmt.Errorf("embedder: construct %s embedder: %w", backend, err)
	}
	return &Adapter{backend: backend, model: model, batchSize: batchSize, impl: impl}, nil
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder: config is required")
	}
	if impl == nil {
		return nil, errors.New("embedder: implementation is required")
	}
	backend, model := BackendOpenAI, cfg.Model
	if cfg.AzureDeployment != "" {
		backend, model = BackendAzure, cfg.AzureDeployment
	}
	if model == "" {
		model = DefaultModel
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Adapter{backend: backend, model: model, batchSize: batchSize, impl: impl}, nil
}

// Backend returns which backend the adapter talks to.
func (a *Adapter) Backend() string {
	return a.backend
}

// Model returns the embedding model or Azure deployment in use.
func (a *Adapter) Model() string {
	return a.model
}

// BatchSize returns the configured batch size.
func (a *Adapter) BatchSize() int {
	return a.batchSize
}

// EmbedDocuments delegates to the underlying implementation with
// contextual errors.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := a.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, a.withContext(err)
	}
	return vectors, nil
}

// EmbedQuery delegates to the underlying implementation with contextual
// errors.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := a.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, a.withContext(err)
	}
	return vector, nil
}

func (a *Adapter) withContext(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("embedder %s/%s: %w", a.backend, a.model, err)
}

func buildClient(cfg *Config) (*openai.LLM, string, string, error) {
	if deployment := strings.TrimSpace(cfg.AzureDeployment); deployment != "" {
		endpoint := strings.TrimSpace(cfg.AzureEndpoint)
		if endpoint == "" {
			return nil, "", "", errMissingAzureEndpoint
		}
		version := cfg.AzureAPIVersion
		if version == "" {
			version = DefaultAzureAPIVersion
		}
		opts := []openai.Option{
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(endpoint),
			openai.WithAPIVersion(version),
			openai.WithEmbeddingModel(deployment),
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, "", "", fmt.Errorf("embedder: initialize azure client: %w", err)
		}
		return client, BackendAzure, deployment, nil
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	opts := []openai.Option{openai.WithEmbeddingModel(model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, "", "", fmt.Errorf("embedder: initialize openai client: %w", err)
	}
	return client, BackendOpenAI, model, nil
}
