package chunk

// Document represents raw content prior to chunking. Source is the path,
// URL, or stdin marker the content came from and drives identifier
// derivation; ID is an optional caller-supplied handle carried into chunk
// metadata.
type Document struct {
	ID       string
	Source   string
	Text     string
	Metadata map[string]any
}

// Chunk represents a processed slice of a document.
type Chunk struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Hash       string         `json:"hash"`
	TokenCount int            `json:"token_count"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Options configures processing behavior beyond the validated chunk
// settings.
type Options struct {
	// Embedder backs the semantic strategy and is required for it.
	Embedder Embedder
	// Deduplicate drops chunks whose content hash was already emitted.
	Deduplicate bool
	// NormalizeNewlines rewrites CRLF and CR line endings to LF before
	// splitting.
	NormalizeNewlines bool
}
