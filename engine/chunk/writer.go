package chunk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Output formats supported by WriteFile.
const (
	FormatJSONL = "jsonl"
	FormatJSON  = "json"
)

// Writer streams chunks as JSON Lines, one record per chunk, each tagged
// with the run identifier.
type Writer struct {
	enc   *json.Encoder
	runID string
	count int
}

type chunkRecord struct {
	RunID string `json:"run_id"`
	Chunk
}

// NewWriter builds a writer with a fresh run identifier.
func NewWriter(w io.Writer) *Writer {
	return newWriter(w, uuid.NewString())
}

func newWriter(w io.Writer, runID string) *Writer {
	return &Writer{enc: json.NewEncoder(w), runID: runID}
}

// RunID returns the identifier stamped on every record of this run.
func (w *Writer) RunID() string {
	return w.runID
}

// Count returns the number of records written so far.
func (w *Writer) Count() int {
	return w.count
}

// WriteChunk appends one record.
func (w *Writer) WriteChunk(chunk Chunk) error {
	if err := w.enc.Encode(chunkRecord{RunID: w.runID, Chunk: chunk}); err != nil {
		return fmt.Errorf("chunk: write record %s: %w", chunk.ID, err)
	}
	w.count++
	return nil
}

// WriteAll appends every chunk in order.
func (w *Writer) WriteAll(chunks []Chunk) error {
	for i := range chunks {
		if err := w.WriteChunk(chunks[i]); err != nil {
			return err
		}
	}
	return nil
}

// runPayload is the single-document form used by the json output format.
type runPayload struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
	Chunks      []Chunk   `json:"chunks"`
}

// WriteFile persists chunks under dir in the requested format and returns
// the created file path. The file is committed with a rename so partial
// output never lands under its final name.
func WriteFile(dir, format string, chunks []Chunk) (string, error) {
	if dir == "" {
		return "", errors.New("chunk: output directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("chunk: ensure directory %q: %w", dir, err)
	}
	runID := uuid.NewString()
	var data []byte
	var name string
	switch format {
	case FormatJSONL, "":
		var buf bytes.Buffer
		writer := newWriter(&buf, runID)
		if err := writer.WriteAll(chunks); err != nil {
			return "", err
		}
		data = buf.Bytes()
		name = "chunks-" + runID + ".jsonl"
	case FormatJSON:
		payload := runPayload{
			RunID:       runID,
			GeneratedAt: time.Now().UTC(),
			Count:       len(chunks),
			Chunks:      chunks,
		}
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", fmt.Errorf("chunk: encode run payload: %w", err)
		}
		data = append(encoded, '\n')
		name = "chunks-" + runID + ".json"
	default:
		return "", fmt.Errorf("chunk: unsupported output format %q", format)
	}
	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("chunk: write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("chunk: commit output: %w", err)
	}
	return path, nil
}
