// Package sources enumerates local inputs for chunking. Files are matched
// with doublestar glob patterns rooted at a working directory, decoded to
// UTF-8, and deduplicated by content hash before they reach the processor.
package sources

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/ingenious-ai/ingenious/engine/chunk"
	"github.com/ingenious-ai/ingenious/pkg/logger"
)

// DefaultMaxFileSizeBytes caps how much of a single text file is read.
const DefaultMaxFileSizeBytes = 4 * 1024 * 1024

const maxPDFFileSizeBytes = 32 * 1024 * 1024

// Source type metadata values attached to collected documents.
const (
	sourceTypeFile  = "file"
	sourceTypeStdin = "stdin"
)

// Options configures a collection run.
type Options struct {
	// Root anchors relative patterns and bounds every match; it defaults
	// to the working directory.
	Root string
	// Patterns are doublestar globs relative to Root. The marker "-"
	// reads stdin instead of the filesystem.
	Patterns []string
	// MaxFileSize overrides DefaultMaxFileSizeBytes when positive.
	MaxFileSize int64
	// Stdin replaces os.Stdin for the "-" pattern.
	Stdin io.Reader
}

type documentList struct {
	items []chunk.Document
	hash  map[string]struct{}
}

// Collect enumerates every input named by opts and returns the documents
// ready for chunking. Matches outside the root are rejected, binary files
// are skipped, and identical content is collected once.
func Collect(ctx context.Context, opts Options) ([]chunk.Document, error) {
	patterns := make([]string, 0, len(opts.Patterns))
	for i := range opts.Patterns {
		if trimmed := strings.TrimSpace(opts.Patterns[i]); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	if len(patterns) == 0 {
		return nil, errors.New("sources: at least one pattern is required")
	}
	root := opts.Root
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("sources: resolve working directory: %w", err)
		}
		root = cwd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sources: resolve root %q: %w", root, err)
	}
	root = filepath.Clean(absRoot)
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSizeBytes
	}
	list := &documentList{items: make([]chunk.Document, 0), hash: make(map[string]struct{})}
	for _, pattern := range patterns {
		if pattern == "-" {
			if err := list.appendStdin(opts.Stdin, maxSize); err != nil {
				return nil, err
			}
			continue
		}
		if err := list.appendPattern(ctx, root, pattern, maxSize); err != nil {
			return nil, err
		}
	}
	return list.items, nil
}

func (l *documentList) appendPattern(ctx context.Context, root, pattern string, maxSize int64) error {
	absPattern := pattern
	if !filepath.IsAbs(absPattern) {
		absPattern = filepath.Join(root, absPattern)
	}
	absPattern = filepath.Clean(absPattern)
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return fmt.Errorf("sources: glob %q failed: %w", pattern, err)
	}
	if len(matches) == 0 {
		logger.FromContext(ctx).Warn("Source pattern matched no files", "pattern", pattern)
		return nil
	}
	for _, match := range matches {
		info, statErr := os.Stat(match)
		if statErr != nil {
			return fmt.Errorf("sources: stat %q: %w", match, statErr)
		}
		if info.IsDir() {
			continue
		}
		within, werr := pathInside(root, match)
		if werr != nil {
			return werr
		}
		if !within {
			return fmt.Errorf("sources: glob match %q escapes root %q", match, root)
		}
		rel, rerr := filepath.Rel(root, match)
		if rerr != nil {
			return fmt.Errorf("sources: resolve relative path for %q: %w", match, rerr)
		}
		text, contentType, ok, readErr := readDocument(ctx, match, maxSize)
		if readErr != nil {
			return readErr
		}
		if !ok {
			continue
		}
		l.appendDocument(filepath.ToSlash(rel), match, text, map[string]any{
			"source_type":  sourceTypeFile,
			"source_path":  filepath.ToSlash(rel),
			"content_type": contentType,
			"bytes":        info.Size(),
		})
	}
	return nil
}

func (l *documentList) appendStdin(reader io.Reader, maxSize int64) error {
	if reader == nil {
		reader = os.Stdin
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return fmt.Errorf("sources: read stdin: %w", err)
	}
	if int64(len(data)) > maxSize {
		return fmt.Errorf("sources: stdin input exceeds maximum size of %d bytes", maxSize)
	}
	text, err := decodeText(data, "")
	if err != nil {
		return err
	}
	l.appendDocument("stdin", "-", text, map[string]any{
		"source_type": sourceTypeStdin,
		"bytes":       int64(len(data)),
	})
	return nil
}

func (l *documentList) appendDocument(docID, source, text string, meta map[string]any) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	hash := hashContent(trimmed)
	if _, exists := l.hash[hash]; exists {
		return
	}
	if meta == nil {
		meta = make(map[string]any, 2)
	}
	meta["content_hash"] = hash
	l.hash[hash] = struct{}{}
	l.items = append(l.items, chunk.Document{ID: docID, Source: source, Text: trimmed, Metadata: meta})
}

// readDocument loads one file. The ok result is false for binary content,
// which is skipped rather than failed.
func readDocument(ctx context.Context, path string, maxSize int64) (string, string, bool, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", "", false, fmt.Errorf("sources: detect type of %q: %w", path, err)
	}
	contentType := mtype.String()
	if mtype.Is("application/pdf") {
		text, pdfErr := readPDF(path)
		if pdfErr != nil {
			return "", "", false, pdfErr
		}
		return text, contentType, true, nil
	}
	if !isTextual(mtype) {
		logger.FromContext(ctx).Debug("Skipping binary file", "path", path, "content_type", contentType)
		return "", "", false, nil
	}
	data, readErr := readTextFile(path, maxSize)
	if readErr != nil {
		return "", "", false, readErr
	}
	text, decodeErr := decodeText(data, contentType)
	if decodeErr != nil {
		return "", "", false, fmt.Errorf("sources: decode %q: %w", path, decodeErr)
	}
	return text, contentType, true, nil
}

func readTextFile(path string, maxSize int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sources: open %q: %w", path, err)
	}
	defer file.Close()
	info, statErr := file.Stat()
	if statErr != nil {
		return nil, fmt.Errorf("sources: stat %q: %w", path, statErr)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("sources: file %q exceeds maximum size of %d bytes", path, maxSize)
	}
	data, readErr := io.ReadAll(io.LimitReader(file, maxSize+1))
	if readErr != nil {
		return nil, fmt.Errorf("sources: read %q: %w", path, readErr)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("sources: file %q changed during collection and exceeded %d bytes", path, maxSize)
	}
	return data, nil
}

func decodeText(data []byte, contentType string) (string, error) {
	if utf8.Valid(data) {
		return normalizeText(string(data)), nil
	}
	enc, name, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("transcode from %s: %w", name, err)
	}
	if !utf8.Valid(decoded) {
		return "", errors.New("transcoded result is not valid utf-8")
	}
	return normalizeText(string(decoded)), nil
}

func normalizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func isTextual(m *mimetype.MIME) bool {
	for cur := m; cur != nil; cur = cur.Parent() {
		if cur.Is("text/plain") {
			return true
		}
	}
	return false
}

func pathInside(root, target string) (bool, error) {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false, fmt.Errorf("sources: resolve root %q: %w", root, err)
	}
	resolvedTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("sources: target path does not exist: %s", target)
		}
		return false, fmt.Errorf("sources: resolve target %q: %w", target, err)
	}
	rel, err := filepath.Rel(resolvedRoot, resolvedTarget)
	if err != nil {
		return false, fmt.Errorf("sources: compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return false, nil
	}
	return true, nil
}

func hashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}
