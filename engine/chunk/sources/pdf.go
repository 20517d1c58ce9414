package sources

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extracted PDF text is bounded so a pathological document cannot balloon
// a chunking run.
const maxPDFExtractRunes = 2 * 1024 * 1024

// readPDF pulls the plain text layer out of a PDF file. The parser panics
// on some malformed documents, so failures are recovered into errors.
func readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sources: pdf parser failure for %q: %v", path, r)
		}
	}()
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("sources: stat pdf %q: %w", path, err)
	}
	if info.Size() > maxPDFFileSizeBytes {
		return "", fmt.Errorf("sources: pdf %q exceeds maximum size of %d bytes", path, int64(maxPDFFileSizeBytes))
	}
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("sources: open pdf %q: %w", path, err)
	}
	defer file.Close()
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("sources: extract pdf %q: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("sources: read pdf text %q: %w", path, err)
	}
	return truncateRunes(buf.String(), maxPDFExtractRunes), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
