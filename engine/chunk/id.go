package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// IDGenerator derives stable chunk identifiers from document sources
// according to the validated ID settings. IDs take the form <key>#<index>
// where the key is the source path folded per the configured mode.
type IDGenerator struct {
	mode     IDPathMode
	base     string
	hashBits int
}

// NewIDGenerator builds a generator bound to cfg's identifier settings.
func NewIDGenerator(cfg *Config) *IDGenerator {
	return &IDGenerator{
		mode:     cfg.IDPathMode(),
		base:     cfg.IDBase(),
		hashBits: cfg.IDHashBits(),
	}
}

// ChunkID returns the identifier of the index-th chunk of source.
func (g *IDGenerator) ChunkID(source string, index int) string {
	return fmt.Sprintf("%s#%d", g.DocumentKey(source), index)
}

// DocumentKey folds source into the document portion shared by all of its
// chunk identifiers. Sources that are not filesystem paths, such as URLs
// or the stdin marker, are used verbatim except under hash mode.
func (g *IDGenerator) DocumentKey(source string) string {
	if !isPathSource(source) {
		if g.mode == IDPathHash {
			return hashKey(source, g.hashBits)
		}
		return source
	}
	switch g.mode {
	case IDPathAbs:
		return filepath.ToSlash(absPath(source))
	case IDPathRel:
		return filepath.ToSlash(relPath(source, g.base))
	case IDPathHash:
		return hashKey(filepath.ToSlash(absPath(source)), g.hashBits)
	default:
		return source
	}
}

func isPathSource(source string) bool {
	if source == "-" {
		return false
	}
	return !strings.Contains(source, "://")
}

func absPath(source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		return filepath.Clean(source)
	}
	return abs
}

func relPath(source, base string) string {
	abs := absPath(source)
	if base == "" {
		return abs
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		// Unrelatable paths, such as across volumes, keep their absolute form.
		return abs
	}
	return rel
}

func hashKey(input string, bits int) string {
	digits := bits / 4
	if digits <= 0 {
		digits = DefaultIDHashBits / 4
	}
	sum := sha256.Sum256([]byte(input))
	encoded := hex.EncodeToString(sum[:])
	if digits > len(encoded) {
		return encoded
	}
	return encoded[:digits]
}
