// Package keys builds deterministic product cache keys.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Product returns the cache key of one computed index product. The params
// string (sorted k=v pairs, or empty) is hashed so arbitrary parameter text
// never leaks unsanitized into key space.
func Product(scene, index, params string) string {
	sceneNorm := sanitize(strings.TrimSpace(scene))
	indexNorm := sanitize(strings.TrimSpace(index))
	sum := xxhash.Sum64String(strings.TrimSpace(params))
	return fmt.Sprintf("prod:%s:%s:p=%016x", sceneNorm, indexNorm, sum)
}

// SceneSet returns the key of the redis set listing every cached product key
// derived from one scene.
func SceneSet(scene string) string {
	return "sceneidx:" + sanitize(strings.TrimSpace(scene))
}

// CellSet returns the key of the redis set listing every scene whose extent
// covers one H3 cell.
func CellSet(cell string) string {
	return "cellidx:" + sanitize(strings.TrimSpace(cell))
}

// sanitize maps whitespace to '_', keeps [A-Za-z0-9:_-] and '.' and turns
// everything else into '-', collapsing runs of separators.
func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-' || r == '.':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
