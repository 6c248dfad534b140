// Package cache implements the two-level response cache: a bounded
// in-process LRU in front of a durable SQLite table. Keys are content
// fingerprints of (task type, normalized input, tier, decoding params),
// so semantically identical requests collapse to one entry.
package cache

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Params are the decoding parameters that participate in key identity.
// Two requests differing only in temperature or token budget must not
// share an entry.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Normalize case-folds and collapses all whitespace runs to single
// spaces, trimming the ends. Incidental formatting differences must not
// produce distinct cache entries.
func Normalize(input string) string {
	return strings.Join(strings.Fields(strings.ToLower(input)), " ")
}

// Key derives the cache key fingerprint. Stable across processes.
func Key(taskType, input, tier string, params Params) string {
	material := fmt.Sprintf("%s|%s|%s|%.4f|%d",
		taskType, Normalize(input), tier, params.Temperature, params.MaxTokens)
	return fmt.Sprintf("%016x", xxh3.HashString(material))
}
