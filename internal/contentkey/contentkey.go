// Package contentkey derives stable content fingerprints and provides
// the seeded deterministic ordering used throughout plan building.
//
// Nothing in this package reads a nondeterministic random source. Every
// ordering decision is a pure function of a session seed and the item
// identity, which is what makes plan building replayable.
package contentkey

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/tanukilabs/questrun/internal/types"
)

// Normalize lowercases text, strips punctuation, and collapses runs of
// whitespace so that trivially different phrasings hash identically.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ', r == '\t', r == '\n', r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		default:
			// Punctuation and non-ASCII letters are dropped entirely.
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Hash returns the 32-bit FNV-1a hash of s.
func Hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// ActivityKey returns the identity-based content key for an activity id.
func ActivityKey(id string) string {
	return "activity:" + id
}

// QuestionFingerprint returns the text-based content key for a question,
// or "" when the activity carries no text at all. Two activities with the
// same fingerprint are duplicates regardless of their ids.
func QuestionFingerprint(story, question string) string {
	normalized := Normalize(story + " " + question)
	if normalized == "" {
		return ""
	}
	return fmt.Sprintf("question:%08x", Hash(normalized))
}

// Keys returns every content key an activity occupies: its identity key
// plus, when it has text, its question fingerprint.
func Keys(a types.Activity) []string {
	keys := []string{ActivityKey(a.ID)}
	if fp := QuestionFingerprint(a.Story, a.Question); fp != "" {
		keys = append(keys, fp)
	}
	return keys
}

// Rank returns the seeded rank of an id: the hash of seed and id joined.
// Sorting by Rank yields a stable pseudo-random permutation that is
// identical across runs for the same seed.
func Rank(seed, id string) uint32 {
	return Hash(seed + ":" + id)
}

// SortSeeded stably sorts items in ascending seeded-rank order, breaking
// rank ties by id so the order is a total one.
func SortSeeded[T any](items []T, seed string, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := Rank(seed, id(items[i])), Rank(seed, id(items[j]))
		if ri != rj {
			return ri < rj
		}
		return id(items[i]) < id(items[j])
	})
}

// Shuffle permutes items with a seeded Fisher–Yates: each swap index is
// derived from the seed and position, never from a system RNG.
func Shuffle[T any](items []T, seed string) {
	for i := len(items) - 1; i > 0; i-- {
		j := int(Hash(fmt.Sprintf("%s:shuffle:%d", seed, i)) % uint32(i+1))
		items[i], items[j] = items[j], items[i]
	}
}

// Index derives a deterministic index in [0,n) from the seed and a salt.
// Returns 0 when n <= 0 so callers need not special-case empty ranges.
func Index(seed, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	return int(Hash(seed+"#"+salt) % uint32(n))
}
