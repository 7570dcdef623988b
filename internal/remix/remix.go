// Package remix mutates an already-used question into a textually
// different variant so it can be shown again without repeating itself.
package remix

import (
	"fmt"
	"strings"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/types"
)

// protagonists is the fixed cast rotated through remixed narratives.
var protagonists = []string{"Kenji", "Yuki", "Hana", "Taro", "Mei", "Sora", "Ren", "Aiko"}

// fallbackDistractors keeps remixing possible when the caller's pooled
// distractor set is exhausted.
var fallbackDistractors = []string{
	"A kind of festival",
	"A famous painting",
	"A popular song",
	"An old legend",
}

// Remix produces a new activity derived from a: one wrong option is
// swapped for an unused distractor, option order is rotated, the
// protagonist is renamed, and the interaction type alternates between
// scenario and multiple choice with the running remix count n.
//
// The result always carries a fresh id and the remixed source tag, and
// its question fingerprint differs from the original's.
func Remix(a types.Activity, seed string, n int, distractorPool []string) types.Activity {
	out := a
	out.ID = fmt.Sprintf("%s-rx%d", a.ID, n)
	out.Source = types.SourceRemixed
	out.Tags = append(append([]string(nil), a.Tags...), "remixed")

	out.Options = remixOptions(a, seed, distractorPool)
	out.Story = renameProtagonist(a.Story, seed, a.ID)

	if n%2 == 0 {
		out.Type = types.TypeScenario
	} else {
		out.Type = types.TypeMultipleChoice
	}

	return out
}

// remixOptions swaps one wrong option for the lowest seeded-hash unused
// distractor, then rotates the option order by a deterministic offset.
func remixOptions(a types.Activity, seed string, distractorPool []string) []types.Option {
	options := make([]types.Option, len(a.Options))
	copy(options, a.Options)

	inUse := make(map[string]struct{}, len(options))
	for _, opt := range options {
		inUse[strings.ToLower(strings.TrimSpace(opt.Text))] = struct{}{}
	}

	if replacement, ok := lowestUnused(seed, a.ID, distractorPool, inUse); ok {
		if wrongIdx := pickWrongOption(a, seed, options); wrongIdx >= 0 {
			options[wrongIdx].Text = replacement
			options[wrongIdx].Hotspot = nil
		}
	}

	if len(options) > 1 {
		offset := contentkey.Index(seed, "rotate:"+a.ID, len(options))
		rotated := make([]types.Option, 0, len(options))
		rotated = append(rotated, options[offset:]...)
		rotated = append(rotated, options[:offset]...)
		options = rotated
	}

	return options
}

// lowestUnused returns the pool candidate with the lowest seeded hash
// that is not already an option text, falling back to the built-in list.
func lowestUnused(seed, activityID string, pool []string, inUse map[string]struct{}) (string, bool) {
	best := ""
	var bestRank uint32
	found := false

	consider := func(candidate string) {
		normalized := strings.ToLower(strings.TrimSpace(candidate))
		if normalized == "" {
			return
		}
		if _, used := inUse[normalized]; used {
			return
		}
		rank := contentkey.Rank(seed+":"+activityID, candidate)
		if !found || rank < bestRank || (rank == bestRank && candidate < best) {
			best, bestRank, found = candidate, rank, true
		}
	}

	for _, c := range pool {
		consider(c)
	}
	if !found {
		for _, c := range fallbackDistractors {
			consider(c)
		}
	}
	return best, found
}

// pickWrongOption selects which incorrect option gets replaced, seeded by
// the activity id. Returns -1 when every option is correct.
func pickWrongOption(a types.Activity, seed string, options []types.Option) int {
	var wrong []int
	for i, opt := range options {
		if !opt.Correct {
			wrong = append(wrong, i)
		}
	}
	if len(wrong) == 0 {
		return -1
	}
	return wrong[contentkey.Index(seed, "swap:"+a.ID, len(wrong))]
}

// renameProtagonist replaces the first cast name found in the story with
// the next name in the rotation. When no name appears, the story gains a
// fresh narrative frame so the remixed text always differs.
func renameProtagonist(story, seed, activityID string) string {
	for i, name := range protagonists {
		if strings.Contains(story, name) {
			replacement := protagonists[(i+1+contentkey.Index(seed, "cast:"+activityID, len(protagonists)-1))%len(protagonists)]
			if replacement == name {
				replacement = protagonists[(i+1)%len(protagonists)]
			}
			return strings.ReplaceAll(story, name, replacement)
		}
	}

	narrator := protagonists[contentkey.Index(seed, "narrator:"+activityID, len(protagonists))]
	if story == "" {
		return fmt.Sprintf("%s puzzles over this one.", narrator)
	}
	return fmt.Sprintf("%s remembers: %s", narrator, story)
}
