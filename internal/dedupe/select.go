package dedupe

import (
	"sort"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/types"
)

// Result is the outcome of one selection call.
type Result struct {
	// Selected holds up to the requested count of activities, in
	// acceptance order.
	Selected []types.Activity
	// ReusedFromHistory counts accepted candidates whose content was
	// already in the caller's seen-key snapshot.
	ReusedFromHistory int
	// HistoryFallbackIDs lists the ids of those reused candidates; the
	// builder must remix them before presenting them again.
	HistoryFallbackIDs []string
	// ShortageCount is the unmet remainder after every relaxation pass.
	ShortageCount int
}

// passRule describes which constraints one relaxation pass enforces.
type passRule struct {
	allowSeen         bool
	allowTopicRepeat  bool
	allowLessonRepeat bool
	enforceFocus      bool
}

// passes are scanned in order; each is strictly looser than the last.
// The final pass accepts anything not already selected.
var passes = []passRule{
	{allowSeen: false, allowTopicRepeat: false, allowLessonRepeat: false, enforceFocus: true},
	{allowSeen: false, allowTopicRepeat: false, allowLessonRepeat: true, enforceFocus: true},
	{allowSeen: false, allowTopicRepeat: true, allowLessonRepeat: false, enforceFocus: true},
	{allowSeen: false, allowTopicRepeat: true, allowLessonRepeat: true, enforceFocus: true},
	{allowSeen: true, allowTopicRepeat: false, allowLessonRepeat: false, enforceFocus: true},
	{allowSeen: true, allowTopicRepeat: true, allowLessonRepeat: true, enforceFocus: false},
}

// Select picks up to count activities from candidates through ordered
// relaxation passes. seenKeys is the caller's session-history snapshot and
// is read-only here; state is the per-build mutable record and is updated
// on every acceptance. When focus is true, every pass but the last limits
// topics to preferredTopics.
//
// Identical inputs always produce identical output: candidates are ranked
// by preferred-topic position and then by seeded hash, never by a system
// random source.
func Select(
	candidates []types.Activity,
	count int,
	seed string,
	seenKeys map[string]struct{},
	state *State,
	preferredTopics []types.Topic,
	focus bool,
) Result {
	var result Result
	if count <= 0 || len(candidates) == 0 {
		result.ShortageCount = count
		if result.ShortageCount < 0 {
			result.ShortageCount = 0
		}
		return result
	}

	ranked := rankCandidates(candidates, seed, preferredTopics)

	for _, rule := range passes {
		if len(result.Selected) >= count {
			break
		}
		for _, candidate := range ranked {
			if len(result.Selected) >= count {
				break
			}
			if !acceptable(candidate, rule, seenKeys, state, preferredTopics, focus) {
				continue
			}

			seen := seenBefore(candidate, seenKeys)
			state.MarkUsed(candidate)
			result.Selected = append(result.Selected, candidate)
			if seen {
				result.ReusedFromHistory++
				result.HistoryFallbackIDs = append(result.HistoryFallbackIDs, candidate.ID)
			}
		}
	}

	result.ShortageCount = count - len(result.Selected)
	return result
}

// rankCandidates produces the deterministic total order the passes scan:
// preferred topics first (in their listed order), everything else after,
// seeded hash order within each group, with id as the final tiebreak.
func rankCandidates(candidates []types.Activity, seed string, preferredTopics []types.Topic) []types.Activity {
	ranked := make([]types.Activity, len(candidates))
	copy(ranked, candidates)

	topicRank := func(t types.Topic) int {
		for i, p := range preferredTopics {
			if p == t {
				return i
			}
		}
		return len(preferredTopics)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ti, tj := topicRank(ranked[i].Topic), topicRank(ranked[j].Topic)
		if ti != tj {
			return ti < tj
		}
		ri, rj := contentkey.Rank(seed, ranked[i].ID), contentkey.Rank(seed, ranked[j].ID)
		if ri != rj {
			return ri < rj
		}
		return ranked[i].ID < ranked[j].ID
	})

	return ranked
}

func acceptable(
	a types.Activity,
	rule passRule,
	seenKeys map[string]struct{},
	state *State,
	preferredTopics []types.Topic,
	focus bool,
) bool {
	// Never select the same content twice within one build, regardless
	// of how loose the pass is.
	if state.Used(a) {
		return false
	}
	if !rule.allowSeen && seenBefore(a, seenKeys) {
		return false
	}
	if !rule.allowTopicRepeat && state.TopicRecentlyUsed(a.Topic) {
		return false
	}
	if !rule.allowLessonRepeat && state.LessonRecentlyUsed(a.LessonID) {
		return false
	}
	if focus && rule.enforceFocus && len(preferredTopics) > 0 && !topicIn(a.Topic, preferredTopics) {
		return false
	}
	return true
}

func seenBefore(a types.Activity, seenKeys map[string]struct{}) bool {
	for _, key := range contentkey.Keys(a) {
		if _, ok := seenKeys[key]; ok {
			return true
		}
	}
	return false
}

func topicIn(t types.Topic, topics []types.Topic) bool {
	for _, candidate := range topics {
		if candidate == t {
			return true
		}
	}
	return false
}
