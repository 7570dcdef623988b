// Package scheduler decides which topic each segment of a quest run
// emphasizes, balancing available content, variety, and recency.
package scheduler

import (
	"fmt"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/types"
)

const (
	remainingWeight   = 5
	recencyPenalty    = 8
	uniquenessPenalty = 100
	recencyWindow     = 2
	maxLeadIn         = 4
	jitterSpread      = 5
)

// priorityBonus nudges core-curriculum topics ahead when supply is equal.
var priorityBonus = map[types.Topic]int{
	types.TopicPhrases: 2,
	types.TopicFood:    1,
}

// Schedule returns one topic per segment. Within the unique lead-in
// window the scheduler strongly prefers topics it has not used yet, so
// the first few segments cover distinct topics whenever enough topics
// have content. Focus topics, when supplied, are prepended and the
// natural schedule is truncated to fit.
func Schedule(segmentCount int, pool []types.Activity, focusTopics []types.Topic, seed string) []types.Topic {
	if segmentCount <= 0 {
		return nil
	}

	if len(focusTopics) >= segmentCount {
		return append([]types.Topic(nil), focusTopics[:segmentCount]...)
	}

	natural := naturalSchedule(segmentCount-len(focusTopics), pool, seed)
	return append(append([]types.Topic(nil), focusTopics...), natural...)
}

func naturalSchedule(count int, pool []types.Activity, seed string) []types.Topic {
	remaining := make(map[types.Topic]int)
	for _, a := range pool {
		remaining[a.Topic]++
	}

	distinct := 0
	for _, n := range remaining {
		if n > 0 {
			distinct++
		}
	}

	leadIn := count
	if maxLeadIn < leadIn {
		leadIn = maxLeadIn
	}
	if distinct < leadIn {
		leadIn = distinct
	}

	chosen := make(map[types.Topic]bool)
	var window []types.Topic
	schedule := make([]types.Topic, 0, count)

	for pos := 0; pos < count; pos++ {
		var best types.Topic
		bestScore := 0
		haveBest := false

		for _, topic := range types.AllTopics {
			score := remaining[topic]*remainingWeight + priorityBonus[topic]
			if inWindow(window, topic) {
				score -= recencyPenalty
			}
			if chosen[topic] && pos < leadIn {
				score -= uniquenessPenalty
			}
			score += jitter(seed, pos, topic)

			if !haveBest || score > bestScore {
				best, bestScore, haveBest = topic, score, true
			}
		}

		schedule = append(schedule, best)
		chosen[best] = true
		if remaining[best] > 0 {
			remaining[best]--
		}
		window = append(window, best)
		if len(window) > recencyWindow {
			window = window[len(window)-recencyWindow:]
		}
	}

	return schedule
}

// jitter adds a small deterministic wobble so equal-supply topics do not
// always schedule in canonical order.
func jitter(seed string, pos int, topic types.Topic) int {
	return int(contentkey.Hash(fmt.Sprintf("%s:schedule:%d:%s", seed, pos, topic)) % jitterSpread)
}

func inWindow(window []types.Topic, topic types.Topic) bool {
	for _, t := range window {
		if t == topic {
			return true
		}
	}
	return false
}
