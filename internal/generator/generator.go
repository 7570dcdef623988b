// Package generator compiles raw fact seeds into fully-formed questions
// when the authored pool cannot cover a segment.
package generator

import (
	"strings"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/quality"
	"github.com/tanukilabs/questrun/internal/types"
)

const choicesPerQuestion = 3

// topicDistractors supplies plausible wrong answers per topic when a fact
// does not carry enough of its own.
var topicDistractors = map[types.Topic][]string{
	types.TopicFood:      {"A kind of soup", "A sweet drink", "A breakfast cereal", "A spicy sauce"},
	types.TopicTransport: {"A city bus", "A rowing boat", "A cargo ship", "A hot air balloon"},
	types.TopicShrines:   {"A castle tower", "A city hall", "A lighthouse", "A marketplace"},
	types.TopicSchool:    {"Summer holidays", "A sports festival", "A cooking class", "A school bus"},
	types.TopicPhrases:   {"Good morning", "Thank you very much", "See you later", "Excuse me"},
	types.TopicCulture:   {"A card game", "A dance style", "A paper lantern", "A festival mask"},
	types.TopicNature:    {"A river otter", "A pine forest", "A mountain lake", "A rice field"},
	types.TopicGeneral:   {"A famous mountain", "A traditional game", "A city park", "A local market"},
}

// genericDistractors is the final fallback pool shared by all topics.
var genericDistractors = []string{
	"A kind of festival",
	"A famous painting",
	"A popular song",
	"An old legend",
}

// Generate compiles up to count questions from facts matching the topic
// and difficulty-adjacency rule. existingKeys is mutated in place: each
// emitted question claims its fingerprint there, which is how callers
// keep cross-call dedup within one planning pass. Facts that fail a
// quality gate (duplicate fingerprint, fewer than two usable distractors)
// are skipped, never reported as errors.
func Generate(
	facts []types.FactSeed,
	topic types.Topic,
	difficulty types.Difficulty,
	level types.ReadingLevel,
	count int,
	existingKeys map[string]struct{},
	seed string,
) []types.GeneratedQuestion {
	if count <= 0 {
		return nil
	}

	candidates := filterFacts(facts, topic, difficulty)
	contentkey.Shuffle(candidates, seed+":facts")

	answerBase := contentkey.Index(seed, "answer-base", choicesPerQuestion)

	var out []types.GeneratedQuestion
	for _, fact := range candidates {
		if len(out) >= count {
			break
		}

		story, question := quality.CleanQuestion(fact.Story, fact.Question, level)
		fingerprint := contentkey.QuestionFingerprint(story, question)
		if fingerprint == "" {
			continue
		}
		if _, used := existingKeys[fingerprint]; used {
			continue
		}

		distractors := pickDistractors(fact, topic, seed, 2)
		if len(distractors) < 2 {
			continue
		}

		// Rotate the answer slot with the running output count so a
		// batch never pins the correct choice to one position.
		answerIndex := (answerBase + len(out)) % choicesPerQuestion
		choices := make([]string, 0, choicesPerQuestion)
		di := 0
		for slot := 0; slot < choicesPerQuestion; slot++ {
			if slot == answerIndex {
				choices = append(choices, fact.Answer)
				continue
			}
			choices = append(choices, distractors[di])
			di++
		}

		existingKeys[fingerprint] = struct{}{}
		out = append(out, types.GeneratedQuestion{
			FactID:      fact.ID,
			Topic:       fact.Topic,
			Difficulty:  fact.Difficulty,
			Story:       story,
			Question:    question,
			Choices:     choices,
			AnswerIndex: answerIndex,
			Explanation: fact.Explanation,
			Tags:        []string{"generated", string(fact.Topic)},
		})
	}

	return out
}

// filterFacts keeps facts on-topic at the target difficulty, or one level
// below when the target is Scout or Explorer so harder runs ease in.
func filterFacts(facts []types.FactSeed, topic types.Topic, difficulty types.Difficulty) []types.FactSeed {
	var matched []types.FactSeed
	for _, fact := range facts {
		if fact.Topic != topic {
			continue
		}
		if fact.Difficulty == difficulty {
			matched = append(matched, fact)
			continue
		}
		if difficulty >= types.DifficultyScout && fact.Difficulty == difficulty-1 {
			matched = append(matched, fact)
		}
	}
	return matched
}

// pickDistractors returns up to want distinct wrong answers for a fact,
// drawn from the fact's own distractors, then the topic list, then the
// generic list, in deterministic seeded order within each tier.
func pickDistractors(fact types.FactSeed, topic types.Topic, seed string, want int) []string {
	tiers := [][]string{
		fact.Distractors,
		topicDistractors[topic],
		genericDistractors,
	}

	answer := strings.ToLower(strings.TrimSpace(fact.Answer))
	seen := map[string]struct{}{answer: {}}

	var picked []string
	for _, tier := range tiers {
		if len(picked) >= want {
			break
		}
		pool := make([]string, len(tier))
		copy(pool, tier)
		contentkey.SortSeeded(pool, seed+":distractor:"+fact.ID, func(s string) string { return s })

		for _, candidate := range pool {
			if len(picked) >= want {
				break
			}
			normalized := strings.ToLower(strings.TrimSpace(candidate))
			if normalized == "" {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			picked = append(picked, candidate)
		}
	}

	return picked
}
