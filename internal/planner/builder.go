// Package planner assembles quest run plans: it composes the topic
// scheduler, the dedupe selector, and the fallback cascade into a final
// ordered activity list partitioned into segments.
package planner

import (
	"fmt"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/dedupe"
	"github.com/tanukilabs/questrun/internal/generator"
	"github.com/tanukilabs/questrun/internal/remix"
	"github.com/tanukilabs/questrun/internal/scheduler"
	"github.com/tanukilabs/questrun/internal/types"
)

// Mode describes one selectable run length.
type Mode struct {
	Name                string
	SegmentCount        int
	QuestionsPerSegment int
	TargetMinutes       int
	BossIntervalMinutes int
}

// Input gathers everything a build needs. The builder never mutates the
// caller's pool, facts, or seen-key set; it works on copies so repeated
// preview builds stay independent.
type Input struct {
	ChildID      string
	Mode         Mode
	Pool         []types.Activity
	Facts        []types.FactSeed
	Seed         string
	SeenKeys     map[string]struct{}
	FocusTopics  []types.Topic
	Difficulty   types.Difficulty
	ReadingLevel types.ReadingLevel
}

// BuildPlan deterministically assembles a quest run. Identical inputs
// always produce an identical plan. Content scarcity is never an error:
// the plan is returned with however many activities could be assembled,
// and the shortfall shows up only in the counters.
func BuildPlan(in Input) *types.QuestRunPlan {
	if in.Difficulty == 0 {
		in.Difficulty = types.DifficultyRookie
	}
	if in.ReadingLevel == "" {
		in.ReadingLevel = types.ReadingBeginner
	}

	pool := sanitizePool(in.Pool)
	schedule := scheduler.Schedule(in.Mode.SegmentCount, pool, in.FocusTopics, in.Seed)

	state := dedupe.NewState()
	seenKeys := copyKeySet(in.SeenKeys)
	questionKeys := questionKeysFrom(seenKeys)
	focus := len(in.FocusTopics) > 0

	plan := &types.QuestRunPlan{
		ChildID:       in.ChildID,
		Mode:          in.Mode.Name,
		TargetMinutes: in.Mode.TargetMinutes,
		TopicCounters: make(map[types.Topic]types.FallbackCounters),
	}

	remixCount := 0
	minutesPerSegment := 0
	if in.Mode.SegmentCount > 0 {
		minutesPerSegment = in.Mode.TargetMinutes / in.Mode.SegmentCount
	}
	elapsed := 0
	nextBossAt := in.Mode.BossIntervalMinutes

	for segIdx, topic := range schedule {
		segSeed := fmt.Sprintf("%s:segment:%d", in.Seed, segIdx)
		var segCounters types.FallbackCounters

		activities := fillSegment(
			pool, in.Facts, topic, in, segSeed,
			seenKeys, state, questionKeys, focus,
			&remixCount, &segCounters,
		)
		elapsed += minutesPerSegment
		if in.Mode.BossIntervalMinutes > 0 && elapsed >= nextBossAt {
			activities = append(activities, bossChallenge(topic, segIdx))
			nextBossAt += in.Mode.BossIntervalMinutes
		}
		activities = smoothTypeStreaks(activities)

		start := len(plan.Activities)
		plan.Activities = append(plan.Activities, activities...)
		plan.Activities = append(plan.Activities, recapBeat(topic, segIdx))

		plan.Segments = append(plan.Segments, types.Segment{
			Start:       start,
			End:         len(plan.Activities) - 1,
			Topic:       topic,
			Goal:        fmt.Sprintf("Explore %s", topic),
			RewardStamp: fmt.Sprintf("%s-stamp-%d", topic, segIdx+1),
		})

		plan.Counters.Add(segCounters)
		topicTotal := plan.TopicCounters[topic]
		topicTotal.Add(segCounters)
		plan.TopicCounters[topic] = topicTotal
	}

	return plan
}

// fillSegment runs the selection and, when the pool comes up short, the
// fallback cascade: remix reused history items, generate from facts, and
// finally remix arbitrary pool items. Every fallback unit bumps the
// matching counter; nothing here returns an error.
func fillSegment(
	pool []types.Activity,
	facts []types.FactSeed,
	topic types.Topic,
	in Input,
	segSeed string,
	seenKeys map[string]struct{},
	state *dedupe.State,
	questionKeys map[string]struct{},
	focus bool,
	remixCount *int,
	counters *types.FallbackCounters,
) []types.Activity {
	preferred := []types.Topic{topic}
	if focus {
		for _, t := range in.FocusTopics {
			if t != topic {
				preferred = append(preferred, t)
			}
		}
	}

	result := dedupe.Select(pool, in.Mode.QuestionsPerSegment, segSeed, seenKeys, state, preferred, focus)
	activities := result.Selected
	claimFingerprints(activities, questionKeys)

	distractors := distractorPool(pool, facts, topic)

	// Cascade step 1: anything reused from history must be remixed
	// before it is shown again.
	if len(result.HistoryFallbackIDs) > 0 {
		reused := make(map[string]bool, len(result.HistoryFallbackIDs))
		for _, id := range result.HistoryFallbackIDs {
			reused[id] = true
		}
		for i, a := range activities {
			if !reused[a.ID] {
				continue
			}
			remixed := remix.Remix(a, segSeed, *remixCount, distractors)
			*remixCount++
			counters.Remixed++
			claimActivity(remixed, state, questionKeys)
			activities[i] = remixed
		}
	}

	shortfall := result.ShortageCount

	// Cascade step 2: compile fresh questions from the fact pool and
	// route them back through the selector so they dedupe against the
	// session history like any authored content.
	if shortfall > 0 && len(facts) > 0 {
		generated := generator.Generate(
			facts, topic, in.Difficulty, in.ReadingLevel,
			shortfall, questionKeys, segSeed+":gen",
		)
		if len(generated) > 0 {
			genPool := make([]types.Activity, 0, len(generated))
			for i, q := range generated {
				genPool = append(genPool, generatedActivity(q, segSeed, i))
			}
			genResult := dedupe.Select(genPool, shortfall, segSeed+":genselect", seenKeys, state, preferred, false)
			claimFingerprints(genResult.Selected, questionKeys)
			activities = append(activities, genResult.Selected...)
			counters.Generated += len(genResult.Selected)
			shortfall -= len(genResult.Selected)
		}
	}

	// Cascade step 3: remix arbitrary pool items, not just ones the
	// learner has already seen.
	if shortfall > 0 {
		candidates := make([]types.Activity, len(pool))
		copy(candidates, pool)
		contentkey.SortSeeded(candidates, segSeed+":refill", func(a types.Activity) string { return a.ID })

		for _, candidate := range candidates {
			if shortfall == 0 {
				break
			}
			if !candidate.Interactive() {
				continue
			}
			remixed := remix.Remix(candidate, segSeed+":refill", *remixCount, distractors)
			if state.Used(remixed) {
				continue
			}
			*remixCount++
			counters.Remixed++
			claimActivity(remixed, state, questionKeys)
			activities = append(activities, remixed)
			shortfall--
		}
	}

	counters.Shortage += shortfall
	return activities
}

// generatedActivity converts a compiled question into a pool activity.
func generatedActivity(q types.GeneratedQuestion, segSeed string, ordinal int) types.Activity {
	options := make([]types.Option, len(q.Choices))
	for i, choice := range q.Choices {
		options[i] = types.Option{
			ID:      fmt.Sprintf("gen-%s-%d-o%d", q.FactID, ordinal, i),
			Text:    choice,
			Correct: i == q.AnswerIndex,
		}
	}
	return types.Activity{
		ID:         fmt.Sprintf("gen-%s-%d", q.FactID, ordinal),
		LessonID:   "",
		Type:       types.TypeMultipleChoice,
		Story:      q.Story,
		Question:   q.Question,
		Options:    options,
		Difficulty: q.Difficulty,
		Topic:      q.Topic,
		Tags:       q.Tags,
		Source:     types.SourceGenerated,
	}
}

// bossChallenge templates the system scenario appended when accumulated
// time crosses the boss interval.
func bossChallenge(topic types.Topic, segIdx int) types.Activity {
	return types.Activity{
		ID:       fmt.Sprintf("boss-%d", segIdx+1),
		Type:     types.TypeScenario,
		Story:    fmt.Sprintf("Stage %d: a grand challenge about %s blocks the path!", segIdx+1, topic),
		Question: fmt.Sprintf("Show everything you know about %s to pass stage %d.", topic, segIdx+1),
		Options: []types.Option{
			{ID: fmt.Sprintf("boss-%d-o0", segIdx+1), Text: "Take the challenge", Correct: true},
			{ID: fmt.Sprintf("boss-%d-o1", segIdx+1), Text: "Practice a little more"},
			{ID: fmt.Sprintf("boss-%d-o2", segIdx+1), Text: "Ask for a hint"},
		},
		Difficulty: types.DifficultyScout,
		Topic:      topic,
		Source:     types.SourceSystem,
	}
}

// recapBeat templates the info activity that closes every segment.
func recapBeat(topic types.Topic, segIdx int) types.Activity {
	return types.Activity{
		ID:       fmt.Sprintf("recap-%d", segIdx+1),
		Type:     types.TypeInfo,
		Question: fmt.Sprintf("Great work! You explored %s in this part of the quest.", topic),
		Topic:    topic,
		Source:   types.SourceSystem,
	}
}

// smoothTypeStreaks reorders (or as a last resort retypes) activities so
// no three consecutive interactive activities share an interaction type.
func smoothTypeStreaks(activities []types.Activity) []types.Activity {
	for i := 2; i < len(activities); i++ {
		a, b, c := activities[i-2], activities[i-1], activities[i]
		if !a.Interactive() || !b.Interactive() || !c.Interactive() {
			continue
		}
		if a.Type != b.Type || b.Type != c.Type {
			continue
		}

		swapped := false
		for j := i + 1; j < len(activities); j++ {
			if activities[j].Type != c.Type {
				activities[i], activities[j] = activities[j], activities[i]
				swapped = true
				break
			}
		}
		if swapped {
			continue
		}

		// No swap candidate exists; flip the presentation style instead.
		if c.Type == types.TypeScenario {
			activities[i].Type = types.TypeMultipleChoice
		} else {
			activities[i].Type = types.TypeScenario
		}
	}
	return activities
}

// distractorPool gathers wrong-answer texts relevant to a topic for the
// remix engine: fact distractors first, then wrong options already in
// the authored pool.
func distractorPool(pool []types.Activity, facts []types.FactSeed, topic types.Topic) []string {
	var out []string
	for _, fact := range facts {
		if fact.Topic == topic {
			out = append(out, fact.Distractors...)
		}
	}
	for _, a := range pool {
		if a.Topic != topic {
			continue
		}
		for _, opt := range a.Options {
			if !opt.Correct && opt.Text != "" {
				out = append(out, opt.Text)
			}
		}
	}
	return out
}

func claimFingerprints(activities []types.Activity, questionKeys map[string]struct{}) {
	for _, a := range activities {
		if fp := contentkey.QuestionFingerprint(a.Story, a.Question); fp != "" {
			questionKeys[fp] = struct{}{}
		}
	}
}

func claimActivity(a types.Activity, state *dedupe.State, questionKeys map[string]struct{}) {
	for _, key := range contentkey.Keys(a) {
		state.MarkKeyUsed(key)
	}
	if fp := contentkey.QuestionFingerprint(a.Story, a.Question); fp != "" {
		questionKeys[fp] = struct{}{}
	}
}

func copyKeySet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

// questionKeysFrom seeds the generator's fingerprint set with every
// question key already in session history.
func questionKeysFrom(seenKeys map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for key := range seenKeys {
		if len(key) > 9 && key[:9] == "question:" {
			out[key] = struct{}{}
		}
	}
	return out
}
