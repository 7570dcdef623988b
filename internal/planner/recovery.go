package planner

import (
	"fmt"

	"github.com/tanukilabs/questrun/internal/types"
)

// InsertRecoveryPack splices a focus-recovery segment into a plan after
// the given segment index and returns the resulting plan as a new value;
// the input plan is never mutated, so concurrent readers of the old value
// stay consistent. All later segment ranges shift atomically.
//
// afterSegment is clamped: anything below zero inserts before the first
// segment, anything past the end appends after the last.
func InsertRecoveryPack(plan types.QuestRunPlan, afterSegment int, pack []types.Activity, topic types.Topic) types.QuestRunPlan {
	if len(pack) == 0 {
		return plan
	}

	sanitized := sanitizePool(pack)
	if len(sanitized) == 0 {
		return plan
	}

	insertAt := 0
	segIndex := 0
	if afterSegment >= len(plan.Segments) {
		afterSegment = len(plan.Segments) - 1
	}
	if afterSegment >= 0 && len(plan.Segments) > 0 {
		insertAt = plan.Segments[afterSegment].End + 1
		segIndex = afterSegment + 1
	}

	out := plan
	out.Activities = make([]types.Activity, 0, len(plan.Activities)+len(sanitized))
	out.Activities = append(out.Activities, plan.Activities[:insertAt]...)
	out.Activities = append(out.Activities, sanitized...)
	out.Activities = append(out.Activities, plan.Activities[insertAt:]...)

	shift := len(sanitized)
	out.Segments = make([]types.Segment, 0, len(plan.Segments)+1)
	out.Segments = append(out.Segments, plan.Segments[:segIndex]...)
	out.Segments = append(out.Segments, types.Segment{
		Start:       insertAt,
		End:         insertAt + shift - 1,
		Topic:       topic,
		Goal:        fmt.Sprintf("Recover your footing in %s", topic),
		RewardStamp: fmt.Sprintf("%s-recovery-stamp", topic),
	})
	for _, seg := range plan.Segments[segIndex:] {
		seg.Start += shift
		seg.End += shift
		out.Segments = append(out.Segments, seg)
	}

	return out
}
