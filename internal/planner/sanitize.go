package planner

import (
	"fmt"

	"github.com/tanukilabs/questrun/internal/types"
)

const minOptions = 3

// neutralTruthText patches activities whose authored options carry no
// correct answer; it is true no matter what the question asked.
const neutralTruthText = "All of these are fun to learn about"

// SanitizeActivity normalizes an activity for inclusion in a plan.
// Non-info activities must end up with at least three options and exactly
// one correct answer; a missing correct answer is patched with a
// synthetic neutral-truth option, while an option list that is too short
// rejects the activity outright.
func SanitizeActivity(a types.Activity) (types.Activity, bool) {
	if !a.Interactive() {
		return a, true
	}
	if len(a.Options) < minOptions {
		return a, false
	}

	options := make([]types.Option, len(a.Options))
	copy(options, a.Options)

	correct := 0
	for i := range options {
		if options[i].Correct {
			correct++
			if correct > 1 {
				options[i].Correct = false
			}
		}
	}

	if correct == 0 {
		options = append(options, types.Option{
			ID:      fmt.Sprintf("%s-patched", a.ID),
			Text:    neutralTruthText,
			Correct: true,
		})
	}

	a.Options = options
	return a, true
}

// sanitizePool drops malformed activities and normalizes the rest.
func sanitizePool(pool []types.Activity) []types.Activity {
	out := make([]types.Activity, 0, len(pool))
	for _, a := range pool {
		sanitized, ok := SanitizeActivity(a)
		if ok {
			out = append(out, sanitized)
		}
	}
	return out
}

// SanitizePlan rebuilds a plan from untrusted input (a stored
// checkpoint): malformed activities are dropped, degenerate segments are
// removed, and surviving segments are renumbered to partition the new
// activity array without gaps. Counters pass through untouched; they are
// historical telemetry, not structure.
func SanitizePlan(plan types.QuestRunPlan) types.QuestRunPlan {
	out := plan
	out.Activities = nil
	out.Segments = nil

	for _, seg := range plan.Segments {
		if seg.Start < 0 || seg.End < seg.Start || seg.Start >= len(plan.Activities) {
			continue
		}
		end := seg.End
		if end >= len(plan.Activities) {
			end = len(plan.Activities) - 1
		}

		var kept []types.Activity
		for i := seg.Start; i <= end; i++ {
			sanitized, ok := SanitizeActivity(plan.Activities[i])
			if ok {
				kept = append(kept, sanitized)
			}
		}
		if len(kept) == 0 {
			continue
		}

		start := len(out.Activities)
		out.Activities = append(out.Activities, kept...)
		seg.Start = start
		seg.End = len(out.Activities) - 1
		out.Segments = append(out.Segments, seg)
	}

	return out
}

// HasInteractive reports whether any activity in the plan asks the
// learner for input. A plan without any is treated as empty downstream.
func HasInteractive(plan types.QuestRunPlan) bool {
	for _, a := range plan.Activities {
		if a.Interactive() {
			return true
		}
	}
	return false
}
