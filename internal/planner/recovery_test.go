package planner

import (
	"testing"

	"github.com/tanukilabs/questrun/internal/types"
)

func recoveryActivities(ids ...string) []types.Activity {
	var out []types.Activity
	for _, id := range ids {
		out = append(out, types.Activity{
			ID: id, Type: types.TypeMultipleChoice, Question: id + "?",
			Topic: types.TopicGeneral,
			Options: []types.Option{
				{ID: id + "-o0", Text: "A", Correct: true},
				{ID: id + "-o1", Text: "B"},
				{ID: id + "-o2", Text: "C"},
			},
		})
	}
	return out
}

func basePlan() types.QuestRunPlan {
	return types.QuestRunPlan{
		Activities: recoveryActivities("s0a", "s0b", "s1a", "s1b"),
		Segments: []types.Segment{
			{Start: 0, End: 1, Topic: types.TopicFood},
			{Start: 2, End: 3, Topic: types.TopicNature},
		},
	}
}

func TestInsertRecoveryPack_SplicesAndRenumbers(t *testing.T) {
	plan := basePlan()
	out := InsertRecoveryPack(plan, 0, recoveryActivities("r1", "r2"), types.TopicGeneral)

	if len(out.Activities) != 6 {
		t.Fatalf("activities = %d, want 6", len(out.Activities))
	}
	if out.Activities[2].ID != "r1" || out.Activities[3].ID != "r2" {
		t.Errorf("recovery items misplaced: %s %s", out.Activities[2].ID, out.Activities[3].ID)
	}

	if len(out.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(out.Segments))
	}
	recovery := out.Segments[1]
	if recovery.Start != 2 || recovery.End != 3 || recovery.Topic != types.TopicGeneral {
		t.Errorf("recovery segment = %+v", recovery)
	}
	last := out.Segments[2]
	if last.Start != 4 || last.End != 5 {
		t.Errorf("shifted segment = %+v, want [4,5]", last)
	}

	// Partition check: no gaps, covers everything.
	next := 0
	for _, seg := range out.Segments {
		if seg.Start != next {
			t.Errorf("gap before segment %+v", seg)
		}
		next = seg.End + 1
	}
	if next != len(out.Activities) {
		t.Errorf("segments cover %d of %d", next, len(out.Activities))
	}
}

func TestInsertRecoveryPack_DoesNotMutateOriginal(t *testing.T) {
	plan := basePlan()
	InsertRecoveryPack(plan, 0, recoveryActivities("r1"), types.TopicGeneral)

	if len(plan.Activities) != 4 || len(plan.Segments) != 2 {
		t.Error("original plan mutated")
	}
	if plan.Segments[1].Start != 2 {
		t.Errorf("original segment renumbered: %+v", plan.Segments[1])
	}
}

func TestInsertRecoveryPack_EmptyPackNoOp(t *testing.T) {
	plan := basePlan()
	out := InsertRecoveryPack(plan, 0, nil, types.TopicGeneral)

	if len(out.Activities) != 4 || len(out.Segments) != 2 {
		t.Errorf("empty pack changed the plan: %d activities, %d segments",
			len(out.Activities), len(out.Segments))
	}
}

func TestInsertRecoveryPack_ClampsSegmentIndex(t *testing.T) {
	plan := basePlan()

	out := InsertRecoveryPack(plan, 99, recoveryActivities("r1"), types.TopicGeneral)
	if out.Segments[len(out.Segments)-1].Topic != types.TopicGeneral {
		t.Errorf("past-the-end insert should append: %+v", out.Segments)
	}

	out = InsertRecoveryPack(plan, -1, recoveryActivities("r2"), types.TopicGeneral)
	if out.Segments[0].Topic != types.TopicGeneral {
		t.Errorf("negative insert should prepend: %+v", out.Segments)
	}
}
