package dedupe

import (
	"reflect"
	"testing"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/types"
)

func activity(id, lesson string, topic types.Topic, question string) types.Activity {
	return types.Activity{
		ID:       id,
		LessonID: lesson,
		Type:     types.TypeMultipleChoice,
		Question: question,
		Topic:    topic,
		Source:   types.SourceAuthored,
	}
}

func varied(n int) []types.Activity {
	topics := types.AllTopics
	out := make([]types.Activity, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, activity(
			"act-"+string(rune('a'+i)),
			"lesson-"+string(rune('a'+i%4)),
			topics[i%len(topics)],
			"Question number "+string(rune('a'+i))+"?",
		))
	}
	return out
}

func TestSelect_Deterministic(t *testing.T) {
	pool := varied(12)

	run := func() Result {
		return Select(pool, 5, "seed-7", map[string]struct{}{}, NewState(), nil, false)
	}

	first := run()
	second := run()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different selections:\n%v\n%v", first, second)
	}
	if len(first.Selected) != 5 {
		t.Errorf("selected %d, want 5", len(first.Selected))
	}
}

// Scenario: five candidates where two share identical question text, and
// that text is already in session history. Selecting three must yield
// three distinct fingerprints.
func TestSelect_DuplicateFingerprintAcrossHistory(t *testing.T) {
	dup1 := activity("dup-1", "l1", types.TopicFood, "What is onigiri?")
	dup2 := activity("dup-2", "l2", types.TopicFood, "What is onigiri?")
	pool := []types.Activity{
		dup1,
		dup2,
		activity("fresh-1", "l3", types.TopicShrines, "What is a torii gate?"),
		activity("fresh-2", "l4", types.TopicSchool, "When does school start?"),
		activity("fresh-3", "l5", types.TopicNature, "What blooms in spring?"),
	}

	seen := map[string]struct{}{
		contentkey.QuestionFingerprint("", "What is onigiri?"): {},
	}

	result := Select(pool, 3, "seed-1", seen, NewState(), nil, false)

	if len(result.Selected) != 3 {
		t.Fatalf("selected %d, want 3", len(result.Selected))
	}
	fingerprints := make(map[string]bool)
	for _, a := range result.Selected {
		fp := contentkey.QuestionFingerprint(a.Story, a.Question)
		if fingerprints[fp] {
			t.Errorf("duplicate fingerprint %q in selection", fp)
		}
		fingerprints[fp] = true
	}
	if len(fingerprints) != 3 {
		t.Errorf("got %d distinct fingerprints, want 3", len(fingerprints))
	}
}

func TestSelect_NeverSelectsSameContentTwice(t *testing.T) {
	// Both activities share a fingerprint; even the anything-goes pass
	// must not select both.
	pool := []types.Activity{
		activity("a", "l1", types.TopicFood, "What is onigiri?"),
		activity("b", "l2", types.TopicFood, "What is onigiri?"),
	}

	result := Select(pool, 2, "seed", map[string]struct{}{}, NewState(), nil, false)

	if len(result.Selected) != 1 {
		t.Fatalf("selected %d, want 1", len(result.Selected))
	}
	if result.ShortageCount != 1 {
		t.Errorf("shortage = %d, want 1", result.ShortageCount)
	}
}

func TestSelect_HistoryFallbackFlagged(t *testing.T) {
	only := activity("seen-1", "l1", types.TopicFood, "What is onigiri?")
	seen := make(map[string]struct{})
	for _, key := range contentkey.Keys(only) {
		seen[key] = struct{}{}
	}

	result := Select([]types.Activity{only}, 1, "seed", seen, NewState(), nil, false)

	if len(result.Selected) != 1 {
		t.Fatalf("selected %d, want 1", len(result.Selected))
	}
	if result.ReusedFromHistory != 1 {
		t.Errorf("ReusedFromHistory = %d, want 1", result.ReusedFromHistory)
	}
	if len(result.HistoryFallbackIDs) != 1 || result.HistoryFallbackIDs[0] != "seen-1" {
		t.Errorf("HistoryFallbackIDs = %v, want [seen-1]", result.HistoryFallbackIDs)
	}
}

func TestSelect_PreferredTopicsRankFirst(t *testing.T) {
	pool := varied(16)

	result := Select(pool, 2, "seed-3", map[string]struct{}{}, NewState(), []types.Topic{types.TopicShrines}, false)

	if len(result.Selected) == 0 {
		t.Fatal("nothing selected")
	}
	if result.Selected[0].Topic != types.TopicShrines {
		t.Errorf("first selection topic = %s, want shrines", result.Selected[0].Topic)
	}
}

func TestSelect_FocusModeLimitsTopicsUntilFinalPass(t *testing.T) {
	pool := []types.Activity{
		activity("food-1", "l1", types.TopicFood, "What is mochi?"),
		activity("nature-1", "l2", types.TopicNature, "What blooms in spring?"),
	}

	result := Select(pool, 2, "seed", map[string]struct{}{}, NewState(), []types.Topic{types.TopicFood}, true)

	// The focused topic fills first; the off-topic item only arrives via
	// the final anything-goes pass.
	if len(result.Selected) != 2 {
		t.Fatalf("selected %d, want 2", len(result.Selected))
	}
	if result.Selected[0].Topic != types.TopicFood {
		t.Errorf("first selection = %s, want food", result.Selected[0].Topic)
	}
	if result.Selected[1].Topic != types.TopicNature {
		t.Errorf("second selection = %s, want nature", result.Selected[1].Topic)
	}
}

func TestSelect_ShortageReported(t *testing.T) {
	pool := varied(2)

	result := Select(pool, 5, "seed", map[string]struct{}{}, NewState(), nil, false)

	if len(result.Selected) != 2 {
		t.Fatalf("selected %d, want 2", len(result.Selected))
	}
	if result.ShortageCount != 3 {
		t.Errorf("shortage = %d, want 3", result.ShortageCount)
	}
}

func TestSelect_EmptyInputs(t *testing.T) {
	result := Select(nil, 3, "seed", map[string]struct{}{}, NewState(), nil, false)
	if result.ShortageCount != 3 || len(result.Selected) != 0 {
		t.Errorf("unexpected result for empty pool: %+v", result)
	}
}

func TestState_Windows(t *testing.T) {
	s := NewState()
	for i, topic := range []types.Topic{types.TopicFood, types.TopicNature, types.TopicSchool, types.TopicShrines} {
		s.MarkUsed(activity("w-"+string(rune('a'+i)), "lesson-"+string(rune('a'+i)), topic, "q?"))
	}

	// Window holds three topics; food has slid out.
	if s.TopicRecentlyUsed(types.TopicFood) {
		t.Error("food should have left the topic window")
	}
	if !s.TopicRecentlyUsed(types.TopicShrines) {
		t.Error("shrines should be in the topic window")
	}

	// Lesson window holds two; lesson-a and lesson-b have slid out.
	if s.LessonRecentlyUsed("lesson-b") {
		t.Error("lesson-b should have left the lesson window")
	}
	if !s.LessonRecentlyUsed("lesson-d") {
		t.Error("lesson-d should be in the lesson window")
	}
}
