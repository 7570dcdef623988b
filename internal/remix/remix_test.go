package remix

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/types"
)

func sample() types.Activity {
	return types.Activity{
		ID:       "act-1",
		LessonID: "lesson-1",
		Type:     types.TypeMultipleChoice,
		Story:    "Kenji buys lunch at the station.",
		Question: "What is onigiri?",
		Options: []types.Option{
			{ID: "o1", Text: "A rice ball", Correct: true},
			{ID: "o2", Text: "A kind of soup"},
			{ID: "o3", Text: "A sweet drink"},
		},
		Difficulty: types.DifficultyRookie,
		Topic:      types.TopicFood,
		Source:     types.SourceAuthored,
	}
}

func TestRemix_TextDiffers(t *testing.T) {
	original := sample()
	remixed := Remix(original, "seed-1", 0, []string{"A breakfast cereal", "A spicy sauce"})

	origFP := contentkey.QuestionFingerprint(original.Story, original.Question)
	remixFP := contentkey.QuestionFingerprint(remixed.Story, remixed.Question)
	if origFP == remixFP {
		t.Errorf("remix fingerprint unchanged: %q", remixFP)
	}
	if remixed.ID == original.ID {
		t.Error("remix kept the original id")
	}
	if remixed.Source != types.SourceRemixed {
		t.Errorf("source = %s, want remixed", remixed.Source)
	}
}

func TestRemix_Deterministic(t *testing.T) {
	pool := []string{"A breakfast cereal", "A spicy sauce"}
	a := Remix(sample(), "seed-2", 1, pool)
	b := Remix(sample(), "seed-2", 1, pool)

	if !reflect.DeepEqual(a, b) {
		t.Errorf("same inputs remixed differently:\n%+v\n%+v", a, b)
	}
}

func TestRemix_SwapsOneWrongOption(t *testing.T) {
	original := sample()
	remixed := Remix(original, "seed-3", 0, []string{"A breakfast cereal"})

	originalTexts := map[string]bool{}
	for _, opt := range original.Options {
		originalTexts[opt.Text] = true
	}

	swapped := 0
	correct := 0
	for _, opt := range remixed.Options {
		if !originalTexts[opt.Text] {
			swapped++
			if opt.Correct {
				t.Errorf("correct option was swapped to %q", opt.Text)
			}
		}
		if opt.Correct {
			correct++
		}
	}
	if swapped != 1 {
		t.Errorf("swapped %d options, want 1", swapped)
	}
	if correct != 1 {
		t.Errorf("remix has %d correct options, want 1", correct)
	}
}

func TestRemix_TypeAlternates(t *testing.T) {
	even := Remix(sample(), "seed-4", 0, nil)
	odd := Remix(sample(), "seed-4", 1, nil)

	if even.Type != types.TypeScenario {
		t.Errorf("even remix type = %s, want scenario", even.Type)
	}
	if odd.Type != types.TypeMultipleChoice {
		t.Errorf("odd remix type = %s, want multiple_choice", odd.Type)
	}
}

func TestRemix_RenamesProtagonist(t *testing.T) {
	remixed := Remix(sample(), "seed-5", 0, nil)
	if strings.Contains(remixed.Story, "Kenji") {
		t.Errorf("protagonist not renamed: %q", remixed.Story)
	}
	named := false
	for _, name := range protagonists {
		if strings.Contains(remixed.Story, name) {
			named = true
		}
	}
	if !named {
		t.Errorf("no cast name in remixed story: %q", remixed.Story)
	}
}

func TestRemix_NoStoryGainsNarrativeFrame(t *testing.T) {
	bare := sample()
	bare.Story = ""
	remixed := Remix(bare, "seed-6", 0, nil)
	if remixed.Story == "" {
		t.Error("remixed story still empty; fingerprint would not change")
	}
}

func TestRemix_FallbackDistractorsWhenPoolExhausted(t *testing.T) {
	original := sample()
	// Pool only contains texts already on the activity.
	remixed := Remix(original, "seed-7", 0, []string{"A rice ball", "a kind of soup"})

	found := false
	for _, opt := range remixed.Options {
		for _, fb := range fallbackDistractors {
			if opt.Text == fb {
				found = true
			}
		}
	}
	if !found {
		t.Error("exhausted pool should fall back to built-in distractors")
	}
}
