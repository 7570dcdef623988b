package hotspot

import (
	"math"
	"reflect"
	"testing"

	"github.com/tanukilabs/questrun/internal/types"
)

func mapOption(id string, x, y float64) types.Option {
	return types.Option{ID: id, Text: id, Hotspot: &types.Hotspot{X: x, Y: y}}
}

func TestValidate_ClampsOutOfBounds(t *testing.T) {
	result := Validate("act-1", []types.Option{
		mapOption("o1", -5, 104.5),
		mapOption("o2", 50, 50),
	})

	spot := result.Options[0].Hotspot
	if spot.X != 0 || spot.Y != 100 {
		t.Errorf("clamped to (%.1f, %.1f), want (0, 100)", spot.X, spot.Y)
	}

	found := false
	for _, w := range result.Warnings {
		if w.Code == WarnBounds && w.OptionID == "o1" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing bounds warning: %v", result.Warnings)
	}
}

func TestValidate_WithinBoundsInvariant(t *testing.T) {
	result := Validate("act-2", []types.Option{
		mapOption("o1", 99, 99),
		mapOption("o2", 99.5, 99.5),
		mapOption("o3", 98, 98.5),
	})

	for _, opt := range result.Options {
		spot := opt.Hotspot
		if spot.X < 0 || spot.X > 100 || spot.Y < 0 || spot.Y > 100 {
			t.Errorf("option %s at (%.2f, %.2f) out of bounds", opt.ID, spot.X, spot.Y)
		}
	}
}

// Two hotspots 2% apart end up either at least MinDistancePercent apart
// or flagged with an overlap warning; never silently overlapping.
func TestValidate_JitterConvergenceOrWarning(t *testing.T) {
	result := Validate("act-3", []types.Option{
		mapOption("o1", 50, 50),
		mapOption("o2", 51, 51.7),
	})

	a := result.Options[0].Hotspot
	b := result.Options[1].Hotspot
	dist := math.Hypot(a.X-b.X, a.Y-b.Y)

	if dist >= MinDistancePercent {
		return
	}
	for _, w := range result.Warnings {
		if w.Code == WarnOverlap {
			return
		}
	}
	t.Errorf("hotspots %.2f%% apart with no overlap warning", dist)
}

func TestValidate_PairwiseInvariant(t *testing.T) {
	options := []types.Option{
		mapOption("o1", 20, 20),
		mapOption("o2", 22, 21),
		mapOption("o3", 24, 19),
		mapOption("o4", 80, 80),
	}

	result := Validate("act-4", options)

	warned := make(map[string]bool)
	for _, w := range result.Warnings {
		if w.Code == WarnOverlap {
			warned[w.OptionID] = true
		}
	}

	for i := 0; i < len(result.Options); i++ {
		for j := i + 1; j < len(result.Options); j++ {
			a, b := result.Options[i].Hotspot, result.Options[j].Hotspot
			dist := math.Hypot(a.X-b.X, a.Y-b.Y)
			if dist < MinDistancePercent && !warned[result.Options[j].ID] && !warned[result.Options[i].ID] {
				t.Errorf("options %s and %s are %.2f%% apart with no warning",
					result.Options[i].ID, result.Options[j].ID, dist)
			}
		}
	}
}

func TestValidate_Deterministic(t *testing.T) {
	build := func() []types.Option {
		return []types.Option{
			mapOption("o1", 40, 40),
			mapOption("o2", 42, 41),
			mapOption("o3", 44, 39),
		}
	}

	a := Validate("act-5", build())
	b := Validate("act-5", build())

	if !reflect.DeepEqual(a, b) {
		t.Errorf("validation not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	input := []types.Option{mapOption("o1", -5, 50)}
	Validate("act-6", input)

	if input[0].Hotspot.X != -5 {
		t.Errorf("input mutated: %v", input[0].Hotspot)
	}
}

func TestValidate_IgnoresOptionsWithoutHotspots(t *testing.T) {
	result := Validate("act-7", []types.Option{
		{ID: "o1", Text: "plain"},
		mapOption("o2", 50, 50),
	})

	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if result.Options[0].Hotspot != nil {
		t.Error("hotspot invented for plain option")
	}
}

func TestValidate_FarApartUntouched(t *testing.T) {
	result := Validate("act-8", []types.Option{
		mapOption("o1", 10, 10),
		mapOption("o2", 90, 90),
	})

	if result.Options[0].Hotspot.X != 10 || result.Options[1].Hotspot.X != 90 {
		t.Errorf("non-conflicting hotspots moved: %+v", result.Options)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}
