// Package hotspot validates the 2-D click targets on map-style
// activities: coordinates are clamped into bounds and overlapping pairs
// are pushed apart with deterministic jitter.
package hotspot

import (
	"fmt"
	"math"

	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/types"
)

const (
	// MinDistancePercent is the smallest allowed distance between two
	// hotspots on one activity, in percent coordinates.
	MinDistancePercent = 8.0
	// MaxJitterAttempts bounds how many candidate positions are tried
	// before an overlap is accepted with a warning.
	MaxJitterAttempts = 10

	baseJitterRadius = 2.4
	stepJitterRadius = 1.3
)

// Warning codes.
const (
	WarnBounds  = "bounds"
	WarnOverlap = "overlap"
)

// Warning describes a non-fatal geometric problem found during validation.
type Warning struct {
	Code     string `json:"code"`
	OptionID string `json:"option_id"`
	Detail   string `json:"detail"`
}

// Result carries the normalized options and any warnings. Validation is
// best-effort: the caller may render the options regardless.
type Result struct {
	Options  []types.Option `json:"options"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

// Validate clamps every hotspot into [0,100] and enforces the minimum
// pairwise distance. When two hotspots collide, the second point is moved
// through up to MaxJitterAttempts deterministic candidate positions; a
// candidate is accepted only when it clears every other hotspot on the
// activity. Pure and synchronous: no I/O, no randomness.
func Validate(activityID string, options []types.Option) Result {
	result := Result{Options: make([]types.Option, len(options))}
	for i, opt := range options {
		result.Options[i] = opt
		if opt.Hotspot != nil {
			spot := *opt.Hotspot
			result.Options[i].Hotspot = &spot
		}
	}

	// Step 1: clamp into bounds.
	for i := range result.Options {
		spot := result.Options[i].Hotspot
		if spot == nil {
			continue
		}
		clampedX := clamp(spot.X)
		clampedY := clamp(spot.Y)
		if clampedX != spot.X || clampedY != spot.Y {
			result.Warnings = append(result.Warnings, Warning{
				Code:     WarnBounds,
				OptionID: result.Options[i].ID,
				Detail:   fmt.Sprintf("coordinate (%.1f, %.1f) clamped into [0,100]", spot.X, spot.Y),
			})
		}
		spot.X, spot.Y = clampedX, clampedY
	}

	// Step 2: push apart overlapping pairs. The second point of each
	// conflicting pair moves; candidates radiate from its original
	// clamped position.
	for i := 0; i < len(result.Options); i++ {
		a := result.Options[i].Hotspot
		if a == nil {
			continue
		}
		for j := i + 1; j < len(result.Options); j++ {
			b := result.Options[j].Hotspot
			if b == nil {
				continue
			}
			if distance(*a, *b) >= MinDistancePercent {
				continue
			}
			if !relocate(activityID, result.Options, i, j) {
				result.Warnings = append(result.Warnings, Warning{
					Code:     WarnOverlap,
					OptionID: result.Options[j].ID,
					Detail: fmt.Sprintf("hotspots %s and %s remain closer than %.0f%%",
						result.Options[i].ID, result.Options[j].ID, MinDistancePercent),
				})
			}
		}
	}

	return result
}

// relocate tries the deterministic jitter sequence for options[j], which
// conflicts with options[i]. Each candidate must clear every hotspot
// other than j itself. On failure the point keeps its last attempted
// position and false is returned.
func relocate(activityID string, options []types.Option, i, j int) bool {
	origin := *options[j].Hotspot
	idA, idB := options[i].ID, options[j].ID

	for attempt := 1; attempt <= MaxJitterAttempts; attempt++ {
		hash := contentkey.Hash(fmt.Sprintf("%s:%s:%s:%d", activityID, idA, idB, attempt))
		angleDeg := float64(hash%360) + float64(attempt*43)
		radius := baseJitterRadius + float64(attempt-1)*stepJitterRadius

		angle := angleDeg * math.Pi / 180
		candidate := types.Hotspot{
			X: clamp(origin.X + radius*math.Cos(angle)),
			Y: clamp(origin.Y + radius*math.Sin(angle)),
		}
		*options[j].Hotspot = candidate

		if clearOfAll(options, j) {
			return true
		}
	}
	return false
}

// clearOfAll reports whether options[j] keeps the minimum distance from
// every other hotspot on the activity.
func clearOfAll(options []types.Option, j int) bool {
	spot := options[j].Hotspot
	for k := range options {
		if k == j || options[k].Hotspot == nil {
			continue
		}
		if distance(*spot, *options[k].Hotspot) < MinDistancePercent {
			return false
		}
	}
	return true
}

func distance(a, b types.Hotspot) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
