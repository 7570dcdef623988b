package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanukilabs/questrun/internal/config"
	"github.com/tanukilabs/questrun/internal/planner"
	"github.com/tanukilabs/questrun/internal/types"
)

var (
	planPoolPath     string
	planFactsPath    string
	planChildID      string
	planMode         string
	planSeed         string
	planFocus        string
	planDifficulty   int
	planReadingLevel string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Assemble a quest run offline",
	Long:  "Build a plan from activity and fact JSON files without running the server. The plan is printed to stdout as JSON.",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planPoolPath, "pool", "", "Path to a JSON file holding the activity pool (required)")
	planCmd.Flags().StringVar(&planFactsPath, "facts", "", "Path to a JSON file holding fact seeds")
	planCmd.Flags().StringVar(&planChildID, "child", "preview", "Child identifier")
	planCmd.Flags().StringVar(&planMode, "mode", "sixty", "Run mode name")
	planCmd.Flags().StringVar(&planSeed, "seed", "", "Deterministic seed (defaults to child and mode)")
	planCmd.Flags().StringVar(&planFocus, "focus", "", "Comma-separated focus topics")
	planCmd.Flags().IntVar(&planDifficulty, "difficulty", 1, "Difficulty 1-3")
	planCmd.Flags().StringVar(&planReadingLevel, "reading-level", "beginner", "Reading level (beginner, intermediate, advanced)")
	planCmd.MarkFlagRequired("pool")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mc, ok := cfg.Modes[planMode]
	if !ok {
		return fmt.Errorf("unknown mode %q", planMode)
	}

	var pool []types.Activity
	if err := readJSONFile(planPoolPath, &pool); err != nil {
		return fmt.Errorf("load pool: %w", err)
	}

	var facts []types.FactSeed
	if planFactsPath != "" {
		if err := readJSONFile(planFactsPath, &facts); err != nil {
			return fmt.Errorf("load facts: %w", err)
		}
	}

	var focus []types.Topic
	for _, raw := range strings.Split(planFocus, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		topic := types.Topic(raw)
		if !types.ValidTopic(topic) {
			return fmt.Errorf("unknown focus topic %q", raw)
		}
		focus = append(focus, topic)
	}

	seed := planSeed
	if seed == "" {
		seed = fmt.Sprintf("%s:%s", planChildID, planMode)
	}

	plan := planner.BuildPlan(planner.Input{
		ChildID: planChildID,
		Mode: planner.Mode{
			Name:                planMode,
			SegmentCount:        mc.Segments,
			QuestionsPerSegment: mc.QuestionsPerSegment,
			TargetMinutes:       mc.TargetMinutes,
			BossIntervalMinutes: mc.BossIntervalMinutes,
		},
		Pool:         pool,
		Facts:        facts,
		Seed:         seed,
		FocusTopics:  focus,
		Difficulty:   types.Difficulty(planDifficulty),
		ReadingLevel: types.ReadingLevel(planReadingLevel),
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
