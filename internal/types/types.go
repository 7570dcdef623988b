package types

import (
	"time"
)

// Topic classifies an activity into one of the eight content categories.
type Topic string

const (
	TopicFood      Topic = "food"
	TopicTransport Topic = "transport"
	TopicShrines   Topic = "shrines"
	TopicSchool    Topic = "school"
	TopicPhrases   Topic = "phrases"
	TopicCulture   Topic = "culture"
	TopicNature    Topic = "nature"
	TopicGeneral   Topic = "general"
)

// AllTopics lists every topic in canonical order.
var AllTopics = []Topic{
	TopicFood,
	TopicTransport,
	TopicShrines,
	TopicSchool,
	TopicPhrases,
	TopicCulture,
	TopicNature,
	TopicGeneral,
}

// ValidTopic reports whether t is one of the eight known topics.
func ValidTopic(t Topic) bool {
	for _, known := range AllTopics {
		if t == known {
			return true
		}
	}
	return false
}

// ActivityType is the interaction style of an activity.
type ActivityType string

const (
	TypeMultipleChoice ActivityType = "multiple_choice"
	TypeMapClick       ActivityType = "map_click"
	TypeFlashcard      ActivityType = "flashcard"
	TypeScenario       ActivityType = "scenario"
	TypeInfo           ActivityType = "info"
)

// Source records how an activity entered the pool.
type Source string

const (
	SourceAuthored  Source = "authored"
	SourceGenerated Source = "generated"
	SourceRemixed   Source = "remixed"
	SourceSystem    Source = "system"
)

// Difficulty is a 1–3 scale.
type Difficulty int

const (
	DifficultyRookie   Difficulty = 1
	DifficultyScout    Difficulty = 2
	DifficultyExplorer Difficulty = 3
)

// ReadingLevel adjusts vocabulary simplification.
type ReadingLevel string

const (
	ReadingBeginner     ReadingLevel = "beginner"
	ReadingIntermediate ReadingLevel = "intermediate"
	ReadingAdvanced     ReadingLevel = "advanced"
)

// Hotspot is a 2-D click target on a map-style option, in percentage
// coordinates relative to the map image.
type Hotspot struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Option is one answer choice on an activity.
type Option struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Correct bool     `json:"correct"`
	Hotspot *Hotspot `json:"hotspot,omitempty"`
}

// Activity is a single piece of content: a question, a map challenge,
// a flashcard, a scenario, or a non-interactive info beat.
type Activity struct {
	ID         string       `json:"id"`
	LessonID   string       `json:"lesson_id"`
	Type       ActivityType `json:"type"`
	Story      string       `json:"story,omitempty"`
	Question   string       `json:"question"`
	Options    []Option     `json:"options,omitempty"`
	Difficulty Difficulty   `json:"difficulty"`
	Topic      Topic        `json:"topic"`
	Tags       []string     `json:"tags,omitempty"`
	Source     Source       `json:"source"`
}

// Interactive reports whether the activity asks the learner for input.
func (a Activity) Interactive() bool {
	return a.Type != TypeInfo
}

// Segment marks a contiguous index range [Start,End] of the plan's
// activity array that emphasizes one topic.
type Segment struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Topic       Topic  `json:"topic"`
	Goal        string `json:"goal"`
	RewardStamp string `json:"reward_stamp"`
}

// FallbackCounters tallies how the fallback cascade filled a plan.
// Telemetry only; never consulted for control flow.
type FallbackCounters struct {
	Generated int `json:"generated"`
	Remixed   int `json:"remixed"`
	Shortage  int `json:"shortage"`
}

// Add accumulates another counter set into this one.
func (c *FallbackCounters) Add(other FallbackCounters) {
	c.Generated += other.Generated
	c.Remixed += other.Remixed
	c.Shortage += other.Shortage
}

// QuestRunPlan is the builder's output: the ordered activity list
// partitioned into segments, plus fallback telemetry.
type QuestRunPlan struct {
	SessionKey    string                     `json:"session_key"`
	ChildID       string                     `json:"child_id"`
	Mode          string                     `json:"mode"`
	Activities    []Activity                 `json:"activities"`
	Segments      []Segment                  `json:"segments"`
	TargetMinutes int                        `json:"target_minutes"`
	Counters      FallbackCounters           `json:"counters"`
	TopicCounters map[Topic]FallbackCounters `json:"topic_counters,omitempty"`
}

// FactSeed is a raw authored fact the generator can compile into
// a question.
type FactSeed struct {
	ID          string     `json:"id"`
	Topic       Topic      `json:"topic"`
	Difficulty  Difficulty `json:"difficulty"`
	Story       string     `json:"story"`
	Question    string     `json:"question"`
	Answer      string     `json:"answer"`
	Distractors []string   `json:"distractors"`
	Explanation string     `json:"explanation"`
	Confidence  string     `json:"confidence"`
}

// GeneratedQuestion is the compiled form of a fact seed: exactly three
// choices with the correct answer at AnswerIndex.
type GeneratedQuestion struct {
	FactID      string     `json:"fact_id"`
	Topic       Topic      `json:"topic"`
	Difficulty  Difficulty `json:"difficulty"`
	Story       string     `json:"story"`
	Question    string     `json:"question"`
	Choices     []string   `json:"choices"`
	AnswerIndex int        `json:"answer_index"`
	Explanation string     `json:"explanation"`
	Tags        []string   `json:"tags,omitempty"`
}

// PerformanceBucket accumulates per-topic answer outcomes during a run.
type PerformanceBucket struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// RunProgress is the live state a checkpoint preserves between sessions.
type RunProgress struct {
	CurrentIndex int     `json:"current_index"`
	Correct      int     `json:"correct"`
	Incorrect    int     `json:"incorrect"`
	Streak       int     `json:"streak"`
	EarnedXP     float64 `json:"earned_xp"`
}

// Checkpoint is a versioned snapshot of an in-flight run.
type Checkpoint struct {
	Version     int                         `json:"version"`
	ChildID     string                      `json:"child_id"`
	Plan        QuestRunPlan                `json:"plan"`
	Progress    RunProgress                 `json:"progress"`
	ContentKeys []string                    `json:"content_keys"`
	Performance map[Topic]PerformanceBucket `json:"performance,omitempty"`
	SavedAt     time.Time                   `json:"saved_at"`
}

// IngestResult reports the outcome of a bulk content ingest.
type IngestResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// StoreStats holds aggregate counts for the health endpoint.
type StoreStats struct {
	ActivityCount   int64 `json:"activity_count"`
	FactSeedCount   int64 `json:"fact_seed_count"`
	CheckpointCount int64 `json:"checkpoint_count"`
}

// RunSummaryRow is the idempotent telemetry row persisted per
// (child, session, topic) after a run is committed.
type RunSummaryRow struct {
	ChildID    string `json:"child_id"`
	SessionKey string `json:"session_key"`
	Topic      Topic  `json:"topic"`
	Total      int    `json:"total"`
	Generated  int    `json:"generated"`
	Remixed    int    `json:"remixed"`
	Shortage   int    `json:"shortage"`
}
