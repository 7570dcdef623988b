package types

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	ActivityCount   int64  `json:"activity_count"`
	FactSeedCount   int64  `json:"fact_seed_count"`
	CheckpointCount int64  `json:"checkpoint_count"`
}

// IngestActivitiesRequest is the payload for POST /api/v1/activities.
type IngestActivitiesRequest struct {
	Activities []Activity `json:"activities"`
}

// HotspotWarning reports a map-click geometry adjustment made at ingest.
type HotspotWarning struct {
	ActivityID string `json:"activity_id"`
	OptionID   string `json:"option_id"`
	Code       string `json:"code"`
	Detail     string `json:"detail"`
}

// IngestActivitiesResponse reports the outcome of an activity ingest.
type IngestActivitiesResponse struct {
	Inserted int              `json:"inserted"`
	Updated  int              `json:"updated"`
	Rejected int              `json:"rejected"`
	Errors   []string         `json:"errors,omitempty"`
	Warnings []HotspotWarning `json:"warnings,omitempty"`
}

// IngestFactsRequest is the payload for POST /api/v1/facts.
type IngestFactsRequest struct {
	Facts []FactSeed `json:"facts"`
}

// IngestFactsResponse reports the outcome of a fact-seed ingest.
type IngestFactsResponse struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// BuildRunRequest is the payload for POST /api/v1/runs and
// POST /api/v1/runs/preview.
type BuildRunRequest struct {
	ChildID      string       `json:"child_id"`
	Mode         string       `json:"mode"`
	Seed         string       `json:"seed,omitempty"`
	FocusTopics  []Topic      `json:"focus_topics,omitempty"`
	Difficulty   Difficulty   `json:"difficulty,omitempty"`
	ReadingLevel ReadingLevel `json:"reading_level,omitempty"`
}

// BuildRunResponse wraps the assembled plan.
type BuildRunResponse struct {
	Plan QuestRunPlan `json:"plan"`
}

// PreviewRunRequest is the payload for POST /api/v1/runs/preview. When
// Modes is set, one independent plan is assembled per listed mode;
// otherwise the single Mode field is used.
type PreviewRunRequest struct {
	BuildRunRequest
	Modes []string `json:"modes,omitempty"`
}

// PreviewRunResponse carries one plan per previewed mode.
type PreviewRunResponse struct {
	Plans []QuestRunPlan `json:"plans"`
}

// SaveCheckpointRequest is the payload for PUT /api/v1/checkpoints/{childID}.
type SaveCheckpointRequest struct {
	Plan        QuestRunPlan                `json:"plan"`
	Progress    RunProgress                 `json:"progress"`
	ContentKeys []string                    `json:"content_keys,omitempty"`
	Performance map[Topic]PerformanceBucket `json:"performance,omitempty"`
}

// CheckpointResponse is the payload for GET /api/v1/checkpoints/{childID}.
type CheckpointResponse struct {
	Checkpoint *Checkpoint `json:"checkpoint"`
}
