package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/tanukilabs/questrun/internal/checkpoint"
	"github.com/tanukilabs/questrun/internal/config"
	"github.com/tanukilabs/questrun/internal/contentkey"
	"github.com/tanukilabs/questrun/internal/hotspot"
	"github.com/tanukilabs/questrun/internal/planner"
	"github.com/tanukilabs/questrun/internal/store"
	"github.com/tanukilabs/questrun/internal/types"
	"github.com/tanukilabs/questrun/internal/validation"
)

// Handler implements the API handlers
type Handler struct {
	store   store.Store
	codec   *checkpoint.Codec
	modes   map[string]config.ModeConfig
	planner config.PlannerConfig
	apiKey  string
	version string
}

// NewHandler creates a new Handler with store.Store interface
func NewHandler(s store.Store, cfg *config.Config, version string) *Handler {
	return &Handler{
		store:   s,
		codec:   checkpoint.New(s),
		modes:   cfg.Modes,
		planner: cfg.Planner,
		apiKey:  cfg.Auth.APIKey,
		version: version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := types.HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		ActivityCount:   stats.ActivityCount,
		FactSeedCount:   stats.FactSeedCount,
		CheckpointCount: stats.CheckpointCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// IngestActivities handles POST /api/v1/activities
func (h *Handler) IngestActivities(w http.ResponseWriter, r *http.Request) {
	var req types.IngestActivitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if len(req.Activities) == 0 {
		WriteProblem(w, r, http.StatusBadRequest, "activities must not be empty")
		return
	}

	// Validate each activity, separate valid from invalid (partial acceptance)
	var valid []types.Activity
	var allErrors []string
	var warnings []types.HotspotWarning

	for i, a := range req.Activities {
		var c validation.Collector
		validation.ValidateActivity(&c, fmt.Sprintf("activities[%d]", i), a)
		if c.HasErrors() {
			for _, err := range c.Errors() {
				allErrors = append(allErrors, fmt.Sprintf("%s: %s", err.Field, err.Message))
			}
			continue
		}

		// Hotspot geometry is repaired at ingest so runs never see
		// out-of-bounds or overlapping click targets.
		if a.Type == types.TypeMapClick {
			result := hotspot.Validate(a.ID, a.Options)
			a.Options = result.Options
			for _, warn := range result.Warnings {
				warnings = append(warnings, types.HotspotWarning{
					ActivityID: a.ID,
					OptionID:   warn.OptionID,
					Code:       warn.Code,
					Detail:     warn.Detail,
				})
			}
		}

		valid = append(valid, a)
	}

	resp := types.IngestActivitiesResponse{
		Rejected: len(req.Activities) - len(valid),
		Errors:   allErrors,
		Warnings: warnings,
	}

	if len(valid) > 0 {
		result, err := h.store.UpsertActivities(r.Context(), valid)
		if err != nil {
			slog.Error("activity ingest failed", "error", err, "count", len(valid))
			MapStoreError(w, r, err)
			return
		}
		resp.Inserted = result.Inserted
		resp.Updated = result.Updated
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// IngestFacts handles POST /api/v1/facts
func (h *Handler) IngestFacts(w http.ResponseWriter, r *http.Request) {
	var req types.IngestFactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if len(req.Facts) == 0 {
		WriteProblem(w, r, http.StatusBadRequest, "facts must not be empty")
		return
	}

	var valid []types.FactSeed
	var allErrors []string

	for i, f := range req.Facts {
		var c validation.Collector
		validation.ValidateFactSeed(&c, fmt.Sprintf("facts[%d]", i), f)
		if c.HasErrors() {
			for _, err := range c.Errors() {
				allErrors = append(allErrors, fmt.Sprintf("%s: %s", err.Field, err.Message))
			}
			continue
		}
		valid = append(valid, f)
	}

	resp := types.IngestFactsResponse{
		Rejected: len(req.Facts) - len(valid),
		Errors:   allErrors,
	}

	if len(valid) > 0 {
		result, err := h.store.UpsertFactSeeds(r.Context(), valid)
		if err != nil {
			slog.Error("fact ingest failed", "error", err, "count", len(valid))
			MapStoreError(w, r, err)
			return
		}
		resp.Inserted = result.Inserted
		resp.Updated = result.Updated
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// BuildRun handles POST /api/v1/runs. It assembles a plan, assigns a
// session key, and persists the seen-key and summary telemetry for the
// child.
func (h *Handler) BuildRun(w http.ResponseWriter, r *http.Request) {
	var req types.BuildRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if !h.validateRunFields(w, r, req) {
		return
	}

	snap, ok := h.loadSnapshot(w, r, req.ChildID)
	if !ok {
		return
	}

	plan, ok := h.assemblePlan(w, r, req, req.Mode, snap)
	if !ok {
		return
	}
	plan.SessionKey = ulid.Make().String()

	ctx := r.Context()
	now := time.Now().UTC()

	keys := planContentKeys(plan)
	if err := h.store.RecordSeenKeys(ctx, plan.ChildID, keys, now); err != nil {
		slog.Error("record seen keys failed", "error", err, "child_id", plan.ChildID)
		MapStoreError(w, r, err)
		return
	}

	if err := h.store.UpsertRunSummaries(ctx, summaryRows(plan)); err != nil {
		slog.Error("run summary upsert failed", "error", err, "child_id", plan.ChildID)
		MapStoreError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.BuildRunResponse{Plan: *plan})
}

// PreviewRun handles POST /api/v1/runs/preview. Assembly is identical to
// BuildRun but nothing is persisted and no session keys are assigned, so
// the same request always yields the same plans. One independent plan is
// built per requested mode; each build starts from its own copy of the
// child's seen-key history.
func (h *Handler) PreviewRun(w http.ResponseWriter, r *http.Request) {
	var req types.PreviewRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if !h.validateRunFields(w, r, req.BuildRunRequest) {
		return
	}

	modes := req.Modes
	if len(modes) == 0 {
		modes = []string{req.Mode}
	}

	snap, ok := h.loadSnapshot(w, r, req.ChildID)
	if !ok {
		return
	}

	var resp types.PreviewRunResponse
	for _, mode := range modes {
		plan, ok := h.assemblePlan(w, r, req.BuildRunRequest, mode, snap)
		if !ok {
			return
		}
		resp.Plans = append(resp.Plans, *plan)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// validateRunFields rejects a run request with a problem response when
// any field is malformed. Returns true when the request is usable.
func (h *Handler) validateRunFields(w http.ResponseWriter, r *http.Request, req types.BuildRunRequest) bool {
	var c validation.Collector
	c.Add(validation.ValidateRequired("child_id", req.ChildID))
	for i, topic := range req.FocusTopics {
		c.Add(validation.ValidateTopic(fmt.Sprintf("focus_topics[%d]", i), topic))
	}
	if req.Difficulty != 0 {
		c.Add(validation.ValidateDifficulty("difficulty", req.Difficulty))
	}
	if req.ReadingLevel != "" {
		c.Add(validation.ValidateEnum("reading_level", string(req.ReadingLevel), []string{
			string(types.ReadingBeginner),
			string(types.ReadingIntermediate),
			string(types.ReadingAdvanced),
		}))
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return false
	}
	return true
}

// snapshot is the content state one or more plan builds work from.
type snapshot struct {
	pool     []types.Activity
	facts    []types.FactSeed
	seenKeys map[string]struct{}
}

// loadSnapshot reads the activity pool, fact seeds, and the child's
// recent seen keys.
func (h *Handler) loadSnapshot(w http.ResponseWriter, r *http.Request, childID string) (snapshot, bool) {
	ctx := r.Context()

	pool, err := h.store.ListActivities(ctx)
	if err != nil {
		slog.Error("load activity pool failed", "error", err)
		MapStoreError(w, r, err)
		return snapshot{}, false
	}
	facts, err := h.store.ListFactSeeds(ctx)
	if err != nil {
		slog.Error("load fact seeds failed", "error", err)
		MapStoreError(w, r, err)
		return snapshot{}, false
	}
	recentKeys, err := h.store.RecentSeenKeys(ctx, childID, h.planner.SeenKeyLimit)
	if err != nil {
		slog.Error("load seen keys failed", "error", err, "child_id", childID)
		MapStoreError(w, r, err)
		return snapshot{}, false
	}

	seenKeys := make(map[string]struct{}, len(recentKeys))
	for _, k := range recentKeys {
		seenKeys[k] = struct{}{}
	}
	return snapshot{pool: pool, facts: facts, seenKeys: seenKeys}, true
}

// assemblePlan builds one plan for the named mode. The builder copies the
// snapshot's seen-key set, so repeated calls are independent.
func (h *Handler) assemblePlan(w http.ResponseWriter, r *http.Request, req types.BuildRunRequest, modeName string, snap snapshot) (*types.QuestRunPlan, bool) {
	mc, ok := h.modes[modeName]
	if !ok {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", modeName))
		return nil, false
	}

	readingLevel := req.ReadingLevel
	if readingLevel == "" {
		readingLevel = types.ReadingLevel(h.planner.DefaultReadingLevel)
	}
	seed := req.Seed
	if seed == "" {
		seed = fmt.Sprintf("%s:%s", req.ChildID, modeName)
	}

	plan := planner.BuildPlan(planner.Input{
		ChildID: req.ChildID,
		Mode: planner.Mode{
			Name:                modeName,
			SegmentCount:        mc.Segments,
			QuestionsPerSegment: mc.QuestionsPerSegment,
			TargetMinutes:       mc.TargetMinutes,
			BossIntervalMinutes: mc.BossIntervalMinutes,
		},
		Pool:         snap.pool,
		Facts:        snap.facts,
		Seed:         seed,
		SeenKeys:     snap.seenKeys,
		FocusTopics:  req.FocusTopics,
		Difficulty:   req.Difficulty,
		ReadingLevel: readingLevel,
	})
	return plan, true
}

// GetCheckpoint handles GET /api/v1/checkpoints/{childID}
func (h *Handler) GetCheckpoint(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")

	cp, err := h.codec.Load(r.Context(), childID)
	if err != nil {
		slog.Error("checkpoint load failed", "error", err, "child_id", childID)
		MapStoreError(w, r, err)
		return
	}
	if cp == nil {
		WriteProblem(w, r, http.StatusNotFound, "No checkpoint for this child")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.CheckpointResponse{Checkpoint: cp})
}

// SaveCheckpoint handles PUT /api/v1/checkpoints/{childID}
func (h *Handler) SaveCheckpoint(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")

	var req types.SaveCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	cp := types.Checkpoint{
		ChildID:     childID,
		Plan:        req.Plan,
		Progress:    req.Progress,
		ContentKeys: req.ContentKeys,
		Performance: req.Performance,
	}
	if err := h.codec.Save(r.Context(), cp); err != nil {
		slog.Error("checkpoint save failed", "error", err, "child_id", childID)
		MapStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteCheckpoint handles DELETE /api/v1/checkpoints/{childID}
func (h *Handler) DeleteCheckpoint(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")

	if err := h.codec.Delete(r.Context(), childID); err != nil {
		slog.Error("checkpoint delete failed", "error", err, "child_id", childID)
		MapStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// planContentKeys collects every dedupe key the plan's activities carry.
func planContentKeys(plan *types.QuestRunPlan) []string {
	var keys []string
	for _, a := range plan.Activities {
		keys = append(keys, contentkey.Keys(a)...)
	}
	return keys
}

// summaryRows converts the plan's per-topic telemetry into persistent rows.
func summaryRows(plan *types.QuestRunPlan) []types.RunSummaryRow {
	totals := make(map[types.Topic]int)
	for _, seg := range plan.Segments {
		totals[seg.Topic] += seg.End - seg.Start + 1
	}

	var rows []types.RunSummaryRow
	for _, topic := range types.AllTopics {
		counters, hasCounters := plan.TopicCounters[topic]
		total, hasTotal := totals[topic]
		if !hasCounters && !hasTotal {
			continue
		}
		rows = append(rows, types.RunSummaryRow{
			ChildID:    plan.ChildID,
			SessionKey: plan.SessionKey,
			Topic:      topic,
			Total:      total,
			Generated:  counters.Generated,
			Remixed:    counters.Remixed,
			Shortage:   counters.Shortage,
		})
	}
	return rows
}
