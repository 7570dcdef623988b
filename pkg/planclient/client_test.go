package planclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanukilabs/questrun/internal/types"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
				t.Errorf("missing bearer auth, got %q", got)
			}
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: "key-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing BaseURL")
	}
}

func TestPing(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestIngestActivities(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.IngestActivitiesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(types.IngestActivitiesResponse{Inserted: len(req.Activities)})
	})

	resp, err := c.IngestActivities(context.Background(), []types.Activity{
		{ID: "act-1", Type: types.TypeInfo, Story: "Hello.", Topic: types.TopicGeneral, Difficulty: 1},
	})
	if err != nil {
		t.Fatalf("IngestActivities: %v", err)
	}
	if resp.Inserted != 1 {
		t.Errorf("expected 1 inserted, got %+v", resp)
	}
}

func TestBuildRunSurfacesProblem(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"title":  "Bad Request",
			"detail": "unknown mode \"forever\"",
			"status": 400,
		})
	})

	_, err := c.BuildRun(context.Background(), types.BuildRunRequest{ChildID: "kid", Mode: "forever"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != `server returned 400: Bad Request: unknown mode "forever"` {
		t.Errorf("unexpected error text: %s", got)
	}
}

func TestPreviewRunDecodesPlan(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.PreviewRunResponse{Plans: []types.QuestRunPlan{{
			ChildID: "kid",
			Mode:    "sixty",
			Activities: []types.Activity{
				{ID: "a1", Type: types.TypeMultipleChoice, Topic: types.TopicFood},
			},
		}}})
	})

	plan, err := c.PreviewRun(context.Background(), types.BuildRunRequest{ChildID: "kid", Mode: "sixty"})
	if err != nil {
		t.Fatalf("PreviewRun: %v", err)
	}
	if plan.ChildID != "kid" || len(plan.Activities) != 1 {
		t.Errorf("unexpected plan: %+v", plan)
	}
}

func TestPreviewRunsMultiMode(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req types.PreviewRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		var plans []types.QuestRunPlan
		for _, mode := range req.Modes {
			plans = append(plans, types.QuestRunPlan{ChildID: req.ChildID, Mode: mode})
		}
		json.NewEncoder(w).Encode(types.PreviewRunResponse{Plans: plans})
	})

	plans, err := c.PreviewRuns(context.Background(), types.PreviewRunRequest{
		BuildRunRequest: types.BuildRunRequest{ChildID: "kid"},
		Modes:           []string{"sixty", "ninety"},
	})
	if err != nil {
		t.Fatalf("PreviewRuns: %v", err)
	}
	if len(plans) != 2 || plans[1].Mode != "ninety" {
		t.Errorf("unexpected plans: %+v", plans)
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	var saved *types.SaveCheckpointRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var req types.SaveCheckpointRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			saved = &req
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if saved == nil {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]any{"title": "Not Found"})
				return
			}
			json.NewEncoder(w).Encode(types.CheckpointResponse{Checkpoint: &types.Checkpoint{
				Version:  1,
				ChildID:  "kid",
				Progress: saved.Progress,
			}})
		case http.MethodDelete:
			saved = nil
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()

	cp, err := c.GetCheckpoint(ctx, "kid")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if cp != nil {
		t.Fatal("expected nil checkpoint before save")
	}

	err = c.SaveCheckpoint(ctx, "kid", types.SaveCheckpointRequest{
		Progress: types.RunProgress{CurrentIndex: 3},
	})
	if err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	cp, err = c.GetCheckpoint(ctx, "kid")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if cp == nil || cp.Progress.CurrentIndex != 3 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	if err := c.DeleteCheckpoint(ctx, "kid"); err != nil {
		t.Fatalf("DeleteCheckpoint: %v", err)
	}
	cp, err = c.GetCheckpoint(ctx, "kid")
	if err != nil {
		t.Fatalf("GetCheckpoint: %v", err)
	}
	if cp != nil {
		t.Error("expected nil checkpoint after delete")
	}
}
