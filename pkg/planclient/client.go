// Package planclient is a small HTTP client for the Quest Run service.
// It covers content ingest, run assembly, and checkpoint management.
package planclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tanukilabs/questrun/internal/types"
)

// Config holds client connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to a Quest Run server.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a new client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: config.Timeout},
	}, nil
}

// Ping checks connectivity to the server.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// IngestActivities uploads authored activities to the pool.
func (c *Client) IngestActivities(ctx context.Context, activities []types.Activity) (*types.IngestActivitiesResponse, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/v1/activities",
		types.IngestActivitiesRequest{Activities: activities})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.problemError(resp)
	}

	var out types.IngestActivitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ingest response: %w", err)
	}
	return &out, nil
}

// IngestFacts uploads fact seeds for the question generator.
func (c *Client) IngestFacts(ctx context.Context, facts []types.FactSeed) (*types.IngestFactsResponse, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/v1/facts",
		types.IngestFactsRequest{Facts: facts})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.problemError(resp)
	}

	var out types.IngestFactsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ingest response: %w", err)
	}
	return &out, nil
}

// BuildRun assembles and commits a run for a child.
func (c *Client) BuildRun(ctx context.Context, req types.BuildRunRequest) (*types.QuestRunPlan, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/v1/runs", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.problemError(resp)
	}

	var out types.BuildRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode run response: %w", err)
	}
	return &out.Plan, nil
}

// PreviewRun assembles a single run without persisting anything.
func (c *Client) PreviewRun(ctx context.Context, req types.BuildRunRequest) (*types.QuestRunPlan, error) {
	plans, err := c.PreviewRuns(ctx, types.PreviewRunRequest{BuildRunRequest: req})
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("server returned no plans")
	}
	return &plans[0], nil
}

// PreviewRuns assembles one plan per requested mode without persisting
// anything.
func (c *Client) PreviewRuns(ctx context.Context, req types.PreviewRunRequest) ([]types.QuestRunPlan, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/v1/runs/preview", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.problemError(resp)
	}

	var out types.PreviewRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode preview response: %w", err)
	}
	return out.Plans, nil
}

// GetCheckpoint fetches the child's saved checkpoint. Returns nil when
// none exists.
func (c *Client) GetCheckpoint(ctx context.Context, childID string) (*types.Checkpoint, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/v1/checkpoints/"+childID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.problemError(resp)
	}

	var out types.CheckpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode checkpoint response: %w", err)
	}
	return out.Checkpoint, nil
}

// SaveCheckpoint stores the child's current run state.
func (c *Client) SaveCheckpoint(ctx context.Context, childID string, req types.SaveCheckpointRequest) error {
	resp, err := c.send(ctx, http.MethodPut, "/api/v1/checkpoints/"+childID, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.problemError(resp)
	}
	return nil
}

// DeleteCheckpoint removes the child's saved checkpoint.
func (c *Client) DeleteCheckpoint(ctx context.Context, childID string) error {
	resp, err := c.send(ctx, http.MethodDelete, "/api/v1/checkpoints/"+childID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.problemError(resp)
	}
	return nil
}

// send sends an authenticated request to the server.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.client.Do(req)
}

// problemError converts an RFC 7807 response body into an error.
func (c *Client) problemError(resp *http.Response) error {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&problem); err != nil || problem.Title == "" {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return fmt.Errorf("server returned %d: %s: %s", resp.StatusCode, problem.Title, problem.Detail)
}
