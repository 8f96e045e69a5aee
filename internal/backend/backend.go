// Package backend defines the execution-backend contract the orchestrator
// dispatches tasks to. The backend itself (browser automation, form filling)
// is a separate service and treated as opaque.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scavenger/hunter-service/internal/types"
)

// ExecutionBackend attempts discovered tasks. It may retry or fall back
// internally; the orchestrator only sees the final result.
type ExecutionBackend interface {
	// CanExecute reports whether the backend believes it can attempt the
	// task at all (supported category, installed capabilities).
	CanExecute(task *types.Task) bool

	// Execute runs the task to completion or failure. A non-nil error is
	// equivalent to a result with Success=false.
	Execute(ctx context.Context, task *types.Task) (*types.ExecutionResult, error)
}

// HTTPBackend talks to a remote executor service over JSON.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend client for the executor at baseURL.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// CanExecute asks the executor whether it supports the task's category.
// Transport errors fail closed.
func (b *HTTPBackend) CanExecute(task *types.Task) bool {
	payload, err := json.Marshal(task)
	if err != nil {
		return false
	}
	resp, err := b.client.Post(b.baseURL+"/v1/can-execute", "application/json", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var out struct {
		CanExecute bool `json:"canExecute"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	return out.CanExecute
}

// Execute submits the task and waits for the executor's verdict.
func (b *HTTPBackend) Execute(ctx context.Context, task *types.Task) (*types.ExecutionResult, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executor call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("executor returned status %d", resp.StatusCode)
	}

	var result types.ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode executor response: %w", err)
	}
	return &result, nil
}

// Nop is a backend that accepts everything and succeeds instantly. Used by
// the CLI's dry-run mode.
type Nop struct{}

// CanExecute always reports true.
func (Nop) CanExecute(*types.Task) bool { return true }

// Execute reports immediate success with the task's own reward.
func (Nop) Execute(_ context.Context, task *types.Task) (*types.ExecutionResult, error) {
	return &types.ExecutionResult{Success: true, Reward: task.Reward, ExecutionTimeMs: 0}, nil
}
