package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rahul/gridmind/internal/action"
	"github.com/rahul/gridmind/internal/plan"
)

// Bridge forwards actions to the sidebar's executor webhook instead of
// the in-memory document. The executor replies with the same in-band
// result string convention: any body starting with "Error" is a step
// failure; transport and non-200 problems come back as Go errors and
// the engine folds them into the step result.
type Bridge struct {
	BaseURL string
	client  *http.Client
}

func NewBridge(baseURL string) *Bridge {
	return &Bridge{
		BaseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type bridgeReply struct {
	Result string `json:"result"`
}

func (b *Bridge) post(ctx context.Context, path string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", b.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executor unreachable: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read executor response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("executor returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var reply bridgeReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		// Plain-text executors are accepted as-is.
		return string(bytes.TrimSpace(raw)), nil
	}
	return reply.Result, nil
}

func (b *Bridge) ApplyAction(ctx context.Context, a action.Action) (string, error) {
	body, err := action.Encode(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode action: %v", err)
	}
	return b.post(ctx, "/execute", body)
}

func (b *Bridge) ApplyUndo(ctx context.Context, u plan.UndoInfo) (string, error) {
	body, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("failed to encode undo log: %v", err)
	}
	return b.post(ctx, "/undo", body)
}
