package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"fairtable/internal/codec"
	"fairtable/internal/exec"
	"fairtable/internal/kvdb"
	"fairtable/internal/round"
)

// ErrNoRound reports that the table has no round yet.
var ErrNoRound = errors.New("no round")

// NodeClient is the replication-layer surface the orchestrator drives: a
// node accepts signed op batches and answers state reads.
type NodeClient interface {
	SubmitOps(ctx context.Context, ops []codec.Envelope) ([]exec.OpResult, error)
	Round(ctx context.Context, tableID string) (*round.Round, error)
	Seq(ctx context.Context, signer string) (uint64, error)
}

// HTTPNode speaks JSON to a remote replica node.
type HTTPNode struct {
	base   string
	client *http.Client
}

func NewHTTPNode(base string, timeout time.Duration) *HTTPNode {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNode{base: base, client: &http.Client{Timeout: timeout}}
}

func (n *HTTPNode) SubmitOps(ctx context.Context, ops []codec.Envelope) ([]exec.OpResult, error) {
	body, err := json.Marshal(map[string]any{"ops": ops})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.base+"/v1/batches", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("node rejected batch: status %d", resp.StatusCode)
	}
	var out struct {
		Results []exec.OpResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode batch result: %w", err)
	}
	return out.Results, nil
}

func (n *HTTPNode) Round(ctx context.Context, tableID string) (*round.Round, error) {
	var r round.Round
	found, err := n.getJSON(ctx, "/v1/tables/"+tableID+"/round", &r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoRound
	}
	return &r, nil
}

func (n *HTTPNode) Seq(ctx context.Context, signer string) (uint64, error) {
	var out struct {
		Seq uint64 `json:"seq"`
	}
	found, err := n.getJSON(ctx, "/v1/signers/"+signer+"/seq", &out)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return out.Seq, nil
}

func (n *HTTPNode) getJSON(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("node read %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// LocalNode embeds a single replica in-process: submitted ops apply
// straight to an executor. Used for single-node deployments and tests.
type LocalNode struct {
	mu      sync.Mutex
	exec    *exec.Executor
	db      kvdb.DB
	batchID uint64
}

func NewLocalNode(ex *exec.Executor, db kvdb.DB) *LocalNode {
	return &LocalNode{exec: ex, db: db}
}

func (n *LocalNode) SubmitOps(ctx context.Context, ops []codec.Envelope) ([]exec.OpResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batchID++
	res, err := n.exec.ApplyBatch(codec.Batch{ID: n.batchID, TimeMS: time.Now().UnixMilli(), Ops: ops})
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

func (n *LocalNode) Round(ctx context.Context, tableID string) (*round.Round, error) {
	st := exec.NewState(exec.NewOverlay(n.db))
	r, ok, err := st.Round(tableID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoRound
	}
	return r, nil
}

func (n *LocalNode) Seq(ctx context.Context, signer string) (uint64, error) {
	st := exec.NewState(exec.NewOverlay(n.db))
	return st.Seq(signer)
}
