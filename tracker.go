package stepgraph

import (
	"log/slog"
)

// Progress summarizes checkpoint states
type Progress struct {
	Total     int `json:"total"`
	NotReady  int `json:"not_ready"`
	Ready     int `json:"ready"`
	Completed int `json:"completed"`
}

// Done reports whether every checkpoint is completed
func (p Progress) Done() bool {
	return p.Total > 0 && p.Completed == p.Total
}

// StateTracker drives the checkpoint state machine on a graph:
// not_ready -> ready -> completed. A checkpoint becomes ready when it is
// first in its chain or when the checkpoint before it completes. Completed
// is terminal.
type StateTracker struct {
	graph  *Graph
	logger *slog.Logger
}

// NewStateTracker returns a tracker operating on the given graph
func NewStateTracker(graph *Graph, logger *slog.Logger) *StateTracker {
	if logger == nil {
		logger = NewDiscardLogger()
	}
	return &StateTracker{graph: graph, logger: logger}
}

// NextAvailable returns the first checkpoint, in insertion order, that is
// ready and not completed. When none exists the returned ErrNoAvailableWork
// carries a NoWorkReason telling a finished task apart from a stalled one.
func (t *StateTracker) NextAvailable() (*Checkpoint, error) {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()

	total, completed := 0, 0
	for _, id := range t.graph.adj.order {
		node := t.graph.adj.nodes[id]
		if !node.IsCheckpoint() {
			continue
		}
		total++
		switch node.Checkpoint.State() {
		case CheckpointReady:
			return node.Checkpoint.Copy(), nil
		case CheckpointCompleted:
			completed++
		}
	}

	if total > 0 && completed == total {
		return nil, &GraphError{
			Type:    ErrorTypeNoAvailableWork,
			Cause:   "all checkpoints completed",
			Details: NoWorkTaskComplete,
		}
	}
	return nil, &GraphError{
		Type:    ErrorTypeNoAvailableWork,
		Cause:   "no checkpoint is ready to start",
		Details: NoWorkNothingReady,
	}
}

// MarkCompleted completes a checkpoint and readies its successor checkpoint
// when it has exactly one. Completing an already completed checkpoint is a
// no-op.
func (t *StateTracker) MarkCompleted(checkpointID string) error {
	t.graph.mutex.Lock()
	defer t.graph.mutex.Unlock()

	adj := &t.graph.adj
	node, ok := adj.nodes[checkpointID]
	if !ok || !node.IsCheckpoint() {
		return newGraphError(ErrorTypeUnknownCheckpoint, checkpointID, "cannot mark completed")
	}
	checkpoint := node.Checkpoint
	if checkpoint.Completed {
		return nil
	}
	if !checkpoint.ReadyToStart {
		t.logger.Warn("completing checkpoint that was never ready",
			"checkpoint_id", checkpointID,
			"ordinal", checkpoint.Ordinal)
	}
	checkpoint.Completed = true

	var next []*Checkpoint
	for _, e := range adj.succ[checkpointID] {
		if succ, ok := adj.nodes[e.To]; ok && succ.IsCheckpoint() {
			next = append(next, succ.Checkpoint)
		}
	}
	if len(next) == 1 && !next[0].Completed {
		next[0].ReadyToStart = true
		t.logger.Debug("checkpoint ready",
			"checkpoint_id", next[0].ID,
			"ordinal", next[0].Ordinal)
	}
	t.logger.Info("checkpoint completed",
		"checkpoint_id", checkpointID,
		"ordinal", checkpoint.Ordinal)
	return nil
}

// State returns the derived state of a checkpoint
func (t *StateTracker) State(checkpointID string) (CheckpointState, error) {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()

	node, ok := t.graph.adj.nodes[checkpointID]
	if !ok || !node.IsCheckpoint() {
		return "", newGraphError(ErrorTypeUnknownCheckpoint, checkpointID, "")
	}
	return node.Checkpoint.State(), nil
}

// Progress counts checkpoints per state
func (t *StateTracker) Progress() Progress {
	t.graph.mutex.RLock()
	defer t.graph.mutex.RUnlock()

	var p Progress
	for _, node := range t.graph.adj.nodes {
		if !node.IsCheckpoint() {
			continue
		}
		p.Total++
		switch node.Checkpoint.State() {
		case CheckpointNotReady:
			p.NotReady++
		case CheckpointReady:
			p.Ready++
		case CheckpointCompleted:
			p.Completed++
		}
	}
	return p
}
