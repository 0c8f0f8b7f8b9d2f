package stepgraph

// CheckpointState is the readiness state of a checkpoint. It is derived from
// the ReadyToStart and Completed flags.
type CheckpointState string

const (
	CheckpointNotReady  CheckpointState = "not_ready"
	CheckpointReady     CheckpointState = "ready"
	CheckpointCompleted CheckpointState = "completed"
)

// CheckpointSpec describes a checkpoint as received from the orchestration
// layer, before it has an identity in the graph.
type CheckpointSpec struct {
	Ordinal        int      `json:"ordinal" yaml:"ordinal"`
	Description    string   `json:"description" yaml:"description"`
	ReviewCriteria []string `json:"review_criteria,omitempty" yaml:"review_criteria,omitempty"`
}

// Checkpoint is a milestone in the overall task
type Checkpoint struct {
	ID             string   `json:"id" yaml:"id"`
	Ordinal        int      `json:"ordinal" yaml:"ordinal"`
	Description    string   `json:"description" yaml:"description"`
	ReviewCriteria []string `json:"review_criteria,omitempty" yaml:"review_criteria,omitempty"`
	ReadyToStart   bool     `json:"ready_to_start" yaml:"ready_to_start"`
	Completed      bool     `json:"completed" yaml:"completed"`
}

// State returns the derived readiness state
func (c *Checkpoint) State() CheckpointState {
	switch {
	case c.Completed:
		return CheckpointCompleted
	case c.ReadyToStart:
		return CheckpointReady
	default:
		return CheckpointNotReady
	}
}

// Copy returns a copy of the checkpoint that shares no slices with it
func (c *Checkpoint) Copy() *Checkpoint {
	cp := *c
	if c.ReviewCriteria != nil {
		cp.ReviewCriteria = append([]string(nil), c.ReviewCriteria...)
	}
	return &cp
}

// NewCheckpoints maps checkpoint descriptors to checkpoints with freshly
// generated identifiers, preserving the given order.
func NewCheckpoints(specs []CheckpointSpec) []*Checkpoint {
	checkpoints := make([]*Checkpoint, 0, len(specs))
	for _, spec := range specs {
		checkpoints = append(checkpoints, &Checkpoint{
			ID:             NewCheckpointID(),
			Ordinal:        spec.Ordinal,
			Description:    spec.Description,
			ReviewCriteria: append([]string(nil), spec.ReviewCriteria...),
		})
	}
	return checkpoints
}
