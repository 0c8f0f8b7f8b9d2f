package stepgraph

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PlanStep is a unit of work declared for a checkpoint
type PlanStep struct {
	Name string         `json:"name,omitempty" yaml:"name,omitempty"`
	Work string         `json:"work" yaml:"work"`
	Type FunctionType   `json:"type,omitempty" yaml:"type,omitempty"`
	Args map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
}

// PlanCheckpoint is a checkpoint descriptor with the work planned for it.
// Ordinal defaults to the checkpoint's position in the plan.
type PlanCheckpoint struct {
	Ordinal        *int        `json:"ordinal,omitempty" yaml:"ordinal,omitempty"`
	Description    string      `json:"description" yaml:"description"`
	ReviewCriteria []string    `json:"review_criteria,omitempty" yaml:"review_criteria,omitempty"`
	Steps          []*PlanStep `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Plan is a task broken down into ordered checkpoints, as produced by an
// orchestration layer
type Plan struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Checkpoints []*PlanCheckpoint `json:"checkpoints" yaml:"checkpoints"`
}

// Validate checks the plan and sorts its checkpoints by ordinal
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("plan name required")
	}
	if len(p.Checkpoints) == 0 {
		return newGraphError(ErrorTypeEmptyInput, "", "plan has no checkpoints")
	}
	seen := map[int]bool{}
	for i, cp := range p.Checkpoints {
		if cp == nil {
			return fmt.Errorf("checkpoint %d is empty", i)
		}
		if cp.Ordinal == nil {
			ordinal := i
			cp.Ordinal = &ordinal
		}
		if *cp.Ordinal < 0 {
			return fmt.Errorf("checkpoint %d: ordinal must not be negative", i)
		}
		if seen[*cp.Ordinal] {
			return fmt.Errorf("checkpoint %d: duplicate ordinal %d", i, *cp.Ordinal)
		}
		seen[*cp.Ordinal] = true
		for j, step := range cp.Steps {
			if step == nil || step.Work == "" {
				return fmt.Errorf("checkpoint %d step %d: work required", i, j)
			}
		}
	}
	sort.SliceStable(p.Checkpoints, func(i, j int) bool {
		return *p.Checkpoints[i].Ordinal < *p.Checkpoints[j].Ordinal
	})
	return nil
}

// Specs returns the checkpoint descriptors in ordinal order. The plan must
// have been validated.
func (p *Plan) Specs() []CheckpointSpec {
	specs := make([]CheckpointSpec, 0, len(p.Checkpoints))
	for _, cp := range p.Checkpoints {
		specs = append(specs, CheckpointSpec{
			Ordinal:        *cp.Ordinal,
			Description:    cp.Description,
			ReviewCriteria: cp.ReviewCriteria,
		})
	}
	return specs
}

// StepsFor returns the steps planned for the checkpoint with the given ordinal
func (p *Plan) StepsFor(ordinal int) []*PlanStep {
	for _, cp := range p.Checkpoints {
		if cp.Ordinal != nil && *cp.Ordinal == ordinal {
			return cp.Steps
		}
	}
	return nil
}

// LoadPlanFile loads and validates a plan from a YAML file
func LoadPlanFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return LoadPlanString(string(data))
}

// LoadPlanString loads and validates a plan from a YAML string
func LoadPlanString(data string) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}
