package stepgraph

// StepFormatter renders traced steps for humans, typically on a terminal
type StepFormatter interface {
	PrintStepStart(checkpointID string, functionName string)
	PrintStepOutput(step *Step)
	PrintStepError(step *Step)
}
