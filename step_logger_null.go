package stepgraph

import "context"

// NullStepLogger discards every step
type NullStepLogger struct{}

func NewNullStepLogger() *NullStepLogger {
	return &NullStepLogger{}
}

func (l *NullStepLogger) LogStep(ctx context.Context, entry *StepLogEntry) error {
	return nil
}

func (l *NullStepLogger) StepHistory(ctx context.Context, graphID string) ([]*StepLogEntry, error) {
	return nil, nil
}
