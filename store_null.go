package stepgraph

import "context"

// NullStore is a no-op implementation of GraphStore
type NullStore struct{}

func NewNullStore() *NullStore {
	return &NullStore{}
}

func (s *NullStore) SaveGraph(ctx context.Context, doc *Document) error {
	return nil
}

func (s *NullStore) LoadGraph(ctx context.Context, graphID string) (*Document, error) {
	return nil, newGraphError(ErrorTypeGraphNotFound, graphID, "")
}

func (s *NullStore) DeleteGraph(ctx context.Context, graphID string) error {
	return nil
}

func (s *NullStore) ListGraphs(ctx context.Context) ([]*GraphSummary, error) {
	return nil, nil
}
