package stepgraph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// FileStore is a GraphStore that keeps every saved revision of a graph as a
// JSON file, with latest.json pointing at the newest one
type FileStore struct {
	dataDir string
}

// NewFileStore creates a file-based store rooted at dataDir. An empty
// dataDir selects ~/.stepgraph/graphs.
func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".stepgraph", "graphs")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// SaveGraph writes a new revision of the graph and repoints latest.json
func (s *FileStore) SaveGraph(ctx context.Context, doc *Document) error {
	graphDir, err := s.graphDir(doc.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(graphDir, 0755); err != nil {
		return fmt.Errorf("failed to create graph directory: %w", err)
	}

	data, err := doc.JSON()
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	revisionPath := filepath.Join(graphDir, fmt.Sprintf("graph-%d.json", doc.SavedAt.UnixNano()))
	if err := os.WriteFile(revisionPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}

	latestPath := filepath.Join(graphDir, "latest.json")
	if err := s.updateLatest(revisionPath, latestPath, data); err != nil {
		return fmt.Errorf("failed to update latest link: %w", err)
	}
	return nil
}

// LoadGraph loads the latest revision of a graph
func (s *FileStore) LoadGraph(ctx context.Context, graphID string) (*Document, error) {
	graphDir, err := s.graphDir(graphID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(graphDir, "latest.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, newGraphError(ErrorTypeGraphNotFound, graphID, "")
		}
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	return DecodeDocument(data)
}

// DeleteGraph removes every revision of a graph
func (s *FileStore) DeleteGraph(ctx context.Context, graphID string) error {
	graphDir, err := s.graphDir(graphID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(graphDir); err != nil {
		return fmt.Errorf("failed to delete graph directory: %w", err)
	}
	return nil
}

// ListGraphs summarizes the latest revision of every saved graph
func (s *FileStore) ListGraphs(ctx context.Context) ([]*GraphSummary, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*GraphSummary{}, nil
		}
		return nil, fmt.Errorf("failed to read graphs directory: %w", err)
	}

	summaries := []*GraphSummary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		doc, err := s.LoadGraph(ctx, entry.Name())
		if err != nil {
			// Skip graphs we can't read
			continue
		}
		summaries = append(summaries, doc.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SavedAt.After(summaries[j].SavedAt)
	})
	return summaries, nil
}

// graphDir maps a graph id to its directory. Ids must name a single path
// element inside dataDir.
func (s *FileStore) graphDir(graphID string) (string, error) {
	if graphID == "" {
		return "", errors.New("graph id is empty")
	}
	if graphID == "." || strings.Contains(graphID, "..") || strings.ContainsAny(graphID, `/\`) {
		return "", fmt.Errorf("invalid graph id %q", graphID)
	}
	return filepath.Join(s.dataDir, graphID), nil
}

// updateLatest points latestPath at the newest revision. Windows gets a copy
// instead of a symlink.
func (s *FileStore) updateLatest(revisionPath, latestPath string, data []byte) error {
	if _, err := os.Lstat(latestPath); err == nil {
		if err := os.Remove(latestPath); err != nil {
			return fmt.Errorf("failed to remove existing latest link: %w", err)
		}
	}
	if runtime.GOOS == "windows" {
		return os.WriteFile(latestPath, data, 0644)
	}
	rel, err := filepath.Rel(filepath.Dir(latestPath), revisionPath)
	if err != nil {
		return fmt.Errorf("failed to create relative path: %w", err)
	}
	return os.Symlink(rel, latestPath)
}
