package stepgraph

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the persisted form of a graph: every node with its
// attributes, in insertion order, and every edge.
type Document struct {
	ID      string    `json:"id" yaml:"id"`
	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`
	Nodes   []*Node   `json:"nodes" yaml:"nodes"`
	Edges   []Edge    `json:"edges" yaml:"edges"`
}

// Document captures the graph under the given identifier
func (g *Graph) Document(id string) *Document {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return &Document{
		ID:      id,
		SavedAt: time.Now().UTC(),
		Nodes:   g.adj.nodeCopies(nil),
		Edges:   append([]Edge{}, g.adj.edges...),
	}
}

// RestoreGraph rebuilds a graph from a document. Node attributes, including
// checkpoint readiness flags, are taken as saved. Edges are restored as-is,
// so a document holding a dangling edge or a cycle restores to a graph the
// Analyzer reports the same way.
func RestoreGraph(doc *Document) (*Graph, error) {
	g := NewGraph()
	for i, node := range doc.Nodes {
		if node == nil || node.ID == "" {
			return nil, fmt.Errorf("node %d has no id", i)
		}
		if g.adj.has(node.ID) {
			return nil, newGraphError(ErrorTypeDuplicateNode, node.ID, "duplicate node in document")
		}
		if !node.IsCheckpoint() && !node.IsStep() {
			return nil, fmt.Errorf("node %q: kind %q does not match its attributes", node.ID, node.Kind)
		}
		g.adj.insertNode(node.Copy())
	}
	for _, e := range doc.Edges {
		if !g.adj.has(e.From) {
			return nil, newGraphError(ErrorTypeUnknownStep, e.From, "edge source not in document")
		}
		g.adj.insertEdge(e)
	}
	return g, nil
}

// Summary describes the document without its node payloads
func (d *Document) Summary() *GraphSummary {
	s := &GraphSummary{
		GraphID: d.ID,
		SavedAt: d.SavedAt,
		Nodes:   len(d.Nodes),
		Edges:   len(d.Edges),
	}
	for _, node := range d.Nodes {
		switch {
		case node.IsCheckpoint():
			s.Checkpoints++
			if node.Checkpoint.Completed {
				s.CompletedCheckpoints++
			}
		case node.IsStep():
			s.Steps++
			if node.Step.Status == StepStatusError {
				s.FailedSteps++
			}
			s.TotalTokens += node.Step.Cost.Total()
		}
	}
	return s
}

// JSON encodes the document as indented JSON
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// YAML encodes the document as YAML
func (d *Document) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// DecodeDocument parses a JSON encoded document
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}
	return &doc, nil
}
