// Package pgstore persists graph documents in PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/deepnoodle-ai/stepgraph"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stepgraph_graphs (
	id TEXT PRIMARY KEY,
	saved_at TIMESTAMPTZ NOT NULL,
	document JSONB NOT NULL,
	summary JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS stepgraph_graphs_saved_at_idx ON stepgraph_graphs (saved_at DESC);
`

// Options configures a Store
type Options struct {
	// DSN is a lib/pq connection string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	Logger       *slog.Logger
}

// Store is a stepgraph.GraphStore backed by a PostgreSQL table holding the
// latest document of each graph
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ stepgraph.GraphStore = (*Store)(nil)

// Open connects to PostgreSQL and creates the schema if needed
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres dsn required")
	}
	if opts.Logger == nil {
		opts.Logger = stepgraph.NewDiscardLogger()
	}
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{db: db, logger: opts.Logger}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s.logger.Debug("connected to postgres graph store")
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveGraph(ctx context.Context, doc *stepgraph.Document) error {
	if doc.ID == "" {
		return errors.New("graph document has no id")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	summary, err := json.Marshal(doc.Summary())
	if err != nil {
		return fmt.Errorf("failed to marshal graph summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stepgraph_graphs (id, saved_at, document, summary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET saved_at = EXCLUDED.saved_at, document = EXCLUDED.document, summary = EXCLUDED.summary`,
		doc.ID, doc.SavedAt, string(data), string(summary))
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return nil
}

func (s *Store) LoadGraph(ctx context.Context, graphID string) (*stepgraph.Document, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM stepgraph_graphs WHERE id = $1`, graphID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &stepgraph.GraphError{Type: stepgraph.ErrorTypeGraphNotFound, NodeID: graphID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	return stepgraph.DecodeDocument(data)
}

func (s *Store) DeleteGraph(ctx context.Context, graphID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stepgraph_graphs WHERE id = $1`, graphID); err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	return nil
}

func (s *Store) ListGraphs(ctx context.Context) ([]*stepgraph.GraphSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT summary FROM stepgraph_graphs ORDER BY saved_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	summaries := []*stepgraph.GraphSummary{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var summary stepgraph.GraphSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			return nil, fmt.Errorf("failed to decode graph summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}
	return summaries, rows.Err()
}
