// Package badgerstore persists graph documents in an embedded BadgerDB.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/deepnoodle-ai/stepgraph"
)

const (
	graphPrefix   = "graph/"
	summaryPrefix = "summary/"
)

// Config holds configuration for a Store
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in memory, for tests
	InMemory bool

	// SyncWrites syncs every write to disk before returning
	SyncWrites bool

	// Logger receives BadgerDB's own log output. Nil disables it.
	Logger *slog.Logger
}

// Store is a stepgraph.GraphStore backed by BadgerDB. Each graph keeps only
// its latest document, alongside a summary used for listing.
type Store struct {
	db *badger.DB
}

var _ stepgraph.GraphStore = (*Store)(nil)

// Open opens or creates a store
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
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
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(graphPrefix+doc.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(summaryPrefix+doc.ID), summary)
	})
}

func (s *Store) LoadGraph(ctx context.Context, graphID string) (*stepgraph.Document, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(graphPrefix + graphID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, &stepgraph.GraphError{Type: stepgraph.ErrorTypeGraphNotFound, NodeID: graphID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	return stepgraph.DecodeDocument(data)
}

func (s *Store) DeleteGraph(ctx context.Context, graphID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(graphPrefix + graphID)); err != nil {
			return err
		}
		return txn.Delete([]byte(summaryPrefix + graphID))
	})
}

func (s *Store) ListGraphs(ctx context.Context) ([]*stepgraph.GraphSummary, error) {
	summaries := []*stepgraph.GraphSummary{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(summaryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var summary stepgraph.GraphSummary
				if err := json.Unmarshal(val, &summary); err != nil {
					return err
				}
				summaries = append(summaries, &summary)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SavedAt.After(summaries[j].SavedAt)
	})
	return summaries, nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
