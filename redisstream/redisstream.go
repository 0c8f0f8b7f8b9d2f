// Package redisstream publishes traced steps to Redis Streams, one stream
// per graph, for consumers such as an indexing or memory service.
package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deepnoodle-ai/stepgraph"
)

const defaultPrefix = "stepgraph:steps:"

// Options configures a StepLogger
type Options struct {
	// Prefix is prepended to the graph id to form the stream key
	Prefix string

	// MaxLen caps each stream at roughly this many entries. Zero keeps all.
	MaxLen int64

	Logger *slog.Logger
}

// StepLogger is a stepgraph.StepLogger writing to Redis Streams
type StepLogger struct {
	client *redis.Client
	prefix string
	maxLen int64
	logger *slog.Logger
}

var _ stepgraph.StepLogger = (*StepLogger)(nil)

// New returns a StepLogger using the given client
func New(client *redis.Client, opts Options) *StepLogger {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.Logger == nil {
		opts.Logger = stepgraph.NewDiscardLogger()
	}
	return &StepLogger{
		client: client,
		prefix: opts.Prefix,
		maxLen: opts.MaxLen,
		logger: opts.Logger,
	}
}

// StreamKey returns the stream holding a graph's steps
func (l *StepLogger) StreamKey(graphID string) string {
	return l.prefix + graphID
}

// LogStep appends the step to its graph's stream
func (l *StepLogger) LogStep(ctx context.Context, entry *stepgraph.StepLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal step: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: l.StreamKey(entry.GraphID),
		Values: map[string]interface{}{
			"step_id": entry.Step.ID,
			"status":  string(entry.Step.Status),
			"data":    string(data),
		},
	}
	if l.maxLen > 0 {
		args.MaxLen = l.maxLen
		args.Approx = true
	}
	id, err := l.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}
	l.logger.Debug("step published",
		slog.String("step_id", entry.Step.ID),
		slog.String("stream", args.Stream),
		slog.String("message_id", id))
	return nil
}

// StepHistory reads every step in a graph's stream
func (l *StepLogger) StepHistory(ctx context.Context, graphID string) ([]*stepgraph.StepLogEntry, error) {
	messages, err := l.client.XRange(ctx, l.StreamKey(graphID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	entries := make([]*stepgraph.StepLogEntry, 0, len(messages))
	for _, message := range messages {
		entry, err := decode(message)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Follow delivers steps logged for a graph after lastID until ctx is done
// or handler returns an error. Use "0" to start from the beginning and "$"
// for new steps only.
func (l *StepLogger) Follow(ctx context.Context, graphID, lastID string, handler func(*stepgraph.StepLogEntry) error) error {
	stream := l.StreamKey(graphID)
	for {
		streams, err := l.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}
		for _, s := range streams {
			for _, message := range s.Messages {
				lastID = message.ID
				entry, err := decode(message)
				if err != nil {
					l.logger.Error("invalid step message",
						slog.String("stream", stream),
						slog.String("message_id", message.ID),
						slog.String("error", err.Error()))
					continue
				}
				if err := handler(entry); err != nil {
					return err
				}
			}
		}
	}
}

func decode(message redis.XMessage) (*stepgraph.StepLogEntry, error) {
	data, ok := message.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no data field", message.ID)
	}
	var entry stepgraph.StepLogEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step %s: %w", message.ID, err)
	}
	return &entry, nil
}
