package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/deepnoodle-ai/stepgraph"
	"github.com/deepnoodle-ai/stepgraph/badgerstore"
	"github.com/deepnoodle-ai/stepgraph/internal/config"
	"github.com/deepnoodle-ai/stepgraph/pgstore"
	"github.com/deepnoodle-ai/stepgraph/redisstream"
)

type closer func() error

func noClose() error { return nil }

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stepgraph.GraphStore, closer, error) {
	switch cfg.Store.Backend {
	case config.StoreFile:
		store, err := stepgraph.NewFileStore(cfg.Store.Dir)
		return store, noClose, err
	case config.StoreBadger:
		store, err := badgerstore.Open(badgerstore.Config{
			Path:       cfg.Store.BadgerPath,
			SyncWrites: true,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StorePostgres:
		store, err := pgstore.Open(ctx, pgstore.Options{
			DSN:          cfg.Store.PostgresDSN,
			MaxOpenConns: cfg.Store.PostgresMaxOpenConns,
			MaxIdleConns: cfg.Store.PostgresMaxIdleConns,
			Logger:       logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoreNone:
		return stepgraph.NewNullStore(), noClose, nil
	}
	return nil, nil, fmt.Errorf("unsupported store: %s", cfg.Store.Backend)
}

func openStepLogger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stepgraph.StepLogger, closer, error) {
	switch cfg.Steps.Sink {
	case config.SinkFile:
		return stepgraph.NewFileStepLogger(cfg.Steps.Dir), noClose, nil
	case config.SinkRedis:
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Steps.Redis.Addr,
			Password:    cfg.Steps.Redis.Password,
			DB:          cfg.Steps.Redis.DB,
			DialTimeout: cfg.Steps.Redis.DialTimeout,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		sink := redisstream.New(client, redisstream.Options{
			Prefix: cfg.Steps.Redis.StreamPrefix,
			MaxLen: cfg.Steps.Redis.MaxLen,
			Logger: logger,
		})
		return sink, client.Close, nil
	case config.SinkNone:
		return stepgraph.NewNullStepLogger(), noClose, nil
	}
	return nil, nil, fmt.Errorf("unsupported step sink: %s", cfg.Steps.Sink)
}
