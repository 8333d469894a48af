// Package jobs tracks export job records in Redis.
package jobs

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-export/internal/common/config"
	"catalog-export/internal/common/errors"
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a job record does not exist or has expired.
var ErrNotFound = stderrors.New("export job not found")

// Job is one export job record. Records are kept for a TTL after the
// export finishes; nothing about the export itself persists.
type Job struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Selective bool      `json:"selective"`
	Artifact  string    `json:"artifact,omitempty"`
	Rows      int       `json:"rows"`
	Files     int       `json:"files"`
	ErrorMsg  string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists job records in Redis with a TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(cfg config.RedisConfig) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	return &Store{
		client: rdb,
		ttl:    time.Duration(cfg.JobTTL) * time.Second,
	}, nil
}

// NewStoreWithClient wraps an existing client (used by tests).
func NewStoreWithClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Ping tests the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func jobKey(id string) string {
	return "export:job:" + id
}

// Put writes or overwrites a job record, refreshing its TTL.
func (s *Store) Put(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return errors.NewJobStoreFailedError(err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, s.ttl).Err(); err != nil {
		return errors.NewJobStoreFailedError(err)
	}
	return nil
}

// Get returns the job record for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, errors.NewJobStoreFailedError(err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.NewJobStoreFailedError(err)
	}
	return &job, nil
}
