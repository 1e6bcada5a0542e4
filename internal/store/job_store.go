package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

// JobTTL is how long job records stay readable after the last update
const JobTTL = 24 * time.Hour

// ErrJobNotFound is returned for unknown or expired job ids
var ErrJobNotFound = errors.New("job not found")

// keyValue is the subset of *redis.Client used for job records
type keyValue interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// JobStore keeps ingest job records in Redis
type JobStore struct {
	redis keyValue
}

func NewJobStore(redisClient keyValue) *JobStore {
	return &JobStore{redis: redisClient}
}

func jobKey(id string) string {
	return fmt.Sprintf("ingest:job:%s", id)
}

// Save writes the job record and refreshes its TTL
func (s *JobStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, JobTTL).Err()
}

// Get loads a job record
func (s *JobStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Update applies fn to the stored job and saves the result
func (s *JobStore) Update(ctx context.Context, jobID string, fn func(job *model.Job)) (*model.Job, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	fn(job)
	if err := s.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
