package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisRepository implements Repository.
var _ Repository = (*RedisRepository)(nil)

const defaultKeyPrefix = "slidecast:job:"

// RedisRepository stores jobs as JSON values in Redis so that status
// survives restarts and can be shared between server instances.
// Each job lives under <prefix><id>; the set <prefix>ids indexes them.
type RedisRepository struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption is a function that configures a RedisRepository.
type RedisOption func(*RedisRepository)

// WithKeyPrefix overrides the "slidecast:job:" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithTTL expires finished job records d after their last save. Queued and
// running jobs never expire. Zero keeps every record forever.
func WithTTL(d time.Duration) RedisOption {
	return func(r *RedisRepository) {
		if d >= 0 {
			r.ttl = d
		}
	}
}

// NewRedisRepository creates a repository on top of an existing client.
func NewRedisRepository(rdb *redis.Client, opts ...RedisOption) *RedisRepository {
	r := &RedisRepository{rdb: rdb, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + id
}

func (r *RedisRepository) indexKey() string {
	return r.prefix + "ids"
}

// Save writes the job and adds it to the index in one transaction.
func (r *RedisRepository) Save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(toRecord(job))
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.key(job.ID), data, r.expiration(job))
	pipe.SAdd(ctx, r.indexKey(), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// expiration is the TTL for job's record. A zero expiration also clears any
// TTL left on the key.
func (r *RedisRepository) expiration(job *Job) time.Duration {
	if !job.IsTerminal() {
		return 0
	}
	return r.ttl
}

// FindByID retrieves a job by its ID.
func (r *RedisRepository) FindByID(ctx context.Context, id string) (*Job, error) {
	data, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return decodeRecord(data)
}

// List returns all indexed jobs, oldest first. Index entries whose record
// has expired are pruned.
func (r *RedisRepository) List(ctx context.Context) ([]*Job, error) {
	ids, err := r.rdb.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list job ids: %w", err)
	}
	if len(ids) == 0 {
		return []*Job{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(values))
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		job, err := decodeRecord([]byte(s))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if len(stale) > 0 {
		_ = r.rdb.SRem(ctx, r.indexKey(), stale...).Err()
	}

	sortByCreated(jobs)
	return jobs, nil
}

// Delete removes a job and its index entry.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	del := pipe.Del(ctx, r.key(id))
	pipe.SRem(ctx, r.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// record is the stored form of a Job.
type record struct {
	ID              string        `json:"id"`
	Status          Status        `json:"status"`
	Stage           string        `json:"stage,omitempty"`
	Progress        int           `json:"progress"`
	PairCount       int           `json:"pair_count"`
	Error           string        `json:"error,omitempty"`
	ErrorKind       string        `json:"error_kind,omitempty"`
	OutputVideoPath string        `json:"output_video_path,omitempty"`
	Width           int           `json:"width,omitempty"`
	Height          int           `json:"height,omitempty"`
	Duration        time.Duration `json:"duration_ns,omitempty"`
	PushToS3        bool          `json:"push_to_s3"`
	VideoURL        string        `json:"video_url,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     time.Time     `json:"completed_at"`
}

func toRecord(j *Job) record {
	c := j.Clone()
	return record{
		ID:              c.ID,
		Status:          c.Status,
		Stage:           c.Stage,
		Progress:        c.Progress,
		PairCount:       c.PairCount,
		Error:           c.Error,
		ErrorKind:       c.ErrorKind,
		OutputVideoPath: c.OutputVideoPath,
		Width:           c.Width,
		Height:          c.Height,
		Duration:        c.Duration,
		PushToS3:        c.PushToS3,
		VideoURL:        c.VideoURL,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		StartedAt:       c.StartedAt,
		CompletedAt:     c.CompletedAt,
	}
}

func (rec record) job() *Job {
	return &Job{
		ID:              rec.ID,
		Status:          rec.Status,
		Stage:           rec.Stage,
		Progress:        rec.Progress,
		PairCount:       rec.PairCount,
		Error:           rec.Error,
		ErrorKind:       rec.ErrorKind,
		OutputVideoPath: rec.OutputVideoPath,
		Width:           rec.Width,
		Height:          rec.Height,
		Duration:        rec.Duration,
		PushToS3:        rec.PushToS3,
		VideoURL:        rec.VideoURL,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		StartedAt:       rec.StartedAt,
		CompletedAt:     rec.CompletedAt,
	}
}

func decodeRecord(data []byte) (*Job, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return rec.job(), nil
}
