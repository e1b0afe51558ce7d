package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Layout per queue:
//
//	<prefix>job:<id>        job JSON
//	<prefix><queue>:waiting zset of ids scored by run_at (ms)
//	<prefix><queue>:active  zset of ids scored by locked_until (ms)
//	<prefix><queue>:owners  hash id -> worker id holding the lock
//	<prefix><queue>:keys    hash job key -> id for non-terminal jobs
//	<prefix><queue>:dead    list of ids that failed permanently
//
// Scripts take the job key prefix as an argument, so queues are not
// cluster-safe unless every key shares a hash slot. Use a prefix with a
// hash tag, e.g. "{shopflow}:queue:", on Redis Cluster.

// KEYS: keys, waiting, job. ARGV: key, id, json, run_at_ms
var createJobScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('SET', KEYS[3], ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[2])
return 1
`)

// KEYS: keys, waiting. ARGV: key, job_prefix
var removeJobScript = redis.NewScript(`
local id = redis.call('HGET', KEYS[1], ARGV[1])
if not id then
  return 0
end
if redis.call('ZREM', KEYS[2], id) == 0 then
  return 0
end
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('DEL', ARGV[2] .. id)
return 1
`)

// KEYS: waiting, active, owners. ARGV: now_ms, locked_until_ms, job_prefix, worker_id
var claimJobScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(expired) do
  redis.call('ZREM', KEYS[2], id)
  redis.call('HDEL', KEYS[3], id)
  redis.call('ZADD', KEYS[1], ARGV[1], id)
end
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #ids == 0 then
  return false
end
local id = ids[1]
redis.call('ZREM', KEYS[1], id)
local raw = redis.call('GET', ARGV[3] .. id)
if not raw then
  return false
end
redis.call('ZADD', KEYS[2], ARGV[2], id)
redis.call('HSET', KEYS[3], id, ARGV[4])
return {id, raw}
`)

// Lock holding scripts reject a caller whose worker id differs from the
// owner recorded at claim. An empty caller id skips the check.
//
// KEYS: active, keys, job, dead, owners. ARGV: id, key, json, ttl_s, dead(0|1), dead_max, worker_id
var finishJobScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[5], ARGV[1])
if ARGV[7] ~= '' and owner and owner ~= ARGV[7] then
  return 0
end
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('HDEL', KEYS[5], ARGV[1])
if redis.call('HGET', KEYS[2], ARGV[2]) == ARGV[1] then
  redis.call('HDEL', KEYS[2], ARGV[2])
end
redis.call('SET', KEYS[3], ARGV[3], 'EX', ARGV[4])
if ARGV[5] == '1' then
  redis.call('LPUSH', KEYS[4], ARGV[1])
  redis.call('LTRIM', KEYS[4], 0, tonumber(ARGV[6]) - 1)
end
return 1
`)

// KEYS: active, waiting, job, owners. ARGV: id, run_at_ms, json, worker_id
var retryJobScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[4], ARGV[1])
if ARGV[4] ~= '' and owner and owner ~= ARGV[4] then
  return 0
end
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('HDEL', KEYS[4], ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[3])
return 1
`)

// KEYS: active, owners. ARGV: id, locked_until_ms, worker_id
var extendLockScript = redis.NewScript(`
local owner = redis.call('HGET', KEYS[2], ARGV[1])
if ARGV[3] ~= '' and owner and owner ~= ARGV[3] then
  return 0
end
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
return 1
`)

// RedisStorage implements Storage on Redis sorted sets. Every state
// transition is a single script, so claim is exclusive across processes.
type RedisStorage struct {
	client       redis.UniversalClient
	prefix       string
	completedTTL time.Duration
	deadTTL      time.Duration
	deadMax      int
}

// RedisStorageOption configures a RedisStorage
type RedisStorageOption func(*RedisStorage)

// WithKeyPrefix sets the namespace of every queue key
func WithKeyPrefix(prefix string) RedisStorageOption {
	return func(s *RedisStorage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetention sets how long completed and dead job records are kept
func WithRetention(completed, dead time.Duration) RedisStorageOption {
	return func(s *RedisStorage) {
		if completed > 0 {
			s.completedTTL = completed
		}
		if dead > 0 {
			s.deadTTL = dead
		}
	}
}

// WithDeadLetterLimit caps the dead list of each queue
func WithDeadLetterLimit(n int) RedisStorageOption {
	return func(s *RedisStorage) {
		if n > 0 {
			s.deadMax = n
		}
	}
}

// NewRedisStorage creates a Redis-backed queue store
func NewRedisStorage(client redis.UniversalClient, opts ...RedisStorageOption) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrRepositoryNil
	}

	s := &RedisStorage{
		client:       client,
		prefix:       "queue:",
		completedTTL: time.Hour,
		deadTTL:      7 * 24 * time.Hour,
		deadMax:      1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStorage) jobKey(id string) string   { return s.prefix + "job:" + id }
func (s *RedisStorage) waitingKey(q string) string { return s.prefix + q + ":waiting" }
func (s *RedisStorage) activeKey(q string) string  { return s.prefix + q + ":active" }
func (s *RedisStorage) keysKey(q string) string    { return s.prefix + q + ":keys" }
func (s *RedisStorage) deadKey(q string) string    { return s.prefix + q + ":dead" }
func (s *RedisStorage) ownersKey(q string) string  { return s.prefix + q + ":owners" }

func lockOwner(job *Job) string {
	if job.LockedBy == nil {
		return ""
	}
	return job.LockedBy.String()
}

// CreateJob implements EnqueuerRepository
func (s *RedisStorage) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	jobCopy := *job
	jobCopy.Status = JobStatusWaiting
	raw, err := json.Marshal(&jobCopy)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	id := job.ID.String()
	created, err := createJobScript.Run(ctx, s.client,
		[]string{s.keysKey(job.Queue), s.waitingKey(job.Queue), s.jobKey(id)},
		job.Key, id, raw, job.RunAt.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if created == 0 {
		return ErrDuplicateJobKey
	}
	return nil
}

// RemoveJob implements EnqueuerRepository
func (s *RedisStorage) RemoveJob(ctx context.Context, queue, key string) (bool, error) {
	removed, err := removeJobScript.Run(ctx, s.client,
		[]string{s.keysKey(queue), s.waitingKey(queue)},
		key, s.jobKey(""),
	).Int()
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	return removed == 1, nil
}

// GetJob implements EnqueuerRepository
func (s *RedisStorage) GetJob(ctx context.Context, queue, key string) (*Job, error) {
	id, err := s.client.HGet(ctx, s.keysKey(queue), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job id: %w", err)
	}

	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	// Status lives in set membership; the record may lag behind it
	if _, err := s.client.ZScore(ctx, s.waitingKey(queue), id).Result(); err == nil {
		job.Status = JobStatusWaiting
	} else if errors.Is(err, redis.Nil) {
		job.Status = JobStatusActive
	} else {
		return nil, fmt.Errorf("get job status: %w", err)
	}
	return job, nil
}

// ClaimJob implements WorkerRepository
func (s *RedisStorage) ClaimJob(ctx context.Context, workerID uuid.UUID, queue string, lockDuration time.Duration) (*Job, error) {
	now := time.Now()
	lockedUntil := now.Add(lockDuration)

	res, err := claimJobScript.Run(ctx, s.client,
		[]string{s.waitingKey(queue), s.activeKey(queue), s.ownersKey(queue)},
		now.UnixMilli(), lockedUntil.UnixMilli(), s.jobKey(""), workerID.String(),
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoJobToClaim
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("claim job: unexpected script reply of %d items", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", res[0], err)
	}

	job.Status = JobStatusActive
	job.LockedBy = &workerID
	job.LockedUntil = &lockedUntil
	job.UpdatedAt = now

	if err := s.save(ctx, &job, 0); err != nil {
		return nil, err
	}
	return &job, nil
}

// CompleteJob implements WorkerRepository
func (s *RedisStorage) CompleteJob(ctx context.Context, job *Job) error {
	return s.finish(ctx, job, JobStatusCompleted, "")
}

// FailJob implements WorkerRepository
func (s *RedisStorage) FailJob(ctx context.Context, job *Job, errorMsg string) error {
	return s.finish(ctx, job, JobStatusFailed, errorMsg)
}

// RetryJob implements WorkerRepository
func (s *RedisStorage) RetryJob(ctx context.Context, job *Job, runAt time.Time, errorMsg string) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	jobCopy := *job
	jobCopy.Status = JobStatusWaiting
	jobCopy.RunAt = runAt
	jobCopy.LockedBy = nil
	jobCopy.LockedUntil = nil
	jobCopy.LastError = &errorMsg
	jobCopy.UpdatedAt = time.Now()

	raw, err := json.Marshal(&jobCopy)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	id := job.ID.String()
	ok, err := retryJobScript.Run(ctx, s.client,
		[]string{s.activeKey(job.Queue), s.waitingKey(job.Queue), s.jobKey(id), s.ownersKey(job.Queue)},
		id, runAt.UnixMilli(), raw, lockOwner(job),
	).Int()
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotActive, id)
	}
	return nil
}

// ExtendLock implements WorkerRepository
func (s *RedisStorage) ExtendLock(ctx context.Context, job *Job, duration time.Duration) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	id := job.ID.String()
	ok, err := extendLockScript.Run(ctx, s.client,
		[]string{s.activeKey(job.Queue), s.ownersKey(job.Queue)},
		id, time.Now().Add(duration).UnixMilli(), lockOwner(job),
	).Int()
	if err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotActive, id)
	}
	return nil
}

// DeadJobs returns the jobs of queue that failed permanently, newest first.
// Records past their retention are skipped.
func (s *RedisStorage) DeadJobs(ctx context.Context, queue string, limit int) ([]*Job, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.client.LRange(ctx, s.deadKey(queue), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list dead jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.load(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Stats returns the number of waiting, active and dead jobs in queue
func (s *RedisStorage) Stats(ctx context.Context, queue string) (QueueStats, error) {
	pipe := s.client.Pipeline()
	waiting := pipe.ZCard(ctx, s.waitingKey(queue))
	active := pipe.ZCard(ctx, s.activeKey(queue))
	dead := pipe.LLen(ctx, s.deadKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}

	return QueueStats{
		Waiting: waiting.Val(),
		Active:  active.Val(),
		Dead:    dead.Val(),
	}, nil
}

func (s *RedisStorage) finish(ctx context.Context, job *Job, status JobStatus, errorMsg string) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}

	jobCopy := *job
	jobCopy.Status = status
	jobCopy.LockedBy = nil
	jobCopy.LockedUntil = nil
	jobCopy.UpdatedAt = time.Now()
	if errorMsg != "" {
		jobCopy.LastError = &errorMsg
	}

	raw, err := json.Marshal(&jobCopy)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	ttl, dead := s.completedTTL, "0"
	if status == JobStatusFailed {
		ttl, dead = s.deadTTL, "1"
	}

	id := job.ID.String()
	ok, err := finishJobScript.Run(ctx, s.client,
		[]string{s.activeKey(job.Queue), s.keysKey(job.Queue), s.jobKey(id), s.deadKey(job.Queue), s.ownersKey(job.Queue)},
		id, job.Key, raw, strconv.FormatInt(int64(ttl.Seconds()), 10), dead, s.deadMax, lockOwner(job),
	).Int()
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if ok == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotActive, id)
	}
	return nil
}

func (s *RedisStorage) load(ctx context.Context, id string) (*Job, error) {
	raw, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (s *RedisStorage) save(ctx context.Context, job *Job, ttl time.Duration) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, s.jobKey(job.ID.String()), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}
