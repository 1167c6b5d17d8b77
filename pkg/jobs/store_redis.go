package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore is the production job store: durable across restarts, shared
// by every process running the scheduler or runner.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing Redis client. The client is expected to
// be shared with the rest of the process (see internal/platform).
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

const pendingZSetKey = "jobs:pending"

func jobKey(id uuid.UUID) string {
	return "jobs:job:" + id.String()
}

func idemKey(tenantID *uuid.UUID, key string) string {
	return "jobs:idem:" + idempotencyScope(tenantID, key)
}

func (r *RedisStore) Save(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshaling job %s: %w", j.ID, err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, jobKey(j.ID), data, 0)
	if j.Status == StatusPending {
		pipe.ZAdd(ctx, pendingZSetKey, redis.Z{Score: float64(j.NextEligibleAt.Unix()), Member: j.ID.String()})
	} else {
		pipe.ZRem(ctx, pendingZSetKey, j.ID.String())
	}
	if j.IdempotencyKey != "" {
		pipe.Set(ctx, idemKey(j.TenantID, j.IdempotencyKey), j.ID.String(), 24*time.Hour)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving job %s: %w", j.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	data, err := r.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting job %s: %w", id, err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshaling job %s: %w", id, err)
	}
	return &j, nil
}

func (r *RedisStore) GetByIdempotencyKey(ctx context.Context, tenantID *uuid.UUID, key string) (*Job, error) {
	idStr, err := r.rdb.Get(ctx, idemKey(tenantID, key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolving idempotency key %q: %w", key, err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing job id for idempotency key %q: %w", key, err)
	}
	return r.Get(ctx, id)
}

// ListByFilter scans every stored job and filters in process. Acceptable
// for the job volumes this runner targets (tenant-scoped periodic syncs,
// not a general-purpose task queue); a production system with a much
// larger job table would index by tenant instead.
func (r *RedisStore) ListByFilter(ctx context.Context, f Filter) ([]*Job, error) {
	var out []*Job
	iter := r.rdb.Scan(ctx, 0, "jobs:job:*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var j Job
		if err := json.Unmarshal(data, &j); err != nil {
			continue
		}
		if f.matches(&j) {
			out = append(out, &j)
		}
	}
	return out, iter.Err()
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, jobKey(id))
	pipe.ZRem(ctx, pendingZSetKey, id.String())
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("deleting job %s: %w", id, err)
	}
	return nil
}

// reserveScript atomically flips a job from pending to running, returning
// the updated job, or a nil reply if it was not pending at the time — the
// compare-and-set §4.8's scheduler requires so two workers never both
// dispatch the same due job.
const reserveScript = `
local data = redis.call('GET', KEYS[1])
if not data then
	return nil
end
local job = cjson.decode(data)
if job.Status ~= 'pending' then
	return nil
end
job.Status = 'running'
job.StartedAt = ARGV[1]
local encoded = cjson.encode(job)
redis.call('SET', KEYS[1], encoded)
redis.call('ZREM', KEYS[2], ARGV[2])
return encoded
`

func (r *RedisStore) Reserve(ctx context.Context, id uuid.UUID) (*Job, error) {
	now := time.Now()
	res, err := r.rdb.Eval(ctx, reserveScript, []string{jobKey(id), pendingZSetKey}, now.Format(time.RFC3339Nano), id.String()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotReservable
		}
		return nil, fmt.Errorf("reserving job %s: %w", id, err)
	}
	if res == nil {
		return nil, ErrNotReservable
	}
	encoded, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("reserving job %s: unexpected script reply type", id)
	}
	var j Job
	if err := json.Unmarshal([]byte(encoded), &j); err != nil {
		return nil, fmt.Errorf("unmarshaling reserved job %s: %w", id, err)
	}
	return &j, nil
}

func (r *RedisStore) DuePending(ctx context.Context, now time.Time, limit int) ([]*Job, error) {
	ids, err := r.rdb.ZRangeByScore(ctx, pendingZSetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scanning due jobs: %w", err)
	}
	out := make([]*Job, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		j, err := r.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}
