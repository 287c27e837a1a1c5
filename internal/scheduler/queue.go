// Package scheduler materializes delayed post creations once their fire time passes.
package scheduler

import (
	"container/heap"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/marinaua13/social-media-api/internal/observability"

	"github.com/redis/go-redis/v9"
)

// QueueKey is the Redis sorted set holding pending jobs, scored by fire time in unix ms.
const QueueKey = "scheduler:posts"

// Job is a pending post creation.
type Job struct {
	ID       string    `json:"id"`
	UserID   uint      `json:"user_id"`
	Content  string    `json:"content"`
	Hashtags string    `json:"hashtags"`
	FireAt   time.Time `json:"fire_at"`
	Attempts int       `json:"attempts"`
}

// Queue is a delay queue. PopDue must hand each job to exactly one caller.
type Queue interface {
	Push(ctx context.Context, job Job) error
	PopDue(ctx context.Context, now time.Time, limit int) ([]Job, error)
	Len(ctx context.Context) (int64, error)
}

// RedisQueue shares pending jobs between every process polling the same Redis.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: QueueKey}
}

func (q *RedisQueue) Push(ctx context.Context, job Job) error {
	member, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.rdb.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(job.FireAt.UnixMilli()),
		Member: string(member),
	}).Err()
}

// PopDue claims up to limit jobs whose fire time is not after now. A member is
// claimed by whoever's ZREM removes it.
func (q *RedisQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	ctx, span := observability.StartRedisSpan(ctx, "zrangebyscore", q.key)
	defer span.End()

	members, err := q.rdb.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(members))
	for _, member := range members {
		removed, err := q.rdb.ZRem(ctx, q.key, member).Result()
		if err != nil {
			return jobs, err
		}
		if removed != 1 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			return jobs, fmt.Errorf("unmarshal job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.key).Result()
}

// MemoryQueue is the single-process fallback used when Redis is unavailable.
// Pending jobs are lost on restart.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs jobHeap
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.jobs, job)
	return nil
}

func (q *MemoryQueue) PopDue(_ context.Context, now time.Time, limit int) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []Job
	for q.jobs.Len() > 0 && len(due) < limit && !q.jobs[0].FireAt.After(now) {
		due = append(due, heap.Pop(&q.jobs).(Job))
	}
	return due, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(q.jobs.Len()), nil
}

// jobHeap orders jobs by fire time.
type jobHeap []Job

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].FireAt.Before(h[j].FireAt) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(Job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	*h = old[:n-1]
	return job
}
