package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type creatorStub struct {
	mu      sync.Mutex
	created []service.CreatePostInput
	err     func(service.CreatePostInput) error
}

func (c *creatorStub) CreatePost(_ context.Context, in service.CreatePostInput) (*models.Post, error) {
	if c.err != nil {
		if err := c.err(in); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, in)
	return &models.Post{ID: uint(len(c.created)), UserID: in.UserID, Content: in.Content}, nil
}

func (c *creatorStub) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created)
}

type usersStub map[uint]bool

func (u usersStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if !u[id] {
		return nil, models.NewNotFoundError("User", id)
	}
	return &models.User{ID: id}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestScheduler(t *testing.T, queue Queue, creator *creatorStub) (*Scheduler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(queue, creator, usersStub{1: true}, Config{Workers: 2, RetryBackoff: 30 * time.Second, MaxAttempts: 3})
	s.SetClock(clock.Now)
	return s, clock
}

func newRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisQueue(rdb)
}

func TestScheduler_MaterializesAfterDelay(t *testing.T) {
	queues := map[string]func(t *testing.T) Queue{
		"memory": func(_ *testing.T) Queue { return NewMemoryQueue() },
		"redis":  func(t *testing.T) Queue { return newRedisQueue(t) },
	}

	for name, mk := range queues {
		t.Run(name, func(t *testing.T) {
			creator := &creatorStub{}
			s, clock := newTestScheduler(t, mk(t), creator)
			ctx := context.Background()

			var announced []*models.Post
			s.OnCreated(func(_ context.Context, p *models.Post) { announced = append(announced, p) })

			_, err := s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "later", Hashtags: "#go"}, 2*time.Minute)
			require.NoError(t, err)

			n, err := s.ProcessDue(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, creator.count(), "nothing is created before the fire time")

			clock.Advance(2 * time.Minute)
			n, err = s.ProcessDue(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			require.Equal(t, 1, creator.count())
			assert.Equal(t, uint(1), creator.created[0].UserID)
			assert.Equal(t, "later", creator.created[0].Content)
			assert.Equal(t, "#go", creator.created[0].Hashtags)
			require.Len(t, announced, 1)

			n, err = s.ProcessDue(ctx)
			require.NoError(t, err)
			assert.Zero(t, n, "a job fires once")
		})
	}
}

func TestScheduler_Schedule_Rejects(t *testing.T) {
	s, _ := newTestScheduler(t, NewMemoryQueue(), &creatorStub{})
	ctx := context.Background()

	_, err := s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "x"}, 30*time.Second)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "x"}, MaxDelay+time.Minute)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "  "}, time.Minute)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = s.Schedule(ctx, service.CreatePostInput{UserID: 2, Content: "x"}, time.Minute)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	depth, err := s.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestScheduler_DropsPermanentFailures(t *testing.T) {
	creator := &creatorStub{err: func(in service.CreatePostInput) error {
		return models.NewNotFoundError("User", in.UserID)
	}}
	s, clock := newTestScheduler(t, NewMemoryQueue(), creator)
	ctx := context.Background()

	_, err := s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "x"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	n, err := s.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	depth, err := s.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth, "a dropped job is not requeued")
}

func TestScheduler_RequeuesInfrastructureFailures(t *testing.T) {
	failures := 0
	creator := &creatorStub{err: func(service.CreatePostInput) error {
		failures++
		if failures <= 2 {
			return models.NewInternalError(errors.New("connection refused"))
		}
		return nil
	}}
	s, clock := newTestScheduler(t, NewMemoryQueue(), creator)
	ctx := context.Background()

	_, err := s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "x"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = s.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, creator.count())

	n, err := s.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "the retry waits for its backoff")

	clock.Advance(30 * time.Second)
	_, err = s.ProcessDue(ctx)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = s.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, creator.count())
}

func TestScheduler_GivesUpAfterMaxAttempts(t *testing.T) {
	creator := &creatorStub{err: func(service.CreatePostInput) error {
		return errors.New("database is down")
	}}
	s, clock := newTestScheduler(t, NewMemoryQueue(), creator)
	ctx := context.Background()

	_, err := s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "x"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	for i := 0; i < 5; i++ {
		_, err = s.ProcessDue(ctx)
		require.NoError(t, err)
		clock.Advance(30 * time.Second)
	}

	depth, err := s.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestScheduler_StartStop(t *testing.T) {
	creator := &creatorStub{}
	clock := &fakeClock{now: time.Now()}
	s := New(NewMemoryQueue(), creator, nil, Config{Workers: 2, PollInterval: 10 * time.Millisecond})
	s.SetClock(clock.Now)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Schedule(ctx, service.CreatePostInput{UserID: 1, Content: "x"}, time.Minute)
		require.NoError(t, err)
	}
	clock.Advance(time.Minute)

	s.Start(ctx)
	assert.Eventually(t, func() bool { return creator.count() == 5 }, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}

func TestRedisQueue_ClaimsOnce(t *testing.T) {
	q := newRedisQueue(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push(ctx, Job{ID: string(rune('a' + i)), UserID: 1, Content: "x", FireAt: now}))
	}

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				jobs, err := q.PopDue(ctx, now, 3)
				if err != nil || len(jobs) == 0 {
					return
				}
				mu.Lock()
				for _, j := range jobs {
					seen[j.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 10)
	for id, n := range seen {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestMemoryQueue_OrdersByFireTime(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, q.Push(ctx, Job{ID: "late", FireAt: base.Add(2 * time.Second)}))
	require.NoError(t, q.Push(ctx, Job{ID: "early", FireAt: base}))
	require.NoError(t, q.Push(ctx, Job{ID: "future", FireAt: base.Add(time.Hour)}))

	jobs, err := q.PopDue(ctx, base.Add(5*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "early", jobs[0].ID)
	assert.Equal(t, "late", jobs[1].ID)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
