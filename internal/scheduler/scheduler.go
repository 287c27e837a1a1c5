package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/observability"
	"github.com/marinaua13/social-media-api/internal/service"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome labels for observability.ScheduledPostsTotal.
const (
	OutcomeScheduled = "scheduled"
	OutcomeCreated   = "created"
	OutcomeRetried   = "retried"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

const (
	DefaultWorkers      = 4
	DefaultPollInterval = time.Second
	DefaultRetryBackoff = 30 * time.Second
	DefaultMaxAttempts  = 3
	MinDelay            = time.Minute
	MaxDelay            = 365 * 24 * time.Hour
)

// MaxDelayMinutes is MaxDelay in the unit clients send.
const MaxDelayMinutes = int(MaxDelay / time.Minute)

// PostCreator creates the post once a job fires.
type PostCreator interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
}

// UserLookup resolves the owner of a job at schedule time.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type Config struct {
	Workers      int
	PollInterval time.Duration
	RetryBackoff time.Duration
	MaxAttempts  int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Scheduler drains the delay queue with a poll loop feeding a bounded worker pool.
type Scheduler struct {
	queue   Queue
	creator PostCreator
	users   UserLookup
	cfg     Config
	now     func() time.Time

	onCreated func(ctx context.Context, post *models.Post)

	jobs     chan Job
	stopCh   chan struct{}
	wg       sync.WaitGroup
	pollDone chan struct{}
	started  bool
	stopOnce sync.Once
}

func New(queue Queue, creator PostCreator, users UserLookup, cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		queue:   queue,
		creator: creator,
		users:   users,
		cfg:     cfg,
		now:     time.Now,
		jobs:    make(chan Job, cfg.Workers),
		stopCh:  make(chan struct{}),
	}
}

// SetClock replaces the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// OnCreated registers a callback run after each scheduled post is materialized.
func (s *Scheduler) OnCreated(fn func(ctx context.Context, post *models.Post)) {
	s.onCreated = fn
}

// Schedule validates the request now and enqueues it to fire after delay.
func (s *Scheduler) Schedule(ctx context.Context, in service.CreatePostInput, delay time.Duration) (*Job, error) {
	if delay < MinDelay {
		return nil, models.NewValidationError("delay_minutes must be at least 1")
	}
	if delay > MaxDelay {
		return nil, models.NewValidationError(fmt.Sprintf("delay_minutes must be at most %d", MaxDelayMinutes))
	}
	if err := service.ValidateCreatePost(in); err != nil {
		return nil, err
	}
	if s.users != nil {
		if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
			return nil, err
		}
	}

	job := Job{
		ID:       uuid.New().String(),
		UserID:   in.UserID,
		Content:  in.Content,
		Hashtags: in.Hashtags,
		FireAt:   s.now().Add(delay).UTC(),
	}
	if err := s.queue.Push(ctx, job); err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.ScheduledPostsTotal.WithLabelValues(OutcomeScheduled).Inc()
	observability.LogAsyncOperationStart(observability.WithCorrelationID(ctx, job.ID), "scheduled_post", map[string]interface{}{
		"job_id":  job.ID,
		"user_id": job.UserID,
		"fire_at": job.FireAt,
	})
	return &job, nil
}

// ProcessDue claims every due job and runs it on the calling goroutine.
// It returns the number of jobs claimed.
func (s *Scheduler) ProcessDue(ctx context.Context) (int, error) {
	processed := 0
	for {
		jobs, err := s.queue.PopDue(ctx, s.now(), s.cfg.Workers)
		for _, job := range jobs {
			s.run(ctx, job)
		}
		processed += len(jobs)
		if err != nil {
			return processed, err
		}
		if len(jobs) < s.cfg.Workers {
			return processed, nil
		}
	}
}

// Start launches the poll loop and workers. Jobs run with a context detached
// from ctx so Stop can let them finish.
func (s *Scheduler) Start(ctx context.Context) {
	if s.started {
		return
	}
	s.started = true
	jobCtx := context.WithoutCancel(ctx)

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for job := range s.jobs {
				s.run(jobCtx, job)
			}
		}()
	}

	s.pollDone = make(chan struct{})
	go s.pollLoop(ctx)
}

// Stop stops polling and waits for in-flight jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.started {
		return nil
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.pollDone
		close(s.jobs)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.pollDone)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	for {
		jobs, err := s.queue.PopDue(ctx, s.now(), s.cfg.Workers)
		for _, job := range jobs {
			s.jobs <- job
		}
		if err != nil {
			observability.LogAsyncOperationError(ctx, "scheduler_poll", err, nil)
			return
		}
		if len(jobs) < s.cfg.Workers {
			break
		}
	}

	if depth, err := s.queue.Len(ctx); err == nil {
		observability.SchedulerQueueDepth.Set(float64(depth))
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	ctx = observability.WithCorrelationID(ctx, job.ID)
	span, ctx := observability.NewSpan(ctx, "scheduler.run")
	defer span.End()
	span.AddAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int("job.attempt", job.Attempts+1),
	)

	fields := map[string]interface{}{
		"job_id":   job.ID,
		"user_id":  job.UserID,
		"attempts": job.Attempts + 1,
	}

	post, err := s.creator.CreatePost(ctx, service.CreatePostInput{
		UserID:   job.UserID,
		Content:  job.Content,
		Hashtags: job.Hashtags,
	})
	if err == nil {
		observability.ScheduledPostsTotal.WithLabelValues(OutcomeCreated).Inc()
		fields["post_id"] = post.ID
		observability.LogAsyncOperationEnd(ctx, "scheduled_post", fields)
		if s.onCreated != nil {
			s.onCreated(ctx, post)
		}
		return
	}

	span.SetError(err)
	if isPermanent(err) {
		observability.ScheduledPostsTotal.WithLabelValues(OutcomeDropped).Inc()
		observability.LogAsyncOperationWarn(ctx, "scheduled_post", err, fields)
		return
	}

	job.Attempts++
	if job.Attempts >= s.cfg.MaxAttempts {
		observability.ScheduledPostsTotal.WithLabelValues(OutcomeFailed).Inc()
		observability.LogAsyncOperationError(ctx, "scheduled_post", err, fields)
		return
	}

	job.FireAt = s.now().Add(s.cfg.RetryBackoff).UTC()
	if pushErr := s.queue.Push(ctx, job); pushErr != nil {
		observability.ScheduledPostsTotal.WithLabelValues(OutcomeFailed).Inc()
		observability.LogAsyncOperationError(ctx, "scheduled_post", errors.Join(err, pushErr), fields)
		return
	}
	observability.ScheduledPostsTotal.WithLabelValues(OutcomeRetried).Inc()
	fields["retry_at"] = job.FireAt
	observability.LogAsyncOperationWarn(ctx, "scheduled_post_retry", err, fields)
}

// isPermanent reports failures that a retry cannot fix: the owner is gone or the
// content no longer validates.
func isPermanent(err error) bool {
	for _, code := range []string{models.CodeValidation, models.CodeNotFound, models.CodeUnauthorized, models.CodeForbidden} {
		if models.IsCode(err, code) {
			return true
		}
	}
	return false
}
