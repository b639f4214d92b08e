// Package scheduler runs background chain verification for every tenant.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
	ErrJobQueueFull        = errors.New("scheduler: verification queue full")
	ErrInvalidConfig       = errors.New("scheduler: workers, queue size and job timeout must be positive")
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job verifies one (tenant, series) hash chain
type Job struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Series      string
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a pending job
func NewJob(tenantID uuid.UUID, series string, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Series:     series,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(now time.Time) {
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(now time.Time, err string) {
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to pending until now+delay
func (j *Job) ScheduleRetry(now time.Time, delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	next := now.Add(delay)
	j.NextRetryAt = &next
	j.Error = ""
}

// JobExecutor runs a job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	MaxConcurrentJobs int
	QueueSize         int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 2,
		QueueSize:         256,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
	}
}

// Scheduler is a bounded worker pool draining a job queue. Failed jobs wait
// out their retry delay off the pool and re-enter the queue.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger
	now      func() time.Time

	jobs    chan *Job
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler validates config; a nil logger discards output
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) (*Scheduler, error) {
	if config.MaxConcurrentJobs <= 0 || config.QueueSize <= 0 || config.JobTimeout <= 0 {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger.Named("verification-scheduler"),
		now:      time.Now,
		jobs:     make(chan *Job, config.QueueSize),
	}, nil
}

// Start launches the workers; a second call is a no-op
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.wg.Add(s.config.MaxConcurrentJobs)
	for w := 1; w <= s.config.MaxConcurrentJobs; w++ {
		go s.work(ctx, w)
	}
	s.logger.Info("Started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and pending retries, then waits for the workers
// until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		s.logger.Info("Stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Stop timed out with jobs still running")
		return ctx.Err()
	}
}

// SubmitJob queues a job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) work(ctx context.Context, worker int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.run(ctx, job, worker)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, worker int) {
	log := s.logger.With(
		zap.Int("worker", worker),
		zap.Stringer("job_id", job.ID),
		zap.Stringer("tenant_id", job.TenantID),
		zap.String("series", job.Series),
	)

	job.Start(s.now())
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	err := s.executor.Execute(jobCtx, job)
	cancel()

	if err == nil {
		job.Complete(s.now())
		log.Debug("Job completed")
		return
	}
	job.Fail(s.now(), err.Error())
	log.Error("Job failed", zap.Int("retry_count", job.RetryCount), zap.Error(err))
	if job.ShouldRetry() && ctx.Err() == nil {
		s.retryLater(ctx, job)
	}
}

// retryLater re-queues job after the retry delay without holding a worker.
// Called from a worker, so the WaitGroup counter is already positive.
func (s *Scheduler) retryLater(ctx context.Context, job *Job) {
	job.ScheduleRetry(s.now(), s.config.RetryDelay)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.config.RetryDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		select {
		case s.jobs <- job:
		case <-ctx.Done():
		}
	}()
}
