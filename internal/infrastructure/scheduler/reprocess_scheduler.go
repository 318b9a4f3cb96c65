// Package scheduler provides the bounded worker pool that drains inbox
// reprocess requests.
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
	// ErrSchedulerNotRunning is returned when a job is submitted to a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue has no room for another submission.
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when the scheduler configuration is invalid.
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)

// JobStatus represents the status of a reprocess job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a queued reprocess request for a single inbox item. The durable
// outcome lives on the inbox item itself (status, retry count, last error);
// the job only tracks the run.
type Job struct {
	ID          uuid.UUID
	ItemID      uuid.UUID
	Status      JobStatus
	Error       string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewJob creates a new reprocess job for an inbox item
func NewJob(itemID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		ItemID:     itemID,
		Status:     JobStatusPending,
		EnqueuedAt: time.Now(),
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ReprocessExecutor re-drives a single staged inbox item.
// The integration Manager implements it.
type ReprocessExecutor interface {
	ReprocessInboxItem(ctx context.Context, itemID uuid.UUID) error
}

// Config holds reprocess scheduler configuration
type Config struct {
	// Workers is the number of concurrent reprocess workers
	Workers int
	// QueueSize is the job queue capacity; Submit fails once it is full
	QueueSize int
	// JobTimeout is the maximum time a single reprocess may run
	JobTimeout time.Duration
}

// DefaultConfig returns default reprocess scheduler configuration
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		QueueSize:  64,
		JobTimeout: 2 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ReprocessScheduler drains reprocess jobs through a fixed worker pool.
// Failed jobs are not re-queued: the inbox item records the failure and
// the operator decides whether to submit again.
type ReprocessScheduler struct {
	config   Config
	executor ReprocessExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReprocessScheduler creates a new reprocess scheduler
func NewReprocessScheduler(config Config, executor ReprocessExecutor, logger *zap.Logger) (*ReprocessScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ReprocessScheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, config.QueueSize),
	}, nil
}

// Start starts the worker pool
func (s *ReprocessScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Reprocess scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *ReprocessScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	// Closing under the same lock that guards Submit's send means no
	// sender can be mid-send when the channel closes.
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reprocess scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reprocess scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job for execution. The send never blocks: a full queue
// returns ErrJobQueueFull so the caller can tell the operator to retry.
func (s *ReprocessScheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Reprocess job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("item_id", job.ItemID.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *ReprocessScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Reprocess worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Reprocess worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				s.logger.Debug("Reprocess job channel closed", zap.Int("worker_id", workerID))
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *ReprocessScheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start()
	s.logger.Info("Processing reprocess job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("item_id", job.ItemID.String()),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.executor.ReprocessInboxItem(jobCtx, job.ItemID); err != nil {
		job.Fail(err.Error())
		s.logger.Error("Reprocess job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("item_id", job.ItemID.String()),
			zap.Error(err),
		)
		return
	}

	job.Complete()
	s.logger.Info("Reprocess job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("item_id", job.ItemID.String()),
	)
}
