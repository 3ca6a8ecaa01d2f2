package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

// JobFunc is a scheduled unit of work
type JobFunc func(ctx context.Context) error

// ScheduledJob describes a registered job for API responses
type ScheduledJob struct {
	Name    string     `json:"name"`
	Cron    string     `json:"cron"`
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
	LastErr string     `json:"last_error,omitempty"`
}

type scheduledEntry struct {
	info ScheduledJob
	job  gocron.Job
}

// Scheduler runs jobs on cron schedules. A job never overlaps itself; a tick
// that fires while the previous run is still going is skipped.
type Scheduler struct {
	gocron gocron.Scheduler
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*scheduledEntry
}

// NewScheduler creates a new scheduler
func NewScheduler(log *zap.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: gs,
		logger: log.With(zap.String("component", "scheduler")),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*scheduledEntry),
	}, nil
}

// Register adds a job running fn on the cron expression
func (s *Scheduler) Register(name, cron string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(func() { s.execute(name, fn) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}

	s.jobs[name] = &scheduledEntry{info: ScheduledJob{Name: name, Cron: cron}, job: job}
	s.logger.Info("Registered scheduled job", zap.String("name", name), zap.String("cron", cron))
	return nil
}

// RegisterDiscovery schedules the discovery job. A tick while a download
// batch is running is skipped.
func (s *Scheduler) RegisterDiscovery(cron string, job *DiscoveryJob) error {
	return s.Register("discovery", cron, func(ctx context.Context) error {
		_, err := job.Run(ctx)
		if errors.Is(err, domain.ErrBatchInProgress) {
			s.logger.Info("Skipping scheduled discovery, a batch is running")
			return nil
		}
		return err
	})
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.gocron.Start()
}

// Stop cancels running jobs and stops the scheduler
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	return s.gocron.Shutdown()
}

// Jobs lists the registered jobs
func (s *Scheduler) Jobs() []ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]ScheduledJob, 0, len(s.jobs))
	for _, entry := range s.jobs {
		info := entry.info
		if next, err := entry.job.NextRun(); err == nil && !next.IsZero() {
			info.NextRun = &next
		}
		jobs = append(jobs, info)
	}
	return jobs
}

func (s *Scheduler) execute(name string, fn JobFunc) {
	started := time.Now()
	s.logger.Info("Starting scheduled job", zap.String("name", name))

	err := fn(s.ctx)

	s.mu.Lock()
	if entry, ok := s.jobs[name]; ok {
		entry.info.LastRun = &started
		entry.info.LastErr = ""
		if err != nil {
			entry.info.LastErr = err.Error()
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("name", name),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err))
		return
	}
	s.logger.Info("Scheduled job completed",
		zap.String("name", name),
		zap.Duration("duration", time.Since(started)))
}
