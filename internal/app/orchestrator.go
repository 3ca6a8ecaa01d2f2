package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"github.com/yourusername/music-harvest-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	msgNothingToDownload = "Nothing to download."
	msgAllFinished       = "--- ALL DOWNLOADS FINISHED ---"
)

// BatchNotifier is told when a batch finishes
type BatchNotifier interface {
	NotifyBatchFinished(summary domain.BatchSummary)
}

// Orchestrator runs download batches: one task at a time, each through the
// downloader with a bounded wait, publishing progress to the status store.
// At most one batch runs at a time.
type Orchestrator struct {
	downloader  domain.Downloader
	status      domain.StatusStore
	history     domain.DownloadHistoryRepository
	notifier    BatchNotifier
	config      *domain.DownloadConfig
	logger      *zap.Logger
	eventLogger *logger.MultiLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewOrchestrator creates a new orchestrator. history and notifier may be nil.
func NewOrchestrator(
	downloader domain.Downloader,
	status domain.StatusStore,
	history domain.DownloadHistoryRepository,
	notifier BatchNotifier,
	config *domain.DownloadConfig,
	log *zap.Logger,
	eventLogger *logger.MultiLogger,
) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	if eventLogger == nil {
		eventLogger = logger.NewNopMultiLogger()
	}
	return &Orchestrator{
		downloader:  downloader,
		status:      status,
		history:     history,
		notifier:    notifier,
		config:      config,
		logger:      log,
		eventLogger: eventLogger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs tasks in the background and returns the batch id at once.
// Progress is read through the status store.
func (o *Orchestrator) Start(tasks []domain.DownloadTask) (string, error) {
	if err := o.acquire(); err != nil {
		return "", err
	}

	batchID := uuid.New().String()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release()
		o.runBatch(o.ctx, batchID, tasks)
	}()

	return batchID, nil
}

// Run runs tasks and waits for the batch to finish
func (o *Orchestrator) Run(ctx context.Context, tasks []domain.DownloadTask) (domain.BatchSummary, error) {
	slot, err := o.Reserve()
	if err != nil {
		return domain.BatchSummary{}, err
	}
	return slot.Run(ctx, tasks), nil
}

// Reserve takes the single-batch slot ahead of time, for callers that need
// work of their own before they know the tasks. Start and Run are rejected
// with ErrBatchInProgress until the reservation runs or is released.
func (o *Orchestrator) Reserve() (*Reservation, error) {
	if err := o.acquire(); err != nil {
		return nil, err
	}
	return &Reservation{orchestrator: o}, nil
}

// Reservation holds the orchestrator's batch slot. It is used once.
type Reservation struct {
	orchestrator *Orchestrator
	once         sync.Once
}

// Run runs tasks as the reserved batch and frees the slot afterwards
func (r *Reservation) Run(ctx context.Context, tasks []domain.DownloadTask) domain.BatchSummary {
	defer r.Release()
	return r.orchestrator.runBatch(ctx, uuid.New().String(), tasks)
}

// Release frees the slot without running a batch. Safe to call more than once.
func (r *Reservation) Release() {
	r.once.Do(r.orchestrator.release)
}

// IsRunning reports whether a batch is in progress
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Wait blocks until background batches started with Start have finished
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown cancels a background batch and waits for it to stop, or for ctx to expire
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) acquire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return domain.ErrBatchInProgress
	}
	o.running = true
	return nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

func (o *Orchestrator) runBatch(ctx context.Context, batchID string, tasks []domain.DownloadTask) domain.BatchSummary {
	summary := domain.BatchSummary{BatchID: batchID, Total: len(tasks)}
	started := time.Now()

	o.status.Reset(batchID, len(tasks), fmt.Sprintf("Initializing download of %d items...", len(tasks)))
	o.eventLogger.LogBatchEvent("batch_started", zap.String("batch_id", batchID), zap.Int("total", len(tasks)))
	o.logger.Info("Download batch started", zap.String("batch_id", batchID), zap.Int("total", len(tasks)))

	if len(tasks) == 0 {
		o.status.Append(msgNothingToDownload)
		o.status.Finish()
		o.eventLogger.LogBatchEvent("batch_finished", zap.String("batch_id", batchID), zap.Int("total", 0))
		return summary
	}

	for i, task := range tasks {
		if ctx.Err() != nil {
			o.status.Append(fmt.Sprintf("Batch cancelled, %d items not attempted.", len(tasks)-i))
			o.logger.Warn("Download batch cancelled",
				zap.String("batch_id", batchID),
				zap.Int("remaining", len(tasks)-i))
			break
		}

		result := o.runTask(ctx, task)
		summary.Add(result.State)
		o.record(batchID, task, result)
		o.status.SetCompleted(i + 1)
	}

	o.status.Append(msgAllFinished)
	o.status.Finish()

	o.eventLogger.LogBatchEvent("batch_finished",
		zap.String("batch_id", batchID),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("timed_out", summary.TimedOut),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", time.Since(started)))
	o.logger.Info("Download batch finished",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("total", summary.Total))

	if o.notifier != nil {
		o.notifier.NotifyBatchFinished(summary)
	}

	return summary
}

// runTask runs one task and reports its outcome as status lines. Failures
// stop here; they are never returned to the batch loop.
func (o *Orchestrator) runTask(ctx context.Context, task domain.DownloadTask) domain.TaskResult {
	if !task.Resolved() {
		now := time.Now()
		o.status.Append(fmt.Sprintf("-> Skipping %s %q: missing name or URL", task.Kind, task.Name))
		return domain.TaskResult{State: domain.TaskSkipped, ExitCode: -1, Started: now, Finished: now}
	}

	o.status.Append(fmt.Sprintf("-> Starting download of %s: %s", task.Kind, task.Name))

	timeout := o.config.TimeoutFor(task)
	result := o.downloader.Download(ctx, task, timeout, func(line string) {
		o.status.Append("   " + line)
	})

	switch {
	case result.State == domain.TaskSucceeded:
		o.status.Append(fmt.Sprintf("   Download of '%s' completed successfully.", task.Name))
	case result.State == domain.TaskTimedOut:
		o.status.Append(fmt.Sprintf("   TIMEOUT: download of '%s' exceeded %s and was terminated.", task.Name, timeout))
	case result.Launched():
		o.status.Append(fmt.Sprintf("   ERROR while downloading '%s'. Exit code: %d", task.Name, result.ExitCode))
	default:
		o.status.Append(fmt.Sprintf("   CRITICAL ERROR for '%s': %v", task.Name, result.Err))
	}

	if result.State != domain.TaskSucceeded {
		o.logger.Warn("Download task failed",
			zap.String("name", task.Name),
			zap.String("url", task.URL),
			zap.String("state", string(result.State)),
			zap.Int("exit_code", result.ExitCode),
			zap.Error(result.Err))
	}

	return result
}

func (o *Orchestrator) record(batchID string, task domain.DownloadTask, result domain.TaskResult) {
	if o.history == nil {
		return
	}
	if err := o.history.Create(domain.NewDownloadRecord(batchID, task, result)); err != nil {
		o.logger.Error("Failed to record download history", zap.String("batch_id", batchID), zap.Error(err))
		o.eventLogger.LogAppError("Failed to record download history", zap.String("batch_id", batchID), zap.Error(err))
	}
}
