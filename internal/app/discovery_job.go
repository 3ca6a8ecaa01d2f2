package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

// DiscoveryNotifier is told when a discovery pass finishes
type DiscoveryNotifier interface {
	NotifyDiscoveryFinished(candidates int)
}

// DiscoveryReport is the outcome of one discovery job run
type DiscoveryReport struct {
	Discovery *DiscoveryResult    `json:"discovery"`
	Planned   int                 `json:"planned"`
	Summary   domain.BatchSummary `json:"summary"`
	Started   time.Time           `json:"started"`
	Finished  time.Time           `json:"finished"`
}

// DiscoveryJob runs the unattended pipeline: load settings, discover
// candidate artists, plan their downloads and run them as one batch
type DiscoveryJob struct {
	settingsPath string
	planMode     domain.PlanMode
	engine       *DiscoveryEngine
	resolver     *Resolver
	orchestrator *Orchestrator
	notifier     DiscoveryNotifier
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	running    bool
	lastReport *DiscoveryReport
}

// NewDiscoveryJob creates a new discovery job. notifier may be nil.
func NewDiscoveryJob(
	config *domain.Config,
	engine *DiscoveryEngine,
	resolver *Resolver,
	orchestrator *Orchestrator,
	notifier DiscoveryNotifier,
	log *zap.Logger,
) *DiscoveryJob {
	ctx, cancel := context.WithCancel(context.Background())
	return &DiscoveryJob{
		settingsPath: config.Discovery.SettingsPath,
		planMode:     config.Download.PlanMode,
		engine:       engine,
		resolver:     resolver,
		orchestrator: orchestrator,
		notifier:     notifier,
		logger:       log.With(zap.String("component", "discovery_job")),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run executes the job and waits for its download batch. Settings problems
// surface as ErrConfigMissing; a batch already running as ErrBatchInProgress.
// The orchestrator's batch slot is held for the whole run, so no other batch
// can start between discovery and download.
func (j *DiscoveryJob) Run(ctx context.Context) (*DiscoveryReport, error) {
	slot, err := j.acquire()
	if err != nil {
		return nil, err
	}
	defer j.release(slot)

	return j.run(ctx, slot)
}

// Trigger starts the job in the background
func (j *DiscoveryJob) Trigger() error {
	slot, err := j.acquire()
	if err != nil {
		return err
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer j.release(slot)
		if _, err := j.run(j.ctx, slot); err != nil {
			j.logger.Error("Discovery job failed", zap.Error(err))
		}
	}()
	return nil
}

// LastReport returns the report of the last completed run, if any
func (j *DiscoveryJob) LastReport() *DiscoveryReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastReport
}

// IsRunning reports whether the job is in progress
func (j *DiscoveryJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// Shutdown cancels a background run and waits for it, or for ctx to expire
func (j *DiscoveryJob) Shutdown(ctx context.Context) error {
	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *DiscoveryJob) acquire() (*Reservation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil, domain.ErrBatchInProgress
	}
	slot, err := j.orchestrator.Reserve()
	if err != nil {
		return nil, err
	}
	j.running = true
	return slot, nil
}

func (j *DiscoveryJob) release(slot *Reservation) {
	slot.Release()
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

func (j *DiscoveryJob) run(ctx context.Context, slot *Reservation) (*DiscoveryReport, error) {
	report := &DiscoveryReport{Started: time.Now()}

	settings, err := LoadDiscoverySettings(j.settingsPath)
	if err != nil {
		return nil, err
	}

	result, err := j.engine.Run(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("discovery pass failed: %w", err)
	}
	report.Discovery = result

	if j.notifier != nil {
		j.notifier.NotifyDiscoveryFinished(len(result.Candidates))
	}

	tasks := j.resolver.PlanArtists(ctx, result.ArtistIDs(), j.planMode, settings.PopularityThresholdTrack)
	report.Planned = len(tasks)
	j.logger.Info("Planned discovery downloads",
		zap.Int("artists", len(result.Candidates)),
		zap.Int("tasks", len(tasks)),
		zap.String("mode", string(j.planMode)))

	report.Summary = slot.Run(ctx, tasks)
	report.Finished = time.Now()

	j.mu.Lock()
	j.lastReport = report
	j.mu.Unlock()

	return report, nil
}
