package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

type countingNotifier struct {
	candidates []int
}

func (n *countingNotifier) NotifyDiscoveryFinished(candidates int) {
	n.candidates = append(n.candidates, candidates)
}

type jobFixture struct {
	job        *DiscoveryJob
	catalog    *mockCatalog
	downloader *mockDownloader
	store      *memoryLedgerStore
	notifier   *countingNotifier
	status     *StatusTracker
}

func newJobFixture(t *testing.T, settingsJSON string, mode domain.PlanMode) *jobFixture {
	t.Helper()

	config := domain.DefaultConfig()
	config.Download.PlanMode = mode
	config.Discovery.RequestDelay = 0
	config.Discovery.SettingsPath = filepath.Join(t.TempDir(), "settings.json")
	if settingsJSON != "" {
		require.NoError(t, os.WriteFile(config.Discovery.SettingsPath, []byte(settingsJSON), 0644))
	}

	catalog := newMockCatalog()
	store := newMemoryLedgerStore([]string{"seed"}, nil)
	downloader := newMockDownloader()
	status := NewStatusTracker()
	notifier := &countingNotifier{}

	engine := NewDiscoveryEngine(catalog, store, &config.Discovery, zap.NewNop(), nil)
	resolver := NewResolver(catalog, &config.Download, zap.NewNop())
	orchestrator := NewOrchestrator(downloader, status, nil, nil, &config.Download, zap.NewNop(), nil)

	return &jobFixture{
		job:        NewDiscoveryJob(config, engine, resolver, orchestrator, notifier, zap.NewNop()),
		catalog:    catalog,
		downloader: downloader,
		store:      store,
		notifier:   notifier,
		status:     status,
	}
}

func TestDiscoveryJob_RunTracksMode(t *testing.T) {
	f := newJobFixture(t, `{"popularity_threshold_artist": 60, "popularity_threshold_track": 40}`, domain.PlanTracks)
	f.catalog.related["seed"] = []domain.Artist{artist("hot", 70), artist("cold", 59)}
	f.catalog.releases["hot"] = []domain.Album{album("al1", "Debut")}
	f.catalog.tracks["al1"] = []domain.Track{{ID: "t1"}, {ID: "t2"}}
	f.catalog.byID["t1"] = track("t1", 39)
	f.catalog.byID["t2"] = track("t2", 41)

	report, err := f.job.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"hot"}, report.Discovery.ArtistIDs())
	assert.Equal(t, 1, report.Planned)
	assert.Equal(t, 1, report.Summary.Succeeded)
	assert.Equal(t, []string{"https://open.spotify.com/track/t2"}, f.downloader.Calls())
	assert.Equal(t, []int{1}, f.notifier.candidates)
	assert.Contains(t, f.store.ledger.Processed, "seed")
	assert.Same(t, report, f.job.LastReport())
}

func TestDiscoveryJob_RunAlbumsModeWithNoCandidates(t *testing.T) {
	f := newJobFixture(t, `{}`, domain.PlanAlbums)

	report, err := f.job.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Planned)
	assert.Empty(t, f.downloader.Calls())
	assert.Contains(t, f.status.Snapshot().StatusMessages, msgNothingToDownload)
}

func TestDiscoveryJob_MissingSettings(t *testing.T) {
	f := newJobFixture(t, "", domain.PlanTracks)

	_, err := f.job.Run(context.Background())

	assert.ErrorIs(t, err, domain.ErrConfigMissing)
	assert.Empty(t, f.catalog.Calls(), "nothing runs without settings")
	assert.False(t, f.job.IsRunning())
}

func TestDiscoveryJob_RejectedWhileBatchRuns(t *testing.T) {
	f := newJobFixture(t, `{}`, domain.PlanTracks)
	block := make(chan struct{})
	f.downloader.on(task("slow").URL, scriptedRun{block: block, result: domain.TaskResult{State: domain.TaskSucceeded}})

	_, err := f.job.orchestrator.Start([]domain.DownloadTask{task("slow")})
	require.NoError(t, err)

	_, err = f.job.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrBatchInProgress)
	assert.ErrorIs(t, f.job.Trigger(), domain.ErrBatchInProgress)

	close(block)
	f.job.orchestrator.Wait()
}

func TestDiscoveryJob_Trigger(t *testing.T) {
	f := newJobFixture(t, `{}`, domain.PlanTracks)

	require.NoError(t, f.job.Trigger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.job.Shutdown(ctx))
	assert.False(t, f.job.IsRunning())
}

func TestDiscoveryJob_HoldsBatchSlotDuringDiscovery(t *testing.T) {
	f := newJobFixture(t, `{"popularity_threshold_artist": 60}`, domain.PlanTracks)
	f.catalog.related["seed"] = []domain.Artist{artist("hot", 70)}
	f.catalog.releases["hot"] = []domain.Album{album("al1", "Debut")}
	f.catalog.tracks["al1"] = []domain.Track{{ID: "t1"}}
	f.catalog.byID["t1"] = track("t1", 80)

	var interactiveErr error
	f.catalog.onRelated = func(string) {
		_, interactiveErr = f.job.orchestrator.Start([]domain.DownloadTask{task("interactive")})
	}

	report, err := f.job.Run(context.Background())

	require.NoError(t, err)
	assert.ErrorIs(t, interactiveErr, domain.ErrBatchInProgress)
	assert.Equal(t, []string{"hot"}, report.Discovery.ArtistIDs())
	assert.Equal(t, 1, report.Summary.Succeeded)
	assert.Equal(t, []string{"https://open.spotify.com/track/t1"}, f.downloader.Calls())
	assert.Same(t, report, f.job.LastReport())
	assert.False(t, f.job.orchestrator.IsRunning())
}

func TestDiscoveryJob_FailedPassFreesBatchSlot(t *testing.T) {
	f := newJobFixture(t, "", domain.PlanTracks)

	_, err := f.job.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrConfigMissing)

	assert.False(t, f.job.orchestrator.IsRunning())
	_, err = f.job.orchestrator.Run(context.Background(), nil)
	assert.NoError(t, err)
}
