package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

func newTestDiscoveryEngine(catalog domain.Catalog, store domain.LedgerStore, seedDiscovered bool) (*DiscoveryEngine, *[]time.Duration) {
	config := &domain.DiscoveryConfig{RequestDelay: time.Second, SeedDiscovered: seedDiscovered}
	engine := NewDiscoveryEngine(catalog, store, config, zap.NewNop(), nil)

	var sleeps []time.Duration
	engine.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return engine, &sleeps
}

func settingsWith(genres []string, charts map[string]string) *domain.DiscoverySettings {
	settings := domain.DefaultDiscoverySettings()
	if genres != nil {
		settings.SeedGenres = genres
	}
	if charts != nil {
		settings.TopChartPlaylists = charts
	}
	return settings
}

func TestDiscoveryEngine_SeedsProcessedEvenWhenFetchFails(t *testing.T) {
	catalog := newMockCatalog()
	catalog.failures["related:A"] = true
	catalog.related["B"] = []domain.Artist{artist("C", 70)}
	store := newMemoryLedgerStore([]string{"A", "B"}, nil)
	engine, _ := newTestDiscoveryEngine(catalog, store, false)

	result, err := engine.Run(context.Background(), settingsWith(nil, nil))

	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.Empty(t, store.ledger.Seed)
	assert.Equal(t, map[string]struct{}{"A": {}, "B": {}}, store.ledger.Processed)
	assert.Equal(t, []string{"A", "B"}, result.SeedsExpanded)
	assert.Equal(t, []string{"C"}, result.ArtistIDs())
}

func TestDiscoveryEngine_ProcessedSeedsNotExpandedAgain(t *testing.T) {
	catalog := newMockCatalog()
	store := newMemoryLedgerStore([]string{"A", "B"}, []string{"A"})
	engine, _ := newTestDiscoveryEngine(catalog, store, false)

	_, err := engine.Run(context.Background(), settingsWith(nil, nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"related:B"}, catalog.Calls())

	_, err = engine.Run(context.Background(), settingsWith(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"related:B"}, catalog.Calls(), "second pass has nothing to expand")
}

func TestDiscoveryEngine_ThresholdAndProcessedFilter(t *testing.T) {
	catalog := newMockCatalog()
	catalog.related["S"] = []domain.Artist{
		artist("low", 49),
		artist("edge", 50),
		artist("old", 90),
	}
	store := newMemoryLedgerStore([]string{"S"}, []string{"old"})
	engine, _ := newTestDiscoveryEngine(catalog, store, false)

	result, err := engine.Run(context.Background(), settingsWith(nil, nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"edge"}, result.ArtistIDs())
	assert.Equal(t, StrategyRelated, result.Candidates[0].Strategy)
	assert.Equal(t, "S", result.Candidates[0].Source)
}

func TestDiscoveryEngine_CrossStrategyDedup(t *testing.T) {
	catalog := newMockCatalog()
	catalog.related["S"] = []domain.Artist{artist("X", 80)}
	catalog.charts["pl-1"] = []domain.Artist{artist("X", 80), artist("Y", 60)}
	catalog.genres["jazz"] = []domain.Artist{artist("Y", 60), artist("Z", 55), artist("X", 80)}
	store := newMemoryLedgerStore([]string{"S"}, nil)
	engine, _ := newTestDiscoveryEngine(catalog, store, false)

	result, err := engine.Run(context.Background(), settingsWith([]string{"jazz"}, map[string]string{"top": "pl-1"}))

	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "Z"}, result.ArtistIDs())
	assert.Equal(t, StrategyRelated, result.Candidates[0].Strategy)
	assert.Equal(t, StrategyCharts, result.Candidates[1].Strategy)
	assert.Equal(t, StrategyGenres, result.Candidates[2].Strategy)
	assert.Equal(t, []string{"related:S", "playlist:pl-1", "genre:jazz"}, catalog.Calls())
}

func TestDiscoveryEngine_ChartsResolvedBySearchOrSkipped(t *testing.T) {
	catalog := newMockCatalog()
	catalog.playlists["Top 50 - Global"] = []domain.Playlist{{ID: "global"}, {ID: "other"}}
	catalog.charts["global"] = []domain.Artist{artist("G", 95)}
	catalog.failures["playlist:broken"] = true
	store := newMemoryLedgerStore(nil, nil)
	engine, _ := newTestDiscoveryEngine(catalog, store, false)

	result, err := engine.Run(context.Background(), settingsWith(nil, map[string]string{
		"Top 50 - Global": "",
		"Missing chart":   "",
		"broken chart":    "broken",
	}))

	require.NoError(t, err)
	assert.Equal(t, []string{"G"}, result.ArtistIDs())
	assert.ElementsMatch(t, []string{"Missing chart", "broken chart"}, result.ChartsSkipped)
	assert.Contains(t, catalog.Calls(), "playlist:global")
	assert.NotContains(t, catalog.Calls(), "playlist:other")
}

func TestDiscoveryEngine_GenreFailureContinues(t *testing.T) {
	catalog := newMockCatalog()
	catalog.failures["genre:rock"] = true
	catalog.genres["pop"] = []domain.Artist{artist("P", 70)}
	engine, _ := newTestDiscoveryEngine(catalog, newMemoryLedgerStore(nil, nil), false)

	result, err := engine.Run(context.Background(), settingsWith([]string{"rock", "pop"}, nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"rock"}, result.GenresFailed)
	assert.Equal(t, []string{"P"}, result.ArtistIDs())
}

func TestDiscoveryEngine_PacesRequests(t *testing.T) {
	catalog := newMockCatalog()
	engine, sleeps := newTestDiscoveryEngine(catalog, newMemoryLedgerStore([]string{"A", "B"}, nil), false)

	_, err := engine.Run(context.Background(), settingsWith([]string{"rock"}, nil))

	require.NoError(t, err)
	assert.Len(t, catalog.Calls(), 3)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *sleeps)
}

func TestDiscoveryEngine_SeedDiscovered(t *testing.T) {
	catalog := newMockCatalog()
	catalog.genres["rock"] = []domain.Artist{artist("R1", 60), artist("R2", 65)}
	store := newMemoryLedgerStore(nil, nil)
	engine, _ := newTestDiscoveryEngine(catalog, store, true)

	result, err := engine.Run(context.Background(), settingsWith([]string{"rock"}, nil))

	require.NoError(t, err)
	assert.Equal(t, 2, result.SeedsNominated)
	assert.Equal(t, map[string]struct{}{"R1": {}, "R2": {}}, store.ledger.Seed)
}

func TestDiscoveryEngine_CancelledPassStillSavesLedger(t *testing.T) {
	catalog := newMockCatalog()
	store := newMemoryLedgerStore([]string{"A", "B"}, nil)
	engine, _ := newTestDiscoveryEngine(catalog, store, false)

	ctx, cancel := context.WithCancel(context.Background())
	engine.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := engine.Run(ctx, settingsWith(nil, nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.saves)
	assert.Contains(t, store.ledger.Processed, "A")
	assert.Contains(t, store.ledger.Seed, "B")
}

func TestDiscoveryEngine_LedgerErrors(t *testing.T) {
	store := newMemoryLedgerStore(nil, nil)
	store.loadErr = errors.New("permission denied")
	engine, _ := newTestDiscoveryEngine(newMockCatalog(), store, false)

	_, err := engine.Run(context.Background(), settingsWith(nil, nil))
	assert.ErrorContains(t, err, "failed to load discovery ledger")

	store.loadErr = nil
	store.saveErr = errors.New("disk full")
	_, err = engine.Run(context.Background(), settingsWith(nil, nil))
	assert.ErrorContains(t, err, "failed to save discovery ledger")
}

func TestSortCandidatesByPopularity(t *testing.T) {
	candidates := []Candidate{
		{Artist: domain.Artist{Name: "b", Popularity: 50}},
		{Artist: domain.Artist{Name: "a", Popularity: 50}},
		{Artist: domain.Artist{Name: "c", Popularity: 90}},
	}

	SortCandidatesByPopularity(candidates)

	assert.Equal(t, "c", candidates[0].Artist.Name)
	assert.Equal(t, "a", candidates[1].Artist.Name)
	assert.Equal(t, "b", candidates[2].Artist.Name)
}

func TestDiscoveryEngine_SeedArtist(t *testing.T) {
	catalog := newMockCatalog()
	a := artist("new", 40)
	old := artist("old", 40)
	catalog.artists["New Band"] = &a
	catalog.artists["Old Band"] = &old
	store := newMemoryLedgerStore(nil, []string{"old"})
	engine, _ := newTestDiscoveryEngine(catalog, store, false)

	seeded, added, err := engine.SeedArtist(context.Background(), "New Band")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "new", seeded.ID)
	assert.Contains(t, store.ledger.Seed, "new")

	_, added, err = engine.SeedArtist(context.Background(), "New Band")
	require.NoError(t, err)
	assert.False(t, added, "already a seed")

	_, added, err = engine.SeedArtist(context.Background(), "Old Band")
	require.NoError(t, err)
	assert.False(t, added, "processed artists are never seeded again")

	_, _, err = engine.SeedArtist(context.Background(), "Nobody")
	assert.ErrorIs(t, err, domain.ErrArtistNotFound)
}
