package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"github.com/yourusername/music-harvest-go/pkg/logger"
	"go.uber.org/zap"
)

// Strategy names used in candidate provenance and event logs
const (
	StrategyRelated = "related"
	StrategyCharts  = "charts"
	StrategyGenres  = "genres"
)

// Candidate is an artist surfaced by a discovery pass
type Candidate struct {
	Artist   domain.Artist `json:"artist"`
	Strategy string        `json:"strategy"`
	Source   string        `json:"source"` // seed id, chart label or genre
}

// DiscoveryResult is the outcome of one discovery pass
type DiscoveryResult struct {
	Candidates     []Candidate `json:"candidates"`
	SeedsExpanded  []string    `json:"seeds_expanded"`
	ChartsSkipped  []string    `json:"charts_skipped"`
	GenresFailed   []string    `json:"genres_failed"`
	SeedsNominated int         `json:"seeds_nominated"`
}

// ArtistIDs returns the candidate artist ids in discovery order
func (r *DiscoveryResult) ArtistIDs() []string {
	ids := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		ids[i] = c.Artist.ID
	}
	return ids
}

// DiscoveryEngine combines related-artist expansion, chart traversal and
// genre search into one deduplicated candidate set
type DiscoveryEngine struct {
	catalog        domain.Catalog
	ledger         domain.LedgerStore
	delay          time.Duration
	seedDiscovered bool
	logger         *zap.Logger
	eventLogger    *logger.MultiLogger

	// ledgerMu serializes load-modify-save cycles on the ledger
	ledgerMu sync.Mutex
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewDiscoveryEngine creates a new discovery engine
func NewDiscoveryEngine(
	catalog domain.Catalog,
	ledger domain.LedgerStore,
	config *domain.DiscoveryConfig,
	log *zap.Logger,
	eventLogger *logger.MultiLogger,
) *DiscoveryEngine {
	if eventLogger == nil {
		eventLogger = logger.NewNopMultiLogger()
	}
	return &DiscoveryEngine{
		catalog:        catalog,
		ledger:         ledger,
		delay:          config.RequestDelay,
		seedDiscovered: config.SeedDiscovered,
		logger:         log.With(zap.String("component", "discovery")),
		eventLogger:    eventLogger,
		sleep:          sleepContext,
	}
}

// discoveryPass holds the state shared by the strategies of one pass
type discoveryPass struct {
	settings *domain.DiscoverySettings
	ledger   *domain.Ledger
	known    map[string]struct{}
	result   *DiscoveryResult
	requests int
}

// consider adds artist to the candidates unless it is already known or below
// the threshold. Returns true when it was added.
func (p *discoveryPass) consider(artist domain.Artist, strategy, source string) bool {
	if artist.ID == "" {
		return false
	}
	if _, ok := p.known[artist.ID]; ok {
		return false
	}
	if artist.Popularity < p.settings.PopularityThresholdArtist {
		return false
	}
	p.known[artist.ID] = struct{}{}
	p.result.Candidates = append(p.result.Candidates, Candidate{Artist: artist, Strategy: strategy, Source: source})
	return true
}

// Run performs one discovery pass and persists the ledger. Strategy failures
// are logged and skipped; only ledger and context errors are returned.
func (e *DiscoveryEngine) Run(ctx context.Context, settings *domain.DiscoverySettings) (*DiscoveryResult, error) {
	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()

	ledger, err := e.ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load discovery ledger: %w", err)
	}

	pass := &discoveryPass{
		settings: settings,
		ledger:   ledger,
		known:    make(map[string]struct{}, len(ledger.Processed)),
		result:   &DiscoveryResult{Candidates: []Candidate{}, SeedsExpanded: []string{}, ChartsSkipped: []string{}, GenresFailed: []string{}},
	}
	for id := range ledger.Processed {
		pass.known[id] = struct{}{}
	}

	e.eventLogger.LogDiscoveryEvent("discovery_started",
		zap.Int("pending_seeds", len(ledger.PendingSeeds())),
		zap.Int("charts", len(settings.TopChartPlaylists)),
		zap.Int("genres", len(settings.SeedGenres)))

	runErr := e.expandRelated(ctx, pass)
	if runErr == nil {
		runErr = e.traverseCharts(ctx, pass)
	}
	if runErr == nil {
		runErr = e.searchGenres(ctx, pass)
	}

	if runErr == nil && e.seedDiscovered {
		for _, c := range pass.result.Candidates {
			if ledger.AddSeed(c.Artist.ID) {
				pass.result.SeedsNominated++
			}
		}
	}

	// Seeds visited before a cancellation are still recorded.
	if err := e.ledger.Save(ledger); err != nil {
		e.eventLogger.LogAppError("Failed to save discovery ledger", zap.Error(err))
		return pass.result, fmt.Errorf("failed to save discovery ledger: %w", err)
	}

	if runErr != nil {
		return pass.result, runErr
	}

	e.eventLogger.LogDiscoveryEvent("discovery_finished",
		zap.Int("candidates", len(pass.result.Candidates)),
		zap.Int("seeds_expanded", len(pass.result.SeedsExpanded)),
		zap.Strings("charts_skipped", pass.result.ChartsSkipped),
		zap.Int("seeds_nominated", pass.result.SeedsNominated))
	e.logger.Info("Discovery pass finished",
		zap.Int("candidates", len(pass.result.Candidates)),
		zap.Int("requests", pass.requests))

	return pass.result, nil
}

// SeedArtist nominates the top search result for name as a seed. It returns
// false when the artist is already a seed or was already processed.
func (e *DiscoveryEngine) SeedArtist(ctx context.Context, name string) (*domain.Artist, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("artist name is required")
	}

	artist, err := e.catalog.SearchArtist(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to search artist: %w", err)
	}
	if artist == nil {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrArtistNotFound, name)
	}

	e.ledgerMu.Lock()
	defer e.ledgerMu.Unlock()

	ledger, err := e.ledger.Load()
	if err != nil {
		return nil, false, fmt.Errorf("failed to load discovery ledger: %w", err)
	}
	if !ledger.AddSeed(artist.ID) {
		return artist, false, nil
	}
	if err := e.ledger.Save(ledger); err != nil {
		return nil, false, fmt.Errorf("failed to save discovery ledger: %w", err)
	}

	e.eventLogger.LogDiscoveryEvent("seed_added", zap.String("artist_id", artist.ID), zap.String("name", artist.Name))
	return artist, true, nil
}

// expandRelated expands every pending seed once. A seed is marked processed
// as soon as it is visited, whether or not its fetch succeeded.
func (e *DiscoveryEngine) expandRelated(ctx context.Context, pass *discoveryPass) error {
	for _, seedID := range pass.ledger.PendingSeeds() {
		if err := e.pace(ctx, pass); err != nil {
			return err
		}

		pass.ledger.MarkProcessed(seedID)
		pass.known[seedID] = struct{}{}
		pass.result.SeedsExpanded = append(pass.result.SeedsExpanded, seedID)

		related, err := e.catalog.ListRelatedArtists(ctx, seedID)
		if err != nil {
			e.logger.Warn("Related artist fetch failed", zap.String("artist_id", seedID), zap.Error(err))
			continue
		}

		added := 0
		for _, artist := range related {
			if pass.consider(artist, StrategyRelated, seedID) {
				added++
			}
		}
		e.logger.Debug("Expanded seed artist",
			zap.String("artist_id", seedID),
			zap.Int("related", len(related)),
			zap.Int("added", added))
	}
	pass.ledger.DropProcessedSeeds()
	return nil
}

// traverseCharts walks the primary artists of every configured chart. Charts
// that cannot be resolved or fetched are skipped with a warning.
func (e *DiscoveryEngine) traverseCharts(ctx context.Context, pass *discoveryPass) error {
	for _, label := range pass.settings.ChartLabels() {
		playlistID := pass.settings.TopChartPlaylists[label]

		if playlistID == "" {
			if err := e.pace(ctx, pass); err != nil {
				return err
			}
			playlists, err := e.catalog.SearchPlaylist(ctx, label)
			if err != nil || len(playlists) == 0 {
				e.skipChart(pass, label, "playlist not found", err)
				continue
			}
			playlistID = playlists[0].ID
		}

		if err := e.pace(ctx, pass); err != nil {
			return err
		}
		artists, err := e.catalog.ListPlaylistPrimaryArtists(ctx, playlistID)
		if err != nil {
			e.skipChart(pass, label, "playlist fetch failed", err)
			continue
		}

		added := 0
		for _, artist := range artists {
			if pass.consider(artist, StrategyCharts, label) {
				added++
			}
		}
		e.logger.Debug("Traversed chart",
			zap.String("chart", label),
			zap.String("playlist_id", playlistID),
			zap.Int("artists", len(artists)),
			zap.Int("added", added))
	}
	return nil
}

func (e *DiscoveryEngine) skipChart(pass *discoveryPass, label, reason string, err error) {
	pass.result.ChartsSkipped = append(pass.result.ChartsSkipped, label)
	fields := []zap.Field{zap.String("chart", label), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	e.logger.Warn("Skipping chart", fields...)
	e.eventLogger.LogDiscoveryEvent("chart_skipped", fields...)
}

// searchGenres searches the artists of every configured genre
func (e *DiscoveryEngine) searchGenres(ctx context.Context, pass *discoveryPass) error {
	for _, genre := range pass.settings.SeedGenres {
		if err := e.pace(ctx, pass); err != nil {
			return err
		}

		artists, err := e.catalog.SearchGenre(ctx, genre)
		if err != nil {
			pass.result.GenresFailed = append(pass.result.GenresFailed, genre)
			e.logger.Warn("Genre search failed", zap.String("genre", genre), zap.Error(err))
			continue
		}

		for _, artist := range artists {
			pass.consider(artist, StrategyGenres, genre)
		}
	}
	return nil
}

// pace waits the fixed inter-request delay before every request but the first
func (e *DiscoveryEngine) pace(ctx context.Context, pass *discoveryPass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pass.requests++
	if pass.requests == 1 || e.delay <= 0 {
		return nil
	}
	return e.sleep(ctx, e.delay)
}

// SortCandidatesByPopularity orders candidates most popular first, ties by name
func SortCandidatesByPopularity(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Artist.Popularity != candidates[j].Artist.Popularity {
			return candidates[i].Artist.Popularity > candidates[j].Artist.Popularity
		}
		return candidates[i].Artist.Name < candidates[j].Artist.Name
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
