package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

const (
	selectionCacheTTL = time.Hour

	itemPrefixAlbum = "album-"
	itemPrefixTrack = "track-"
)

// ArtistAlbums is an artist search result with its deduplicated releases
type ArtistAlbums struct {
	Artist domain.Artist  `json:"artist"`
	Albums []domain.Album `json:"albums"`
}

type cachedSelection struct {
	result   *ArtistAlbums
	storedAt time.Time
}

// Resolver turns user and discovery selections into download tasks
type Resolver struct {
	catalog domain.Catalog
	config  *domain.DownloadConfig
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedSelection
}

// NewResolver creates a new resolver
func NewResolver(catalog domain.Catalog, config *domain.DownloadConfig, log *zap.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		config:  config,
		logger:  log.With(zap.String("component", "resolver")),
		now:     time.Now,
		cache:   make(map[string]cachedSelection),
	}
}

// SearchArtistAlbums finds the top artist for name and lists its releases,
// deduplicated by name and sorted. The result is cached for ResolveSelection.
func (r *Resolver) SearchArtistAlbums(ctx context.Context, name string) (*ArtistAlbums, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("artist name is required")
	}

	artist, err := r.catalog.SearchArtist(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search artist: %w", err)
	}
	if artist == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtistNotFound, name)
	}

	albums, err := r.releases(ctx, artist.ID)
	if err != nil {
		return nil, err
	}

	result := &ArtistAlbums{Artist: *artist, Albums: albums}

	r.mu.Lock()
	r.evictExpired()
	if prev, ok := r.cache[artist.ID]; ok {
		carryTrackIDs(result.Albums, prev.result.Albums)
	}
	r.cache[artist.ID] = cachedSelection{result: result, storedAt: r.now()}
	r.mu.Unlock()

	return result, nil
}

// AlbumTracks lists the tracks of an album. Their ids are kept, in order, on
// the album wherever a cached artist search holds it.
func (r *Resolver) AlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	tracks, err := r.catalog.ListAlbumTracks(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to list album tracks: %w", err)
	}
	r.rememberTrackIDs(albumID, trackIDs(tracks))
	return tracks, nil
}

// rememberTrackIDs stores ids on cached copies of the album. Cached results
// may be held by callers, so entries are replaced rather than edited.
func (r *Resolver) rememberTrackIDs(albumID string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for artistID, entry := range r.cache {
		for i, a := range entry.result.Albums {
			if a.ID != albumID {
				continue
			}
			albums := append([]domain.Album(nil), entry.result.Albums...)
			albums[i].TrackIDs = ids
			r.cache[artistID] = cachedSelection{
				result:   &ArtistAlbums{Artist: entry.result.Artist, Albums: albums},
				storedAt: entry.storedAt,
			}
			break
		}
	}
}

// ResolveSelection maps selected items ("album-<id>" or "track-<id>") of a
// cached artist search to download tasks, in selection order. Albums come
// from the cache; tracks are fetched in one batch.
func (r *Resolver) ResolveSelection(ctx context.Context, artistID string, items []string) ([]domain.DownloadTask, error) {
	r.mu.RLock()
	entry, ok := r.cache[artistID]
	r.mu.RUnlock()
	if !ok || r.now().Sub(entry.storedAt) > selectionCacheTTL {
		return nil, domain.ErrSelectionExpired
	}

	albums := make(map[string]domain.Album, len(entry.result.Albums))
	for _, a := range entry.result.Albums {
		albums[a.ID] = a
	}

	type slot struct {
		kind domain.TaskKind
		id   string
	}
	var slots []slot
	var trackIDs []string

	for _, item := range items {
		switch {
		case strings.HasPrefix(item, itemPrefixAlbum):
			slots = append(slots, slot{domain.KindAlbum, strings.TrimPrefix(item, itemPrefixAlbum)})
		case strings.HasPrefix(item, itemPrefixTrack):
			id := strings.TrimPrefix(item, itemPrefixTrack)
			slots = append(slots, slot{domain.KindTrack, id})
			trackIDs = append(trackIDs, id)
		default:
			r.logger.Warn("Ignoring malformed selection item", zap.String("item", item))
		}
	}

	tracks := make(map[string]domain.Track, len(trackIDs))
	if len(trackIDs) > 0 {
		fetched, err := r.catalog.BatchGetTracks(ctx, trackIDs)
		if err != nil {
			// Selected tracks are dropped, albums still resolve
			r.logger.Warn("Failed to resolve selected tracks", zap.Int("count", len(trackIDs)), zap.Error(err))
		}
		for _, t := range fetched {
			tracks[t.ID] = t
		}
	}

	var tasks []domain.DownloadTask
	for _, s := range slots {
		var task domain.DownloadTask
		switch s.kind {
		case domain.KindAlbum:
			album, ok := albums[s.id]
			if !ok {
				r.logger.Warn("Selected album not in search results", zap.String("album_id", s.id))
				continue
			}
			task = domain.DownloadTask{Kind: domain.KindAlbum, Name: album.Name, URL: album.URL}
		case domain.KindTrack:
			track, ok := tracks[s.id]
			if !ok {
				r.logger.Warn("Selected track could not be resolved", zap.String("track_id", s.id))
				continue
			}
			task = domain.DownloadTask{Kind: domain.KindTrack, Name: track.Name, URL: track.URL}
		}
		if !task.Resolved() {
			continue
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, domain.ErrNoValidItems
	}
	return tasks, nil
}

// PlanArtists builds the download tasks for whole artists. In album mode
// every deduplicated release is one task with the batch timeout; in track
// mode every track at or above minTrackPopularity is one task. Artists whose
// catalog lookups fail are logged and left out.
func (r *Resolver) PlanArtists(ctx context.Context, artistIDs []string, mode domain.PlanMode, minTrackPopularity int) []domain.DownloadTask {
	var tasks []domain.DownloadTask
	for _, artistID := range artistIDs {
		if ctx.Err() != nil {
			break
		}

		var planned []domain.DownloadTask
		var err error
		if mode == domain.PlanAlbums {
			planned, err = r.planAlbums(ctx, artistID)
		} else {
			planned, err = r.planTracks(ctx, artistID, minTrackPopularity)
		}
		if err != nil {
			r.logger.Warn("Skipping artist", zap.String("artist_id", artistID), zap.Error(err))
			continue
		}
		tasks = append(tasks, planned...)
	}
	return tasks
}

// ResolveArtistsFile reads artist names from path, one per line, and plans
// every release of every artist found
func (r *Resolver) ResolveArtistsFile(ctx context.Context, path string) ([]domain.DownloadTask, error) {
	names, err := readNameList(path)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, name := range names {
		artist, err := r.catalog.SearchArtist(ctx, name)
		if err != nil {
			r.logger.Warn("Artist search failed", zap.String("artist", name), zap.Error(err))
			continue
		}
		if artist == nil {
			r.logger.Warn("Artist not found", zap.String("artist", name))
			continue
		}
		ids = append(ids, artist.ID)
	}

	return r.PlanArtists(ctx, ids, domain.PlanAlbums, 0), nil
}

func (r *Resolver) planAlbums(ctx context.Context, artistID string) ([]domain.DownloadTask, error) {
	albums, err := r.releases(ctx, artistID)
	if err != nil {
		return nil, err
	}

	timeout := r.config.BatchTimeout
	if timeout <= 0 {
		timeout = domain.DefaultBatchTimeout
	}

	tasks := make([]domain.DownloadTask, 0, len(albums))
	for _, album := range albums {
		task := domain.DownloadTask{Kind: domain.KindAlbum, Name: album.Name, URL: album.URL, Timeout: timeout}
		if task.Resolved() {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// planTracks keeps the popular tracks of every release. Album track listings
// carry no popularity, so full tracks are fetched in batches.
func (r *Resolver) planTracks(ctx context.Context, artistID string, minPopularity int) ([]domain.DownloadTask, error) {
	albums, err := r.releases(ctx, artistID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, album := range albums {
		tracks, err := r.catalog.ListAlbumTracks(ctx, album.ID)
		if err != nil {
			r.logger.Warn("Skipping album", zap.String("album_id", album.ID), zap.Error(err))
			continue
		}
		for _, t := range tracks {
			if _, ok := seen[t.ID]; ok || t.ID == "" {
				continue
			}
			seen[t.ID] = struct{}{}
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	full, err := r.catalog.BatchGetTracks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tracks: %w", err)
	}

	var tasks []domain.DownloadTask
	for _, t := range full {
		if t.Popularity < minPopularity {
			continue
		}
		task := domain.DownloadTask{Kind: domain.KindTrack, Name: t.Name, URL: t.URL}
		if task.Resolved() {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *Resolver) releases(ctx context.Context, artistID string) ([]domain.Album, error) {
	albums, err := r.catalog.ListArtistReleases(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	albums = domain.DedupeAlbumsByName(albums)
	domain.SortAlbumsByName(albums)
	return albums, nil
}

// carryTrackIDs copies known track ids from an earlier listing onto albums
func carryTrackIDs(albums, known []domain.Album) {
	ids := make(map[string][]string, len(known))
	for _, a := range known {
		if a.TrackIDs != nil {
			ids[a.ID] = a.TrackIDs
		}
	}
	for i := range albums {
		if albums[i].TrackIDs == nil {
			albums[i].TrackIDs = ids[albums[i].ID]
		}
	}
}

func trackIDs(tracks []domain.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// evictExpired drops stale searches; the caller holds the write lock
func (r *Resolver) evictExpired() {
	now := r.now()
	for id, entry := range r.cache {
		if now.Sub(entry.storedAt) > selectionCacheTTL {
			delete(r.cache, id)
		}
	}
}

// readNameList reads non-blank trimmed lines. A missing or empty file is an error.
func readNameList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artists file: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artists file: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("artists file %s contains no names", path)
	}
	return names, nil
}
