package app

import (
	"context"
	"errors"
	"sync"

	"github.com/yourusername/music-harvest-go/internal/domain"
)

var errCatalogDown = &domain.APIError{URL: "http://catalog.test", Status: 503, Cause: errors.New("unavailable")}

// mockCatalog implements domain.Catalog for testing. Maps are keyed by the
// id or query of the call; a key present in failures makes that call fail.
type mockCatalog struct {
	mu sync.Mutex

	artists   map[string]*domain.Artist
	releases  map[string][]domain.Album
	tracks    map[string][]domain.Track
	related   map[string][]domain.Artist
	genres    map[string][]domain.Artist
	playlists map[string][]domain.Playlist
	charts    map[string][]domain.Artist
	byID      map[string]domain.Track
	failures  map[string]bool

	calls      []string
	batchCalls [][]string

	onRelated func(artistID string) // called before related artists are returned
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		artists:   make(map[string]*domain.Artist),
		releases:  make(map[string][]domain.Album),
		tracks:    make(map[string][]domain.Track),
		related:   make(map[string][]domain.Artist),
		genres:    make(map[string][]domain.Artist),
		playlists: make(map[string][]domain.Playlist),
		charts:    make(map[string][]domain.Artist),
		byID:      make(map[string]domain.Track),
		failures:  make(map[string]bool),
	}
}

func (m *mockCatalog) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.failures[call] {
		return errCatalogDown
	}
	return nil
}

func (m *mockCatalog) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockCatalog) SearchArtist(ctx context.Context, name string) (*domain.Artist, error) {
	if err := m.record("search:" + name); err != nil {
		return nil, err
	}
	return m.artists[name], nil
}

func (m *mockCatalog) ListArtistReleases(ctx context.Context, artistID string) ([]domain.Album, error) {
	if err := m.record("releases:" + artistID); err != nil {
		return nil, err
	}
	return m.releases[artistID], nil
}

func (m *mockCatalog) ListAlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	if err := m.record("tracks:" + albumID); err != nil {
		return nil, err
	}
	return m.tracks[albumID], nil
}

func (m *mockCatalog) ListRelatedArtists(ctx context.Context, artistID string) ([]domain.Artist, error) {
	if err := m.record("related:" + artistID); err != nil {
		return nil, err
	}
	if m.onRelated != nil {
		m.onRelated(artistID)
	}
	return m.related[artistID], nil
}

func (m *mockCatalog) SearchGenre(ctx context.Context, genre string) ([]domain.Artist, error) {
	if err := m.record("genre:" + genre); err != nil {
		return nil, err
	}
	return m.genres[genre], nil
}

func (m *mockCatalog) SearchPlaylist(ctx context.Context, name string) ([]domain.Playlist, error) {
	if err := m.record("playlist-search:" + name); err != nil {
		return nil, err
	}
	return m.playlists[name], nil
}

func (m *mockCatalog) ListPlaylistPrimaryArtists(ctx context.Context, playlistID string) ([]domain.Artist, error) {
	if err := m.record("playlist:" + playlistID); err != nil {
		return nil, err
	}
	return m.charts[playlistID], nil
}

func (m *mockCatalog) BatchGetTracks(ctx context.Context, ids []string) ([]domain.Track, error) {
	m.mu.Lock()
	m.batchCalls = append(m.batchCalls, append([]string(nil), ids...))
	m.mu.Unlock()
	if err := m.record("batch-tracks"); err != nil {
		return nil, err
	}
	tracks := make([]domain.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.byID[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// memoryLedgerStore implements domain.LedgerStore in memory
type memoryLedgerStore struct {
	ledger  *domain.Ledger
	saves   int
	loadErr error
	saveErr error
}

func newMemoryLedgerStore(seeds, processed []string) *memoryLedgerStore {
	ledger := domain.NewLedger()
	for _, id := range seeds {
		ledger.Seed[id] = struct{}{}
	}
	for _, id := range processed {
		ledger.Processed[id] = struct{}{}
	}
	return &memoryLedgerStore{ledger: ledger}
}

func (s *memoryLedgerStore) Load() (*domain.Ledger, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	copied := domain.NewLedger()
	for id := range s.ledger.Seed {
		copied.Seed[id] = struct{}{}
	}
	for id := range s.ledger.Processed {
		copied.Processed[id] = struct{}{}
	}
	return copied, nil
}

func (s *memoryLedgerStore) Save(ledger *domain.Ledger) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.ledger = ledger
	return nil
}

func artist(id string, popularity int) domain.Artist {
	return domain.Artist{ID: id, Name: "Artist " + id, Popularity: popularity, URL: "https://open.spotify.com/artist/" + id}
}
