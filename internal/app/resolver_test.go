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

func newTestResolver(catalog domain.Catalog) *Resolver {
	config := &domain.DownloadConfig{ItemTimeout: 180 * time.Second, BatchTimeout: 600 * time.Second}
	return NewResolver(catalog, config, zap.NewNop())
}

func album(id, name string) domain.Album {
	return domain.Album{ID: id, Name: name, URL: "https://open.spotify.com/album/" + id}
}

func track(id string, popularity int) domain.Track {
	return domain.Track{ID: id, Name: "Track " + id, Popularity: popularity, URL: "https://open.spotify.com/track/" + id}
}

func catalogWithArtist() *mockCatalog {
	catalog := newMockCatalog()
	a := artist("ar1", 80)
	catalog.artists["Band"] = &a
	catalog.releases["ar1"] = []domain.Album{
		album("al1", "Greatest Hits"),
		album("al2", "greatest hits"),
		album("al3", "B-Sides"),
	}
	return catalog
}

func TestResolver_SearchArtistAlbums(t *testing.T) {
	resolver := newTestResolver(catalogWithArtist())

	result, err := resolver.SearchArtistAlbums(context.Background(), "  Band ")

	require.NoError(t, err)
	assert.Equal(t, "ar1", result.Artist.ID)
	require.Len(t, result.Albums, 2)
	assert.Equal(t, "B-Sides", result.Albums[0].Name)
	assert.Equal(t, "Greatest Hits", result.Albums[1].Name)
	assert.Equal(t, "al1", result.Albums[1].ID, "first occurrence wins")
}

func TestResolver_SearchArtistAlbums_Errors(t *testing.T) {
	catalog := catalogWithArtist()
	resolver := newTestResolver(catalog)

	_, err := resolver.SearchArtistAlbums(context.Background(), "Nobody")
	assert.ErrorIs(t, err, domain.ErrArtistNotFound)

	_, err = resolver.SearchArtistAlbums(context.Background(), " ")
	assert.Error(t, err)

	catalog.failures["releases:ar1"] = true
	_, err = resolver.SearchArtistAlbums(context.Background(), "Band")
	assert.ErrorIs(t, err, domain.ErrAPIFailure)
}

func TestResolver_ResolveSelection(t *testing.T) {
	catalog := catalogWithArtist()
	catalog.byID["t1"] = track("t1", 10)
	catalog.byID["t2"] = track("t2", 90)
	resolver := newTestResolver(catalog)

	_, err := resolver.SearchArtistAlbums(context.Background(), "Band")
	require.NoError(t, err)

	tasks, err := resolver.ResolveSelection(context.Background(), "ar1",
		[]string{"track-t2", "album-al3", "bogus", "album-missing", "track-unknown", "track-t1"})

	require.NoError(t, err)
	assert.Equal(t, []domain.DownloadTask{
		{Kind: domain.KindTrack, Name: "Track t2", URL: "https://open.spotify.com/track/t2"},
		{Kind: domain.KindAlbum, Name: "B-Sides", URL: "https://open.spotify.com/album/al3"},
		{Kind: domain.KindTrack, Name: "Track t1", URL: "https://open.spotify.com/track/t1"},
	}, tasks)
	require.Len(t, catalog.batchCalls, 1, "tracks are resolved in one batch call")
	assert.Equal(t, []string{"t2", "unknown", "t1"}, catalog.batchCalls[0])
}

func TestResolver_ResolveSelection_Expired(t *testing.T) {
	resolver := newTestResolver(catalogWithArtist())

	_, err := resolver.ResolveSelection(context.Background(), "ar1", []string{"album-al1"})
	assert.ErrorIs(t, err, domain.ErrSelectionExpired)

	_, err = resolver.SearchArtistAlbums(context.Background(), "Band")
	require.NoError(t, err)

	resolver.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = resolver.ResolveSelection(context.Background(), "ar1", []string{"album-al1"})
	assert.ErrorIs(t, err, domain.ErrSelectionExpired)
}

func TestResolver_ResolveSelection_NoValidItems(t *testing.T) {
	catalog := catalogWithArtist()
	resolver := newTestResolver(catalog)
	_, err := resolver.SearchArtistAlbums(context.Background(), "Band")
	require.NoError(t, err)

	catalog.failures["batch-tracks"] = true
	_, err = resolver.ResolveSelection(context.Background(), "ar1", []string{"track-t1", "album-nope"})

	assert.ErrorIs(t, err, domain.ErrNoValidItems)
}

func TestResolver_PlanArtists_Albums(t *testing.T) {
	catalog := catalogWithArtist()
	catalog.failures["releases:broken"] = true
	resolver := newTestResolver(catalog)

	tasks := resolver.PlanArtists(context.Background(), []string{"broken", "ar1"}, domain.PlanAlbums, 0)

	require.Len(t, tasks, 2)
	assert.Equal(t, "B-Sides", tasks[0].Name)
	assert.Equal(t, domain.KindAlbum, tasks[0].Kind)
	assert.Equal(t, 600*time.Second, tasks[0].Timeout)
}

func TestResolver_PlanArtists_Tracks(t *testing.T) {
	catalog := catalogWithArtist()
	catalog.tracks["al1"] = []domain.Track{{ID: "t1"}, {ID: "t2"}}
	catalog.tracks["al3"] = []domain.Track{{ID: "t2"}, {ID: "t3"}}
	catalog.byID["t1"] = track("t1", 29)
	catalog.byID["t2"] = track("t2", 30)
	catalog.byID["t3"] = track("t3", 75)
	resolver := newTestResolver(catalog)

	tasks := resolver.PlanArtists(context.Background(), []string{"ar1"}, domain.PlanTracks, 30)

	require.Len(t, tasks, 2)
	assert.Equal(t, "Track t2", tasks[0].Name)
	assert.Equal(t, "Track t3", tasks[1].Name)
	assert.Equal(t, domain.KindTrack, tasks[0].Kind)
	assert.Zero(t, tasks[0].Timeout)
	require.Len(t, catalog.batchCalls, 1)
	assert.Equal(t, []string{"t2", "t3", "t1"}, catalog.batchCalls[0], "B-Sides sorts first, duplicates dropped")
}

func TestResolver_ResolveArtistsFile(t *testing.T) {
	catalog := catalogWithArtist()
	resolver := newTestResolver(catalog)

	path := filepath.Join(t.TempDir(), "artists.txt")
	require.NoError(t, os.WriteFile(path, []byte("Band\n\n  Unknown  \n"), 0644))

	tasks, err := resolver.ResolveArtistsFile(context.Background(), path)

	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Contains(t, catalog.Calls(), "search:Unknown")
}

func TestResolver_ResolveArtistsFile_Errors(t *testing.T) {
	resolver := newTestResolver(newMockCatalog())
	dir := t.TempDir()

	_, err := resolver.ResolveArtistsFile(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "failed to open artists file")

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n  \n"), 0644))
	_, err = resolver.ResolveArtistsFile(context.Background(), empty)
	assert.ErrorContains(t, err, "contains no names")
}

func TestResolver_AlbumTracksRecordsTrackIDs(t *testing.T) {
	catalog := catalogWithArtist()
	catalog.tracks["al1"] = []domain.Track{track("t2", 1), track("t1", 1)}
	resolver := newTestResolver(catalog)

	first, err := resolver.SearchArtistAlbums(context.Background(), "Band")
	require.NoError(t, err)

	_, err = resolver.AlbumTracks(context.Background(), "al1")
	require.NoError(t, err)
	assert.Nil(t, first.Albums[1].TrackIDs, "results already handed out are not edited")

	again, err := resolver.SearchArtistAlbums(context.Background(), "Band")
	require.NoError(t, err)
	require.Equal(t, "al1", again.Albums[1].ID)
	assert.Equal(t, []string{"t2", "t1"}, again.Albums[1].TrackIDs)
	assert.Nil(t, again.Albums[0].TrackIDs, "unlisted albums have no known tracks")
}

func TestResolver_AlbumTracks(t *testing.T) {
	catalog := newMockCatalog()
	catalog.tracks["al1"] = []domain.Track{track("t1", 1)}
	resolver := newTestResolver(catalog)

	tracks, err := resolver.AlbumTracks(context.Background(), "al1")
	require.NoError(t, err)
	assert.Len(t, tracks, 1)

	catalog.failures["tracks:al1"] = true
	_, err = resolver.AlbumTracks(context.Background(), "al1")
	assert.ErrorIs(t, err, domain.ErrAPIFailure)
}
