package domain

import (
	"context"
	"sort"
	"strings"
)

// Artist is a catalog artist projection
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Popularity int      `json:"popularity"`
	URL        string   `json:"url"`
	Genres     []string `json:"genres,omitempty"`
}

// Album is a catalog release projection (albums and singles)
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	AlbumType   string   `json:"album_type,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Popularity  int      `json:"popularity"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url,omitempty"`
	TrackIDs    []string `json:"track_ids,omitempty"`
}

// Track is a catalog track projection
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Popularity int    `json:"popularity"`
	URL        string `json:"url"`
	ArtistID   string `json:"artist_id,omitempty"`
	AlbumID    string `json:"album_id,omitempty"`
}

// Playlist is a catalog playlist projection
type Playlist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
	URL   string `json:"url"`
}

// Catalog defines the read operations the application needs from the
// remote music catalog. Every listing is fully paginated.
type Catalog interface {
	SearchArtist(ctx context.Context, name string) (*Artist, error)
	ListArtistReleases(ctx context.Context, artistID string) ([]Album, error)
	ListAlbumTracks(ctx context.Context, albumID string) ([]Track, error)
	ListRelatedArtists(ctx context.Context, artistID string) ([]Artist, error)
	SearchGenre(ctx context.Context, genre string) ([]Artist, error)
	SearchPlaylist(ctx context.Context, name string) ([]Playlist, error)
	ListPlaylistPrimaryArtists(ctx context.Context, playlistID string) ([]Artist, error)
	BatchGetTracks(ctx context.Context, ids []string) ([]Track, error)
}

// DedupeAlbumsByName drops releases whose name equals, ignoring case, the
// name of an earlier release. The first occurrence wins.
func DedupeAlbumsByName(albums []Album) []Album {
	seen := make(map[string]struct{}, len(albums))
	result := make([]Album, 0, len(albums))
	for _, album := range albums {
		key := strings.ToLower(album.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, album)
	}
	return result
}

// SortAlbumsByName sorts releases by name, keeping the original order of
// equal names
func SortAlbumsByName(albums []Album) {
	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].Name < albums[j].Name
	})
}
