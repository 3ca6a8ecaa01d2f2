package infrastructure

import "github.com/yourusername/music-harvest-go/internal/domain"

// Wire shapes of the Spotify Web API. Only the fields the application reads
// are declared; everything is projected into domain types at the boundary.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type imageObject struct {
	URL string `json:"url"`
}

type artistObject struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Popularity   int          `json:"popularity"`
	Genres       []string     `json:"genres"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type albumObject struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	AlbumType    string        `json:"album_type"`
	ReleaseDate  string        `json:"release_date"`
	Popularity   int           `json:"popularity"`
	Images       []imageObject `json:"images"`
	ExternalURLs externalURLs  `json:"external_urls"`
}

type trackObject struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Popularity   int            `json:"popularity"`
	ExternalURLs externalURLs   `json:"external_urls"`
	Artists      []artistObject `json:"artists"`
	Album        *albumObject   `json:"album"`
}

type playlistObject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type playlistItem struct {
	Track *trackObject `json:"track"`
}

// pagingObject is a page of a cursor-paginated listing
type pagingObject[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"`
}

type searchResponse struct {
	Artists   *pagingObject[*artistObject]   `json:"artists"`
	Playlists *pagingObject[*playlistObject] `json:"playlists"`
}

type relatedArtistsResponse struct {
	Artists []*artistObject `json:"artists"`
}

type severalTracksResponse struct {
	Tracks []*trackObject `json:"tracks"`
}

type severalArtistsResponse struct {
	Artists []*artistObject `json:"artists"`
}

func (a *artistObject) toDomain() domain.Artist {
	return domain.Artist{
		ID:         a.ID,
		Name:       a.Name,
		Popularity: a.Popularity,
		URL:        a.ExternalURLs.Spotify,
		Genres:     a.Genres,
	}
}

func (a *albumObject) toDomain() domain.Album {
	album := domain.Album{
		ID:          a.ID,
		Name:        a.Name,
		AlbumType:   a.AlbumType,
		ReleaseDate: a.ReleaseDate,
		Popularity:  a.Popularity,
		URL:         a.ExternalURLs.Spotify,
	}
	if len(a.Images) > 0 {
		album.ImageURL = a.Images[0].URL
	}
	return album
}

func (t *trackObject) toDomain() domain.Track {
	track := domain.Track{
		ID:         t.ID,
		Name:       t.Name,
		Popularity: t.Popularity,
		URL:        t.ExternalURLs.Spotify,
	}
	if len(t.Artists) > 0 {
		track.ArtistID = t.Artists[0].ID
	}
	if t.Album != nil {
		track.AlbumID = t.Album.ID
	}
	return track
}

func (p *playlistObject) toDomain() domain.Playlist {
	return domain.Playlist{
		ID:    p.ID,
		Name:  p.Name,
		Owner: p.Owner.DisplayName,
		URL:   p.ExternalURLs.Spotify,
	}
}
