package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

const (
	// maxBatchIDs is the remote limit of ids per multi-get request
	maxBatchIDs = 50
	pageLimit   = 50
)

var errCursorRepeated = errors.New("pagination cursor repeated")

var _ domain.Catalog = (*SpotifyClient)(nil)

// SpotifyClient implements domain.Catalog against the Spotify Web API
type SpotifyClient struct {
	httpClient  *http.Client
	config      *domain.SpotifyConfig
	credentials *CredentialManager
	logger      *zap.Logger
}

// NewSpotifyClient creates a new catalog client
func NewSpotifyClient(config *domain.SpotifyConfig, credentials *CredentialManager, logger *zap.Logger) *SpotifyClient {
	return &SpotifyClient{
		httpClient:  &http.Client{Timeout: config.RequestTimeout},
		config:      config,
		credentials: credentials,
		logger:      logger.With(zap.String("component", "spotify")),
	}
}

// SearchArtist returns the top search result for name, or nil when there is none
func (c *SpotifyClient) SearchArtist(ctx context.Context, name string) (*domain.Artist, error) {
	params := c.marketParams()
	params.Set("q", name)
	params.Set("type", "artist")
	params.Set("limit", "1")

	var resp searchResponse
	if err := c.get(ctx, c.endpoint("search"), params, &resp); err != nil {
		return nil, err
	}
	if resp.Artists == nil {
		return nil, nil
	}
	for _, a := range resp.Artists.Items {
		if a != nil {
			artist := a.toDomain()
			return &artist, nil
		}
	}
	return nil, nil
}

// ListArtistReleases lists the albums and singles of an artist
func (c *SpotifyClient) ListArtistReleases(ctx context.Context, artistID string) ([]domain.Album, error) {
	params := c.marketParams()
	params.Set("include_groups", "album,single")
	params.Set("limit", strconv.Itoa(pageLimit))

	items, err := fetchAll[*albumObject](ctx, c, c.endpoint("artists", artistID, "albums"), params)
	if err != nil {
		return nil, err
	}

	albums := make([]domain.Album, 0, len(items))
	for _, item := range items {
		if item != nil {
			albums = append(albums, item.toDomain())
		}
	}
	return albums, nil
}

// ListAlbumTracks lists every track of an album
func (c *SpotifyClient) ListAlbumTracks(ctx context.Context, albumID string) ([]domain.Track, error) {
	params := c.marketParams()
	params.Set("limit", strconv.Itoa(pageLimit))

	items, err := fetchAll[*trackObject](ctx, c, c.endpoint("albums", albumID, "tracks"), params)
	if err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		track := item.toDomain()
		track.AlbumID = albumID
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// ListRelatedArtists lists the artists related to an artist
func (c *SpotifyClient) ListRelatedArtists(ctx context.Context, artistID string) ([]domain.Artist, error) {
	var resp relatedArtistsResponse
	if err := c.get(ctx, c.endpoint("artists", artistID, "related-artists"), nil, &resp); err != nil {
		return nil, err
	}
	return projectArtists(resp.Artists), nil
}

// SearchGenre returns the top artists tagged with genre
func (c *SpotifyClient) SearchGenre(ctx context.Context, genre string) ([]domain.Artist, error) {
	limit := c.config.GenreSearchLimit
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}

	params := c.marketParams()
	params.Set("q", fmt.Sprintf("genre:%q", genre))
	params.Set("type", "artist")
	params.Set("limit", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.get(ctx, c.endpoint("search"), params, &resp); err != nil {
		return nil, err
	}
	if resp.Artists == nil {
		return []domain.Artist{}, nil
	}
	return projectArtists(resp.Artists.Items), nil
}

// SearchPlaylist returns playlists matching name, best match first
func (c *SpotifyClient) SearchPlaylist(ctx context.Context, name string) ([]domain.Playlist, error) {
	params := c.marketParams()
	params.Set("q", name)
	params.Set("type", "playlist")
	params.Set("limit", "5")

	var resp searchResponse
	if err := c.get(ctx, c.endpoint("search"), params, &resp); err != nil {
		return nil, err
	}

	playlists := []domain.Playlist{}
	if resp.Playlists == nil {
		return playlists, nil
	}
	for _, p := range resp.Playlists.Items {
		if p != nil && p.ID != "" {
			playlists = append(playlists, p.toDomain())
		}
	}
	return playlists, nil
}

// ListPlaylistPrimaryArtists returns the first credited artist of every
// playlist track, once each, in playlist order. Artists are fetched in full
// so popularity is populated.
func (c *SpotifyClient) ListPlaylistPrimaryArtists(ctx context.Context, playlistID string) ([]domain.Artist, error) {
	params := c.marketParams()
	params.Set("fields", "items(track(artists(id,name))),next")
	params.Set("limit", "100")

	items, err := fetchAll[playlistItem](ctx, c, c.endpoint("playlists", playlistID, "tracks"), params)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, item := range items {
		if item.Track == nil || len(item.Track.Artists) == 0 {
			continue
		}
		id := item.Track.Artists[0].ID
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return c.BatchGetArtists(ctx, ids)
}

// BatchGetTracks fetches tracks by id in chunks of at most 50, preserving
// input order. Ids the catalog does not know are omitted.
func (c *SpotifyClient) BatchGetTracks(ctx context.Context, ids []string) ([]domain.Track, error) {
	tracks := make([]domain.Track, 0, len(ids))
	for _, chunk := range chunkIDs(ids, maxBatchIDs) {
		params := c.marketParams()
		params.Set("ids", strings.Join(chunk, ","))

		var resp severalTracksResponse
		if err := c.get(ctx, c.endpoint("tracks"), params, &resp); err != nil {
			return nil, err
		}
		for _, t := range resp.Tracks {
			if t != nil {
				tracks = append(tracks, t.toDomain())
			}
		}
	}
	return tracks, nil
}

// BatchGetArtists fetches artists by id in chunks of at most 50, preserving
// input order
func (c *SpotifyClient) BatchGetArtists(ctx context.Context, ids []string) ([]domain.Artist, error) {
	artists := make([]domain.Artist, 0, len(ids))
	for _, chunk := range chunkIDs(ids, maxBatchIDs) {
		params := url.Values{}
		params.Set("ids", strings.Join(chunk, ","))

		var resp severalArtistsResponse
		if err := c.get(ctx, c.endpoint("artists"), params, &resp); err != nil {
			return nil, err
		}
		artists = append(artists, projectArtists(resp.Artists)...)
	}
	return artists, nil
}

// fetchAll walks a cursor-paginated listing. The original query parameters
// apply to the first page only; every next pointer is self-contained.
func fetchAll[T any](ctx context.Context, c *SpotifyClient, endpoint string, params url.Values) ([]T, error) {
	var all []T
	seen := make(map[string]struct{})

	next := endpoint
	for next != "" {
		var page pagingObject[T]
		if err := c.get(ctx, next, params, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.Next == "" {
			break
		}
		if _, ok := seen[page.Next]; ok {
			err := &domain.APIError{URL: page.Next, Cause: errCursorRepeated}
			c.logger.Error("Aborting paginated fetch", zap.String("endpoint", endpoint), zap.Error(err))
			return nil, err
		}
		seen[page.Next] = struct{}{}

		next = page.Next
		params = nil
	}

	return all, nil
}

// get performs an authenticated GET and decodes the JSON body into out
func (c *SpotifyClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	token, err := c.credentials.ValidToken(ctx)
	if err != nil {
		return err
	}

	reqURL := endpoint
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		reqURL = endpoint + sep + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return c.fail(&domain.APIError{URL: reqURL, Cause: err})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(&domain.APIError{URL: reqURL, Cause: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.credentials.Invalidate()
		return c.fail(&domain.APIError{URL: reqURL, Status: resp.StatusCode, Cause: errors.New("access token rejected")})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return c.fail(&domain.APIError{
			URL:    reqURL,
			Status: resp.StatusCode,
			Cause:  fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(&domain.APIError{URL: reqURL, Status: resp.StatusCode, Cause: fmt.Errorf("malformed body: %w", err)})
	}

	return nil
}

func (c *SpotifyClient) fail(err *domain.APIError) error {
	c.logger.Warn("Catalog request failed",
		zap.String("url", err.URL),
		zap.Int("status", err.Status),
		zap.Error(err.Cause))
	return err
}

func (c *SpotifyClient) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.Join(escaped, "/")
}

func (c *SpotifyClient) marketParams() url.Values {
	params := url.Values{}
	if c.config.Market != "" {
		params.Set("market", c.config.Market)
	}
	return params
}

func projectArtists(items []*artistObject) []domain.Artist {
	artists := make([]domain.Artist, 0, len(items))
	for _, a := range items {
		if a != nil {
			artists = append(artists, a.toDomain())
		}
	}
	return artists
}

// chunkIDs splits ids into consecutive chunks of at most size
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
