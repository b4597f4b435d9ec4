// Package spotify refines fallback search queries against the Spotify catalogue.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"cantio/internal/core"
	"cantio/pkg/fuzzy"
)

const (
	// MinValidYear represents the minimum reasonable year for music tracks
	MinValidYear = 1950
	// MaxTrackSearchResults limits how many catalogue hits are ranked
	MaxTrackSearchResults = 10
	// ReleaseDateYearLength is the expected length of a release date year string
	ReleaseDateYearLength = 4
	// MinRefineSimilarity is how close the catalogue hit must be to the heuristic query to replace it
	MinRefineSimilarity = 0.5
)

// ErrNotAuthenticated is returned when the catalogue is queried before Authenticate.
var ErrNotAuthenticated = errors.New("client not authenticated")

// Track is a catalogue hit.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Year     int
	Duration time.Duration
}

type Client struct {
	config     *core.SpotifyConfig
	logger     *zap.Logger
	client     *spotify.Client
	normalizer *fuzzy.Normalizer
	tokenURL   string
	apiOpts    []spotify.ClientOption
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		config:     config,
		logger:     logger.Named("spotify"),
		normalizer: fuzzy.NewNormalizer(),
		tokenURL:   spotifyauth.TokenURL,
	}
}

// Authenticate obtains an app token with the client-credentials flow. The token refreshes itself.
func (c *Client) Authenticate(ctx context.Context) error {
	creds := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     c.tokenURL,
	}

	if _, err := creds.Token(ctx); err != nil {
		return fmt.Errorf("spotify client credentials: %w", err)
	}

	// The HTTP client must outlive the startup context.
	c.client = spotify.New(creds.Client(context.WithoutCancel(ctx)), c.apiOpts...)
	c.logger.Info("Authenticated with client credentials")
	return nil
}

func (c *Client) SearchTrack(ctx context.Context, query string) ([]Track, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	normalizedQuery := c.normalizer.NormalizeTitle(query)

	results, err := c.client.Search(ctx, normalizedQuery, spotify.SearchTypeTrack, spotify.Limit(MaxTrackSearchResults))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, fmt.Errorf("no tracks found")
	}

	var tracks []Track
	for i := range results.Tracks.Tracks {
		if len(tracks) >= MaxTrackSearchResults {
			break
		}
		tracks = append(tracks, c.convertSpotifyTrack(&results.Tracks.Tracks[i]))
	}

	return c.rankTracks(tracks, query), nil
}

// RefineQuery implements core.QueryRefiner. Any failure keeps the heuristic query.
func (c *Client) RefineQuery(ctx context.Context, meta *core.TrackMetadata) (string, bool) {
	if meta == nil || meta.SearchQuery == "" {
		return "", false
	}

	tracks, err := c.SearchTrack(ctx, meta.SearchQuery)
	if err != nil {
		c.logger.Debug("Query refinement skipped", zap.String("query", meta.SearchQuery), zap.Error(err))
		return "", false
	}

	top := tracks[0]
	artist, _, _ := strings.Cut(top.Artist, ", ")
	refined := strings.TrimSpace(top.Title + " " + artist)

	similarity := c.normalizer.CalculateSimilarity(refined, meta.SearchQuery)
	if similarity < MinRefineSimilarity {
		c.logger.Debug("Catalogue hit too different from query",
			zap.String("query", meta.SearchQuery),
			zap.String("hit", refined),
			zap.Float64("similarity", similarity))
		return "", false
	}

	return refined, true
}

func (c *Client) convertSpotifyTrack(track *spotify.FullTrack) Track {
	var artists []string
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	var year int
	if len(track.Album.ReleaseDate) >= ReleaseDateYearLength {
		if _, err := fmt.Sscanf(track.Album.ReleaseDate[:4], "%d", &year); err != nil {
			year = 0
		}
	}

	return Track{
		ID:       string(track.ID),
		Title:    track.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    track.Album.Name,
		Year:     year,
		Duration: time.Duration(track.Duration) * time.Millisecond,
	}
}

func (c *Client) rankTracks(tracks []Track, originalQuery string) []Track {
	normalizedQuery := c.normalizer.NormalizeTitle(originalQuery)

	scores := make(map[int]float64, len(tracks))
	for i := range tracks {
		scores[i] = c.calculateRelevanceScore(&tracks[i], normalizedQuery)
	}

	order := make([]int, len(tracks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranked := make([]Track, 0, len(tracks))
	for _, i := range order {
		ranked = append(ranked, tracks[i])
	}
	return ranked
}

func (c *Client) calculateRelevanceScore(track *Track, normalizedQuery string) float64 {
	normalizedTitle := c.normalizer.NormalizeTitle(track.Title)
	normalizedArtist := c.normalizer.NormalizeArtist(track.Artist)

	titleSimilarity := c.normalizer.CalculateSimilarity(normalizedTitle, normalizedQuery)
	combinedText := normalizedTitle + " " + normalizedArtist
	combinedSimilarity := c.normalizer.CalculateSimilarity(combinedText, normalizedQuery)

	titleWeight := 0.3
	combinedWeight := 0.7

	score := titleWeight*titleSimilarity + combinedWeight*combinedSimilarity

	if track.Year > MinValidYear {
		score += 0.1
	}

	if track.Duration > 30*time.Second && track.Duration < 10*time.Minute {
		score += 0.05
	}

	return score
}
