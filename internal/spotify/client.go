// SPDX-License-Identifier: MIT

package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mabrink/busybeat/internal/log"
)

const defaultAPIBase = "https://api.spotify.com"

// Client wraps the web API with typed poll results. The underlying HTTP
// client is expected to attach bearer tokens (oauth2 transport).
type Client struct {
	http    *http.Client
	apiBase string
}

// NewClient builds a Client on top of an authenticated http.Client.
func NewClient(httpClient *http.Client) *Client {
	return &Client{http: httpClient, apiBase: defaultAPIBase}
}

// currentlyPlayingResponse mirrors the subset of the API payload we use.
type currentlyPlayingResponse struct {
	IsPlaying            bool   `json:"is_playing"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	Item                 *struct {
		ID      string `json:"id"`
		URI     string `json:"uri"`
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
	} `json:"item"`
}

// CurrentlyPlaying polls the player state. Expired credentials and the
// no-track/ad states are outcomes, not errors; errors indicate transient
// failures the caller should log and retry on the next tick.
func (c *Client) CurrentlyPlaying(ctx context.Context) (PlayerState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v1/me/player/currently-playing", nil)
	if err != nil {
		return PlayerState{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return PlayerState{}, fmt.Errorf("currently-playing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusNoContent:
		return PlayerState{Outcome: OutcomeNoTrack}, nil
	case http.StatusUnauthorized:
		return PlayerState{Outcome: OutcomeTokenExpired}, nil
	case http.StatusOK:
		// handled below
	default:
		return PlayerState{}, fmt.Errorf("currently-playing: unexpected status %d", resp.StatusCode)
	}

	var body currentlyPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return PlayerState{}, fmt.Errorf("decode currently-playing: %w", err)
	}

	if body.CurrentlyPlayingType == "ad" {
		return PlayerState{Outcome: OutcomeAd}, nil
	}
	if body.Item == nil {
		return PlayerState{Outcome: OutcomeNoTrack}, nil
	}

	snap := TrackSnapshot{
		ID:      body.Item.ID,
		URI:     body.Item.URI,
		Name:    body.Item.Name,
		Playing: body.IsPlaying,
	}
	if len(body.Item.Artists) > 0 {
		snap.Artist = body.Item.Artists[0].Name
	}
	if len(body.Item.Album.Images) > 0 {
		snap.ArtworkURL = body.Item.Album.Images[0].URL
	}
	return PlayerState{Outcome: OutcomeTrack, Track: snap}, nil
}

// FetchArtwork downloads the album artwork bytes.
func (c *Client) FetchArtwork(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("no artwork URL")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build artwork request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch artwork: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch artwork: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read artwork: %w", err)
	}
	logger := log.WithComponentFromContext(ctx, "spotify")
	logger.Debug().
		Int("bytes", len(data)).
		Msg("artwork fetched")
	return data, nil
}
