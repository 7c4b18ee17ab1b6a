// Spotify Web API playback surface
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vors-gg/vors/internal/tokens"
)

// Device represents a Spotify Connect playback endpoint.
type Device struct {
	ID            string `json:"id"`
	IsActive      bool   `json:"is_active"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent int    `json:"volume_percent"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	URI    string  `json:"uri"`
	Images []Image `json:"images"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	DurationMS int      `json:"duration_ms"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// PlayerState represents the playback state of the active device.
type PlayerState struct {
	Device       Device `json:"device"`
	IsPlaying    bool   `json:"is_playing"`
	ProgressMS   int    `json:"progress_ms"`
	ShuffleState bool   `json:"shuffle_state"`
	RepeatState  string `json:"repeat_state"`
	Item         *Track `json:"item"`
}

// PlaylistTrack represents a track within a playlist context.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   Track  `json:"track"`
}

// TrackPage is a paginated slice of playlist tracks.
type TrackPage struct {
	Items  []PlaylistTrack `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	Next   *string         `json:"next"`
}

// AlbumTrackPage is a paginated slice of album tracks. Album track objects
// are simplified: no album field of their own.
type AlbumTrackPage struct {
	Items  []Track `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// PlayOptions selects what and where to play. All fields optional: an empty
// options value resumes playback on the current device.
type PlayOptions struct {
	DeviceID   string   `json:"-"`
	ContextURI string   `json:"context_uri,omitempty"`
	URIs       []string `json:"uris,omitempty"`
	PositionMS int      `json:"position_ms,omitempty"`
}

// PlaybackState retrieves the current playback state. A 204 from the remote
// service means nothing is playing; this surfaces as (nil, nil) and callers
// must not infer "no device" from it.
func (c *Client) PlaybackState(ctx context.Context, jar tokens.Jar) (*PlayerState, error) {
	raw, err := c.Request(ctx, jar, http.MethodGet, "/me/player", nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var state PlayerState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode player state: %w", err)
	}
	return &state, nil
}

// CurrentlyPlaying retrieves the currently playing track, or nil when
// nothing is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context, jar tokens.Jar) (*PlayerState, error) {
	raw, err := c.Request(ctx, jar, http.MethodGet, "/me/player/currently-playing", nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var state PlayerState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode currently playing: %w", err)
	}
	return &state, nil
}

// Devices retrieves the user's available playback devices in the order the
// remote service returns them.
func (c *Client) Devices(ctx context.Context, jar tokens.Jar) ([]Device, error) {
	raw, err := c.Request(ctx, jar, http.MethodGet, "/me/player/devices", nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var response struct {
		Devices []Device `json:"devices"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to decode device list: %w", err)
	}
	return response.Devices, nil
}

// Play starts or resumes playback per the given options.
func (c *Client) Play(ctx context.Context, jar tokens.Jar, opts PlayOptions) error {
	endpoint := "/me/player/play"
	if opts.DeviceID != "" {
		endpoint += "?device_id=" + url.QueryEscape(opts.DeviceID)
	}

	var body any
	if opts.ContextURI != "" || len(opts.URIs) > 0 || opts.PositionMS > 0 {
		body = opts
	}

	_, err := c.Request(ctx, jar, http.MethodPut, endpoint, body)
	return err
}

// Pause pauses playback on the active device.
func (c *Client) Pause(ctx context.Context, jar tokens.Jar) error {
	_, err := c.Request(ctx, jar, http.MethodPut, "/me/player/pause", nil)
	return err
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context, jar tokens.Jar) error {
	_, err := c.Request(ctx, jar, http.MethodPost, "/me/player/next", nil)
	return err
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context, jar tokens.Jar) error {
	_, err := c.Request(ctx, jar, http.MethodPost, "/me/player/previous", nil)
	return err
}

// SetVolume sets the playback volume. Percent is clamped to [0, 100].
func (c *Client) SetVolume(ctx context.Context, jar tokens.Jar, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	endpoint := fmt.Sprintf("/me/player/volume?volume_percent=%d", percent)
	_, err := c.Request(ctx, jar, http.MethodPut, endpoint, nil)
	return err
}

// SetShuffle toggles shuffle on the active device.
func (c *Client) SetShuffle(ctx context.Context, jar tokens.Jar, state bool) error {
	endpoint := fmt.Sprintf("/me/player/shuffle?state=%t", state)
	_, err := c.Request(ctx, jar, http.MethodPut, endpoint, nil)
	return err
}

// AddToQueue appends one track URI to the active device's queue.
func (c *Client) AddToQueue(ctx context.Context, jar tokens.Jar, uri string) error {
	if uri == "" {
		return fmt.Errorf("no track URI provided")
	}

	endpoint := "/me/player/queue?uri=" + url.QueryEscape(uri)
	_, err := c.Request(ctx, jar, http.MethodPost, endpoint, nil)
	return err
}

// TransferPlayback moves playback to the given device. When play is false
// the transfer keeps the current playback state rather than forcing play.
func (c *Client) TransferPlayback(ctx context.Context, jar tokens.Jar, deviceID string, play bool) error {
	if deviceID == "" {
		return fmt.Errorf("no device ID provided")
	}

	body := map[string]any{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	_, err := c.Request(ctx, jar, http.MethodPut, "/me/player", body)
	return err
}

// PlaylistTracks retrieves one page of a playlist's tracks.
func (c *Client) PlaylistTracks(ctx context.Context, jar tokens.Jar, playlistID string, limit, offset int) (*TrackPage, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("no playlist ID provided")
	}
	limit = clampPageSize(limit)

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)
	raw, err := c.Request(ctx, jar, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var page TrackPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode playlist tracks: %w", err)
	}
	return &page, nil
}

// AlbumTracks retrieves one page of an album's tracks.
func (c *Client) AlbumTracks(ctx context.Context, jar tokens.Jar, albumID string, limit, offset int) (*AlbumTrackPage, error) {
	if albumID == "" {
		return nil, fmt.Errorf("no album ID provided")
	}
	limit = clampPageSize(limit)

	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", url.PathEscape(albumID), limit, offset)
	raw, err := c.Request(ctx, jar, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var page AlbumTrackPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode album tracks: %w", err)
	}
	return &page, nil
}

func clampPageSize(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 50 {
		return 50
	}
	return limit
}
