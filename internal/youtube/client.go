// Package youtube searches embeddable videos through the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DefaultMaxResults is the number of videos requested per search.
const DefaultMaxResults = 24

const fallbackMessage = "failed to fetch videos, check your API key and try again"

// ErrMissingKey is returned when no API key is available.
var ErrMissingKey = errors.New("youtube API key not configured")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Video is one search result.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ViewCount    int64     `json:"view_count,omitempty"`
}

// WatchURL returns the video page URL.
func (v Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(v.ID)
}

// EmbedURL returns the embeddable player URL.
func (v Video) EmbedURL() string {
	return "https://www.youtube.com/embed/" + url.PathEscape(v.ID)
}

// KeyFunc returns the API key at call time, so a key entered after startup
// is picked up without rebuilding the client.
type KeyFunc func() (string, error)

// StaticKey returns a KeyFunc for a fixed key.
func StaticKey(key string) KeyFunc {
	return func() (string, error) { return key, nil }
}

// Options configures a Client.
type Options struct {
	// Endpoint overrides the API root. Empty uses the library default.
	Endpoint   string
	Key        KeyFunc
	MaxResults int
	// MinViews drops results with fewer views. Zero disables the extra lookup.
	MinViews   int64
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client searches embeddable videos.
type Client struct {
	svc        *ytapi.Service
	initErr    error
	key        KeyFunc
	maxResults int64
	minViews   int64
	logger     *slog.Logger
}

// New creates a Client. The API key is not part of the service: it is
// resolved through opts.Key and attached to every call.
func New(opts Options) *Client {
	c := &Client{
		key:        opts.Key,
		maxResults: int64(opts.MaxResults),
		minViews:   opts.MinViews,
		logger:     opts.Logger,
	}
	if c.maxResults <= 0 {
		c.maxResults = DefaultMaxResults
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if opts.Endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(strings.TrimRight(opts.Endpoint, "/")+"/"))
	}
	c.svc, c.initErr = ytapi.NewService(context.Background(), svcOpts...)
	return c
}

// Search returns embeddable videos matching query.
func (c *Client) Search(ctx context.Context, query string) ([]Video, error) {
	if c.initErr != nil {
		return nil, fmt.Errorf("youtube service: %w", c.initErr)
	}
	key, err := c.apiKey()
	if err != nil {
		return nil, err
	}

	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoEmbeddable("true").
		MaxResults(c.maxResults).
		Context(ctx).
		Do(googleapi.QueryParameter("key", key))
	if err != nil {
		return nil, apiError(err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if v, ok := fromSearchResult(item); ok {
			videos = append(videos, v)
		}
	}

	c.logger.Debug("youtube search", "query", query, "results", len(videos))

	if c.minViews > 0 && len(videos) > 0 {
		return c.filterByViews(ctx, key, videos)
	}
	return videos, nil
}

func (c *Client) filterByViews(ctx context.Context, key string, videos []Video) ([]Video, error) {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}

	resp, err := c.svc.Videos.List([]string{"statistics"}).
		Id(ids...).
		Context(ctx).
		Do(googleapi.QueryParameter("key", key))
	if err != nil {
		return nil, apiError(err)
	}

	views := make(map[string]int64, len(resp.Items))
	for _, item := range resp.Items {
		if item.Statistics != nil {
			views[item.Id] = int64(item.Statistics.ViewCount)
		}
	}

	kept := videos[:0]
	for _, v := range videos {
		n, ok := views[v.ID]
		if !ok || n < c.minViews {
			continue
		}
		v.ViewCount = n
		kept = append(kept, v)
	}
	return kept, nil
}

func (c *Client) apiKey() (string, error) {
	if c.key == nil {
		return "", ErrMissingKey
	}
	key, err := c.key()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrMissingKey
	}
	return key, nil
}

// apiError turns an API answer into *APIError, keeping the server message
// when there is one. Transport failures are wrapped as they are.
func apiError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("youtube request: %w", err)
	}
	msg := gerr.Message
	if msg == "" {
		msg = fallbackMessage
	}
	return &APIError{StatusCode: gerr.Code, Message: msg}
}

func fromSearchResult(item *ytapi.SearchResult) (Video, bool) {
	if item == nil || item.Id == nil || item.Id.VideoId == "" {
		return Video{}, false
	}
	v := Video{ID: item.Id.VideoId}
	if sn := item.Snippet; sn != nil {
		v.Title = sn.Title
		v.Description = sn.Description
		v.ChannelTitle = sn.ChannelTitle
		v.ThumbnailURL = bestThumbnail(sn.Thumbnails)
		if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}
	return v, true
}

// bestThumbnail prefers the medium size, which fits a grid card.
func bestThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytapi.Thumbnail{t.Medium, t.High, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
