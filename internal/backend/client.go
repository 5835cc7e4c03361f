package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/subedit/internal/subtitle"
	"github.com/MimeLyc/subedit/pkg/log"
)

const (
	maxSRTBytes     = 32 << 20
	maxErrBodyBytes = 4096
)

// Client fetches SRT tracks from the video backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithHTTPClient returns a copy of c that sends requests through hc.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.httpClient = hc
	return &cp
}

// FetchSRT downloads one raw SRT track of a video.
func (c *Client) FetchSRT(ctx context.Context, videoID string, track subtitle.Track) (string, error) {
	if track != subtitle.TrackOriginal && track != subtitle.TrackTranslated {
		return "", fmt.Errorf("unsupported track %q", track)
	}
	if strings.TrimSpace(videoID) == "" {
		return "", fmt.Errorf("video id is required")
	}

	endpoint := fmt.Sprintf("%s/api/v1/videos/srt/%s/%s", c.baseURL, url.PathEscape(videoID), track)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain, */*")
	req.Header.Set("X-Request-Id", ulid.Make().String())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return "", fmt.Errorf("fetch %s track of %s: %w", track, videoID, statusError(resp.StatusCode, body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSRTBytes))
	if err != nil {
		return "", fmt.Errorf("read %s track of %s: %w", track, videoID, err)
	}
	return string(body), nil
}

// FetchSubtitles loads the original track and, when available, the
// translated one, and merges them by id. Only the original track is
// required.
func (c *Client) FetchSubtitles(ctx context.Context, videoID string, opts ...subtitle.ParseOption) ([]subtitle.Record, error) {
	var original, translated string
	var translatedErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srt, err := c.FetchSRT(gctx, videoID, subtitle.TrackOriginal)
		if err != nil {
			return err
		}
		original = srt
		return nil
	})
	g.Go(func() error {
		// never fails the group
		translated, translatedErr = c.FetchSRT(gctx, videoID, subtitle.TrackTranslated)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := subtitle.ParseSRT(original, opts...)
	if translatedErr != nil {
		log.Warn("Translated subtitles unavailable for video %s: %v", videoID, translatedErr)
		return records, nil
	}
	log.Debug("Fetched %d subtitle records for video %s", len(records), videoID)
	return subtitle.MergeTranslated(records, subtitle.ParseSRT(translated, opts...)), nil
}
