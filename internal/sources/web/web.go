// Package web is the plain-HTTP side of the sources: directory pages and feeds that
// do not need a browser. Bodies are cached and concurrent downloads of one URL are
// collapsed into a single request.
package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Vodeneev/tripprices/internal/pkg/cache"
	"github.com/Vodeneev/tripprices/internal/sources"
)

// maxBodyBytes caps a single download; the largest feed is a few megabytes.
const maxBodyBytes = 32 << 20

type Client struct {
	httpClient *http.Client
	userAgent  string
	cache      cache.Cache
	group      singleflight.Group
}

func NewClient(timeout time.Duration, userAgent string, c cache.Cache) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		cache:      c,
	}
}

// Get returns the body of url. With ttl > 0 a cached copy is served when present and
// a fresh download is stored. Cache errors only cost a download.
func (c *Client) Get(ctx context.Context, rawURL string, ttl time.Duration) ([]byte, error) {
	key := "page:" + rawURL
	if ttl > 0 {
		if body, ok, err := c.cache.Get(ctx, key); err != nil {
			slog.Warn("page cache read failed", "url", rawURL, "error", err)
		} else if ok {
			return body, nil
		}
	}

	ch := c.group.DoChan(rawURL, func() (interface{}, error) {
		// detached so one caller's cancellation does not fail the others
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.httpClient.Timeout)
		defer cancel()
		body, err := c.download(dctx, rawURL)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			if err := c.cache.Set(dctx, key, body, ttl); err != nil {
				slog.Warn("page cache write failed", "url", rawURL, "error", err)
			}
		}
		return body, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, sources.Permanent(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "da-DK,da;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// transport failures (resets, DNS hiccups, timeouts) are worth one more try
		return nil, sources.Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, sources.HTTPStatusError(rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, sources.Transient(fmt.Errorf("read %s: %w", rawURL, err))
	}
	return body, nil
}

// Resolve turns href into an absolute URL relative to base. Unparsable input is
// returned trimmed as is.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
