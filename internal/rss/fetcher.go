package rss // import "github.com/Xunop/e-oasis-mcp/internal/rss"

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/version"
)

const maxFeedSize = 20 << 20

type Fetcher interface {
	// Fetch downloads and parses the feed at url. bypassCache forces a
	// network round trip.
	Fetch(ctx context.Context, url string, bypassCache bool) (*gofeed.Feed, error)
}

// HTTPFetcher fetches feeds over HTTP and keeps parsed responses for a short
// while so that rapid successive calls do not hit the network.
type HTTPFetcher struct {
	client *http.Client
	cache  *expirable.LRU[string, *gofeed.Feed]
}

func NewHTTPFetcher(timeout, cacheTTL time.Duration, cacheSize int) *HTTPFetcher {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		cache:  expirable.NewLRU[string, *gofeed.Feed](cacheSize, nil, cacheTTL),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, bypassCache bool) (*gofeed.Feed, error) {
	if !bypassCache {
		if feed, ok := f.cache.Get(url); ok {
			log.Debug("Feed served from cache", zap.String("url", url))
			return feed, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", "e-oasis-mcp/"+version.GetCurrentVersion())
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse feed %s", url)
	}
	log.Debug("Fetched feed",
		zap.String("url", url),
		zap.String("size", humanize.Bytes(uint64(len(body)))),
		zap.Int("items", len(feed.Items)))

	f.cache.Add(url, feed)
	return feed, nil
}

// Forget drops the cached response of url.
func (f *HTTPFetcher) Forget(url string) {
	f.cache.Remove(url)
}
