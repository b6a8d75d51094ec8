package rss

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Xunop/e-oasis-mcp/internal/config"
	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/store"
	"github.com/Xunop/e-oasis-mcp/internal/validator"
)

const DefaultArticleLimit = 50

type Service struct {
	store   *store.Store
	fetcher Fetcher
	// limiter paces RefreshAll so a long subscription list is not fetched in a burst.
	limiter *rate.Limiter
	now     func() time.Time
}

func NewService(s *store.Store, fetcher Fetcher, fetchInterval time.Duration) *Service {
	limit := rate.Inf
	if fetchInterval > 0 {
		limit = rate.Every(fetchInterval)
	}
	return &Service{
		store:   s,
		fetcher: fetcher,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// NewServiceFromOptions wires an HTTPFetcher configured by opts.
func NewServiceFromOptions(s *store.Store, opts *config.Options) *Service {
	fetcher := NewHTTPFetcher(opts.FeedTimeoutDuration(), opts.FeedCacheTTLDuration(), opts.FeedCacheSize)
	return NewService(s, fetcher, opts.FeedFetchRateDuration())
}

type RefreshResult struct {
	Feed  *model.Feed `json:"feed"`
	Added int         `json:"added"`
	// Error is set by RefreshAll for a feed that failed.
	Error string `json:"error,omitempty"`
}

// Subscribe adds the feed at url. Subscribing to a known URL refreshes it.
// Both paths read through the response cache.
func (s *Service) Subscribe(ctx context.Context, url string) (*RefreshResult, error) {
	url = strings.TrimSpace(url)
	if err := validator.ValidateFeedURL(url); err != nil {
		return nil, err
	}
	existing, err := s.store.GetFeed(ctx, &model.FindFeed{URL: &url})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.refresh(ctx, existing.ID, false)
	}

	parsed, err := s.fetcher.Fetch(ctx, url, false)
	if err != nil {
		return nil, err
	}
	feed := &model.Feed{URL: url, LastFetched: s.now()}
	applyFeedMetadata(feed, parsed)
	feed, err = s.store.CreateFeed(ctx, feed)
	if err != nil {
		return nil, err
	}
	added, err := s.ingest(ctx, feed.ID, parsed)
	if err != nil {
		return nil, err
	}
	log.Info("Subscribed to feed", zap.String("url", url), zap.Int64("id", feed.ID), zap.Int("articles", added))
	return s.result(ctx, feed.ID, added)
}

func (s *Service) Unsubscribe(ctx context.Context, feedID int64) error {
	deleted, err := s.store.DeleteFeed(ctx, feedID)
	if err != nil {
		return err
	}
	if !deleted {
		return feedNotFound(feedID)
	}
	log.Info("Unsubscribed from feed", zap.Int64("id", feedID))
	return nil
}

// Refresh fetches the feed bypassing the response cache and stores new
// articles. Known articles keep their read and saved flags.
func (s *Service) Refresh(ctx context.Context, feedID int64) (*RefreshResult, error) {
	return s.refresh(ctx, feedID, true)
}

func (s *Service) refresh(ctx context.Context, feedID int64, bypassCache bool) (*RefreshResult, error) {
	feed, err := s.store.GetFeed(ctx, &model.FindFeed{ID: &feedID})
	if err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, feedNotFound(feedID)
	}
	parsed, err := s.fetcher.Fetch(ctx, feed.URL, bypassCache)
	if err != nil {
		return nil, err
	}
	applyFeedMetadata(feed, parsed)
	feed.LastFetched = s.now()
	if err := s.store.UpdateFeed(ctx, feed); err != nil {
		return nil, err
	}
	added, err := s.ingest(ctx, feed.ID, parsed)
	if err != nil {
		return nil, err
	}
	log.Debug("Refreshed feed", zap.Int64("id", feed.ID), zap.Int("added", added))
	return s.result(ctx, feed.ID, added)
}

// RefreshAll refreshes every feed in turn. A failing feed is reported in its
// result and does not stop the others. Scheduled refreshes leave bypassCache
// off so feeds fetched moments ago are not requested again.
func (s *Service) RefreshAll(ctx context.Context, bypassCache bool) ([]*RefreshResult, error) {
	feeds, err := s.store.ListFeeds(ctx, &model.FindFeed{})
	if err != nil {
		return nil, err
	}
	results := make([]*RefreshResult, 0, len(feeds))
	for _, feed := range feeds {
		if err := s.limiter.Wait(ctx); err != nil {
			return results, errors.Wrap(err, "refresh interrupted")
		}
		res, err := s.refresh(ctx, feed.ID, bypassCache)
		if err != nil {
			log.Warn("Failed to refresh feed", zap.String("url", feed.URL), zap.Error(err))
			results = append(results, &RefreshResult{Feed: feed, Error: err.Error()})
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) ingest(ctx context.Context, feedID int64, parsed *gofeed.Feed) (int, error) {
	fetchedAt := s.now()
	articles := make([]*model.Article, 0, len(parsed.Items))
	seen := make(map[string]bool, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		a := NormalizeItem(feedID, item, fetchedAt)
		if seen[a.GUID] {
			continue
		}
		seen[a.GUID] = true
		articles = append(articles, a)
	}
	return s.store.InsertArticles(ctx, feedID, articles)
}

func (s *Service) result(ctx context.Context, feedID int64, added int) (*RefreshResult, error) {
	feed, err := s.store.GetFeed(ctx, &model.FindFeed{ID: &feedID})
	if err != nil {
		return nil, err
	}
	return &RefreshResult{Feed: feed, Added: added}, nil
}

func (s *Service) ListFeeds(ctx context.Context) ([]*model.Feed, error) {
	return s.store.ListFeeds(ctx, &model.FindFeed{})
}

type ArticleFilter struct {
	FeedID     *int64
	UnreadOnly bool
	SavedOnly  bool
	Limit      int
}

func (s *Service) Articles(ctx context.Context, filter ArticleFilter) ([]*model.Article, error) {
	find := &model.FindArticle{FeedID: filter.FeedID, Limit: limitOrDefault(filter.Limit)}
	if filter.FeedID != nil {
		feed, err := s.store.GetFeed(ctx, &model.FindFeed{ID: filter.FeedID})
		if err != nil {
			return nil, err
		}
		if feed == nil {
			return nil, feedNotFound(*filter.FeedID)
		}
	}
	if filter.UnreadOnly {
		unread := false
		find.IsRead = &unread
	}
	if filter.SavedOnly {
		saved := true
		find.IsSaved = &saved
	}
	return withoutContent(s.store.ListArticles(ctx, find))
}

// Search matches query against the title, summary and content of articles.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*model.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.Article{}, nil
	}
	return withoutContent(s.store.ListArticles(ctx, &model.FindArticle{Query: &query, Limit: limitOrDefault(limit)}))
}

// withoutContent drops article bodies from listings.
func withoutContent(list []*model.Article, err error) ([]*model.Article, error) {
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		a.Content = ""
	}
	return list, nil
}

type ArticleView struct {
	*model.Article
	Markdown string `json:"markdown"`
}

// Article returns the article with its content rendered as markdown and
// marks it read.
func (s *Service) Article(ctx context.Context, id int64) (*ArticleView, error) {
	a, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, articleNotFound(id)
	}
	markdown, err := ToMarkdown(a.Content)
	if err != nil {
		log.Warn("Failed to render article", zap.Int64("id", id), zap.Error(err))
		markdown = CleanText(a.Content)
	}
	if markdown == "" {
		markdown = a.Summary
	}
	if !a.IsRead {
		if _, err := s.store.SetArticleRead(ctx, id, true); err != nil {
			return nil, err
		}
		a.IsRead = true
	}
	a.Content = ""
	return &ArticleView{Article: a, Markdown: markdown}, nil
}

func (s *Service) MarkRead(ctx context.Context, id int64, read bool) error {
	ok, err := s.store.SetArticleRead(ctx, id, read)
	if err != nil {
		return err
	}
	if !ok {
		return articleNotFound(id)
	}
	return nil
}

// MarkAllRead marks the articles of feedID, or of every feed when nil.
func (s *Service) MarkAllRead(ctx context.Context, feedID *int64) (int64, error) {
	if feedID != nil {
		feed, err := s.store.GetFeed(ctx, &model.FindFeed{ID: feedID})
		if err != nil {
			return 0, err
		}
		if feed == nil {
			return 0, feedNotFound(*feedID)
		}
	}
	return s.store.MarkAllRead(ctx, feedID)
}

// ToggleSaved flips the saved flag of an article and returns the new value.
func (s *Service) ToggleSaved(ctx context.Context, id int64) (bool, error) {
	saved, err := s.store.ToggleSaved(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, articleNotFound(id)
	}
	return saved, err
}

func limitOrDefault(limit int) *int {
	if limit <= 0 {
		limit = DefaultArticleLimit
	}
	return &limit
}
