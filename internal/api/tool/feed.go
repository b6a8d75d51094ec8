package tool

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/rss"
)

type subscribeInput struct {
	URL string `json:"url" jsonschema:"RSS or Atom feed URL"`
}

type feedInput struct {
	FeedID int64 `json:"feed_id" jsonschema:"feed id from rss_list_feeds"`
}

type optionalFeedInput struct {
	FeedID *int64 `json:"feed_id,omitempty" jsonschema:"feed id; every feed when empty"`
}

type articlesInput struct {
	FeedID     *int64 `json:"feed_id,omitempty" jsonschema:"feed id; every feed when empty"`
	UnreadOnly bool   `json:"unread_only,omitempty" jsonschema:"only unread articles"`
	SavedOnly  bool   `json:"saved_only,omitempty" jsonschema:"only saved articles"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of articles, 50 by default"`
}

type searchArticlesInput struct {
	Query string `json:"query" jsonschema:"case-insensitive text to look for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of articles, 50 by default"`
}

type articleInput struct {
	ArticleID int64 `json:"article_id,omitempty" jsonschema:"article id; defaults to the current article"`
}

type markReadInput struct {
	ArticleID int64 `json:"article_id,omitempty" jsonschema:"article id; defaults to the current article"`
	Read      *bool `json:"read,omitempty" jsonschema:"false marks the article unread"`
}

type proxyImageInput struct {
	URL string `json:"url" jsonschema:"image URL"`
}

type markAllReadOutput struct {
	Marked int64 `json:"marked"`
}

type toggleSavedOutput struct {
	ArticleID int64 `json:"articleId"`
	Saved     bool  `json:"saved"`
}

var errNoArticle = &rss.NotFoundError{
	Kind: "current article",
	Hint: "Call rss_read_article with an article id first.",
}

func (s *Server) articleID(id int64) (int64, error) {
	if id != 0 {
		return id, nil
	}
	if current := s.session.Article(); current != 0 {
		return current, nil
	}
	return 0, errNoArticle
}

func (s *Server) registerFeedTools() {
	addTool(s, "rss_subscribe", "Subscribe to a feed and fetch its articles. Subscribing again refreshes it.",
		func(ctx context.Context, in subscribeInput) (any, error) {
			return s.feeds.Subscribe(ctx, in.URL)
		})

	addTool(s, "rss_unsubscribe", "Unsubscribe from a feed and delete its articles.",
		func(ctx context.Context, in feedInput) (any, error) {
			if err := s.feeds.Unsubscribe(ctx, in.FeedID); err != nil {
				return nil, err
			}
			return "Unsubscribed.", nil
		})

	addTool(s, "rss_refresh", "Fetch new articles of a feed now.",
		func(ctx context.Context, in feedInput) (any, error) {
			return s.feeds.Refresh(ctx, in.FeedID)
		})

	addTool(s, "rss_refresh_all", "Fetch new articles of every feed.",
		func(ctx context.Context, _ noInput) (any, error) {
			return s.feeds.RefreshAll(ctx, true)
		})

	addTool(s, "rss_list_feeds", "List the subscribed feeds with their unread counts.",
		func(ctx context.Context, _ noInput) (any, error) {
			feeds, err := s.feeds.ListFeeds(ctx)
			if err != nil {
				return nil, err
			}
			if len(feeds) == 0 {
				return "No feeds yet. Use rss_subscribe to add one.", nil
			}
			return feeds, nil
		})

	addTool(s, "rss_get_articles", "List articles, newest first.",
		func(ctx context.Context, in articlesInput) (any, error) {
			return s.feeds.Articles(ctx, rss.ArticleFilter{
				FeedID:     in.FeedID,
				UnreadOnly: in.UnreadOnly,
				SavedOnly:  in.SavedOnly,
				Limit:      in.Limit,
			})
		})

	addTool(s, "rss_search_articles", "Search articles by title, summary and content.",
		func(ctx context.Context, in searchArticlesInput) (any, error) {
			return s.feeds.Search(ctx, in.Query, in.Limit)
		})

	addTool(s, "rss_read_article", "Read an article as markdown and make it the current article. The article is marked read.",
		func(ctx context.Context, in articleInput) (any, error) {
			id, err := s.articleID(in.ArticleID)
			if err != nil {
				return nil, err
			}
			view, err := s.feeds.Article(ctx, id)
			if err != nil {
				return nil, err
			}
			s.session.SetArticle(view.ID)
			return view, nil
		})

	addTool(s, "rss_mark_read", "Mark an article read or unread.",
		func(ctx context.Context, in markReadInput) (any, error) {
			id, err := s.articleID(in.ArticleID)
			if err != nil {
				return nil, err
			}
			read := in.Read == nil || *in.Read
			if err := s.feeds.MarkRead(ctx, id, read); err != nil {
				return nil, err
			}
			if read {
				return "Marked read.", nil
			}
			return "Marked unread.", nil
		})

	addTool(s, "rss_mark_all_read", "Mark every article of a feed, or of all feeds, read.",
		func(ctx context.Context, in optionalFeedInput) (any, error) {
			n, err := s.feeds.MarkAllRead(ctx, in.FeedID)
			if err != nil {
				return nil, err
			}
			return &markAllReadOutput{Marked: n}, nil
		})

	addTool(s, "rss_toggle_saved", "Save an article for later, or unsave it.",
		func(ctx context.Context, in articleInput) (any, error) {
			id, err := s.articleID(in.ArticleID)
			if err != nil {
				return nil, err
			}
			saved, err := s.feeds.ToggleSaved(ctx, id)
			if err != nil {
				return nil, err
			}
			return &toggleSavedOutput{ArticleID: id, Saved: saved}, nil
		})

	addTool(s, "proxy_image", "Download an image referenced by an article and return it as a data URI.",
		func(ctx context.Context, in proxyImageInput) (any, error) {
			if s.images == nil {
				return nil, errors.New("image proxy is disabled")
			}
			return s.images.Fetch(ctx, in.URL)
		})
}
