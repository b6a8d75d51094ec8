package model

import "time"

type Feed struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IconURL     string    `json:"iconUrl,omitempty"`
	SiteURL     string    `json:"siteUrl,omitempty"`
	LastFetched time.Time `json:"lastFetched"`
	CreatedAt   time.Time `json:"createdAt"`
	// UnreadCount is only filled by ListFeeds.
	UnreadCount int `json:"unreadCount"`
}

// Article is unique per (FeedID, GUID). IsRead and IsSaved are owned by the
// reader and never reset by a refetch.
type Article struct {
	ID        int64      `json:"id"`
	FeedID    int64      `json:"feedId"`
	GUID      string     `json:"guid"`
	Title     string     `json:"title"`
	Link      string     `json:"link,omitempty"`
	Author    string     `json:"author,omitempty"`
	PubDate   *time.Time `json:"pubDate,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Content   string     `json:"content,omitempty"`
	IsRead    bool       `json:"isRead"`
	IsSaved   bool       `json:"isSaved"`
	FetchedAt time.Time  `json:"fetchedAt"`
	FeedTitle string     `json:"feedTitle,omitempty"`
}

type FindFeed struct {
	ID  *int64  `json:"id"`
	URL *string `json:"url"`
}

type FindArticle struct {
	ID      *int64 `json:"id"`
	FeedID  *int64 `json:"feed_id"`
	IsRead  *bool  `json:"is_read"`
	IsSaved *bool  `json:"is_saved"`
	// Query is a case-insensitive substring match over title, summary and content.
	Query *string `json:"query"`
	Limit *int    `json:"limit"`
}
