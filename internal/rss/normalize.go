package rss

import (
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

var (
	textPolicy    = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
	contentPolicy = bluemonday.UGCPolicy()
)

// CleanText strips every tag from markup and decodes entities.
func CleanText(markup string) string {
	if markup == "" {
		return ""
	}
	return util.CollapseSpace(html.UnescapeString(textPolicy.Sanitize(markup)))
}

// SanitizeHTML keeps the user generated content subset of markup.
func SanitizeHTML(markup string) string {
	return contentPolicy.Sanitize(markup)
}

// ToMarkdown renders article markup for reading.
func ToMarkdown(markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse article html")
	}
	doc.Find("script, style, iframe").Remove()
	body, err := doc.Find("body").Html()
	if err != nil {
		return "", errors.Wrap(err, "failed to render article html")
	}

	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(SanitizeHTML(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to convert article to markdown")
	}
	return strings.TrimSpace(out), nil
}

// itemGUID falls back to the link, then the title, then a random id.
func itemGUID(item *gofeed.Item) string {
	for _, candidate := range []string{item.GUID, item.Link, item.Title} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return util.GenUUID()
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	return ""
}

func itemPubDate(item *gofeed.Item) *time.Time {
	for _, ts := range []*time.Time{item.PublishedParsed, item.UpdatedParsed} {
		if ts != nil && !ts.IsZero() {
			t := ts.UTC()
			return &t
		}
	}
	return nil
}

// NormalizeItem maps a parsed item to an article of feedID. The summary is
// plain text; the content keeps sanitized markup for ToMarkdown.
func NormalizeItem(feedID int64, item *gofeed.Item, fetchedAt time.Time) *model.Article {
	title := CleanText(item.Title)
	if title == "" {
		title = "(untitled)"
	}
	content := item.Content
	if content == "" {
		content = item.Description
	}
	return &model.Article{
		FeedID:    feedID,
		GUID:      itemGUID(item),
		Title:     title,
		Link:      strings.TrimSpace(item.Link),
		Author:    CleanText(itemAuthor(item)),
		PubDate:   itemPubDate(item),
		Summary:   util.Truncate(CleanText(item.Description), 1000),
		Content:   SanitizeHTML(content),
		FetchedAt: fetchedAt,
	}
}

// applyFeedMetadata copies channel level fields onto f, keeping what the
// parsed feed leaves empty.
func applyFeedMetadata(f *model.Feed, parsed *gofeed.Feed) {
	if title := CleanText(parsed.Title); title != "" {
		f.Title = title
	}
	if f.Title == "" {
		f.Title = f.URL
	}
	if desc := CleanText(parsed.Description); desc != "" {
		f.Description = desc
	}
	if parsed.Link != "" {
		f.SiteURL = parsed.Link
	}
	if parsed.Image != nil && parsed.Image.URL != "" {
		f.IconURL = parsed.Image.URL
	}
}
