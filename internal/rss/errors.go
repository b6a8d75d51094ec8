package rss

import (
	"fmt"

	"github.com/pkg/errors"
)

// FetchError is an upstream failure. StatusCode is zero when no response
// was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: upstream returned %v", e.URL, e.Err)
		}
		return fmt.Sprintf("fetch %s: upstream returned %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an unknown feed or article.
type NotFoundError struct {
	Kind  string
	Query string
	Hint  string
}

func (e *NotFoundError) Error() string {
	msg := e.Kind + " not found"
	if e.Query != "" {
		msg = fmt.Sprintf("%s %s not found", e.Kind, e.Query)
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func feedNotFound(id int64) error {
	return &NotFoundError{Kind: "feed", Query: fmt.Sprint(id), Hint: "Run rss_list_feeds to see the subscribed feeds."}
}

func articleNotFound(id int64) error {
	return &NotFoundError{Kind: "article", Query: fmt.Sprint(id), Hint: "Run rss_get_articles to list articles."}
}
