package library

import (
	"strings"
	"unicode"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

// Matcher is one book resolution strategy.
type Matcher struct {
	Name  string
	Match func(query string, book *model.LibraryEntry) bool
}

// DefaultMatchers are tried in this order and the first strategy that
// matches any book wins: exact id, exact title ignoring case, title
// substring, then every significant query word present in the title or
// author.
var DefaultMatchers = []Matcher{
	{Name: "id", Match: matchID},
	{Name: "title", Match: matchTitle},
	{Name: "substring", Match: matchSubstring},
	{Name: "words", Match: matchWords},
}

func matchID(query string, book *model.LibraryEntry) bool {
	return book.ID == query
}

func matchTitle(query string, book *model.LibraryEntry) bool {
	return strings.EqualFold(strings.TrimSpace(book.Title), query)
}

func matchSubstring(query string, book *model.LibraryEntry) bool {
	return strings.Contains(strings.ToLower(book.Title), strings.ToLower(query))
}

func matchWords(query string, book *model.LibraryEntry) bool {
	words := significantWords(query)
	if len(words) == 0 {
		return false
	}
	haystack := strings.ToLower(book.Title + " " + book.Author)
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "by": true, "for": true, "in": true,
	"of": true, "on": true, "or": true, "the": true, "to": true, "with": true,
}

// significantWords lowers query and drops stop words and one-letter words.
func significantWords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopWords[f] {
			continue
		}
		words = append(words, f)
	}
	return words
}

// Resolve returns the first book matched by the first successful matcher.
func Resolve(matchers []Matcher, query string, books []*model.LibraryEntry) (*model.LibraryEntry, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false
	}
	for _, m := range matchers {
		for _, b := range books {
			if m.Match(query, b) {
				return b, true
			}
		}
	}
	return nil, false
}
