package library

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotFoundError reports an unresolved book, chapter or page. Hint names the
// operation that lists what does exist.
type NotFoundError struct {
	Kind  string
	Query string
	Hint  string
}

func (e *NotFoundError) Error() string {
	msg := e.Kind + " not found"
	if e.Query != "" {
		msg = fmt.Sprintf("%s %q not found", e.Kind, e.Query)
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

func bookNotFound(query string) error {
	return &NotFoundError{
		Kind:  "book",
		Query: query,
		Hint:  "Run scan_library or list_library to see the available books.",
	}
}

func chapterNotFound(index, count int) error {
	return &NotFoundError{
		Kind:  "chapter",
		Query: fmt.Sprint(index),
		Hint:  fmt.Sprintf("The book has %d chapters numbered from 0, see get_table_of_contents.", count),
	}
}

func pageNotFound(page, total int) error {
	return &NotFoundError{
		Kind:  "page",
		Query: fmt.Sprint(page),
		Hint:  fmt.Sprintf("The document has %d pages numbered from 1.", total),
	}
}
