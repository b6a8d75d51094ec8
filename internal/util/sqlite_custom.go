package util

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"

	"modernc.org/sqlite"
)

// SortedConcatenate is a SQLite aggregate joining values in the order of an
// integer key column, whatever order the rows arrive in.
//
//	SELECT sortconcat(chapter_index, chapter_title) FROM book_content
type SortedConcatenate struct {
	ans map[int64]string
	sep string
}

func NewSortedConcatenate(sep string) *SortedConcatenate {
	return &SortedConcatenate{ans: make(map[int64]string), sep: sep}
}

func (sc *SortedConcatenate) Step(_ *sqlite.FunctionContext, rowArgs []driver.Value) error {
	ndx, ok := rowArgs[0].(int64)
	if !ok {
		return fmt.Errorf("invalid type: %T", rowArgs[0])
	}
	var value string
	switch v := rowArgs[1].(type) {
	case string:
		value = v
	case []byte:
		value = string(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("invalid type: %T", rowArgs[1])
	}
	if value != "" {
		sc.ans[ndx] = value
	}
	return nil
}

func (sc *SortedConcatenate) WindowValue(_ *sqlite.FunctionContext) (driver.Value, error) {
	if len(sc.ans) == 0 {
		return "", nil
	}

	keys := make([]int64, 0, len(sc.ans))
	for k := range sc.ans {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, sc.ans[k])
	}
	return strings.Join(values, sc.sep), nil
}

func (sc *SortedConcatenate) WindowInverse(_ *sqlite.FunctionContext, _ []driver.Value) error {
	return nil
}

func (sc *SortedConcatenate) Final(_ *sqlite.FunctionContext) {}

// SortConcatSeparator separates values produced by the sortconcat function.
const SortConcatSeparator = "\x1f"

// RegisterSQLiteFunctions installs the custom functions into the modernc driver.
// It must be called once per process.
func RegisterSQLiteFunctions() {
	sqlite.MustRegisterFunction("sortconcat", &sqlite.FunctionImpl{
		NArgs:         2,
		Deterministic: true,
		MakeAggregate: func(ctx sqlite.FunctionContext) (sqlite.AggregateFunction, error) {
			return NewSortedConcatenate(SortConcatSeparator), nil
		},
	})
}
