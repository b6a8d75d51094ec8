package epub

import (
	"net/url"
	"strings"
)

// Packaging roots that generators disagree about. They are stripped so the
// same document compares equal whether referenced from the OPF, the NCX or
// the nav document.
var packagingRoots = []string{"oebps/", "epub/", "ops/", "xhtml/", "text/"}

// SplitHref separates the document part of an href from its fragment.
func SplitHref(href string) (file, fragment string) {
	file, fragment, _ = strings.Cut(href, "#")
	return file, fragment
}

// NormalizeHref gives the comparison key of an href: fragment dropped, URL
// escapes decoded, "./" and leading "/" removed, packaging roots stripped.
func NormalizeHref(href string) string {
	file, _ := SplitHref(href)
	file = unescape(file)
	for {
		before := file
		file = strings.TrimPrefix(file, "./")
		file = strings.TrimLeft(file, "/")
		for _, root := range packagingRoots {
			if len(file) >= len(root) && strings.EqualFold(file[:len(root)], root) {
				file = file[len(root):]
			}
		}
		if file == before {
			return file
		}
	}
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// hrefIndex maps comparison keys of flow documents to their flow position.
type hrefIndex struct {
	keys  map[string]int
	order []string
}

func newHrefIndex(flow []FlowItem) *hrefIndex {
	idx := &hrefIndex{keys: make(map[string]int, len(flow))}
	for i, item := range flow {
		key := NormalizeHref(item.Href)
		if _, ok := idx.keys[key]; !ok {
			idx.keys[key] = i
		}
		idx.order = append(idx.order, key)
	}
	return idx
}

// lookup finds the flow document an href points into. An exact key match
// wins; otherwise a key that ends with the other on a path boundary is
// accepted so mismatched relative roots still resolve.
func (h *hrefIndex) lookup(href string) (int, bool) {
	key := NormalizeHref(href)
	if key == "" {
		return 0, false
	}
	if i, ok := h.keys[key]; ok {
		return i, true
	}
	for i, candidate := range h.order {
		if strings.HasSuffix(candidate, "/"+key) || strings.HasSuffix(key, "/"+candidate) {
			return i, true
		}
	}
	return 0, false
}
