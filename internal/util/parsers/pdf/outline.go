package pdf

import (
	ledong "github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

const (
	maxOutlineDepth = 32
	maxOutlineItems = 10000
	maxDestHops     = 4
)

// Outline flattens the bookmark tree into TOC entries. Destinations that
// cannot be resolved point at page 1. A malformed tree yields the entries
// read before the failure.
func (d *Document) Outline() (entries []model.TOCEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w := &outlineWalker{numPages: d.numPages}
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Malformed pdf outline", zap.Any("panic", r))
		}
		entries = w.entries
	}()

	w.root = d.reader.Trailer().Key("Root")
	w.pages = d.pageIndex()
	w.walk(w.root.Key("Outlines").Key("First"), 0)
	return w.entries
}

// pageIndex fingerprints each page dictionary so that destinations holding
// a page reference can be mapped back to a page number.
func (d *Document) pageIndex() map[string]int {
	idx := make(map[string]int, d.numPages)
	for i := 1; i <= d.numPages; i++ {
		p := d.reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		key := p.V.String()
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

type outlineWalker struct {
	root     ledong.Value
	pages    map[string]int
	numPages int
	entries  []model.TOCEntry
}

func (w *outlineWalker) walk(item ledong.Value, level int) {
	if level > maxOutlineDepth {
		return
	}
	for item.Kind() == ledong.Dict {
		if len(w.entries) >= maxOutlineItems {
			return
		}
		page := w.resolve(item)
		w.entries = append(w.entries, model.TOCEntry{
			Title:        util.StripControl(item.Key("Title").Text()),
			ChapterIndex: page - 1,
			Level:        level,
			PageNumber:   page,
		})
		w.walk(item.Key("First"), level+1)
		item = item.Key("Next")
	}
}

func (w *outlineWalker) resolve(item ledong.Value) int {
	dest := item.Key("Dest")
	if dest.IsNull() {
		if action := item.Key("A"); action.Key("S").Name() == "GoTo" {
			dest = action.Key("D")
		}
	}
	return w.pageOf(dest, 0)
}

func (w *outlineWalker) pageOf(dest ledong.Value, hops int) int {
	if hops > maxDestHops {
		return 1
	}
	switch dest.Kind() {
	case ledong.Name:
		return w.pageOf(w.named(dest.Name()), hops+1)
	case ledong.String:
		return w.pageOf(w.named(dest.RawString()), hops+1)
	case ledong.Dict:
		return w.pageOf(dest.Key("D"), hops+1)
	case ledong.Array:
		if dest.Len() == 0 {
			return 1
		}
		target := dest.Index(0)
		switch target.Kind() {
		case ledong.Integer:
			// Remote-style destinations carry a 0-based page index
			if p := int(target.Int64()) + 1; p >= 1 && p <= w.numPages {
				return p
			}
		case ledong.Dict:
			if p, ok := w.pages[target.String()]; ok {
				return p
			}
		}
	}
	return 1
}

// named looks a destination up in the catalog Dests dictionary, then in the
// Names/Dests name tree.
func (w *outlineWalker) named(name string) ledong.Value {
	if dests := w.root.Key("Dests"); dests.Kind() == ledong.Dict {
		if v := dests.Key(name); !v.IsNull() {
			return v
		}
	}
	return lookupNameTree(w.root.Key("Names").Key("Dests"), name, 0)
}

func lookupNameTree(node ledong.Value, name string, depth int) ledong.Value {
	if node.Kind() != ledong.Dict || depth > maxOutlineDepth {
		return ledong.Value{}
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		if names.Index(i).RawString() == name {
			return names.Index(i + 1)
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if v := lookupNameTree(kids.Index(i), name, depth+1); !v.IsNull() {
			return v
		}
	}
	return ledong.Value{}
}
