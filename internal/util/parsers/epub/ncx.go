package epub

import (
	"bytes"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Ncx is the struct that holds the information from the ncx file
type Ncx struct {
	Points []Point `xml:"navMap>navPoint" json:"points"`
}

// Point is the struct that holds the information about a point in the ncx file
type Point struct {
	Text    string  `xml:"navLabel>text" json:"text"`
	Content Content `xml:"content" json:"content"`
	Points  []Point `xml:"navPoint" json:"points"`
}

// Content is the struct that holds the information about the content of a point in the ncx file
type Content struct {
	Src string `xml:"src,attr" json:"src"`
}

// NavEntry is one flattened TOC node. Href is resolved against the archive
// root and may carry a fragment.
type NavEntry struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Level int    `json:"level"`
}

// flattenNcx walks the navMap depth first. base is the archive directory of
// the NCX file, against which src attributes are relative.
func flattenNcx(points []Point, base string, level int, out []NavEntry) []NavEntry {
	for _, p := range points {
		if p.Content.Src != "" {
			out = append(out, NavEntry{
				Title: strings.Join(strings.Fields(p.Text), " "),
				Href:  resolveHref(base, p.Content.Src),
				Level: level,
			})
		}
		out = flattenNcx(p.Points, base, level+1, out)
	}
	return out
}

// parseNav reads the EPUB3 navigation document. The toc nav is preferred;
// the first nav element is used when none is typed.
func parseNav(data []byte, base string) ([]NavEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse nav document")
	}
	navs := doc.Find("nav")
	toc := navs.FilterFunction(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("epub:type")
		role, _ := s.Attr("role")
		return strings.Contains(typ, "toc") || role == "doc-toc"
	}).First()
	if toc.Length() == 0 {
		toc = navs.First()
	}
	if toc.Length() == 0 {
		return nil, nil
	}

	var out []NavEntry
	toc.ChildrenFiltered("ol").Each(func(_ int, ol *goquery.Selection) {
		out = walkNavList(ol, base, 0, out)
	})
	return out, nil
}

func walkNavList(ol *goquery.Selection, base string, level int, out []NavEntry) []NavEntry {
	ol.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		label := li.ChildrenFiltered("a").First()
		if label.Length() == 0 {
			label = li.ChildrenFiltered("span").First()
		}
		if href, ok := label.Attr("href"); ok && href != "" {
			out = append(out, NavEntry{
				Title: strings.Join(strings.Fields(label.Text()), " "),
				Href:  resolveHref(base, href),
				Level: level,
			})
		}
		li.ChildrenFiltered("ol").Each(func(_ int, sub *goquery.Selection) {
			out = walkNavList(sub, base, level+1, out)
		})
	})
	return out
}

// resolveHref joins a document-relative href onto its archive directory,
// keeping the fragment.
func resolveHref(base, href string) string {
	file, fragment := SplitHref(href)
	if file == "" {
		return href
	}
	full := path.Join(base, unescape(file))
	if fragment != "" {
		return full + "#" + fragment
	}
	return full
}
