package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	epub2 "github.com/go-shiori/go-epub"

	"github.com/Xunop/e-oasis-mcp/internal/model"
)

func createEpub(t *testing.T, n string, sections ...string) {
	t.Helper()
	e, err := epub2.NewEpub("Test title")
	if err != nil {
		t.Fatal(err)
	}
	e.SetAuthor("Test author")
	for i, body := range sections {
		if _, err := e.AddSection(body, fmt.Sprintf("Section %d", i+1), "", ""); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Write(n); err != nil {
		t.Fatal(err)
	}
}

// zipEpub packs files into an epub archive with the mimetype entry first.
func zipEpub(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	mt, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	mt.Write([]byte(mimetypeEpub))
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		f.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const containerDoc = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`

// sectionBook builds a book of `files` spine documents with `perFile`
// sections each. When anchors is false the TOC repeats file hrefs.
func sectionBook(t *testing.T, files, perFile int, anchors bool) []byte {
	t.Helper()
	var manifest, spine, points strings.Builder
	docs := map[string]string{}
	n := 0
	for f := 1; f <= files; f++ {
		fmt.Fprintf(&manifest, `<item id="ch%d" href="Text/ch%d.xhtml" media-type="application/xhtml+xml"/>`, f, f)
		fmt.Fprintf(&spine, `<itemref idref="ch%d"/>`, f)
		var doc strings.Builder
		doc.WriteString(`<?xml version="1.0" encoding="utf-8"?><html xmlns="http://www.w3.org/1999/xhtml"><head><title>Running head</title></head><body>`)
		for s := 1; s <= perFile; s++ {
			n++
			fmt.Fprintf(&doc, `<h2 id="s%d">Section %d</h2><p>Section %d body.</p>`, n, n, n)
			href := fmt.Sprintf("Text/ch%d.xhtml", f)
			if anchors {
				href += fmt.Sprintf("#s%d", n)
			}
			fmt.Fprintf(&points, `<navPoint id="p%d"><navLabel><text>Section %d</text></navLabel><content src="%s"/></navPoint>`, n, n, href)
		}
		doc.WriteString(`</body></html>`)
		docs[fmt.Sprintf("OEBPS/Text/ch%d.xhtml", f)] = doc.String()
	}
	docs["META-INF/container.xml"] = containerDoc
	docs["OEBPS/content.opf"] = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Sections</dc:title>
    <dc:creator opf:role="aut">A. Writer</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest><item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + manifest.String() + `</manifest>
  <spine toc="ncx">` + spine.String() + `</spine>
</package>`
	docs["OEBPS/toc.ncx"] = `<?xml version="1.0" encoding="utf-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1"><navMap>` + points.String() + `</navMap></ncx>`
	return zipEpub(t, docs)
}

func TestEpub(t *testing.T) {
	withBook := func(fn func(*Book), sections ...string) {
		f := filepath.Join(t.TempDir(), "test.epub")
		createEpub(t, f, sections...)
		b, err := Open(f)
		if err != nil {
			t.Fatal(err)
		}
		fn(b)
		os.Remove(f)
	}

	t.Run("TestOpen", func(t *testing.T) {
		withBook(func(b *Book) {
			if b.Mimetype != "application/epub+zip" {
				t.Errorf("invalid mimetype: %s", b.Mimetype)
			}
			if b.Container.Rootfile.Fullpath != "EPUB/package.opf" {
				t.Errorf("invalid rootfile: %s", b.Container.Rootfile.Fullpath)
			}
			if b.GetTitle() != "Test title" {
				t.Errorf("invalid title: %s", b.GetTitle())
			}
			if b.GetAuthor() != "Test author" {
				t.Errorf("invalid author: %s", b.GetAuthor())
			}
		}, "<h1>One</h1><p>First.</p>")
	})

	t.Run("TestFlowStructure", func(t *testing.T) {
		withBook(func(b *Book) {
			s := b.BuildStructure()
			if s.Mode != model.PaginationFlow {
				t.Errorf("expected flow mode, got %s", s.Mode)
			}
			if len(s.Chapters) != 2 {
				t.Fatalf("expected 2 chapters, got %d", len(s.Chapters))
			}
			if s.Chapters[1].Title != "Section 2" {
				t.Errorf("unexpected title: %s", s.Chapters[1].Title)
			}
			text, err := b.ChapterText(s.Chapters, 1)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(text, "Second body") || strings.Contains(text, "First body") {
				t.Errorf("unexpected chapter text: %q", text)
			}
		}, "<h1>One</h1><p>First body.</p>", "<h1>Two</h1><p>Second body.</p>")
	})
}

func TestAnchorMode(t *testing.T) {
	b, err := OpenBytes(sectionBook(t, 3, 4, true))
	if err != nil {
		t.Fatal(err)
	}
	s := b.BuildStructure()
	if s.Mode != model.PaginationAnchor {
		t.Fatalf("expected anchor mode, got %s", s.Mode)
	}
	if len(s.Chapters) != 12 {
		t.Fatalf("expected 12 chapters, got %d", len(s.Chapters))
	}
	for i, ch := range s.Chapters {
		expected := fmt.Sprintf("OEBPS/Text/ch%d.xhtml", i/4+1)
		if ch.Href != expected {
			t.Errorf("chapter %d resolved to %s, expected %s", i, ch.Href, expected)
		}
		if ch.Anchor != fmt.Sprintf("s%d", i+1) {
			t.Errorf("chapter %d has anchor %s", i, ch.Anchor)
		}
	}
	if len(s.TOC) != 12 || s.TOC[5].ChapterIndex != 5 {
		t.Errorf("unexpected toc: %+v", s.TOC)
	}

	t.Run("sliced between anchors", func(t *testing.T) {
		text, err := b.ChapterText(s.Chapters, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(text, "Section 2 body.") {
			t.Errorf("missing own section: %q", text)
		}
		if strings.Contains(text, "Section 1 body.") || strings.Contains(text, "Section 3 body.") {
			t.Errorf("leaked neighbour section: %q", text)
		}
		if strings.Contains(text, "Running head") {
			t.Errorf("head leaked into text: %q", text)
		}
	})

	t.Run("last section of a file runs to its end", func(t *testing.T) {
		text, err := b.ChapterText(s.Chapters, 3)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(text, "Section 4 body.") || strings.Contains(text, "Section 5") {
			t.Errorf("unexpected text: %q", text)
		}
	})
}

func TestFlowModeFallback(t *testing.T) {
	b, err := OpenBytes(sectionBook(t, 3, 4, false))
	if err != nil {
		t.Fatal(err)
	}
	s := b.BuildStructure()
	if s.Mode != model.PaginationFlow {
		t.Fatalf("expected flow mode, got %s", s.Mode)
	}
	if len(s.Chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(s.Chapters))
	}
	// The first TOC entry of each file names the chapter
	if s.Chapters[1].Title != "Section 5" {
		t.Errorf("unexpected title: %s", s.Chapters[1].Title)
	}
	if len(s.TOC) != 12 || s.TOC[11].ChapterIndex != 2 {
		t.Errorf("unexpected toc mapping: %+v", s.TOC)
	}
}

func TestStructureIsDeterministic(t *testing.T) {
	data := sectionBook(t, 3, 4, true)
	first, err := OpenBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	second, err := OpenBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.BuildStructure(), second.BuildStructure()) {
		t.Error("two opens of the same file disagree")
	}
}

func TestNavDocument(t *testing.T) {
	docs := map[string]string{
		"META-INF/container.xml": containerDoc,
		"OEBPS/content.opf": `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Nav</dc:title><meta name="cover" content="img"/></metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="a" href="Text/a.xhtml" media-type="application/xhtml+xml" title="Custom Title"/>
    <item id="b" href="Text/b%20c.xhtml" media-type="application/xhtml+xml"/>
    <item id="c" href="Text/orphan.xhtml" media-type="application/xhtml+xml"/>
    <item id="img" href="Images/front.png" media-type="image/png"/>
  </manifest>
  <spine><itemref idref="a"/><itemref idref="b"/><itemref idref="c"/></spine>
</package>`,
		"OEBPS/nav.xhtml": `<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"><body>
<nav epub:type="landmarks"><ol><li><a href="Text/a.xhtml">Landmark</a></li></ol></nav>
<nav epub:type="toc"><ol>
  <li><a href="Text/a.xhtml">Part A</a></li>
  <li><a href="./Text/b%20c.xhtml">Part B</a><ol><li><a href="Text/b%20c.xhtml">Inner</a></li></ol></li>
  <li><a href="Text/missing.xhtml">Gone</a></li>
</ol></nav></body></html>`,
		"OEBPS/Text/a.xhtml":      `<html><body><p>a</p></body></html>`,
		"OEBPS/Text/b c.xhtml":    `<html><body><p>b</p></body></html>`,
		"OEBPS/Text/orphan.xhtml": `<html><body><p>c</p></body></html>`,
		"OEBPS/Images/front.png":  "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR",
	}
	b, err := OpenBytes(zipEpub(t, docs))
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Nav) != 4 {
		t.Fatalf("expected 4 nav entries, got %+v", b.Nav)
	}
	if b.Nav[2].Level != 1 || b.Nav[2].Title != "Inner" {
		t.Errorf("unexpected nested entry: %+v", b.Nav[2])
	}

	s := b.BuildStructure()
	titles := []string{s.Chapters[0].Title, s.Chapters[1].Title, s.Chapters[2].Title}
	if !reflect.DeepEqual(titles, []string{"Custom Title", "Part B", "Page 3"}) {
		t.Errorf("unexpected titles: %v", titles)
	}
	// The entry pointing outside the spine is dropped
	if len(s.TOC) != 3 {
		t.Errorf("expected 3 toc entries, got %+v", s.TOC)
	}

	item, ok := b.CoverItem()
	if !ok || item.ID != "img" {
		t.Errorf("unexpected cover item: %+v", item)
	}
}

func TestNormalizeHref(t *testing.T) {
	cases := map[string]string{
		"OEBPS/Text/ch1.xhtml#s1": "ch1.xhtml",
		"./text/ch1.xhtml":        "ch1.xhtml",
		"/OPS/xhtml/ch%201.xhtml": "ch 1.xhtml",
		"EPUB/images/cover.jpg":   "images/cover.jpg",
		"chapter.xhtml":           "chapter.xhtml",
	}
	for in, expected := range cases {
		if got := NormalizeHref(in); got != expected {
			t.Errorf("NormalizeHref(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestCoverFallbacks(t *testing.T) {
	withManifest := func(items ...Manifest) *Book {
		return &Book{Opf: Opf{Manifest: items}}
	}
	t.Run("conventional id", func(t *testing.T) {
		b := withManifest(
			Manifest{ID: "cover", Href: "cover.xhtml", MediaType: "application/xhtml+xml"},
			Manifest{ID: "cover-image", Href: "img/c.jpg", MediaType: "image/jpeg"},
		)
		if m, ok := b.CoverItem(); !ok || m.ID != "cover-image" {
			t.Errorf("unexpected cover: %+v", m)
		}
	})
	t.Run("property", func(t *testing.T) {
		b := withManifest(Manifest{ID: "i1", Href: "img/x.jpg", MediaType: "image/jpeg", Properties: "cover-image"})
		if m, ok := b.CoverItem(); !ok || m.ID != "i1" {
			t.Errorf("unexpected cover: %+v", m)
		}
	})
	t.Run("href scan", func(t *testing.T) {
		b := withManifest(
			Manifest{ID: "i1", Href: "img/plate.jpg", MediaType: "image/jpeg"},
			Manifest{ID: "i2", Href: "img/BookCover.jpg", MediaType: "image/jpeg"},
		)
		if m, ok := b.CoverItem(); !ok || m.ID != "i2" {
			t.Errorf("unexpected cover: %+v", m)
		}
	})
	t.Run("none", func(t *testing.T) {
		b := withManifest(Manifest{ID: "i1", Href: "img/plate.jpg", MediaType: "image/jpeg"})
		if _, err := b.Cover(0); err != ErrNoCover {
			t.Errorf("expected ErrNoCover, got %v", err)
		}
	})
}
