package pdf

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Xunop/e-oasis-mcp/internal/model"
	"github.com/Xunop/e-oasis-mcp/internal/util/parsers/pdf/pdftest"
)

func TestReconstructLines(t *testing.T) {
	cases := []struct {
		name     string
		runs     []Run
		expected string
	}{
		{
			name: "same baseline",
			runs: []Run{
				{X: 10, Y: 700, W: 5, FontSize: 10, S: "He"},
				{X: 15, Y: 700, W: 5, FontSize: 10, S: "llo"},
			},
			expected: "Hello",
		},
		{
			name: "jitter within threshold",
			runs: []Run{
				{X: 10, Y: 700, W: 10, FontSize: 10, S: "x"},
				{X: 20, Y: 703, W: 10, FontSize: 10, S: "y"},
			},
			expected: "xy",
		},
		{
			name: "new line",
			runs: []Run{
				{X: 10, Y: 700, W: 10, FontSize: 10, S: "first"},
				{X: 10, Y: 686, W: 10, FontSize: 10, S: "second"},
				{X: 10, Y: 672, W: 10, FontSize: 10, S: "third"},
			},
			expected: "first\nsecond\nthird",
		},
		{
			name: "word gap",
			runs: []Run{
				{X: 10, Y: 700, W: 20, FontSize: 10, S: "word"},
				{X: 40, Y: 700, W: 20, FontSize: 10, S: "next"},
				{X: 60, Y: 700, W: 5, FontSize: 10, S: " "},
				{X: 70, Y: 700, W: 20, FontSize: 10, S: "last"},
			},
			expected: "word next last",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ReconstructLines(c.runs, LineThreshold); got != c.expected {
				t.Errorf("got %q, expected %q", got, c.expected)
			}
		})
	}
}

func TestDocument(t *testing.T) {
	pages := make([]string, 8)
	for i := range pages {
		pages[i] = fmt.Sprintf("Page %d heading\nBody of page %d", i+1, i+1)
	}
	data := pdftest.Build(pdftest.Options{
		Title:  "Fixture Manual",
		Author: "Test Author",
		Pages:  pages,
		Outline: []pdftest.Outline{
			{Title: "Intro", Page: 1},
			{Title: "Middle", Page: 4, Children: []pdftest.Outline{
				{Title: "Named", Page: 6, Named: true},
				{Title: "Broken", Page: 0},
			}},
			{Title: "End", Page: 8},
		},
	})

	doc, err := Open(data, "fixture.pdf")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("metadata", func(t *testing.T) {
		if doc.Title != "Fixture Manual" || doc.Author != "Test Author" {
			t.Errorf("unexpected metadata: %q by %q", doc.Title, doc.Author)
		}
		if doc.NumPages() != 8 {
			t.Errorf("expected 8 pages, got %d", doc.NumPages())
		}
		if len(doc.Chapters()) != 8 || doc.Chapters()[4].PageNumber != 5 {
			t.Errorf("unexpected chapters: %+v", doc.Chapters())
		}
	})

	t.Run("page text", func(t *testing.T) {
		text, err := doc.PageText(3)
		if err != nil {
			t.Fatal(err)
		}
		if text != "Page 3 heading\nBody of page 3" {
			t.Errorf("unexpected text: %q", text)
		}
		if _, err := doc.PageText(9); err == nil {
			t.Error("expected an error past the last page")
		}
	})

	t.Run("outline", func(t *testing.T) {
		entries := doc.Outline()
		expected := []model.TOCEntry{
			{Title: "Intro", ChapterIndex: 0, Level: 0, PageNumber: 1},
			{Title: "Middle", ChapterIndex: 3, Level: 0, PageNumber: 4},
			{Title: "Named", ChapterIndex: 5, Level: 1, PageNumber: 6},
			{Title: "Broken", ChapterIndex: 0, Level: 1, PageNumber: 1},
			{Title: "End", ChapterIndex: 7, Level: 0, PageNumber: 8},
		}
		if len(entries) != len(expected) {
			t.Fatalf("expected %d entries, got %+v", len(expected), entries)
		}
		for i := range expected {
			if entries[i] != expected[i] {
				t.Errorf("entry %d = %+v, expected %+v", i, entries[i], expected[i])
			}
		}
	})
}

func TestOpenFallbacks(t *testing.T) {
	t.Run("metadata fallback", func(t *testing.T) {
		doc, err := Open(pdftest.Build(pdftest.Options{Pages: []string{"only"}}), "/books/My Report.pdf")
		if err != nil {
			t.Fatal(err)
		}
		if doc.Title != "My Report" || doc.Author != model.UnknownAuthor {
			t.Errorf("unexpected fallback: %q by %q", doc.Title, doc.Author)
		}
		if len(doc.Outline()) != 0 {
			t.Error("expected an empty outline")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := Open([]byte(strings.Repeat("not a pdf ", 20)), "x.pdf"); err == nil {
			t.Error("expected an error")
		}
	})
}
