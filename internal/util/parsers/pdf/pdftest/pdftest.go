// Package pdftest assembles small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Outline is one bookmark. Page is 1-based; zero produces a destination
// that resolves nowhere.
type Outline struct {
	Title    string
	Page     int
	Named    bool
	Children []Outline
}

type Options struct {
	Title  string
	Author string
	// Pages holds the text of each page; lines are split on "\n".
	Pages   []string
	Outline []Outline
}

type builder struct {
	objs  []string
	names []string
}

func (b *builder) reserve() int {
	b.objs = append(b.objs, "")
	return len(b.objs)
}

func (b *builder) set(id int, body string) {
	b.objs[id-1] = body
}

// Build returns the bytes of a PDF described by opts.
func Build(opts Options) []byte {
	b := &builder{}
	catalog := b.reserve()
	pagesID := b.reserve()
	font := b.reserve()
	b.set(font, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	pageIDs := make([]int, len(opts.Pages))
	kids := make([]string, len(opts.Pages))
	for i, text := range opts.Pages {
		page := b.reserve()
		content := b.reserve()
		stream := contentStream(text)
		b.set(content, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		b.set(page, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesID, font, content))
		pageIDs[i] = page
		kids[i] = fmt.Sprintf("%d 0 R", page)
	}
	b.set(pagesID, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(opts.Pages)))

	catalogBody := fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R", pagesID)
	if len(opts.Outline) > 0 {
		root := b.reserve()
		first, last := b.items(opts.Outline, root, pageIDs)
		b.set(root, fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>", first, last, len(opts.Outline)))
		catalogBody += fmt.Sprintf(" /Outlines %d 0 R", root)
	}
	if len(b.names) > 0 {
		catalogBody += " /Names << /Dests << /Names [" + strings.Join(b.names, " ") + "] >> >>"
	}
	b.set(catalog, catalogBody+" >>")

	info := b.reserve()
	var infoBody []string
	if opts.Title != "" {
		infoBody = append(infoBody, "/Title "+literal(opts.Title))
	}
	if opts.Author != "" {
		infoBody = append(infoBody, "/Author "+literal(opts.Author))
	}
	b.set(info, "<< "+strings.Join(infoBody, " ")+" >>")

	return b.serialize(catalog, info)
}

func (b *builder) items(items []Outline, parent int, pageIDs []int) (first, last int) {
	ids := make([]int, len(items))
	for i := range items {
		ids[i] = b.reserve()
	}
	for i, it := range items {
		body := fmt.Sprintf("<< /Title %s /Parent %d 0 R", literal(it.Title), parent)
		switch {
		case it.Page < 1 || it.Page > len(pageIDs):
			body += " /Dest (nowhere)"
		case it.Named:
			name := fmt.Sprintf("dest%d", len(b.names))
			b.names = append(b.names, fmt.Sprintf("(%s) [%d 0 R /Fit]", name, pageIDs[it.Page-1]))
			body += fmt.Sprintf(" /Dest (%s)", name)
		default:
			body += fmt.Sprintf(" /Dest [%d 0 R /Fit]", pageIDs[it.Page-1])
		}
		if i > 0 {
			body += fmt.Sprintf(" /Prev %d 0 R", ids[i-1])
		}
		if i < len(items)-1 {
			body += fmt.Sprintf(" /Next %d 0 R", ids[i+1])
		}
		if len(it.Children) > 0 {
			f, l := b.items(it.Children, ids[i], pageIDs)
			body += fmt.Sprintf(" /First %d 0 R /Last %d 0 R /Count %d", f, l, len(it.Children))
		}
		b.set(ids[i], body+" >>")
	}
	return ids[0], ids[len(ids)-1]
}

func (b *builder) serialize(catalog, info int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(b.objs))
	for i, body := range b.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.objs)+1, catalog, info, xref)
	return buf.Bytes()
}

// contentStream lays lines out top-down, 14 units apart.
func contentStream(text string) string {
	var sb strings.Builder
	sb.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			sb.WriteString(" 0 -14 Td")
		}
		sb.WriteString(" " + literal(line) + " Tj")
	}
	sb.WriteString(" ET")
	return sb.String()
}

func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return "(" + r.Replace(s) + ")"
}
