package epub // import "github.com/Xunop/e-oasis-mcp/internal/util/parsers/epub"

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

const (
	mimetypeEpub = "application/epub+zip"
	mediaTypeNcx = "application/x-dtbncx+xml"
	containerXML = "META-INF/container.xml"
)

// Book is the main struct that holds all the information about the epub file
type Book struct {
	Ncx       Ncx       `json:"ncx"`
	Opf       Opf       `json:"opf"`
	Container Container `json:"container"`
	Mimetype  string    `json:"mimetype"`
	// Nav is the flattened table of contents, from the EPUB3 nav document
	// when it has entries, else from the NCX.
	Nav []NavEntry `json:"nav"`

	files     map[string]*zip.File
	foldNames map[string]*zip.File
}

// FlowItem is one spine document resolved through the manifest.
type FlowItem struct {
	ID        string
	Href      string
	MediaType string
	Title     string
	Linear    bool
}

// Open reads the whole epub file into memory and parses it.
func Open(file string) (*Book, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", file)
	}
	return OpenBytes(data)
}

// OpenBytes parses an in-memory epub. The returned Book holds no file
// descriptors, so dropping it is enough to release it.
func OpenBytes(data []byte) (*Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "epub: not a zip archive")
	}

	b := &Book{
		files:     make(map[string]*zip.File, len(zr.File)),
		foldNames: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		b.files[f.Name] = f
		b.foldNames[strings.ToLower(f.Name)] = f
	}

	// A missing mimetype entry is tolerated, a wrong one is not.
	if m, err := b.readBytes("mimetype"); err == nil {
		b.Mimetype = strings.TrimSpace(string(m))
		if b.Mimetype != mimetypeEpub {
			return nil, errors.Errorf("epub: invalid mimetype: %s", b.Mimetype)
		}
	}

	if err := b.readXML(containerXML, &b.Container); err != nil {
		return nil, errors.Wrap(err, "epub: failed to read container")
	}
	if b.Container.Rootfile.Fullpath == "" {
		return nil, errors.New("epub: container has no rootfile")
	}
	if err := b.readXML(b.Container.Rootfile.Fullpath, &b.Opf); err != nil {
		return nil, errors.Wrap(err, "epub: failed to read package document")
	}

	b.Nav = b.readToc()
	return b, nil
}

func (b *Book) readToc() []NavEntry {
	for _, mf := range b.Opf.Manifest {
		if !hasProperty(mf.Properties, "nav") {
			continue
		}
		name := b.filename(mf.Href)
		data, err := b.readBytes(name)
		if err != nil {
			log.Warn("Failed to read nav document", zap.String("href", name), zap.Error(err))
			break
		}
		entries, err := parseNav(data, path.Dir(name))
		if err != nil {
			log.Warn("Failed to parse nav document", zap.String("href", name), zap.Error(err))
			break
		}
		if len(entries) > 0 {
			return entries
		}
		break
	}

	for _, mf := range b.Opf.Manifest {
		if mf.MediaType != mediaTypeNcx && (b.Opf.Spine.Toc == "" || mf.ID != b.Opf.Spine.Toc) {
			continue
		}
		name := b.filename(mf.Href)
		if err := b.readXML(name, &b.Ncx); err != nil {
			log.Warn("Failed to read ncx", zap.String("href", name), zap.Error(err))
			return nil
		}
		return flattenNcx(b.Ncx.Points, path.Dir(name), 0, nil)
	}
	return nil
}

// Flow returns the spine in reading order. Itemrefs without a manifest
// entry are skipped.
func (b *Book) Flow() []FlowItem {
	byID := make(map[string]Manifest, len(b.Opf.Manifest))
	for _, m := range b.Opf.Manifest {
		byID[m.ID] = m
	}
	flow := make([]FlowItem, 0, len(b.Opf.Spine.Items))
	for _, item := range b.Opf.Spine.Items {
		m, ok := byID[item.IDref]
		if !ok || m.Href == "" {
			continue
		}
		flow = append(flow, FlowItem{
			ID:        m.ID,
			Href:      b.filename(m.Href),
			MediaType: m.MediaType,
			Title:     m.Title,
			Linear:    item.Linear != "no",
		})
	}
	return flow
}

// Files returns a list of all the files in the epub
func (b *Book) Files() []string {
	var files []string
	for name := range b.files {
		files = append(files, name)
	}
	return files
}

// ReadFile returns the content of a file addressed by its archive path.
func (b *Book) ReadFile(name string) ([]byte, error) {
	return b.readBytes(name)
}

// readXML reads the xml file with the given name and unmarshals it into the given interface
func (b *Book) readXML(n string, v interface{}) error {
	rc, err := b.open(n)
	if err != nil {
		return err
	}
	defer rc.Close()
	d := xml.NewDecoder(rc)
	d.CharsetReader = charset.NewReaderLabel
	d.Strict = false
	d.Entity = xml.HTMLEntity
	return d.Decode(v)
}

// readBytes reads the file with the given name and returns its content as a byte slice
func (b *Book) readBytes(n string) ([]byte, error) {
	rc, err := b.open(n)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// filename resolves a manifest href against the package document directory.
func (b *Book) filename(n string) string {
	file, _ := SplitHref(n)
	return path.Join(path.Dir(b.Container.Rootfile.Fullpath), unescape(file))
}

// open opens the file with the given name, falling back to a
// case-insensitive lookup.
func (b *Book) open(n string) (io.ReadCloser, error) {
	n = strings.TrimPrefix(n, "/")
	if f, ok := b.files[n]; ok {
		return f.Open()
	}
	if f, ok := b.foldNames[strings.ToLower(n)]; ok {
		return f.Open()
	}
	return nil, errors.Errorf("file not found: %s", n)
}

func (b *Book) GetTitle() string {
	for _, title := range b.Opf.Metadata.Title {
		if t := util.StripControl(title); t != "" {
			return t
		}
	}
	return ""
}

func (b *Book) GetAuthor() string {
	for _, author := range b.Opf.Metadata.Creator {
		if author.Role == "aut" || author.Role == "" {
			if a := util.StripControl(author.Data); a != "" {
				return a
			}
		}
	}
	if len(b.Opf.Metadata.Creator) > 0 {
		return util.StripControl(b.Opf.Metadata.Creator[0].Data)
	}
	return ""
}

func (b *Book) GetLanguage() string {
	if b.Opf.Metadata.Language != nil {
		return strings.TrimSpace(b.Opf.Metadata.Language[0])
	}
	return ""
}

// GetDescription returns the description as plain text; generators often
// store escaped markup there.
func (b *Book) GetDescription() string {
	if b.Opf.Metadata.Description != nil {
		return util.HTMLToText(b.Opf.Metadata.Description[0])
	}
	return ""
}

func (b *Book) GetPublisher() string {
	if b.Opf.Metadata.Publisher != nil {
		return util.StripControl(b.Opf.Metadata.Publisher[0])
	}
	return ""
}

func (b *Book) GetISBN() string {
	for _, identifier := range b.Opf.Metadata.Identifier {
		data := strings.TrimSpace(identifier.Data)
		if strings.EqualFold(identifier.Scheme, "ISBN") {
			return data
		}
		if strings.HasPrefix(strings.ToLower(data), "urn:isbn:") {
			return data[len("urn:isbn:"):]
		}
	}
	return ""
}

func (b *Book) GetDate() string {
	if b.Opf.Metadata.Date != nil {
		return strings.TrimSpace(b.Opf.Metadata.Date[0].Data)
	}
	return ""
}

func hasProperty(properties, name string) bool {
	for _, p := range strings.Fields(properties) {
		if p == name {
			return true
		}
	}
	return false
}
