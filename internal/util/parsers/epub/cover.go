package epub

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/util"
)

var (
	ErrNoCover = errors.New("epub: no cover image")

	conventionalCoverIDs = []string{"cover", "cover-image", "coverimage", "Cover"}
)

// CoverItem locates the cover image in the manifest. Lookup order: the
// metadata cover reference, conventional ids, the EPUB3 cover-image
// property, then any image whose id or href mentions "cover".
func (b *Book) CoverItem() (Manifest, bool) {
	for _, meta := range b.Opf.Metadata.Meta {
		if meta.Name != "cover" || meta.Content == "" {
			continue
		}
		for _, m := range b.Opf.Manifest {
			if m.ID == meta.Content && isImage(m) {
				return m, true
			}
		}
		// Some generators put the href in place of the id
		for _, m := range b.Opf.Manifest {
			if NormalizeHref(m.Href) == NormalizeHref(meta.Content) && isImage(m) {
				return m, true
			}
		}
	}

	for _, id := range conventionalCoverIDs {
		for _, m := range b.Opf.Manifest {
			if m.ID == id && isImage(m) {
				return m, true
			}
		}
	}

	for _, m := range b.Opf.Manifest {
		if hasProperty(m.Properties, "cover-image") && isImage(m) {
			return m, true
		}
	}

	for _, m := range b.Opf.Manifest {
		if !isImage(m) {
			continue
		}
		if strings.Contains(strings.ToLower(m.ID), "cover") || strings.Contains(strings.ToLower(m.Href), "cover") {
			return m, true
		}
	}
	return Manifest{}, false
}

// Cover returns the cover as a data URI. Images above webpThreshold bytes are
// re-encoded to WebP.
func (b *Book) Cover(webpThreshold int) (string, error) {
	m, ok := b.CoverItem()
	if !ok {
		return "", ErrNoCover
	}
	data, err := b.readBytes(b.filename(m.Href))
	if err != nil {
		return "", errors.Wrap(err, "failed to read cover")
	}
	uri, err := util.ImageDataURI(data, webpThreshold)
	if err != nil {
		return "", errors.Wrapf(err, "invalid cover %s", m.Href)
	}
	return uri, nil
}

func isImage(m Manifest) bool {
	return strings.HasPrefix(m.MediaType, "image/")
}
