package util

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

const webpQuality = 75

var ErrNotImage = errors.New("content is not an image")

// DataURI builds an embeddable data: URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data: URI built by DataURI.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data uri")
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, errors.New("data uri is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrap(err, "invalid data uri payload")
	}
	return mime, data, nil
}

// DetectImage sniffs data and returns its MIME type, failing unless it is an image.
func DetectImage(data []byte) (string, error) {
	mime, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	if !strings.HasPrefix(mime, "image/") {
		return mime, errors.Wrapf(ErrNotImage, "detected %s", mime)
	}
	return mime, nil
}

// ImageDataURI validates data as an image and encodes it as a data URI.
// Images larger than webpThreshold bytes are re-encoded to WebP when that
// makes them smaller; a threshold of zero disables re-encoding.
func ImageDataURI(data []byte, webpThreshold int) (string, error) {
	mime, err := DetectImage(data)
	if err != nil {
		return "", err
	}
	if webpThreshold > 0 && len(data) > webpThreshold && mime != "image/webp" {
		if encoded, ok := reencodeWebp(data); ok {
			return DataURI("image/webp", encoded), nil
		}
	}
	return DataURI(mime, data), nil
}

func reencodeWebp(data []byte) ([]byte, bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
		return nil, false
	}
	if buf.Len() >= len(data) {
		return nil, false
	}
	return buf.Bytes(), true
}
