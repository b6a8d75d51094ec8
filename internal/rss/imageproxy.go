package rss

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/util"
	"github.com/Xunop/e-oasis-mcp/internal/validator"
)

var ErrImageTooLarge = errors.New("image exceeds the size limit")

// ImageProxy downloads remote images referenced by articles and hands them
// back inline.
type ImageProxy struct {
	client  *http.Client
	maxSize int64
}

func NewImageProxy(timeout time.Duration, maxSize int64) *ImageProxy {
	return &ImageProxy{client: &http.Client{Timeout: timeout}, maxSize: maxSize}
}

type ProxiedImage struct {
	URL     string `json:"url"`
	Mime    string `json:"mime"`
	Size    int    `json:"size"`
	DataURI string `json:"dataUri"`
}

// Fetch downloads url and returns it as a data URI. The body must sniff as an
// image whatever Content-Type the server claims.
func (p *ImageProxy) Fetch(ctx context.Context, url string) (*ProxiedImage, error) {
	if err := validator.ValidateFeedURL(url); err != nil {
		return nil, errors.Wrap(err, "invalid image url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	if p.maxSize > 0 && resp.ContentLength > p.maxSize {
		return nil, ErrImageTooLarge
	}

	reader := io.Reader(resp.Body)
	if p.maxSize > 0 {
		reader = io.LimitReader(resp.Body, p.maxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if p.maxSize > 0 && int64(len(data)) > p.maxSize {
		return nil, ErrImageTooLarge
	}

	mime, err := util.DetectImage(data)
	if err != nil {
		log.Debug("Proxy target is not an image", zap.String("url", url), zap.String("mime", mime))
		return nil, err
	}
	return &ProxiedImage{URL: url, Mime: mime, Size: len(data), DataURI: util.DataURI(mime, data)}, nil
}
