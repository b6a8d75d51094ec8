package v1

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/Xunop/e-oasis-mcp/internal/http/request"
	"github.com/Xunop/e-oasis-mcp/internal/http/response"
	"github.com/Xunop/e-oasis-mcp/internal/rss"
	"github.com/Xunop/e-oasis-mcp/internal/util"
)

// proxyImage serves a remote article image from this origin.
func (h *Handler) proxyImage(w http.ResponseWriter, r *http.Request) {
	url := request.QueryStringParam(r, "url", "")
	if url == "" {
		response.BadRequest(w, r, errors.New("missing url parameter"))
		return
	}
	img, err := h.images.Fetch(r.Context(), url)
	var fetchErr *rss.FetchError
	switch {
	case errors.As(err, &fetchErr):
		response.BadGateway(w, r, err)
		return
	case err != nil:
		// not an image, too large or an invalid url
		response.BadRequest(w, r, err)
		return
	}
	_, data, err := util.ParseDataURI(img.DataURI)
	if err != nil {
		response.ServerError(w, r, err)
		return
	}
	response.Blob(w, r, img.Mime, data)
}
