package v1 // import "github.com/Xunop/e-oasis-mcp/internal/api/v1"

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/rss"
)

type Handler struct {
	library *library.Service
	images  *rss.ImageProxy
}

// NewHandler is a constructor for the v1.Handler
func NewHandler(lib *library.Service, images *rss.ImageProxy) *Handler {
	return &Handler{library: lib, images: images}
}

func Server(router *mux.Router, handler *Handler) {
	sr := router.PathPrefix("/api/v1").Subrouter()
	sr.Use(HandleCORS)
	sr.Use(LoggingRequest)
	sr.Methods(http.MethodOptions)

	sr.HandleFunc("/books", handler.listBooks).Methods(http.MethodGet)
	sr.HandleFunc("/books/{id}", handler.getBook).Methods(http.MethodGet)
	sr.HandleFunc("/books/{id}/cover", handler.getCover).Methods(http.MethodGet)
	sr.HandleFunc("/books/{id}/annotations", handler.exportAnnotations).Methods(http.MethodGet)
	sr.HandleFunc("/proxy/image", handler.proxyImage).Methods(http.MethodGet)
}
