package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Xunop/e-oasis-mcp/internal/http/request"
	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/rss"
	"github.com/Xunop/e-oasis-mcp/internal/storage"
	"github.com/Xunop/e-oasis-mcp/internal/store"
	"github.com/Xunop/e-oasis-mcp/internal/store/db"
	"github.com/Xunop/e-oasis-mcp/internal/version"
)

func TestHandler(t *testing.T) {
	data := t.TempDir()
	d, err := db.NewDB(filepath.Join(data, "server.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := store.NewStore(d.DB)
	lib := library.NewService(s,
		storage.NewLocalStorage(filepath.Join(data, "library.json")),
		storage.NewLocalStorage(filepath.Join(data, "session.json")),
		library.DefaultConfig())
	handler := setupHandler(s, lib, rss.NewImageProxy(time.Second, 1024))

	tests := map[string]struct {
		status int
		body   string
	}{
		"/healthcheck":   {http.StatusOK, "OK"},
		"/version":       {http.StatusOK, version.GetCurrentVersion()},
		"/api/v1/books":  {http.StatusOK, "[]"},
		"/does/not/live": {http.StatusNotFound, ""},
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != want.status {
				t.Errorf("expected %d, got %d", want.status, w.Code)
			}
			if want.body != "" && w.Body.String() != want.body {
				t.Errorf("expected %q, got %q", want.body, w.Body.String())
			}
		})
	}
}

func TestMiddlewareStoresClientIP(t *testing.T) {
	var seen string
	h := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.ClientIP(r)
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "203.0.113.9" {
		t.Errorf("unexpected client ip %q", seen)
	}
}
