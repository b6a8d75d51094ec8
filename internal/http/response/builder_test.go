package response

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestResponseHasCommonHeaders(t *testing.T) {
	r, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		New(w, r).Write()
	})

	handler.ServeHTTP(w, r)
	resp := w.Result()

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}

	for header, expected := range headers {
		actual := resp.Header.Get(header)
		if actual != expected {
			t.Fatalf(`Unexpected header value, got %q instead of %q`, actual, expected)
		}
	}
}

func serve(t *testing.T, acceptEncoding string, body any, opts ...func(*Builder)) *http.Response {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if acceptEncoding != "" {
		r.Header.Set("Accept-Encoding", acceptEncoding)
	}
	w := httptest.NewRecorder()
	b := New(w, r).WithBody(body)
	for _, opt := range opts {
		opt(b)
	}
	b.Write()
	return w.Result()
}

func TestCompression(t *testing.T) {
	large := strings.Repeat("the quick brown fox ", 200)

	t.Run("brotli preferred", func(t *testing.T) {
		resp := serve(t, "gzip, deflate, br", large)
		if resp.Header.Get("Content-Encoding") != "br" {
			t.Fatalf("expected brotli, got %q", resp.Header.Get("Content-Encoding"))
		}
		data, err := io.ReadAll(brotli.NewReader(resp.Body))
		if err != nil || string(data) != large {
			t.Errorf("body did not round trip: %v", err)
		}
	})

	t.Run("gzip", func(t *testing.T) {
		resp := serve(t, "gzip", large)
		if resp.Header.Get("Content-Encoding") != "gzip" || resp.Header.Get("Vary") != "Accept-Encoding" {
			t.Fatalf("unexpected headers %v", resp.Header)
		}
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(zr)
		if string(data) != large {
			t.Error("body did not round trip")
		}
	})

	t.Run("small bodies stay plain", func(t *testing.T) {
		resp := serve(t, "br", "tiny")
		if resp.Header.Get("Content-Encoding") != "" {
			t.Errorf("unexpected encoding %q", resp.Header.Get("Content-Encoding"))
		}
	})

	t.Run("compression disabled", func(t *testing.T) {
		resp := serve(t, "br", []byte(large), func(b *Builder) { b.WithoutCompression() })
		data, _ := io.ReadAll(resp.Body)
		if resp.Header.Get("Content-Encoding") != "" || !bytes.Equal(data, []byte(large)) {
			t.Error("expected the plain body")
		}
	})

	t.Run("error body", func(t *testing.T) {
		resp := serve(t, "", errors.New("boom"))
		data, _ := io.ReadAll(resp.Body)
		if string(data) != "boom" {
			t.Errorf("unexpected body %q", data)
		}
	})
}

func TestJSONResponses(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	w := httptest.NewRecorder()
	OK(w, r, map[string]int{"count": 2})
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/json" || w.Body.String() != `{"count":2}` {
		t.Errorf("unexpected OK response %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	NotFound(w, r, nil)
	if w.Code != http.StatusNotFound || w.Body.String() != `{"error_message":"resource not found"}` {
		t.Errorf("unexpected not found response %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	BadRequest(w, r, errors.New("bad format"))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "bad format") {
		t.Errorf("unexpected bad request response %d %q", w.Code, w.Body.String())
	}
}
