package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	epub2 "github.com/go-shiori/go-epub"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/rss"
	"github.com/Xunop/e-oasis-mcp/internal/storage"
	"github.com/Xunop/e-oasis-mcp/internal/store"
	"github.com/Xunop/e-oasis-mcp/internal/store/db"
)

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Tide Tables</title><link>https://tides.example.com/</link>
<item><guid>t-1</guid><title>Spring tide</title><description>&lt;p&gt;Highest of the month&lt;/p&gt;</description></item>
</channel></rss>`

type testClient struct {
	t       *testing.T
	session *mcp.ClientSession
	dir     string
	feedURL string
	downURL string
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	ctx := context.Background()
	data := t.TempDir()
	d, err := db.NewDB(filepath.Join(data, "tool.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	st := store.NewStore(d.DB)
	lib := library.NewService(st,
		storage.NewLocalStorage(filepath.Join(data, "library.json")),
		storage.NewLocalStorage(filepath.Join(data, "session.json")),
		library.DefaultConfig())
	feeds := rss.NewService(st, rss.NewHTTPFetcher(5*time.Second, time.Minute, 8), 0)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.xml" {
			fmt.Fprint(w, testFeed)
			return
		}
		http.Error(w, "maintenance", http.StatusBadGateway)
	}))
	t.Cleanup(upstream.Close)

	books := t.TempDir()
	server := NewServer(lib, feeds, rss.NewImageProxy(5*time.Second, 1<<20), books)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	if _, err := server.MCP().Connect(ctx, serverTransport, nil); err != nil {
		t.Fatal(err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cs.Close() })
	return &testClient{t: t, session: cs, dir: books, feedURL: upstream.URL + "/feed.xml", downURL: upstream.URL + "/down.xml"}
}

// call returns the text of the result and whether it was an error.
func (c *testClient) call(name string, args map[string]any) (string, bool) {
	c.t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		c.t.Fatalf("%s: %v", name, err)
	}
	var texts []string
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, text.Text)
		}
	}
	return strings.Join(texts, "\n"), res.IsError
}

func (c *testClient) callJSON(name string, args map[string]any, v any) {
	c.t.Helper()
	text, isErr := c.call(name, args)
	if isErr {
		c.t.Fatalf("%s failed: %s", name, text)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		c.t.Fatalf("%s returned %q: %v", name, text, err)
	}
}

func writeEpub(t *testing.T, path, title, author string, sections ...string) {
	t.Helper()
	e, err := epub2.NewEpub(title)
	if err != nil {
		t.Fatal(err)
	}
	e.SetAuthor(author)
	for i, body := range sections {
		if _, err := e.AddSection(body, fmt.Sprintf("Section %d", i+1), "", ""); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := e.Write(path); err != nil {
		t.Fatal(err)
	}
}

func TestToolList(t *testing.T) {
	c := newTestClient(t)
	res, err := c.session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{
		"scan_library", "list_library", "load_book", "get_table_of_contents", "read_chapter",
		"read_page", "set_reading_position", "index_book", "search_content",
		"add_highlight", "list_highlights", "delete_highlight", "search_highlights",
		"add_note", "list_notes", "delete_note", "search_notes",
		"add_bookmark", "list_bookmarks", "delete_bookmark", "export_annotations",
		"get_semantic_index", "save_semantic_index",
		"rss_subscribe", "rss_unsubscribe", "rss_refresh", "rss_refresh_all", "rss_list_feeds",
		"rss_get_articles", "rss_search_articles", "rss_read_article", "rss_mark_read",
		"rss_mark_all_read", "rss_toggle_saved", "proxy_image", "get_current_context",
	} {
		if !names[name] {
			t.Errorf("tool %s is not registered", name)
		}
	}
}

func TestBookTools(t *testing.T) {
	c := newTestClient(t)
	writeEpub(t, filepath.Join(c.dir, "moby.epub"), "Moby Dick", "Herman Melville",
		"<p>Call me Ishmael.</p>", "<p>The white whale surfaced near the ship.</p>")

	t.Run("guidance before loading", func(t *testing.T) {
		text, isErr := c.call("read_chapter", nil)
		if isErr || !strings.Contains(text, "load_book") {
			t.Errorf("expected guidance, got %q (error %v)", text, isErr)
		}
		text, isErr = c.call("load_book", map[string]any{"book": "no such book"})
		if isErr || !strings.Contains(text, "not found") {
			t.Errorf("expected guidance, got %q (error %v)", text, isErr)
		}
	})

	var scan library.ScanResult
	c.callJSON("scan_library", nil, &scan)
	if scan.Added != 1 {
		t.Fatalf("expected one book, got %+v", scan)
	}

	var loaded loadBookOutput
	c.callJSON("load_book", map[string]any{"book": "moby"}, &loaded)
	if loaded.Book.Title != "Moby Dick" || loaded.ChapterCount != 2 {
		t.Fatalf("unexpected book %+v", loaded)
	}

	var current CurrentContext
	c.callJSON("get_current_context", nil, &current)
	if current.BookID != loaded.Book.ID || current.BookTitle != "Moby Dick" {
		t.Errorf("unexpected context %+v", current)
	}

	t.Run("read and position", func(t *testing.T) {
		var slice library.ChapterSlice
		c.callJSON("set_reading_position", map[string]any{"chapter_index": 1, "scroll_position": 0.5}, &struct{}{})
		c.callJSON("read_chapter", nil, &slice)
		if slice.ChapterIndex != 1 || !strings.Contains(slice.Content, "white whale") {
			t.Errorf("expected the saved chapter, got %+v", slice)
		}
		c.callJSON("read_chapter", map[string]any{"chapter_index": 0}, &slice)
		if !strings.Contains(slice.Content, "Ishmael") {
			t.Errorf("unexpected content %q", slice.Content)
		}
		text, isErr := c.call("read_chapter", map[string]any{"chapter_index": 9})
		if isErr || !strings.Contains(text, "not found") {
			t.Errorf("expected guidance, got %q (error %v)", text, isErr)
		}
	})

	t.Run("search", func(t *testing.T) {
		text, _ := c.call("search_content", map[string]any{"query": "whale"})
		if !strings.Contains(text, "index_book") {
			t.Errorf("expected a hint to index, got %q", text)
		}
		var idx library.IndexResult
		c.callJSON("index_book", nil, &idx)
		if idx.Indexed != 2 {
			t.Errorf("expected 2 indexed chapters, got %+v", idx)
		}
		var hits []map[string]any
		c.callJSON("search_content", map[string]any{"query": "whale"}, &hits)
		if len(hits) != 1 || hits[0]["chapterIndex"] != float64(1) {
			t.Errorf("unexpected hits %+v", hits)
		}
	})

	t.Run("annotations", func(t *testing.T) {
		var h map[string]any
		c.callJSON("add_highlight", map[string]any{"chapter_index": 0, "text": "Call me Ishmael", "color": "blue"}, &h)
		id, _ := h["id"].(string)
		if id == "" {
			t.Fatalf("highlight has no id: %+v", h)
		}
		text, isErr := c.call("add_highlight", map[string]any{"chapter_index": 5, "text": "out of range"})
		if !isErr {
			t.Errorf("expected a validation error, got %q", text)
		}
		c.callJSON("add_note", map[string]any{"chapter_index": 1, "text": "Foreshadowing", "quote": "white whale"}, &map[string]any{})
		c.callJSON("add_bookmark", map[string]any{"chapter_index": 1}, &map[string]any{})

		var list []map[string]any
		c.callJSON("search_highlights", map[string]any{"query": "ishmael"}, &list)
		if len(list) != 1 {
			t.Errorf("expected one highlight, got %d", len(list))
		}
		c.callJSON("search_notes", map[string]any{"query": "WHITE"}, &list)
		if len(list) != 1 {
			t.Errorf("quotes should be searched, got %d notes", len(list))
		}

		markdown, isErr := c.call("export_annotations", nil)
		if isErr || !strings.HasPrefix(markdown, "# Moby Dick") || !strings.Contains(markdown, "> Call me Ishmael") {
			t.Errorf("unexpected export %q", markdown)
		}

		c.callJSON("delete_highlight", map[string]any{"id": id}, &map[string]any{})
		text, isErr = c.call("delete_highlight", map[string]any{"id": id})
		if isErr || !strings.Contains(text, "not found") {
			t.Errorf("expected guidance, got %q (error %v)", text, isErr)
		}
	})

	t.Run("semantic index", func(t *testing.T) {
		text, _ := c.call("get_semantic_index", nil)
		if !strings.Contains(text, "save_semantic_index") {
			t.Errorf("expected a hint, got %q", text)
		}
		c.callJSON("save_semantic_index", map[string]any{"index_data": map[string]any{"themes": []string{"obsession"}}}, &map[string]any{})
		var idx struct {
			IndexData map[string][]string `json:"indexData"`
		}
		c.callJSON("get_semantic_index", nil, &idx)
		if len(idx.IndexData["themes"]) != 1 {
			t.Errorf("unexpected index %+v", idx)
		}
	})
}

func TestFeedTools(t *testing.T) {
	c := newTestClient(t)

	text, isErr := c.call("rss_read_article", nil)
	if isErr || !strings.Contains(text, "rss_read_article") {
		t.Errorf("expected guidance, got %q (error %v)", text, isErr)
	}

	text, isErr = c.call("rss_subscribe", map[string]any{"url": c.downURL})
	if !isErr || !strings.Contains(text, "502 Bad Gateway") {
		t.Errorf("expected an upstream error, got %q (error %v)", text, isErr)
	}

	var sub rss.RefreshResult
	c.callJSON("rss_subscribe", map[string]any{"url": c.feedURL}, &sub)
	if sub.Added != 1 || sub.Feed.Title != "Tide Tables" {
		t.Fatalf("unexpected subscription %+v", sub)
	}

	var articles []map[string]any
	c.callJSON("rss_get_articles", map[string]any{"unread_only": true}, &articles)
	if len(articles) != 1 {
		t.Fatalf("expected one unread article, got %d", len(articles))
	}
	id := articles[0]["id"].(float64)

	var view map[string]any
	c.callJSON("rss_read_article", map[string]any{"article_id": id}, &view)
	if view["markdown"] != "Highest of the month" {
		t.Errorf("unexpected markdown %v", view["markdown"])
	}

	var saved toggleSavedOutput
	c.callJSON("rss_toggle_saved", nil, &saved)
	if !saved.Saved || saved.ArticleID != int64(id) {
		t.Errorf("the current article should be saved, got %+v", saved)
	}
	c.call("rss_mark_read", map[string]any{"read": false})
	c.callJSON("rss_get_articles", map[string]any{"unread_only": true}, &articles)
	if len(articles) != 1 {
		t.Errorf("expected the article unread again, got %d", len(articles))
	}

	var marked markAllReadOutput
	c.callJSON("rss_mark_all_read", nil, &marked)
	if marked.Marked != 1 {
		t.Errorf("expected one article marked, got %d", marked.Marked)
	}

	text, isErr = c.call("rss_unsubscribe", map[string]any{"feed_id": 999})
	if isErr || !strings.Contains(text, "rss_list_feeds") {
		t.Errorf("expected guidance, got %q (error %v)", text, isErr)
	}
}
