package tool // import "github.com/Xunop/e-oasis-mcp/internal/api/tool"

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/e-oasis-mcp/internal/library"
	"github.com/Xunop/e-oasis-mcp/internal/log"
	"github.com/Xunop/e-oasis-mcp/internal/rss"
	"github.com/Xunop/e-oasis-mcp/internal/version"
)

const serverName = "e-oasis-mcp"

// Server exposes the library and the feed reader as MCP tools.
type Server struct {
	library *library.Service
	feeds   *rss.Service
	images  *rss.ImageProxy
	session *Session
	server  *mcp.Server
	// libraryPath is scanned when scan_library gets no directory.
	libraryPath string
}

func NewServer(lib *library.Service, feeds *rss.Service, images *rss.ImageProxy, libraryPath string) *Server {
	s := &Server{
		library:     lib,
		feeds:       feeds,
		images:      images,
		session:     &Session{},
		libraryPath: libraryPath,
		server:      mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version.GetCurrentVersion()}, nil),
	}
	s.registerLibraryTools()
	s.registerAnnotationTools()
	s.registerFeedTools()
	addTool(s, "get_current_context", "Show the book and article the conversation is currently about.",
		func(_ context.Context, _ noInput) (any, error) {
			return s.session.Current(), nil
		})
	return s
}

func (s *Server) MCP() *mcp.Server {
	return s.server
}

func (s *Server) Session() *Session {
	return s.session
}

// Run serves over stdin and stdout until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	log.Info("Serving MCP over stdio", zap.String("version", version.GetCurrentVersion()))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

type noInput struct{}

// addTool registers fn under name. Its value is rendered as JSON text, a
// string is returned as is.
func addTool[In any](s *Server, name, description string, fn func(ctx context.Context, in In) (any, error)) {
	mcp.AddTool(s.server, &mcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
			out, err := fn(ctx, in)
			if err != nil {
				return errorResult(name, err), nil, nil
			}
			return valueResult(out), nil, nil
		})
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func valueResult(v any) *mcp.CallToolResult {
	if text, ok := v.(string); ok {
		return textResult(text)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encode", err)
	}
	return textResult(string(data))
}

// errorResult turns a missing book, chapter, feed or article into guidance
// the assistant can act on. Every other failure is reported as a tool error.
func errorResult(name string, err error) *mcp.CallToolResult {
	var (
		libNotFound  *library.NotFoundError
		feedNotFound *rss.NotFoundError
		fetchErr     *rss.FetchError
	)
	switch {
	case errors.As(err, &libNotFound), errors.As(err, &feedNotFound):
		return textResult(err.Error())
	case errors.As(err, &fetchErr):
		log.Warn("Upstream fetch failed", zap.String("tool", name), zap.Error(err))
		res := textResult(fmt.Sprintf("Upstream error: %s", fetchErr.Error()))
		res.IsError = true
		return res
	}
	log.Error("Tool failed", zap.String("tool", name), zap.Error(err))
	res := textResult(fmt.Sprintf("Error: %s", err.Error()))
	res.IsError = true
	return res
}

var errNoBook = &library.NotFoundError{
	Kind: "current book",
	Hint: "Call load_book first or pass the book explicitly.",
}

// bookQuery falls back to the current book when query is empty.
func (s *Server) bookQuery(query string) (string, error) {
	if q := strings.TrimSpace(query); q != "" {
		return q, nil
	}
	if id := s.session.Book(); id != "" {
		return id, nil
	}
	return "", errNoBook
}
