package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/result"
	"github.com/xkfz007/shardsearch/internal/searcher"
	"github.com/xkfz007/shardsearch/internal/shard"
	"github.com/xkfz007/shardsearch/pkg/version"
)

// Search limits for the search tool.
const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Searcher is the part of *searcher.Searcher the tools call.
type Searcher interface {
	Search(ctx context.Context, text string) ([]*result.Document, error)
	PagedSearch(ctx context.Context, wq searcher.WebQuery) (*result.Page, error)
	List(ctx context.Context, uids []string) ([]*result.Document, error)
	Corrupted() []searcher.CorruptedShard
	Stats() searcher.Stats
}

// ShardLister lists registered shards.
type ShardLister interface {
	Shards(ctx context.Context) ([]*shard.Shard, error)
}

// Server bridges MCP clients with the searcher.
type Server struct {
	mcp      *mcp.Server
	searcher Searcher
	shards   ShardLister
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Full-text search over every indexed folder. Supports AND/OR/NOT, quoted phrases, wildcards (report*), fuzzy terms (colour~), ranges (size:[1000 TO 5000]) and fields (title:, filename:, type:, author:).",
	},
	{
		Name:        "paged_search",
		Description: "Full-text search returning one page of results, with optional size, type and folder filters. Use page_count from the response to walk further pages.",
	},
	{
		Name:        "lookup",
		Description: "Fetch documents by UID (as returned by search), ordered by title.",
	},
	{
		Name:        "shards",
		Description: "List the indexed folders, which of them failed to open, and document counts.",
	},
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP server. shards may be nil, in which case the
// shards tool reports only the searcher's view.
func NewServer(srch Searcher, shards ShardLister, opts ...Option) (*Server, error) {
	if srch == nil {
		return nil, errors.New("searcher is required")
	}
	s := &Server{
		searcher: srch,
		shards:   shards,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return version.Name, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name and returns its markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		var in SearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := s.search(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatSearch(out), nil
	case "paged_search":
		var in PagedSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := s.pagedSearch(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatPage(out), nil
	case "lookup":
		var in LookupInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := s.lookup(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatLookup(out), nil
	case "shards":
		out, err := s.listShards(ctx)
		if err != nil {
			return nil, err
		}
		return FormatShards(out), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// Serve runs the server on transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpPagedSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpLookupHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description}, s.mcpShardsHandler)
	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	out, err := s.search(ctx, in)
	return nil, out, err
}

func (s *Server) mcpPagedSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in PagedSearchInput) (*mcp.CallToolResult, PageOutput, error) {
	out, err := s.pagedSearch(ctx, in)
	return nil, out, err
}

func (s *Server) mcpLookupHandler(ctx context.Context, _ *mcp.CallToolRequest, in LookupInput) (*mcp.CallToolResult, LookupOutput, error) {
	out, err := s.lookup(ctx, in)
	return nil, out, err
}

func (s *Server) mcpShardsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ShardsInput) (*mcp.CallToolResult, ShardsOutput, error) {
	out, err := s.listShards(ctx)
	return nil, out, err
}

func (s *Server) search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	limit := clampLimit(in.Limit, DefaultLimit, 1, MaxLimit)

	done := s.track("search", slog.String("query", in.Query), slog.Int("limit", limit))
	docs, err := s.searcher.Search(ctx, in.Query)
	if err != nil {
		return SearchOutput{}, done(err, 0)
	}
	done(nil, len(docs))

	out := SearchOutput{Query: in.Query, Total: len(docs)}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	out.Documents = toDocumentOutputs(docs)
	return out, nil
}

func (s *Server) pagedSearch(ctx context.Context, in PagedSearchInput) (PageOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return PageOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	if in.PageIndex < 0 {
		return PageOutput{}, NewInvalidParamsError("page_index must not be negative")
	}
	if in.PageSize < 0 || in.PageSize > MaxLimit {
		return PageOutput{}, NewInvalidParamsError(fmt.Sprintf("page_size must be between 1 and %d", MaxLimit))
	}

	wq := searcher.WebQuery{
		Text:      in.Query,
		PageIndex: in.PageIndex,
		PageSize:  in.PageSize,
		UseOr:     in.UseOr,
		Filter: query.FilterSpec{
			MinSize: in.MinSize,
			MaxSize: in.MaxSize,
			Types:   in.Types,
			Scope:   in.Scope,
		},
	}

	done := s.track("paged_search", slog.String("query", in.Query), slog.Int("page_index", in.PageIndex))
	page, err := s.searcher.PagedSearch(ctx, wq)
	if err != nil {
		return PageOutput{}, done(err, 0)
	}
	done(nil, len(page.Documents))

	return PageOutput{
		Query:     in.Query,
		PageIndex: page.PageIndex,
		PageCount: page.PageCount,
		HitCount:  page.HitCount,
		Documents: toDocumentOutputs(page.Documents),
	}, nil
}

func (s *Server) lookup(ctx context.Context, in LookupInput) (LookupOutput, error) {
	if len(in.UIDs) == 0 {
		return LookupOutput{}, NewInvalidParamsError("uids must list at least one document UID")
	}
	done := s.track("lookup", slog.Int("uids", len(in.UIDs)))
	docs, err := s.searcher.List(ctx, in.UIDs)
	if err != nil {
		return LookupOutput{}, done(err, 0)
	}
	done(nil, len(docs))
	return LookupOutput{Documents: toDocumentOutputs(docs)}, nil
}

func (s *Server) listShards(ctx context.Context) (ShardsOutput, error) {
	corrupted := make(map[string]error)
	for _, c := range s.searcher.Corrupted() {
		corrupted[c.Shard.ID] = c.Err
	}

	var registered []*shard.Shard
	if s.shards != nil {
		var err error
		if registered, err = s.shards.Shards(ctx); err != nil {
			return ShardsOutput{}, MapError(err)
		}
	} else {
		for _, c := range s.searcher.Corrupted() {
			registered = append(registered, c.Shard)
		}
	}

	out := ShardsOutput{
		Shards: make([]ShardOutput, 0, len(registered)),
		Stats:  s.searcher.Stats(),
	}
	for _, sh := range registered {
		so := ShardOutput{
			ID:        sh.ID,
			Name:      sh.Name(),
			RootPath:  sh.RootPath,
			IndexPath: sh.IndexPath,
		}
		if err, ok := corrupted[sh.ID]; ok {
			so.Corrupted = true
			if err != nil {
				so.Error = MapError(err).Message
			}
		}
		out.Shards = append(out.Shards, so)
	}
	return out, nil
}

// track logs the start of a tool call and returns a func that logs its end
// and maps err for the client.
func (s *Server) track(tool string, attrs ...any) func(err error, n int) error {
	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("tool_call_started",
		append([]any{slog.String("request_id", requestID), slog.String("tool", tool)}, attrs...)...)

	return func(err error, n int) error {
		d := time.Since(start)
		if err != nil {
			s.logger.Warn("tool_call_failed",
				slog.String("request_id", requestID),
				slog.String("tool", tool),
				slog.Duration("duration", d),
				slog.String("error", err.Error()))
			return MapError(err)
		}
		s.logger.Info("tool_call_completed",
			slog.String("request_id", requestID),
			slog.String("tool", tool),
			slog.Duration("duration", d),
			slog.Int("result_count", n))
		return nil
	}
}

// decodeArgs converts loosely typed tool arguments into an input struct.
func decodeArgs(args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func clampLimit(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
