package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/riptide-search/riptide/internal/config"
	"github.com/riptide-search/riptide/internal/engine"
	"github.com/riptide-search/riptide/internal/ingest"
	"github.com/riptide-search/riptide/internal/store"
	"github.com/riptide-search/riptide/internal/tenant"
	"github.com/riptide-search/riptide/pkg/version"
)

// serverName identifies this server in the MCP handshake.
const serverName = "Riptide"

// Tool descriptions shown to AI clients. Written to steer usage: search is
// the workhorse, status is the diagnostic.
const (
	hybridSearchDescription = "Search one tenant's document corpus with hybrid retrieval. " +
		"Vector and keyword sources are queried concurrently and fused into a single ranking. " +
		"The response reports the tier achieved (HYBRID, VECTOR_ONLY, KEYWORD_ONLY, UNAVAILABLE), " +
		"so degraded results still come back as results, never as errors."

	tenantStatusDescription = "Inspect a tenant's index partition: per-store document counts, " +
		"keyword backend, vector metric and dimensions, and whether the keyword, vector, and " +
		"metadata stores agree on the document set. Use this to diagnose missing search results."
)

// SearchEngine is the slice of the hybrid engine the server needs.
// Satisfied by *engine.Engine.
type SearchEngine interface {
	HybridSearch(ctx context.Context, req engine.SearchRequest) (*engine.FusionOutcome, error)
}

// Server is the MCP server for Riptide. It bridges AI clients with the
// hybrid search engine and the tenant partition registry.
type Server struct {
	mcp      *mcp.Server
	engine   SearchEngine
	registry *tenant.Registry
	config   *config.Config
	logger   *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server over the given engine and registry.
func NewServer(eng SearchEngine, registry *tenant.Registry, cfg *config.Config) (*Server, error) {
	if eng == nil {
		return nil, errors.New("search engine is required")
	}
	if registry == nil {
		return nil, errors.New("tenant registry is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:   eng,
		registry: registry,
		config:   cfg,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools
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
	return serverName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: ToolHybridSearch, Description: hybridSearchDescription},
		{Name: ToolTenantStatus, Description: tenantStatusDescription},
	}
}

// CallTool invokes a tool by name with the given arguments. This is the
// transport-independent entry point; the stdio transport goes through the
// typed SDK handlers instead.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolHybridSearch:
		var input HybridSearchInput
		if err := decodeToolArgs(args, &input); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleHybridSearch(ctx, input)
	case ToolTenantStatus:
		var input TenantStatusInput
		if err := decodeToolArgs(args, &input); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleTenantStatus(ctx, input)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolHybridSearch,
		Description: hybridSearchDescription,
	}, s.mcpHybridSearchHandler)
	s.logger.Debug("registered tool", slog.String("name", ToolHybridSearch))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolTenantStatus,
		Description: tenantStatusDescription,
	}, s.mcpTenantStatusHandler)
	s.logger.Debug("registered tool", slog.String("name", ToolTenantStatus))
}

// mcpHybridSearchHandler is the MCP SDK handler for the hybrid_search tool.
func (s *Server) mcpHybridSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input HybridSearchInput) (
	*mcp.CallToolResult,
	HybridSearchOutput,
	error,
) {
	out, err := s.handleHybridSearch(ctx, input)
	if err != nil {
		return nil, HybridSearchOutput{}, err
	}
	return nil, out, nil
}

// mcpTenantStatusHandler is the MCP SDK handler for the tenant_status tool.
func (s *Server) mcpTenantStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, input TenantStatusInput) (
	*mcp.CallToolResult,
	*TenantStatusOutput,
	error,
) {
	out, err := s.handleTenantStatus(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// handleHybridSearch runs one search through the engine. Degraded outcomes
// are successful responses; only invalid requests and engine rejections
// become errors.
func (s *Server) handleHybridSearch(ctx context.Context, input HybridSearchInput) (HybridSearchOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(input.Query) == "" {
		return HybridSearchOutput{}, NewInvalidParamsError("query must not be empty or whitespace only")
	}

	filters, perr := input.filters()
	if perr != nil {
		return HybridSearchOutput{}, perr
	}

	s.logger.Info("hybrid_search started",
		slog.String("request_id", requestID),
		slog.String("tenant_id", input.TenantID),
		slog.Int("top_k", input.TopK))

	// The engine clamps top_k to [1, max] and validates the rest of the
	// request; its validation errors surface as invalid-params.
	outcome, err := s.engine.HybridSearch(ctx, engine.SearchRequest{
		TenantID: input.TenantID,
		Query:    input.Query,
		TopK:     input.TopK,
		Filters:  filters,
	})
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("hybrid_search failed",
			slog.String("request_id", requestID),
			slog.String("tenant_id", input.TenantID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return HybridSearchOutput{}, MapError(err)
	}

	s.logger.Info("hybrid_search completed",
		slog.String("request_id", requestID),
		slog.String("tenant_id", input.TenantID),
		slog.String("tier", string(outcome.Tier)),
		slog.Int("result_count", len(outcome.Results)),
		slog.Duration("duration", duration))

	return toSearchOutput(outcome), nil
}

// handleTenantStatus reports a partition's health: per-store counts, the
// backends in use, and whether the stores agree.
func (s *Server) handleTenantStatus(ctx context.Context, input TenantStatusInput) (*TenantStatusOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	p, err := s.registry.Get(input.TenantID)
	if err != nil {
		s.logger.Error("tenant_status failed",
			slog.String("request_id", requestID),
			slog.String("tenant_id", input.TenantID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	metaCount, err := p.Meta.Count(ctx)
	if err != nil {
		return nil, MapError(fmt.Errorf("count metadata documents: %w", err))
	}

	report, err := ingest.CheckPartition(ctx, p)
	if err != nil {
		return nil, MapError(err)
	}

	// Prefer the dimensions recorded next to the persisted graph; a fresh
	// partition has no sidecar yet, so fall back to the configured embedder.
	dims, err := store.ReadVectorDimensions(p.VectorPath())
	if err != nil || dims == 0 {
		dims = s.config.Embeddings.Dimensions
	}

	backend := string(store.DetectKeywordBackend(filepath.Join(p.Dir(), "keyword")))
	if backend == "" {
		backend = s.config.Search.KeywordBackend
	}

	out := &TenantStatusOutput{
		TenantID: p.TenantID(),
		Documents: DocumentCounts{
			Metadata: metaCount,
			Keyword:  p.Keyword.Stats().DocumentCount,
			Vector:   p.Vector.Count(),
		},
		KeywordBackend:   backend,
		VectorMetric:     p.Vector.Metric(),
		VectorDimensions: dims,
		Consistent:       report.Consistent(),
		MissingKeyword:   len(report.MissingKeyword),
		MissingVector:    len(report.MissingVector),
		OrphanKeyword:    len(report.OrphanKeyword),
		OrphanVector:     len(report.OrphanVector),
	}

	s.logger.Info("tenant_status completed",
		slog.String("request_id", requestID),
		slog.String("tenant_id", input.TenantID),
		slog.Bool("consistent", out.Consistent),
		slog.Duration("duration", time.Since(start)))

	return out, nil
}

// Serve starts the server on the given transport and blocks until the
// context is canceled. Only stdio is supported; stdout carries nothing but
// JSON-RPC, so all logging goes to the configured file or stderr.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server",
		slog.String("transport", transport),
		slog.String("version", version.Version))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources. The MCP server itself stops when its
// context is canceled; partition and engine lifecycles belong to the caller.
func (s *Server) Close() error {
	return nil
}

// decodeToolArgs converts loosely typed JSON-RPC arguments into a tool's
// input struct.
func decodeToolArgs(args map[string]any, v any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
