// Package mcp exposes the publication pipeline as Model Context Protocol
// tools over stdio or streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/upb/publication-rag/models"
	"github.com/upb/publication-rag/services/publication"
	"go.uber.org/zap"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingService is returned when no publication service is provided.
var ErrMissingService = errors.New("mcp: publication service is required")

// PublicationService is the subset of the pipeline the tools call
type PublicationService interface {
	Ingest(ctx context.Context, fields models.PublicationFields) (models.PublicationRef, error)
	Answer(ctx context.Context, query string, topK int) (*publication.AnswerResult, error)
}

// Server is the MCP server for the publication catalog.
type Server struct {
	service PublicationService
	maxTopK int
	logger  *zap.Logger
	server  *mcp.Server
}

// NewServer creates a new MCP server with both tools registered.
func NewServer(service PublicationService, maxTopK int, logger *zap.Logger) (*Server, error) {
	if service == nil {
		return nil, ErrMissingService
	}

	impl := &mcp.Implementation{
		Name:    "publication-rag",
		Version: Version,
	}

	s := &Server{
		service: service,
		maxTopK: maxTopK,
		logger:  logger,
		server:  mcp.NewServer(impl, nil),
	}

	s.registerTools()

	return s, nil
}

// Run serves the given transport until the context is cancelled or the
// transport fails.
func (s *Server) Run(ctx context.Context, transport string, addr string) error {
	switch transport {
	case "stdio", "":
		return s.RunStdio(ctx)
	case "http":
		return s.RunHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown MCP transport %q", transport)
	}
}

// RunStdio starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler backed by this server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("MCP server shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("serving MCP over HTTP", zap.String("addr", addr))
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
