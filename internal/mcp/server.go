// ABOUTME: MCP server initialization and configuration
// ABOUTME: Exposes the location façade to AI agents over stdio

package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harper/tagtrack/internal/locations"
)

// Server wraps an MCP server around the location service.
type Server struct {
	mcp     *mcp.Server
	service *locations.Service
	display *time.Location
}

// NewServer creates an MCP server with all tools and resources registered.
// display is the zone used for human-readable text (UTC when nil).
func NewServer(service *locations.Service, display *time.Location) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("location service is required")
	}
	if display == nil {
		display = time.UTC
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "tagtrack",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		service: service,
		display: display,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
