// ABOUTME: MCP resource definitions
// ABOUTME: Provides a read-only view of the most recent location reports

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const recentResourceURI = "tagtrack://recent"

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        recentResourceURI,
		Description: "The 50 most recent location reports across all devices, newest first",
		URI:         recentResourceURI,
		MIMEType:    "application/json",
	}, s.handleRecentResource)
}

func (s *Server) handleRecentResource(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	records, err := s.service.RecentLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent locations: %w", err)
	}

	output := toLocationsOutput("", records, s.display)
	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      recentResourceURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		},
	}, nil
}
