// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Submits, queries, and deletes location reports for AI agents

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harper/tagtrack/internal/locations"
	"github.com/harper/tagtrack/internal/models"
	"github.com/harper/tagtrack/internal/ui"
)

func (s *Server) registerTools() {
	s.registerSubmitLocationTool()
	s.registerRecentLocationsTool()
	s.registerDeviceLocationsTool()
	s.registerLatestLocationTool()
	s.registerLocationsInRangeTool()
	s.registerDeleteLocationTool()
	s.registerLocationStatsTool()
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}
}

// LocationOutput defines output for single-record tools.
type LocationOutput struct {
	ID             int64     `json:"id"`
	DeviceID       string    `json:"device_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Altitude       *float64  `json:"altitude,omitempty"`
	Accuracy       *float64  `json:"accuracy,omitempty"`
	SignalStrength *int      `json:"signal_strength,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
	RecordedAt     time.Time `json:"recorded_at"`
	ObservedLocal  string    `json:"observed_local"`
}

func toOutput(r models.LocationRecord, loc *time.Location) LocationOutput {
	return LocationOutput{
		ID:             r.ID,
		DeviceID:       r.DeviceID,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Altitude:       r.Altitude,
		Accuracy:       r.Accuracy,
		SignalStrength: r.SignalStrength,
		ObservedAt:     r.ObservedAt,
		RecordedAt:     r.RecordedAt,
		ObservedLocal:  ui.FormatTimestamp(r.ObservedAt, loc),
	}
}

// LocationsOutput defines output for list tools.
type LocationsOutput struct {
	DeviceID  string           `json:"device_id,omitempty"`
	Locations []LocationOutput `json:"locations"`
	Count     int              `json:"count"`
}

func toLocationsOutput(deviceID string, records []models.LocationRecord, loc *time.Location) LocationsOutput {
	out := LocationsOutput{
		DeviceID:  deviceID,
		Locations: make([]LocationOutput, len(records)),
		Count:     len(records),
	}
	for i, r := range records {
		out.Locations[i] = toOutput(r, loc)
	}
	return out
}

// SubmitLocationInput defines input for submit_location tool.
type SubmitLocationInput struct {
	DeviceID       string   `json:"device_id"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Altitude       *float64 `json:"altitude,omitempty"`
	Accuracy       *float64 `json:"accuracy,omitempty"`
	SignalStrength *int     `json:"signal_strength,omitempty"`
	ObservedAt     *string  `json:"observed_at,omitempty"`
}

func (s *Server) registerSubmitLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "submit_location",
		Description: "Record a location report for a BLE-tagged device.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"device_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the reporting device (1-100 characters)",
				},
				"latitude": map[string]interface{}{
					"type":        "number",
					"description": "Latitude coordinate (-90 to 90)",
				},
				"longitude": map[string]interface{}{
					"type":        "number",
					"description": "Longitude coordinate (-180 to 180)",
				},
				"altitude": map[string]interface{}{
					"type":        "number",
					"description": "Optional altitude in meters",
				},
				"accuracy": map[string]interface{}{
					"type":        "number",
					"description": "Optional horizontal accuracy in meters",
				},
				"signal_strength": map[string]interface{}{
					"type":        "integer",
					"description": "Optional BLE signal strength (RSSI) in dBm",
				},
				"observed_at": map[string]interface{}{
					"type":        "string",
					"description": "Optional observation time, RFC3339 or zone-less ISO-8601 (UTC). Defaults to now.",
				},
			},
			"required": []string{"device_id", "latitude", "longitude"},
		},
	}, s.handleSubmitLocation)
}

func (s *Server) handleSubmitLocation(ctx context.Context, _ *mcp.CallToolRequest, input SubmitLocationInput) (*mcp.CallToolResult, LocationOutput, error) {
	sub := locations.Submission{
		DeviceID:       input.DeviceID,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Altitude:       input.Altitude,
		Accuracy:       input.Accuracy,
		SignalStrength: input.SignalStrength,
	}
	if input.ObservedAt != nil {
		observed, err := locations.ParseTimestamp(*input.ObservedAt)
		if err != nil {
			return nil, LocationOutput{}, fmt.Errorf("invalid observed_at: %w", err)
		}
		sub.ObservedAt = &observed
	}

	rec, err := s.service.SubmitLocation(ctx, sub)
	if err != nil {
		return nil, LocationOutput{}, err
	}

	output := toOutput(rec, s.display)
	return jsonResult(output), output, nil
}

// RecentLocationsInput is empty but required for type.
type RecentLocationsInput struct{}

func (s *Server) registerRecentLocationsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "recent_locations",
		Description: "List the 50 most recent location reports across all devices, newest first.",
		InputSchema: map[string]interface{}{
			"type": "object",
		},
	}, s.handleRecentLocations)
}

func (s *Server) handleRecentLocations(ctx context.Context, _ *mcp.CallToolRequest, _ RecentLocationsInput) (*mcp.CallToolResult, LocationsOutput, error) {
	records, err := s.service.RecentLocations(ctx)
	if err != nil {
		return nil, LocationsOutput{}, fmt.Errorf("failed to list recent locations: %w", err)
	}
	output := toLocationsOutput("", records, s.display)
	return jsonResult(output), output, nil
}

// DeviceInput defines input for per-device tools.
type DeviceInput struct {
	DeviceID string `json:"device_id"`
}

var deviceInputSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"device_id": map[string]interface{}{
			"type":        "string",
			"description": "Identifier of the device",
		},
	},
	"required": []string{"device_id"},
}

func (s *Server) registerDeviceLocationsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "device_locations",
		Description: "Get every location report for a device, newest first.",
		InputSchema: deviceInputSchema,
	}, s.handleDeviceLocations)
}

func (s *Server) handleDeviceLocations(ctx context.Context, _ *mcp.CallToolRequest, input DeviceInput) (*mcp.CallToolResult, LocationsOutput, error) {
	records, err := s.service.DeviceLocations(ctx, input.DeviceID)
	if err != nil {
		return nil, LocationsOutput{}, fmt.Errorf("failed to get device locations: %w", err)
	}
	output := toLocationsOutput(input.DeviceID, records, s.display)
	return jsonResult(output), output, nil
}

func (s *Server) registerLatestLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "latest_location",
		Description: "Get the most recent location report for a device.",
		InputSchema: deviceInputSchema,
	}, s.handleLatestLocation)
}

func (s *Server) handleLatestLocation(ctx context.Context, _ *mcp.CallToolRequest, input DeviceInput) (*mcp.CallToolResult, LocationOutput, error) {
	rec, found, err := s.service.LatestForDevice(ctx, input.DeviceID)
	if err != nil {
		return nil, LocationOutput{}, fmt.Errorf("failed to get latest location: %w", err)
	}
	if !found {
		return nil, LocationOutput{}, fmt.Errorf("no location found for '%s'", input.DeviceID)
	}
	output := toOutput(rec, s.display)
	return jsonResult(output), output, nil
}

// RangeInput defines input for locations_in_range tool.
type RangeInput struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *Server) registerLocationsInRangeTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "locations_in_range",
		Description: "List location reports observed between start and end (inclusive), newest first.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"start": map[string]interface{}{
					"type":        "string",
					"description": "Range start, RFC3339 or zone-less ISO-8601 (UTC)",
				},
				"end": map[string]interface{}{
					"type":        "string",
					"description": "Range end, RFC3339 or zone-less ISO-8601 (UTC)",
				},
			},
			"required": []string{"start", "end"},
		},
	}, s.handleLocationsInRange)
}

func (s *Server) handleLocationsInRange(ctx context.Context, _ *mcp.CallToolRequest, input RangeInput) (*mcp.CallToolResult, LocationsOutput, error) {
	start, err := locations.ParseTimestamp(input.Start)
	if err != nil {
		return nil, LocationsOutput{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := locations.ParseTimestamp(input.End)
	if err != nil {
		return nil, LocationsOutput{}, fmt.Errorf("invalid end: %w", err)
	}

	records, err := s.service.LocationsInRange(ctx, start, end)
	if err != nil {
		return nil, LocationsOutput{}, err
	}
	output := toLocationsOutput("", records, s.display)
	return jsonResult(output), output, nil
}

// DeleteLocationInput defines input for delete_location tool.
type DeleteLocationInput struct {
	ID int64 `json:"id"`
}

// DeleteLocationOutput defines output for delete_location tool.
type DeleteLocationOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) registerDeleteLocationTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_location",
		Description: "Delete one location report by id. This cannot be undone.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Id of the location report",
				},
			},
			"required": []string{"id"},
		},
	}, s.handleDeleteLocation)
}

func (s *Server) handleDeleteLocation(ctx context.Context, _ *mcp.CallToolRequest, input DeleteLocationInput) (*mcp.CallToolResult, DeleteLocationOutput, error) {
	deleted, err := s.service.DeleteLocation(ctx, input.ID)
	if err != nil {
		return nil, DeleteLocationOutput{}, fmt.Errorf("failed to delete location: %w", err)
	}
	if !deleted {
		return nil, DeleteLocationOutput{}, fmt.Errorf("location %d not found", input.ID)
	}

	output := DeleteLocationOutput{
		Success: true,
		Message: fmt.Sprintf("Deleted location %d", input.ID),
	}
	return jsonResult(output), output, nil
}

// StatsInput is empty but required for type.
type StatsInput struct{}

// StatsOutput defines output for location_stats tool.
type StatsOutput struct {
	TotalLocations int       `json:"total_locations"`
	DeviceCount    int64     `json:"device_count"`
	ComputedAt     time.Time `json:"computed_at"`
	Summary        string    `json:"summary"`
}

func (s *Server) registerLocationStatsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "location_stats",
		Description: "Count stored location reports and distinct devices.",
		InputSchema: map[string]interface{}{
			"type": "object",
		},
	}, s.handleLocationStats)
}

func (s *Server) handleLocationStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.service.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	output := StatsOutput{
		TotalLocations: stats.TotalCount,
		DeviceCount:    stats.DeviceCount,
		ComputedAt:     stats.ComputedAt,
		Summary:        ui.FormatStats(stats.TotalCount, stats.DeviceCount, stats.ComputedAt, s.display),
	}
	return jsonResult(output), output, nil
}
