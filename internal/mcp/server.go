// Package mcp exposes parents and geo-tagged captures as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/biosim/geocap/internal/application"
	"github.com/biosim/geocap/internal/capture"
	"github.com/biosim/geocap/internal/usecase"
)

// Server wraps the MCP server with geocap-specific functionality
type Server struct {
	server *mcp.Server
	app    *application.App
}

// NewServer creates a new MCP server over app. The caller keeps ownership
// of app.
func NewServer(app *application.App, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "geocap",
		Version: version,
	}, nil)

	s := &Server{
		server: mcpServer,
		app:    app,
	}
	s.registerTools()
	return s
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session on t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "parent_create",
		Description: "Create an inspection or finding that captures can be attached to",
	}, s.handleParentCreate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "parent_list",
		Description: "List inspections and findings with their capture counts",
	}, s.handleParentList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "capture_take",
		Description: "Capture a photo for a parent, tag it with the current location and store it",
	}, s.handleCaptureTake)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "capture_list",
		Description: "List the captures of a parent, newest first",
	}, s.handleCaptureList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "capture_info",
		Description: "Get metadata about a capture and its image file",
	}, s.handleCaptureInfo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "capture_delete",
		Description: "Delete a capture and its image file",
	}, s.handleCaptureDelete)
}

// Input/Output types for each tool

type ParentCreateInput struct {
	Kind     string `json:"kind" jsonschema:"Parent kind: inspection or finding"`
	Category string `json:"category,omitempty" jsonschema:"Pest type of an inspection (insect, fungus, bacteria, virus, mite, nematode, other) or type of a finding (observation, problem, improvement, harvest, growth)"`
	Label    string `json:"label" jsonschema:"Short label, e.g. the pest or symptom observed"`
	Crop     string `json:"crop,omitempty" jsonschema:"Crop the parent belongs to"`
}

type ParentOutput struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	Category  string `json:"category"`
	Label     string `json:"label"`
	Crop      string `json:"crop,omitempty"`
	Captures  int64  `json:"captures"`
	CreatedAt string `json:"createdAt"`
}

type ParentListInput struct {
	Kind string `json:"kind,omitempty" jsonschema:"Only list parents of this kind"`
}

type ParentListOutput struct {
	Parents []ParentOutput `json:"parents"`
}

type CaptureTakeInput struct {
	ParentID   int64  `json:"parentId" jsonschema:"ID of the inspection or finding"`
	Note       string `json:"note,omitempty" jsonschema:"Free text stored with the capture"`
	ImportPath string `json:"importPath,omitempty" jsonschema:"Import this image file instead of using the camera"`
}

type RecordOutput struct {
	ID         int64    `json:"id"`
	ParentID   int64    `json:"parentId"`
	MediaRef   string   `json:"mediaRef"`
	CapturedAt string   `json:"capturedAt"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Note       string   `json:"note,omitempty"`
}

type CaptureListInput struct {
	ParentID int64 `json:"parentId" jsonschema:"ID of the inspection or finding"`
}

type CaptureListOutput struct {
	Captures []RecordOutput `json:"captures"`
}

type CaptureIDInput struct {
	ID int64 `json:"id" jsonschema:"Capture record ID"`
}

type CaptureInfoOutput struct {
	Record      RecordOutput `json:"record"`
	Parent      ParentOutput `json:"parent"`
	MediaExists bool         `json:"mediaExists"`
	MediaHash   string       `json:"mediaHash,omitempty"`
}

type DeleteOutput struct {
	Message string `json:"message"`
}

func recordOutput(rec capture.Record) RecordOutput {
	out := RecordOutput{
		ID:         rec.ID,
		ParentID:   rec.ParentID,
		MediaRef:   rec.MediaRef,
		CapturedAt: rec.CapturedAt.Format(time.RFC3339),
		Note:       rec.Note,
	}
	if rec.Location != nil {
		lat, lon := rec.Location.Latitude, rec.Location.Longitude
		out.Latitude = &lat
		out.Longitude = &lon
	}
	return out
}

func parentOutput(p usecase.Summary) ParentOutput {
	return ParentOutput{
		ID:        p.ID,
		Kind:      string(p.Kind),
		Category:  string(p.Category),
		Label:     p.Label,
		Crop:      p.Crop,
		Captures:  p.Captures,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// Tool handlers

func (s *Server) handleParentCreate(ctx context.Context, req *mcp.CallToolRequest, input ParentCreateInput) (*mcp.CallToolResult, ParentOutput, error) {
	p, err := s.app.Parents.Create(ctx, input.Kind, input.Category, input.Label, input.Crop)
	if err != nil {
		return nil, ParentOutput{}, fmt.Errorf("failed to create parent: %w", err)
	}
	return nil, parentOutput(usecase.Summary{Parent: p}), nil
}

func (s *Server) handleParentList(ctx context.Context, req *mcp.CallToolRequest, input ParentListInput) (*mcp.CallToolResult, ParentListOutput, error) {
	summaries, err := s.app.Parents.List(ctx, input.Kind)
	if err != nil {
		return nil, ParentListOutput{}, fmt.Errorf("failed to list parents: %w", err)
	}

	parents := make([]ParentOutput, 0, len(summaries))
	for _, p := range summaries {
		parents = append(parents, parentOutput(p))
	}
	return nil, ParentListOutput{Parents: parents}, nil
}

func (s *Server) handleCaptureTake(ctx context.Context, req *mcp.CallToolRequest, input CaptureTakeInput) (*mcp.CallToolResult, RecordOutput, error) {
	rec, err := s.app.CapturesFrom(input.ImportPath).Take(ctx, input.ParentID, input.Note)
	if err != nil {
		return nil, RecordOutput{}, fmt.Errorf("capture failed: %w", err)
	}
	return nil, recordOutput(*rec), nil
}

func (s *Server) handleCaptureList(ctx context.Context, req *mcp.CallToolRequest, input CaptureListInput) (*mcp.CallToolResult, CaptureListOutput, error) {
	recs, err := s.app.Captures.List(ctx, input.ParentID)
	if err != nil {
		return nil, CaptureListOutput{}, fmt.Errorf("failed to list captures: %w", err)
	}

	captures := make([]RecordOutput, 0, len(recs))
	for _, rec := range recs {
		captures = append(captures, recordOutput(rec))
	}
	return nil, CaptureListOutput{Captures: captures}, nil
}

func (s *Server) handleCaptureInfo(ctx context.Context, req *mcp.CallToolRequest, input CaptureIDInput) (*mcp.CallToolResult, CaptureInfoOutput, error) {
	info, err := s.app.Captures.Info(ctx, input.ID)
	if err != nil {
		return nil, CaptureInfoOutput{}, fmt.Errorf("failed to get capture info: %w", err)
	}

	return nil, CaptureInfoOutput{
		Record:      recordOutput(info.Record),
		Parent:      parentOutput(usecase.Summary{Parent: info.Parent}),
		MediaExists: info.MediaExists,
		MediaHash:   info.MediaHash,
	}, nil
}

func (s *Server) handleCaptureDelete(ctx context.Context, req *mcp.CallToolRequest, input CaptureIDInput) (*mcp.CallToolResult, DeleteOutput, error) {
	deleted, err := s.app.Captures.Delete(ctx, input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete capture: %w", err)
	}
	if !deleted {
		return nil, DeleteOutput{}, fmt.Errorf("capture %d not found", input.ID)
	}
	return nil, DeleteOutput{Message: fmt.Sprintf("Deleted capture %d", input.ID)}, nil
}
