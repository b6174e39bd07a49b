// Package mcp implements the MCP server for memgate.
package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memgate-labs/memgate/internal/gateway"
)

const maxTopicLen = 10_000    // 10K chars max for query topics
const maxFactLen = 100 * 1024 // 100KB max fact content via MCP

// Version is set by the caller (main) before calling Serve.
var Version = "dev"

// Server exposes the gateway over MCP stdio.
type Server struct {
	controller *gateway.Controller
}

// NewServer wraps a controller.
func NewServer(controller *gateway.Controller) *Server {
	return &Server{controller: controller}
}

// Serve registers the tool surface and runs on stdio until the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "memgate",
		Version: Version,
	}, nil)

	s.registerTools(server)

	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools(server *mcp.Server) {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}
	boolPtr := func(b bool) *bool { return &b }
	writeNonDestructive := &mcp.ToolAnnotations{DestructiveHint: boolPtr(false), IdempotentHint: false}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_personal_memory",
		Description: "Search the user's personal memory for context on a topic. Results pass through PII redaction before release; high-risk content requires user consent.\n\nArgs:\n  topic: Natural language topic (e.g. 'my travel plans', 'what is my phone number')\n\nReturns sanitized context, NO_CONTEXT_FOUND when nothing matches, or NO_CONTEXT when release is blocked.",
		Annotations: readOnly,
	}, s.handleQuery)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_memory",
		Description: "Save a fact to the user's personal memory.\n\nArgs:\n  fact: The fact to remember (e.g. 'I prefer window seats')\n  category: Optional label (e.g. 'travel')\n\nReturns MEMORY_SAVED with the record id.",
		Annotations: writeNonDestructive,
	}, s.handleSave)
}

type queryInput struct {
	Topic string `json:"topic" jsonschema:"Natural language topic to search memory for"`
}

type saveInput struct {
	Fact     string `json:"fact" jsonschema:"The fact to remember"`
	Category string `json:"category,omitempty" jsonschema:"Optional category label"`
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest, input queryInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Topic) == "" {
		return textResult("ERROR: 'topic' is required."), nil, nil
	}
	if len(input.Topic) > maxTopicLen {
		return textResult("ERROR: topic too long (max 10,000 characters)."), nil, nil
	}
	return textResult(s.controller.Query(input.Topic)), nil, nil
}

func (s *Server) handleSave(ctx context.Context, req *mcp.CallToolRequest, input saveInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Fact) == "" {
		return textResult("ERROR: 'fact' is required."), nil, nil
	}
	if len(input.Fact) > maxFactLen {
		return textResult("ERROR: fact too long (max 100KB)."), nil, nil
	}
	return textResult(s.controller.SaveFact(input.Fact, input.Category)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
