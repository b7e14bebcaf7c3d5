package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/response"
	"github.com/isdmx/coderunner/sandbox"
)

// ToolName is the name the executor is registered under.
const ToolName = "execute_code"

// MCPServer represents the MCP server
type MCPServer struct {
	config      *config.Config
	logger      *zap.Logger
	sandboxExec sandbox.SandboxExecutor
	mcpServer   *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, sandboxExec sandbox.SandboxExecutor) (*MCPServer, error) {
	if sandboxExec == nil {
		return nil, fmt.Errorf("sandbox executor is required")
	}

	s := &MCPServer{
		config:      cfg,
		logger:      logger,
		sandboxExec: sandboxExec,
	}

	s.mcpServer = server.NewMCPServer("coderunner", "1.0.0", server.WithToolCapabilities(false))
	s.registerExecuteCodeTool()

	return s, nil
}

func (s *MCPServer) registerExecuteCodeTool() {
	languages := sandbox.AllLanguages()
	names := make([]string, len(languages))
	for i, lang := range languages {
		names[i] = string(lang)
	}

	tool := mcp.Tool{
		Name: ToolName,
		Description: fmt.Sprintf("Compile and run a single source file, feeding optional input on stdin. "+
			"Runs are limited to %d seconds of wall-clock time.", s.config.Sandbox.TimeoutSec),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Complete program source",
				},
				"language": map[string]any{
					"type":        "string",
					"description": "Source language",
					"enum":        names,
				},
				"input": map[string]any{
					"type":        "string",
					"description": "Text written to the program's standard input (optional)",
				},
			},
			Required: []string{"code", "language"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecuteCode)
}

// handleExecuteCode never returns a protocol error for a failed execution;
// failures are tool results with IsError set.
func (s *MCPServer) handleExecuteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := sandbox.ExecuteRequest{
		Code:     request.GetString("code", ""),
		Language: request.GetString("language", ""),
	}
	if input, ok := request.GetArguments()["input"].(string); ok {
		req.Input = &input
	}

	s.logger.Info("code execution requested via MCP",
		zap.String("language", req.Language),
		zap.Int("code_len", len(req.Code)))

	var reply response.Reply
	outcome, err := s.sandboxExec.Execute(ctx, req)
	if err != nil {
		s.logger.Error("sandbox execution failed",
			zap.String("language", req.Language),
			zap.Error(err))
		reply = response.FromError(err)
	} else {
		reply = response.FromOutcome(outcome)
	}

	text, err := json.Marshal(reply.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(text),
			},
		},
		IsError: !reply.OK(),
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// HTTPHandler returns the streamable HTTP transport for mounting on a router.
func (s *MCPServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer,
		server.WithEndpointPath(s.config.Server.MCPPath),
		server.WithStateLess(true),
	)
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
