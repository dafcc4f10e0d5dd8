package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
var Version = "0.1.0"

// NewMCPServer creates an MCP server exposing the MoodStream tools. If
// filter is non-empty, only the comma separated tool names it lists are
// exposed.
func NewMCPServer(svc Services, filter string) (*mcpsdk.Server, error) {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "moodstream",
		Version: Version,
	}, nil)

	registered := 0
	for _, t := range buildTools(svc) {
		if filter != "" && !matchesFilter(t.spec.Name, filter) {
			continue
		}

		mcpTool, schema, err := toolSpecToMCPTool(&t.spec)
		if err != nil {
			return nil, err
		}
		run := t.run
		toolName := t.spec.Name
		server.AddTool(mcpTool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			if err := validateArgs(schema, req.Params.Arguments); err != nil {
				return errorResult(err), nil
			}
			return callTool(ctx, toolName, run, req.Params.Arguments), nil
		})
		registered++

		slog.Debug("mcp tool registered", "tool", toolName)
	}

	if registered == 0 {
		return nil, errNoTools
	}
	return server, nil
}

func callTool(ctx context.Context, name string, run func(context.Context, json.RawMessage) (any, error), args json.RawMessage) *mcpsdk.CallToolResult {
	result, err := run(ctx, args)
	if err != nil {
		slog.Debug("mcp tool error", "tool", name, "error", err)
		return errorResult(err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResult(err)
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}
}

func errorResult(err error) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}

// matchesFilter checks if a tool name is listed in the comma separated filter.
func matchesFilter(toolName, filter string) bool {
	for _, f := range strings.Split(filter, ",") {
		if strings.TrimSpace(f) == toolName {
			return true
		}
	}
	return false
}
