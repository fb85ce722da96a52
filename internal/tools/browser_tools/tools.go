package browser_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cfressle/webshelf/internal/server"
	"github.com/cfressle/webshelf/internal/tools/common"
)

// requireString extracts a required string argument.
func requireString(args map[string]interface{}, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

// RegisterBrowserTools registers all browser automation tools with the MCP server
func RegisterBrowserTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerNavigateTool(s, sc)
	registerScreenshotTool(s, sc)
	registerClickTool(s, sc)
	registerFillTool(s, sc)
	registerSelectTool(s, sc)
	registerHoverTool(s, sc)
	registerEvaluateTool(s, sc)
	return nil
}

func registerNavigateTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	navigateTool := mcp.NewTool("browser_navigate",
		mcp.WithDescription("Navigate the browser to a URL"),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to navigate to"),
		),
	)

	s.AddTool(navigateTool, common.InstrumentedToolHandler("browser_navigate", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			url, err := requireString(args, "url")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := sc.Browser().Navigate(url); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to navigate: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Navigated to %s", url)), nil
		}))
}

func registerScreenshotTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	screenshotTool := mcp.NewTool("browser_screenshot",
		mcp.WithDescription("Take a screenshot of the current page or a specific element"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name to store the screenshot under"),
		),
		mcp.WithString("selector",
			mcp.Description("CSS selector for the element to capture (captures the full viewport when omitted)"),
		),
		mcp.WithNumber("width",
			mcp.Description("Viewport width in pixels (default: 1280)"),
		),
		mcp.WithNumber("height",
			mcp.Description("Viewport height in pixels (default: 720)"),
		),
	)

	s.AddTool(screenshotTool, common.InstrumentedToolHandler("browser_screenshot", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			name, err := requireString(args, "name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			selector, _ := args["selector"].(string)

			var width, height int
			if v, ok := args["width"].(float64); ok {
				width = int(v)
			}
			if v, ok := args["height"].(float64); ok {
				height = int(v)
			}

			png, err := sc.Browser().Screenshot(name, selector, width, height)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to take screenshot: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Screenshot %q captured (%d bytes), available as screenshot://%s", name, len(png), name)), nil
		}))
}

func registerClickTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	clickTool := mcp.NewTool("browser_click",
		mcp.WithDescription("Click an element on the page"),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector for the element to click"),
		),
	)

	s.AddTool(clickTool, common.InstrumentedToolHandler("browser_click", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			selector, err := requireString(args, "selector")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := sc.Browser().Click(selector); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to click: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Clicked %s", selector)), nil
		}))
}

func registerFillTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	fillTool := mcp.NewTool("browser_fill",
		mcp.WithDescription("Fill an input field with a value"),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector for the input field"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("The value to fill in"),
		),
	)

	s.AddTool(fillTool, common.InstrumentedToolHandler("browser_fill", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			selector, err := requireString(args, "selector")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			value, ok := args["value"].(string)
			if !ok {
				return mcp.NewToolResultError("value is required"), nil
			}

			if err := sc.Browser().Fill(selector, value); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to fill: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Filled %s", selector)), nil
		}))
}

func registerSelectTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	selectTool := mcp.NewTool("browser_select",
		mcp.WithDescription("Select an option in a select element by value"),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector for the select element"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("The option value to select"),
		),
	)

	s.AddTool(selectTool, common.InstrumentedToolHandler("browser_select", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			selector, err := requireString(args, "selector")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			value, err := requireString(args, "value")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := sc.Browser().SelectOption(selector, value); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to select: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Selected %q in %s", value, selector)), nil
		}))
}

func registerHoverTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	hoverTool := mcp.NewTool("browser_hover",
		mcp.WithDescription("Hover over an element on the page"),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector for the element to hover over"),
		),
	)

	s.AddTool(hoverTool, common.InstrumentedToolHandler("browser_hover", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			selector, err := requireString(args, "selector")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			if err := sc.Browser().Hover(selector); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to hover: %v", err)), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Hovered over %s", selector)), nil
		}))
}

func registerEvaluateTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	evaluateTool := mcp.NewTool("browser_evaluate",
		mcp.WithDescription("Execute JavaScript in the browser and return the result"),
		mcp.WithString("script",
			mcp.Required(),
			mcp.Description("The JavaScript expression to evaluate"),
		),
	)

	s.AddTool(evaluateTool, common.InstrumentedToolHandler("browser_evaluate", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			script, err := requireString(args, "script")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			value, err := sc.Browser().Evaluate(script)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to evaluate: %v", err)), nil
			}

			result, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return mcp.NewToolResultText(fmt.Sprintf("%v", value)), nil
			}
			return mcp.NewToolResultText(string(result)), nil
		}))
}
