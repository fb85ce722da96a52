package drive_tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cfressle/webshelf/internal/drive"
	"github.com/cfressle/webshelf/internal/server"
	"github.com/cfressle/webshelf/internal/tools/common"
)

// getDriveClient returns the bound Drive client or an error when the
// server has no credential yet.
func getDriveClient(sc *server.ServerContext) (*drive.Client, error) {
	client := sc.DriveClient()
	if client == nil {
		return nil, fmt.Errorf("Google Drive is not available: no credential bound")
	}
	return client, nil
}

// RegisterDriveTools registers all Google Drive tools with the MCP server
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	registerSearchTool(s, sc)
	registerReadFileTool(s, sc)
	registerGetFileTool(s, sc)
	registerListFilesTool(s, sc)
	return nil
}

func registerSearchTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	searchTool := mcp.NewTool("drive_search",
		mcp.WithDescription("Search for files in Google Drive by content or name"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query text"),
		),
		mcp.WithNumber("pageSize",
			mcp.Description("Maximum number of files to return (default: 10)"),
		),
	)

	s.AddTool(searchTool, common.InstrumentedToolHandlerWithService("drive_search", "drive", "search", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			query, ok := args["query"].(string)
			if !ok || query == "" {
				return mcp.NewToolResultError("query is required"), nil
			}

			pageSize := 10
			if v, ok := args["pageSize"].(float64); ok && v > 0 {
				pageSize = int(v)
			}

			client, err := getDriveClient(sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			files, err := client.Search(ctx, query, pageSize)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to search files: %v", err)), nil
			}

			result, _ := json.MarshalIndent(files, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Found %d files:\n%s", len(files), string(result))), nil
		}))
}

func registerReadFileTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	readFileTool := mcp.NewTool("drive_read_file",
		mcp.WithDescription("Read the content of a file from Google Drive. Google Docs formats are exported to portable formats (Docs to Markdown, Sheets to CSV)."),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The ID of the file to read"),
		),
	)

	s.AddTool(readFileTool, common.InstrumentedToolHandlerWithService("drive_read_file", "drive", "read", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			fileID, ok := args["fileId"].(string)
			if !ok || fileID == "" {
				return mcp.NewToolResultError("fileId is required"), nil
			}

			client, err := getDriveClient(sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			content, err := client.ReadFile(ctx, fileID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to read file: %v", err)), nil
			}

			if content.IsText() {
				return mcp.NewToolResultText(content.Text), nil
			}
			encoded := base64.StdEncoding.EncodeToString(content.Data)
			return mcp.NewToolResultText(fmt.Sprintf("%s (%s, base64):\n%s", content.Name, content.MimeType, encoded)), nil
		}))
}

func registerGetFileTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getFileTool := mcp.NewTool("drive_get_file",
		mcp.WithDescription("Get metadata for a file in Google Drive"),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The ID of the file"),
		),
	)

	s.AddTool(getFileTool, common.InstrumentedToolHandlerWithService("drive_get_file", "drive", "get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			fileID, ok := args["fileId"].(string)
			if !ok || fileID == "" {
				return mcp.NewToolResultError("fileId is required"), nil
			}

			client, err := getDriveClient(sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			info, err := client.GetFile(ctx, fileID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get file: %v", err)), nil
			}

			result, _ := json.MarshalIndent(info, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))
}

func registerListFilesTool(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listFilesTool := mcp.NewTool("drive_list_files",
		mcp.WithDescription("List files in Google Drive with optional filtering"),
		mcp.WithString("query",
			mcp.Description("Query for filtering files using Google Drive's query language (e.g., \"name contains 'report'\", \"mimeType='application/pdf'\")"),
		),
		mcp.WithNumber("pageSize",
			mcp.Description("Maximum number of files to return (default: 100)"),
		),
		mcp.WithString("orderBy",
			mcp.Description("Sort order (e.g., 'folder,modifiedTime desc,name')"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Page token for retrieving the next page of results"),
		),
	)

	s.AddTool(listFilesTool, common.InstrumentedToolHandlerWithService("drive_list_files", "drive", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			client, err := getDriveClient(sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			options := &drive.ListOptions{PageSize: 100}

			if query, ok := args["query"].(string); ok && query != "" {
				options.Query = query
			}
			if pageSize, ok := args["pageSize"].(float64); ok && pageSize > 0 {
				options.PageSize = int(pageSize)
			}
			if orderBy, ok := args["orderBy"].(string); ok && orderBy != "" {
				options.OrderBy = orderBy
			}
			if pageToken, ok := args["pageToken"].(string); ok && pageToken != "" {
				options.PageToken = pageToken
			}

			files, nextPageToken, err := client.ListFiles(ctx, options)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to list files: %v", err)), nil
			}

			response := map[string]interface{}{
				"files":         files,
				"nextPageToken": nextPageToken,
			}
			result, _ := json.MarshalIndent(response, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))
}
