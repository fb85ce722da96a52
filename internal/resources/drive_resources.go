package resources

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/cfressle/webshelf/internal/server"
)

const gdriveScheme = "gdrive:///"

// RegisterDriveResources registers the gdrive:///<fileID> resource template.
// Reading a resource returns the file content with the same export mapping
// the drive_read_file tool uses.
func RegisterDriveResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	fileTemplate := mcp.NewResourceTemplate(
		gdriveScheme+"{fileID}",
		"Google Drive File",
		mcp.WithTemplateDescription("Content of a Google Drive file by its file ID"),
	)

	s.AddResourceTemplate(fileTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleDriveFile(ctx, request, sc)
	})

	return nil
}

// fileIDFromURI extracts the file ID from a gdrive:/// URI.
func fileIDFromURI(uri string) (string, error) {
	fileID := strings.TrimPrefix(uri, gdriveScheme)
	if fileID == uri || fileID == "" {
		return "", fmt.Errorf("invalid gdrive URI: %s", uri)
	}
	return fileID, nil
}

func handleDriveFile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	fileID, err := fileIDFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	client := sc.DriveClient()
	if client == nil {
		return nil, fmt.Errorf("Google Drive is not available: no credential bound")
	}

	content, err := client.ReadFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}

	if content.IsText() {
		return []mcp.ResourceContents{
			&mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: content.MimeType,
				Text:     content.Text,
			},
		}, nil
	}

	return []mcp.ResourceContents{
		&mcp.BlobResourceContents{
			URI:      request.Params.URI,
			MIMEType: content.MimeType,
			Blob:     base64.StdEncoding.EncodeToString(content.Data),
		},
	}, nil
}
