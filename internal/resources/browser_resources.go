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

const screenshotScheme = "screenshot://"

// RegisterBrowserResources registers the console log resource and the
// screenshot resource template.
func RegisterBrowserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	consoleResource := mcp.NewResource(
		"console://logs",
		"Browser Console Logs",
		mcp.WithResourceDescription("Console output captured from the browser session"),
		mcp.WithMIMEType("text/plain"),
	)

	s.AddResource(consoleResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			&mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/plain",
				Text:     sc.Browser().Console().Render(),
			},
		}, nil
	})

	screenshotTemplate := mcp.NewResourceTemplate(
		screenshotScheme+"{name}",
		"Browser Screenshot",
		mcp.WithTemplateDescription("PNG screenshot captured by the browser_screenshot tool"),
		mcp.WithTemplateMIMEType("image/png"),
	)

	s.AddResourceTemplate(screenshotTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleScreenshot(request, sc)
	})

	return nil
}

// screenshotNameFromURI extracts the screenshot name from a screenshot:// URI.
func screenshotNameFromURI(uri string) (string, error) {
	name := strings.TrimPrefix(uri, screenshotScheme)
	if name == uri || name == "" {
		return "", fmt.Errorf("invalid screenshot URI: %s", uri)
	}
	return name, nil
}

func handleScreenshot(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	name, err := screenshotNameFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	png, ok := sc.Browser().Screenshots().Get(name)
	if !ok {
		return nil, fmt.Errorf("screenshot not found: %s", name)
	}

	return []mcp.ResourceContents{
		&mcp.BlobResourceContents{
			URI:      request.Params.URI,
			MIMEType: "image/png",
			Blob:     base64.StdEncoding.EncodeToString(png),
		},
	}, nil
}
