package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"

	// googleAppsPrefix marks Google-native files that must be exported
	// rather than downloaded.
	googleAppsPrefix = "application/vnd.google-apps."

	fileInfoFields = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, parents, shared, trashed"
)

// exportMimeTypes maps Google-native source types to the format their
// content is exported in.
var exportMimeTypes = map[string]string{
	"application/vnd.google-apps.document":     "text/markdown",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.presentation": "text/plain",
	"application/vnd.google-apps.drawing":      "image/png",
}

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
}

// NewClient creates a Drive client signing requests through the given token
// source. The source is consulted per request, so a credential swap by the
// lifecycle manager takes effect without rebuilding the client.
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	service, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{service: service}, nil
}

// Search returns files whose content or name matches the query text.
func (c *Client) Search(ctx context.Context, query string, pageSize int) ([]*FileInfo, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	escaped := strings.ReplaceAll(strings.ReplaceAll(query, `\`, `\\`), `'`, `\'`)

	fileList, err := c.service.Files.List().
		Context(ctx).
		Q(fmt.Sprintf("fullText contains '%s' and trashed=false", escaped)).
		PageSize(int64(pageSize)).
		Fields("files(" + fileInfoFields + ")").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search files: %w", err)
	}

	files := make([]*FileInfo, len(fileList.Files))
	for i, f := range fileList.Files {
		files[i] = convertToFileInfo(f)
	}
	return files, nil
}

// ListFiles lists files with optional filtering
func (c *Client) ListFiles(ctx context.Context, options *ListOptions) ([]*FileInfo, string, error) {
	call := c.service.Files.List().
		Context(ctx).
		Fields("nextPageToken, files(" + fileInfoFields + ")")

	query := "trashed=false"
	if options != nil {
		if options.Query != "" {
			query = fmt.Sprintf("(%s) and trashed=false", options.Query)
		}
		if options.PageSize > 0 {
			call = call.PageSize(int64(options.PageSize))
		}
		if options.OrderBy != "" {
			call = call.OrderBy(options.OrderBy)
		}
		if options.PageToken != "" {
			call = call.PageToken(options.PageToken)
		}
	}
	call = call.Q(query)

	fileList, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]*FileInfo, len(fileList.Files))
	for i, f := range fileList.Files {
		files[i] = convertToFileInfo(f)
	}
	return files, fileList.NextPageToken, nil
}

// GetFile retrieves metadata for a specific file
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	file, err := c.service.Files.Get(fileID).
		Context(ctx).
		Fields(fileInfoFields).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}

	return convertToFileInfo(file), nil
}

// ReadFile returns a file's content. Google-native files are exported to a
// portable format (see exportMimeTypes); everything else is downloaded
// as-is.
func (c *Client) ReadFile(ctx context.Context, fileID string) (*FileContent, error) {
	info, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(info.MimeType, googleAppsPrefix) {
		return c.exportFile(ctx, info)
	}
	return c.downloadFile(ctx, info)
}

// ExportMimeType returns the export format for a Google-native MIME type,
// defaulting to text/plain.
func ExportMimeType(sourceMimeType string) string {
	if exported, ok := exportMimeTypes[sourceMimeType]; ok {
		return exported
	}
	return "text/plain"
}

func (c *Client) exportFile(ctx context.Context, info *FileInfo) (*FileContent, error) {
	exportType := ExportMimeType(info.MimeType)

	resp, err := c.service.Files.Export(info.ID, exportType).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("failed to export file %s: %w", info.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exported content for %s: %w", info.ID, err)
	}

	content := &FileContent{Name: info.Name, MimeType: exportType}
	if isTextMimeType(exportType) {
		content.Text = string(data)
	} else {
		content.Data = data
	}
	return content, nil
}

func (c *Client) downloadFile(ctx context.Context, info *FileInfo) (*FileContent, error) {
	resp, err := c.service.Files.Get(info.ID).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", info.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content for %s: %w", info.ID, err)
	}

	content := &FileContent{Name: info.Name, MimeType: info.MimeType}
	if isTextMimeType(info.MimeType) {
		content.Text = string(data)
	} else {
		content.Data = data
	}
	return content, nil
}

func isTextMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		mimeType == "application/json" ||
		strings.HasSuffix(mimeType, "+json") ||
		strings.HasSuffix(mimeType, "+xml")
}

// convertToFileInfo converts a Drive API File to our FileInfo type
func convertToFileInfo(f *drive.File) *FileInfo {
	info := &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
		Shared:      f.Shared,
		Trashed:     f.Trashed,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			info.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			info.ModifiedTime = t
		}
	}

	return info
}
