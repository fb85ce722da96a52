package drive

import "time"

// FileInfo represents metadata about a file or folder in Google Drive
type FileInfo struct {
	// ID is the unique identifier for the file
	ID string `json:"id"`

	// Name is the name of the file
	Name string `json:"name"`

	// MimeType is the MIME type of the file
	MimeType string `json:"mimeType"`

	// Size is the size of the file in bytes (not populated for folders)
	Size int64 `json:"size,omitempty"`

	// CreatedTime is when the file was created
	CreatedTime time.Time `json:"createdTime"`

	// ModifiedTime is when the file was last modified
	ModifiedTime time.Time `json:"modifiedTime"`

	// WebViewLink is a link for opening the file in a relevant Google editor or viewer
	WebViewLink string `json:"webViewLink,omitempty"`

	// Parents are the IDs of the parent folders
	Parents []string `json:"parents,omitempty"`

	// Shared indicates whether the file is shared
	Shared bool `json:"shared"`

	// Trashed indicates whether the file is in the trash
	Trashed bool `json:"trashed"`
}

// FileContent is the result of reading a file's content.
type FileContent struct {
	// Name is the file name
	Name string `json:"name"`

	// MimeType is the MIME type of the returned content. For Google-native
	// files this is the export format, not the source type.
	MimeType string `json:"mimeType"`

	// Text holds the content for text-shaped MIME types
	Text string `json:"text,omitempty"`

	// Data holds raw bytes for binary content
	Data []byte `json:"-"`
}

// IsText reports whether the content is text-shaped.
func (c *FileContent) IsText() bool {
	return c.Text != ""
}

// ListOptions contains options for listing files
type ListOptions struct {
	// Query is a query in Google Drive's query language, e.g.
	// "name contains 'report'" or "mimeType='application/pdf'"
	Query string

	// PageSize is the maximum number of files to return (max: 1000)
	PageSize int

	// OrderBy specifies the sort order, e.g. "folder,modifiedTime desc,name"
	OrderBy string

	// PageToken is a token for retrieving the next page of results
	PageToken string
}
