package drive

import (
	"testing"
	"time"

	drive "google.golang.org/api/drive/v3"
)

func TestExportMimeType(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "document exports to markdown",
			source: "application/vnd.google-apps.document",
			want:   "text/markdown",
		},
		{
			name:   "spreadsheet exports to csv",
			source: "application/vnd.google-apps.spreadsheet",
			want:   "text/csv",
		},
		{
			name:   "presentation exports to plain text",
			source: "application/vnd.google-apps.presentation",
			want:   "text/plain",
		},
		{
			name:   "drawing exports to png",
			source: "application/vnd.google-apps.drawing",
			want:   "image/png",
		},
		{
			name:   "unknown google type falls back to plain text",
			source: "application/vnd.google-apps.form",
			want:   "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExportMimeType(tt.source); got != tt.want {
				t.Errorf("ExportMimeType(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestIsTextMimeType(t *testing.T) {
	tests := []struct {
		mimeType string
		want     bool
	}{
		{"text/plain", true},
		{"text/markdown", true},
		{"text/csv", true},
		{"application/json", true},
		{"application/ld+json", true},
		{"application/atom+xml", true},
		{"image/png", false},
		{"application/pdf", false},
		{"application/octet-stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			if got := isTextMimeType(tt.mimeType); got != tt.want {
				t.Errorf("isTextMimeType(%q) = %v, want %v", tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestFileContentIsText(t *testing.T) {
	text := &FileContent{MimeType: "text/markdown", Text: "# Title"}
	if !text.IsText() {
		t.Error("expected text content to report IsText")
	}

	binary := &FileContent{MimeType: "image/png", Data: []byte{0x89, 0x50}}
	if binary.IsText() {
		t.Error("expected binary content to not report IsText")
	}
}

func TestConvertToFileInfoTimes(t *testing.T) {
	created := "2024-03-01T10:00:00Z"
	wantCreated, _ := time.Parse(time.RFC3339, created)

	info := convertToFileInfo(&drive.File{
		Id:           "file-1",
		Name:         "notes.txt",
		CreatedTime:  created,
		ModifiedTime: "bad-timestamp",
	})
	if info.ID != "file-1" || info.Name != "notes.txt" {
		t.Errorf("unexpected identity fields: %+v", info)
	}
	if !info.CreatedTime.Equal(wantCreated) {
		t.Errorf("CreatedTime = %v, want %v", info.CreatedTime, wantCreated)
	}
	if !info.ModifiedTime.IsZero() {
		t.Errorf("ModifiedTime = %v, want zero for unparseable input", info.ModifiedTime)
	}
}
