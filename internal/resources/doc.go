// Package resources provides the read-only MCP resources of the server:
// Google Drive file content (gdrive:///<fileID>), the browser console log
// (console://logs) and captured screenshots (screenshot://<name>).
package resources
