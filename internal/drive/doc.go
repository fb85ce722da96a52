// Package drive wraps the Google Drive v3 API behind the read-only surface
// the MCP tools and resources need: search, metadata, listing and content
// reads with export of Google-native formats.
package drive
