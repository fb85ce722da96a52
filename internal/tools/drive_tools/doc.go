// Package drive_tools provides MCP (Model Context Protocol) tools for
// read-only Google Drive access.
//
// Available tools:
//   - drive_search: Search files by content or name
//   - drive_read_file: Read file content with Google Docs export mapping
//   - drive_get_file: Get metadata for a specific file
//   - drive_list_files: List files with query-language filtering
//
// All tools share the single Drive client bound by the credential
// lifecycle manager at startup.
package drive_tools
