// Package logging provides slog attribute helpers and a small Logger
// interface used across the server.
//
// All log output goes to stderr in serve mode because stdout carries the MCP
// stdio transport. Attribute constructors keep key names consistent so logs
// stay greppable across packages.
package logging
