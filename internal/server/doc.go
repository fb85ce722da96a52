// Package server holds the shared state behind the MCP server: the
// credential lifecycle manager, the Drive client, the browser session, and
// the optional Prometheus metrics listener.
package server
