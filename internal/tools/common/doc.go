// Package common provides shared helpers for MCP tool implementations,
// chiefly the instrumented handler wrappers that record per-tool metrics
// and debug logs.
package common
