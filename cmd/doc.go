// Package cmd implements the command-line interface for webshelf.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing browser and Google Drive tools
//   - auth: Run the interactive Google authorization flow and persist the credential
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
