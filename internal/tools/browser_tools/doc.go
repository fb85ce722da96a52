// Package browser_tools provides MCP (Model Context Protocol) tools for
// driving a headless Chromium session.
//
// Available tools:
//   - browser_navigate: Load a URL
//   - browser_screenshot: Capture the page or an element as PNG
//   - browser_click: Click an element
//   - browser_fill: Fill an input field
//   - browser_select: Select an option in a select element
//   - browser_hover: Hover over an element
//   - browser_evaluate: Run JavaScript in the page
//
// Screenshots and console output captured through these tools are exposed
// as resources by the resources package.
package browser_tools
