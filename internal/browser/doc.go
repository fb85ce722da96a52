// Package browser drives a headless Chromium instance through Playwright.
//
// A single Session is started lazily on first use and lives for the process
// lifetime. Page console output accumulates in a bounded log ring and
// captured screenshots are kept in memory by name, so both can be served as
// read-only resources.
package browser
