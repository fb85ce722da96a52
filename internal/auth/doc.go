// Package auth owns the server's Google OAuth2 credential for the lifetime
// of the process.
//
// The Manager holds the authoritative in-memory credential and decides, on
// every EnsureValid call, whether to reuse it, refresh it silently with the
// stored refresh token, or fall back to the interactive consent flow. The
// Scheduler re-invokes the Manager on a fixed period so request handlers
// almost never pay the refresh cost; they read the current credential through
// the Manager's snapshot accessor or its oauth2.TokenSource adapter.
//
// Persistence is a single JSON credential record on disk (FileStore). A
// record that cannot be read or parsed is treated as absent so the server
// self-heals by re-authorizing instead of refusing to start.
package auth
