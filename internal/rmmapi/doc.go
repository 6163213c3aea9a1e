// Package rmmapi is the HTTP client for the remote script store.
//
// Requests authenticate with the X-API-KEY header. Reads, writes and the
// credential probe each run under their own timeout. Non-success responses are
// returned as *StatusError; callers log them and move on to the next entity.
// Nothing is retried.
package rmmapi
