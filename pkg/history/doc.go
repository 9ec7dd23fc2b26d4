// Package history archives terminal runs to SQLite for querying. The JSON
// state document stays the source of truth for live control-plane state; the
// archive exists so completed and failed runs, their telemetry and their
// replay traces can be inspected without scanning the whole document.
package history
