// Package history records every transcription run in a local SQLite
// database so past results can be listed and inspected from the CLI.
//
// The Store owns the connection, applies the embedded schema on first open,
// and refuses to open a database written by a different schema version.
// Schema changes bump schemaVersion in schema.go; users clear the database
// (or delete the file) to adopt the new layout.
package history
