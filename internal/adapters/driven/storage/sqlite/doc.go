// Package sqlite provides a unified SQLite-based implementation of the
// storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database connection backs:
//
//   - ProjectStore: projects
//   - DocumentStore: documents and their processing state
//   - ReportStore: generated reports, sections stored as JSON
//   - VectorStore: chunk embeddings as float32 BLOBs, searched by brute force
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files,
// and each applied version is recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.dossier/data/dossier.db
//
// # Thread Safety
//
// All operations are thread-safe. The store runs SQLite in WAL mode, so a
// search reads the last committed set of chunks while a re-index is in flight.
package sqlite
