// Package domain defines the core business entities for Dossier.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Project: A workspace that scopes documents and their search space
//   - Document: An uploaded file with its processing state and extracted text
//   - Chunk: An embedded slice of a document's text, the unit of retrieval
//   - Extraction: Text produced by an extractor, possibly degraded
//   - Report: A synthesised analysis with findings and recommendations
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
