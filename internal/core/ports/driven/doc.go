// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ProjectStore, DocumentStore, ReportStore: Entity persistence
//   - VectorStore: Chunk vectors with scoped cosine search
//   - EmbeddingService: Converts text to fixed-dimension vectors
//   - Chunker: Splits extracted text into overlapping chunks
//   - DocumentLocker: Serialises indexing per document id
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Report synthesis falls back to the deterministic generator.
//   - VisionService: Image extraction yields a degraded result.
//   - TemplateStore: Built-in report templates are used.
//   - IndexQueue: Documents are indexed inline.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or postprocessor package
package driven
