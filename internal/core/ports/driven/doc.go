// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Ingestion
//
//   - Connector: Walks a corpus root and yields eligible files
//   - Normaliser: Extracts text from one file format
//   - NormaliserRegistry: Selects the normaliser for a MIME type
//   - PostProcessorPipeline: Splits documents into chunks
//   - IndexStore: Persists and atomically replaces the index
//
// # Query
//
//   - VectorIndex: Similarity search over an opened index snapshot
//   - EmbeddingService: Maps text to vectors. Shared by ingestion and query.
//   - LLMService: Generates the answer from the assembled prompt
//
// # Configuration
//
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
