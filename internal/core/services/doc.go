// Package services implements the driving port interfaces.
//
// The ingestion path is DocumentLoader, then the PostProcessor pipeline,
// then IndexBuilder, orchestrated by IngestService. The query path is
// Retriever, then BuildPrompt, then the LLM, orchestrated by QueryEngine.
//
// Services depend only on ports; adapters are injected by the CLI.
package services
