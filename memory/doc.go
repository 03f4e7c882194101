// Package memory provides the persistent contextual memory that carries
// conclusions across analysis runs.
//
// Entries are append-only: a new entry may mark its predecessor superseded
// but never mutates or deletes it, so the audit trail is complete by
// construction. Retrieval is vector similarity over a summary embedding of
// the run's findings, ranked most-similar first with recency tie-breaks.
//
// Architecture:
//   - Store: vector storage backend (chromem-go in memory, sqlite on disk)
//   - Embedder: text-to-vector conversion (hash for offline, OpenAI-compatible
//     HTTP, ONNX behind the onnx build tag)
//   - Manager: recall/commit operations consumed by the engine
package memory
