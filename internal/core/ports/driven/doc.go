// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Segmenter: Splits page text into chunks
//   - Embedder: Generates vector embeddings
//   - VectorIndex: Owner-scoped vector storage and cosine search
//   - DocumentStore: Document and chunk persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - PageExtractor: PDF text extraction. Without it, only pre-extracted pages are accepted.
//   - LLMService: Language model. Without it, ask and flashcards are disabled.
//   - FlashcardStore, QueryLog: Supplementary persistence.
//   - PromptStore: User-editable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
