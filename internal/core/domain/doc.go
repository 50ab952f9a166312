// Package domain defines the core business entities for studyrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: An uploaded document as extracted pages
//   - Document: The persisted, segmented body of an upload
//   - Chunk: A quality-filtered segment and vector unit
//   - Match / AnswerContext: Ranked grounding passages for a question
//   - Error: A classified failure (validation, conflict, not found, ...)
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
