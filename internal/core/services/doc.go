// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// RetrievalService runs ingestion and context assembly. AnswerService,
// FlashcardService and DocumentService build on the same Dependencies.
// WatchService keeps a directory of PDFs in step with an owner's documents.
//
// Services are pure Go with no CGO or external dependencies.
package services
