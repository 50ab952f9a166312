package domain

import "time"

// VectorRecord is one unit handed to a vector index.
type VectorRecord struct {
	// UnitID identifies the unit. A chunk ID or a document ID.
	UnitID string

	// Vector is the embedding. Its width must match the index.
	Vector []float32

	// Payload is stored alongside the vector and returned on search.
	Payload VectorPayload
}

// VectorPayload is the metadata carried by a vector unit.
type VectorPayload struct {
	// DocumentID links the unit to its document.
	DocumentID string

	// Title is the document title.
	Title string

	// Content is the text the vector was computed from.
	Content string

	// Position is the chunk position, or zero for document units.
	Position int
}

// VectorHit is a single search result from a vector index.
type VectorHit struct {
	// UnitID identifies the matching unit.
	UnitID string

	// Distance is the cosine distance (1 - cosine similarity). Lower is closer.
	Distance float64

	// Payload is the metadata stored with the unit.
	Payload VectorPayload
}

// Match is a ranked passage returned to callers of the retrieval protocol.
type Match struct {
	// UnitID identifies the vector unit.
	UnitID string

	// DocumentID links to the source document.
	DocumentID string

	// Title is the source document title.
	Title string

	// Content is the passage text, truncated to the preview length.
	Content string

	// Distance is the cosine distance to the question. Lower is closer.
	Distance float64
}

// AnswerContext is the grounding material assembled for a question.
type AnswerContext struct {
	// Matches are ordered by ascending distance.
	Matches []Match

	// ContextAvailable is true when at least one match was found.
	ContextAvailable bool
}

// Answer is a generated reply to a question.
type Answer struct {
	// QueryID identifies the logged query, empty when nothing was logged.
	QueryID string

	// Text is the generated answer.
	Text string

	// Matches are the passages the answer was grounded on.
	Matches []Match

	// ContextAvailable is true when at least one match was found.
	ContextAvailable bool
}

// QueryRecord is a logged question and its answer.
type QueryRecord struct {
	ID         string
	OwnerID    string
	DocumentID string
	Question   string
	Response   string
	CreatedAt  time.Time
}

// Flashcard is a question/answer pair generated from a document.
type Flashcard struct {
	ID         string
	OwnerID    string
	DocumentID string
	Question   string
	Answer     string
	CreatedAt  time.Time
}

// FlashcardSet is the result of a generation request.
type FlashcardSet struct {
	// Cards are the generated and stored cards.
	Cards []Flashcard

	// Requested is the clamped number of cards that was asked for.
	Requested int

	// Message summarises the outcome, noting any shortfall.
	Message string
}
