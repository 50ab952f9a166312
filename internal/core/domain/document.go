package domain

import (
	"time"
	"unicode/utf8"
)

// Granularity selects what a vector unit covers.
type Granularity string

const (
	// GranularityChunk stores one vector unit per chunk. This is the default.
	GranularityChunk Granularity = "chunk"

	// GranularityDocument stores a single vector unit for the whole document body.
	GranularityDocument Granularity = "document"
)

// IsValid returns true if the granularity is recognised.
func (g Granularity) IsValid() bool {
	return g == GranularityChunk || g == GranularityDocument
}

// String returns the string representation.
func (g Granularity) String() string {
	return string(g)
}

// RawDocument is an uploaded document before segmentation.
// It is immutable once created.
type RawDocument struct {
	// ID is the unique identifier assigned at upload.
	ID string

	// OwnerID is the identifier of the user who uploaded the document.
	OwnerID string

	// Title is unique per owner.
	Title string

	// Pages holds the extracted text of each page, in page order.
	Pages []string

	// CreatedAt is when the upload happened.
	CreatedAt time.Time
}

// Document is the persisted form of an ingested upload.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the identifier of the owning user.
	OwnerID string

	// Title is the human-readable title. Unique per owner.
	Title string

	// Content is the accepted chunks joined with a newline.
	Content string

	// ChunkCount is the number of chunks produced by segmentation.
	ChunkCount int

	// Granularity records how the document was embedded.
	Granularity Granularity

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Chunk is a contiguous, quality-filtered text segment of a document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// OwnerID is copied from the parent document.
	OwnerID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Page is the zero-based page index the chunk came from.
	Page int

	// Paragraph is the zero-based paragraph index within the page.
	Paragraph int
}

// Size returns the length of the chunk in characters.
func (c Chunk) Size() int {
	return utf8.RuneCountInString(c.Content)
}
