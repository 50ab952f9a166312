package driven

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// PageExtractor turns an uploaded file into per-page text.
type PageExtractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// IsEncrypted reports whether the content is encrypted.
	// Callers check this before extraction.
	IsEncrypted(content []byte) bool

	// ExtractPages returns the text of each page in page order.
	ExtractPages(ctx context.Context, content []byte) ([]string, error)
}

// Segmenter splits page text into size-bounded, quality-filtered chunks.
type Segmenter interface {
	// Segment returns the accepted chunk texts in document order.
	Segment(pages []string, maxChunkSize int) []string

	// Chunks is Segment with page and paragraph lineage. IDs and owner fields
	// are left for the caller to fill.
	Chunks(pages []string, maxChunkSize int) []domain.Chunk
}
