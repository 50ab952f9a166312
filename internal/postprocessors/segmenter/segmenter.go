// Package segmenter splits extracted page text into size-bounded,
// quality-filtered chunks.
//
// Paragraphs are found on blank lines. Paragraphs that fit the chunk size are
// kept whole; longer ones are split into sentences by a punkt tokenizer and
// greedily repacked. Chunks that are too short or mostly non-letters are
// dropped. All lengths are counted in characters (runes).
package segmenter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/logger"
)

// Ensure Segmenter implements the interface.
var _ driven.Segmenter = (*Segmenter)(nil)

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t\f\v]*\n`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// SentenceSplitter splits a whitespace-normalised paragraph into sentences.
type SentenceSplitter func(text string) ([]string, error)

// Segmenter turns page text into chunks.
// It holds no mutable state and is safe for concurrent use.
type Segmenter struct {
	minParagraphLength int
	minChunkLength     int
	minAlphaRatio      float64
	split              SentenceSplitter
}

// Option configures the segmenter.
type Option func(*Segmenter)

// WithMinParagraphLength sets the length below which paragraphs are discarded.
func WithMinParagraphLength(n int) Option {
	return func(s *Segmenter) {
		if n >= 0 {
			s.minParagraphLength = n
		}
	}
}

// WithMinChunkLength sets the length below which chunks are discarded.
func WithMinChunkLength(n int) Option {
	return func(s *Segmenter) {
		if n >= 0 {
			s.minChunkLength = n
		}
	}
}

// WithMinAlphaRatio sets the letter fraction at or below which chunks are discarded.
func WithMinAlphaRatio(r float64) Option {
	return func(s *Segmenter) {
		if r >= 0 && r < 1 {
			s.minAlphaRatio = r
		}
	}
}

// WithSentenceSplitter replaces the punkt tokenizer.
func WithSentenceSplitter(fn SentenceSplitter) Option {
	return func(s *Segmenter) {
		if fn != nil {
			s.split = fn
		}
	}
}

// WithPolicy applies every threshold of a segmentation policy.
func WithPolicy(p domain.SegmentationPolicy) Option {
	return func(s *Segmenter) {
		WithMinParagraphLength(p.MinParagraphLength)(s)
		WithMinChunkLength(p.MinChunkLength)(s)
		WithMinAlphaRatio(p.MinAlphaRatio)(s)
	}
}

// New creates a segmenter with the default thresholds.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		minParagraphLength: domain.DefaultMinParagraphLength,
		minChunkLength:     domain.DefaultMinChunkLength,
		minAlphaRatio:      domain.DefaultMinAlphaRatio,
		split:              PunktSplitter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment returns the accepted chunk texts in document order.
// A non-positive maxChunkSize disables sentence splitting.
func (s *Segmenter) Segment(pages []string, maxChunkSize int) []string {
	chunks := s.Chunks(pages, maxChunkSize)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

// Chunks segments the pages and records page and paragraph lineage.
// IDs and owner fields are left for the caller to fill.
func (s *Segmenter) Chunks(pages []string, maxChunkSize int) []domain.Chunk {
	var chunks []domain.Chunk
	for page, text := range pages {
		for para, paragraph := range s.paragraphs(text) {
			for _, piece := range s.pack(paragraph, maxChunkSize) {
				if !s.accept(piece) {
					continue
				}
				chunks = append(chunks, domain.Chunk{
					Content:   piece,
					Position:  len(chunks),
					Page:      page,
					Paragraph: para,
				})
			}
		}
	}
	return chunks
}

// paragraphs splits page text on blank lines, trims, drops short paragraphs and
// collapses whitespace.
func (s *Segmenter) paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) < s.minParagraphLength {
			continue
		}
		out = append(out, whitespaceRun.ReplaceAllString(p, " "))
	}
	return out
}

// pack emits the paragraph whole when it fits, otherwise greedily packs its
// sentences. A sentence longer than max is emitted on its own.
func (s *Segmenter) pack(paragraph string, maxChunkSize int) []string {
	if maxChunkSize <= 0 || utf8.RuneCountInString(paragraph) <= maxChunkSize {
		return []string{paragraph}
	}

	var (
		out    []string
		buf    strings.Builder
		bufLen int
	)
	flush := func() {
		if bufLen > 0 {
			out = append(out, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	for _, sentence := range s.sentences(paragraph) {
		n := utf8.RuneCountInString(sentence)
		if bufLen > 0 && bufLen+1+n > maxChunkSize {
			flush()
		}
		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(sentence)
		bufLen += n
	}
	flush()
	return out
}

// sentences runs the configured splitter and falls back to a period split when
// it fails or panics.
func (s *Segmenter) sentences(paragraph string) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("sentence tokenizer panicked, using period split: %v", r)
			out = PeriodSplit(paragraph)
		}
	}()

	parts, err := s.split(paragraph)
	if err != nil || len(parts) == 0 {
		if err != nil {
			logger.Warn("sentence tokenizer failed, using period split: %v", err)
		}
		return PeriodSplit(paragraph)
	}

	out = make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// accept applies the length and letter-fraction filters.
func (s *Segmenter) accept(chunk string) bool {
	total := utf8.RuneCountInString(chunk)
	if total < s.minChunkLength || total == 0 {
		return false
	}
	return AlphaRatio(chunk) > s.minAlphaRatio
}

// AlphaRatio returns the fraction of runes in text that are letters.
func AlphaRatio(text string) float64 {
	var letters, total int
	for _, r := range text {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// PeriodSplit splits on ". " and re-appends the period to every piece but the last.
func PeriodSplit(text string) []string {
	parts := strings.Split(text, ". ")
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if i < len(parts)-1 {
			p += "."
		}
		out = append(out, p)
	}
	return out
}

var punkt = sync.OnceValues(func() (*sentences.DefaultSentenceTokenizer, error) {
	return english.NewSentenceTokenizer(nil)
})

// PunktSplitter splits text with the English punkt model.
func PunktSplitter(text string) ([]string, error) {
	tokenizer, err := punkt()
	if err != nil {
		return nil, fmt.Errorf("load punkt model: %w", err)
	}
	tokens := tokenizer.Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Text)
	}
	return out, nil
}
