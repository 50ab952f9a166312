package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.WatchService = (*WatchService)(nil)

// DefaultQuietPeriod is how long a file must go unchanged before it is ingested.
const DefaultQuietPeriod = 750 * time.Millisecond

// WatchService ingests PDFs dropped into a directory and removes the
// documents of deleted files. Bursts of events for one file are collapsed
// until the file has been quiet for the quiet period.
type WatchService struct {
	retrieval driving.RetrievalService
	documents driving.DocumentService
	store     driven.DocumentStore

	quiet    time.Duration
	readFile func(string) ([]byte, error)
	now      func() time.Time
}

// WatchOption configures the watch service.
type WatchOption func(*WatchService)

// WithQuietPeriod sets how long a file must be unchanged before it is handled.
func WithQuietPeriod(d time.Duration) WatchOption {
	return func(s *WatchService) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// WithFileReader replaces os.ReadFile.
func WithFileReader(fn func(string) ([]byte, error)) WatchOption {
	return func(s *WatchService) {
		if fn != nil {
			s.readFile = fn
		}
	}
}

// NewWatchService creates a watch service.
func NewWatchService(
	retrieval driving.RetrievalService,
	documents driving.DocumentService,
	store driven.DocumentStore,
	opts ...WatchOption,
) *WatchService {
	s := &WatchService{
		retrieval: retrieval,
		documents: documents,
		store:     store,
		quiet:     DefaultQuietPeriod,
		readFile:  os.ReadFile,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan ingests the given PDF files. Files whose title the owner already has
// are skipped; other failures are logged and the scan continues.
func (s *WatchService) Scan(ctx context.Context, ownerID string, paths []string) (int, error) {
	ingested := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return ingested, err
		}
		if !isPDF(path) {
			continue
		}
		content, err := s.readFile(path)
		if err != nil {
			logger.Warn("watch: read %s: %v", path, err)
			continue
		}
		_, err = s.retrieval.IngestPDF(ctx, ownerID, path, content)
		switch {
		case err == nil:
			ingested++
		case errors.Is(err, domain.ErrConflict):
			logger.Debug("watch: %s already ingested", filepath.Base(path))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ingested, err
		default:
			logger.Warn("watch: ingest %s: %v", path, err)
		}
	}
	return ingested, nil
}

// Run applies changes until the channel is closed or ctx is done. Pending
// changes are flushed when the channel closes.
func (s *WatchService) Run(ctx context.Context, ownerID string, changes <-chan domain.FileChange) error {
	ticker := time.NewTicker(s.quiet / 2)
	defer ticker.Stop()

	pending := make(map[string]domain.FileChange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				s.flush(ctx, ownerID, pending, true)
				return nil
			}
			if !isPDF(change.Path) {
				continue
			}
			if change.At.IsZero() {
				change.At = s.now()
			}
			enqueue(pending, change)
		case <-ticker.C:
			s.flush(ctx, ownerID, pending, false)
		}
	}
}

// enqueue records the latest change for a path. A created file that is then
// written stays a creation.
func enqueue(pending map[string]domain.FileChange, change domain.FileChange) {
	if prev, ok := pending[change.Path]; ok && prev.Type == domain.ChangeCreated && change.Type == domain.ChangeUpdated {
		change.Type = domain.ChangeCreated
	}
	pending[change.Path] = change
}

// flush handles pending changes that have been quiet long enough, or all of
// them when all is set.
func (s *WatchService) flush(ctx context.Context, ownerID string, pending map[string]domain.FileChange, all bool) {
	due := make([]domain.FileChange, 0, len(pending))
	cutoff := s.now().Add(-s.quiet)
	for path, change := range pending {
		if all || !change.At.After(cutoff) {
			due = append(due, change)
			delete(pending, path)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].At.Before(due[j].At) })

	for _, change := range due {
		if err := s.apply(ctx, ownerID, change); err != nil {
			logger.Warn("watch: %s %s: %v", change.Type, change.Path, err)
		}
	}
}

// apply brings the owner's documents in line with one file change.
func (s *WatchService) apply(ctx context.Context, ownerID string, change domain.FileChange) error {
	title := filepath.Base(change.Path)

	if change.Type == domain.ChangeDeleted {
		return s.remove(ctx, ownerID, title)
	}

	content, err := s.readFile(change.Path)
	if err != nil {
		return err
	}
	if change.Type == domain.ChangeUpdated {
		id, err := s.retrieval.ReplacePDF(ctx, ownerID, change.Path, content)
		if err != nil {
			return err
		}
		logger.Info("watch: replaced %s with %s", title, id)
		return nil
	}

	id, err := s.retrieval.IngestPDF(ctx, ownerID, change.Path, content)
	if errors.Is(err, domain.ErrConflict) {
		logger.Debug("watch: %s already ingested", title)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("watch: ingested %s as %s", title, id)
	return nil
}

// remove deletes the owner's document with the given title, if any.
func (s *WatchService) remove(ctx context.Context, ownerID, title string) error {
	doc, err := s.store.FindByTitle(ctx, ownerID, title)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.documents.Delete(ctx, ownerID, doc.ID)
}

func isPDF(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".pdf")
}
