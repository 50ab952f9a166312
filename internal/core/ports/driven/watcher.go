package driven

import (
	"context"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

// FileWatcher reports changes to the files of a directory.
type FileWatcher interface {
	// Watch starts watching and returns a channel of changes. The channel is
	// closed when ctx is done or the watcher is closed.
	Watch(ctx context.Context) (<-chan domain.FileChange, error)

	// Close stops the watcher. Close is idempotent.
	Close() error
}
