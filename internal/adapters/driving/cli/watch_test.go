package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// closedWatcher implements driven.FileWatcher with no events.
type closedWatcher struct {
	closed bool
}

func (w *closedWatcher) Watch(context.Context) (<-chan domain.FileChange, error) {
	ch := make(chan domain.FileChange)
	close(ch)
	return ch, nil
}

func (w *closedWatcher) Close() error {
	w.closed = true
	return nil
}

func TestWatchCmd_ScansDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "biology.pdf"), []byte("%PDF"), 0o600))

	r := newTestRuntime(nil)
	watcher := &closedWatcher{}
	r.services.NewWatcher = func(string) driven.FileWatcher { return watcher }
	r.services.ListPDFs = func(string) ([]string, error) {
		return []string{filepath.Join(dir, "biology.pdf")}, nil
	}

	out, err := execute(t, r, "watch", "--owner", "alice", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 1 of 1 files")
	assert.Contains(t, out, "Watching "+dir)
	assert.Equal(t, 1, r.docs.Count())
	assert.True(t, watcher.closed)
}

func TestWatchCmd_NoScan(t *testing.T) {
	r := newTestRuntime(nil)
	r.services.NewWatcher = func(string) driven.FileWatcher { return &closedWatcher{} }
	r.services.ListPDFs = func(string) ([]string, error) {
		t.Fatal("directory listed with --no-scan")
		return nil, nil
	}

	out, err := execute(t, r, "watch", "--owner", "alice", "--no-scan", t.TempDir())

	require.NoError(t, err)
	assert.NotContains(t, out, "Ingested")
}

func TestWatchCmd_NotConfigured(t *testing.T) {
	_, err := execute(t, newTestRuntime(nil), "watch", "--owner", "alice", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch service not configured")
}
