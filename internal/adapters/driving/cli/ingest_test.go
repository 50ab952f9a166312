package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600))
	return path
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest <file.pdf>...", ingestCmd.Use)
}

func TestIngestCmd_RequiresArgs(t *testing.T) {
	_, err := execute(t, newTestRuntime(nil), "ingest", "--owner", "alice")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_IngestsFile(t *testing.T) {
	r := newTestRuntime(nil)
	path := writePDF(t, "biology.pdf")

	out, err := execute(t, r, "ingest", "--owner", "alice", path)

	require.NoError(t, err)
	assert.Contains(t, out, "ingested "+path)
	assert.Equal(t, 1, r.docs.Count())
}

func TestIngestCmd_DuplicateTitleIsConflict(t *testing.T) {
	r := newTestRuntime(nil)
	r.seed(t, "alice", "biology.pdf")
	path := writePDF(t, "biology.pdf")

	out, err := execute(t, r, "ingest", "--owner", "alice", path)

	require.Error(t, err)
	assert.Equal(t, ExitConflict, exitCode(err))
	assert.Contains(t, out, "failed")
}

func TestIngestCmd_ContinuesAfterFailure(t *testing.T) {
	r := newTestRuntime(nil)
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	good := writePDF(t, "good.pdf")

	out, err := execute(t, r, "ingest", "--owner", "alice", missing, good)

	require.Error(t, err)
	assert.Contains(t, out, "ingested "+good)
	assert.Equal(t, 1, r.docs.Count())
}

func TestIngestCmd_JSON(t *testing.T) {
	r := newTestRuntime(nil)
	path := writePDF(t, "biology.pdf")

	out, err := execute(t, r, "ingest", "--owner", "alice", "--json", path)

	require.NoError(t, err)
	assert.Contains(t, out, `"documentId": "doc-001"`)
}
