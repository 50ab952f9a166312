package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "studyrag", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	for _, name := range []string{
		"ingest", "context", "ask", "history", "document",
		"flashcards", "watch", "mcp", "settings", "version",
	} {
		assert.Contains(t, commandNames, name)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"owner", "config-dir", "verbose", "json"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ValidationError("op", "bad", domain.ErrInvalidInput), ExitValidation},
		{"conflict", domain.ConflictError("op", "dup", domain.ErrAlreadyExists), ExitConflict},
		{"not found", domain.NotFoundError("op", "missing"), ExitNotFound},
		{"external", domain.ExternalError("op", "down", domain.ErrLLMUnavailable), ExitExternal},
		{"storage", domain.StorageError("op", "disk", errors.New("io")), ExitStorage},
		{"wrapped", fmt.Errorf("a.pdf: %w", domain.NotFoundError("op", "missing")), ExitNotFound},
		{"plain", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestLoadServices(t *testing.T) {
	prevRT, prevFactory := rt, newRuntime
	t.Cleanup(func() { rt, newRuntime = prevRT, prevFactory })
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	r := newTestRuntime(nil)
	rt = r
	got, err := loadServices(cmd)
	require.NoError(t, err)
	assert.Same(t, r.services, got)

	rt, newRuntime = nil, nil
	_, err = loadServices(cmd)
	assert.EqualError(t, err, "application not configured")
}

func TestOwner_FlagWins(t *testing.T) {
	r := newTestRuntime(map[string]string{"STUDYRAG_OWNER": "env-owner"})

	out, err := execute(t, r, "document", "list", "--owner", "flag-owner")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")

	got, err := owner()
	require.NoError(t, err)
	assert.Equal(t, "flag-owner", got)
}

func TestOwner_FromEnvironment(t *testing.T) {
	r := newTestRuntime(map[string]string{"STUDYRAG_OWNER": "env-owner"})
	r.seed(t, "env-owner", "biology.pdf")

	out, err := execute(t, r, "document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "biology.pdf")
}

func TestOwner_MissingIsValidationError(t *testing.T) {
	r := newTestRuntime(nil)

	_, err := execute(t, r, "document", "list")

	require.Error(t, err)
	assert.Equal(t, ExitValidation, exitCode(err))
	assert.Contains(t, err.Error(), "STUDYRAG_OWNER")
}

func TestRuntime_FactoryError(t *testing.T) {
	_, err := execute(t, nil, "document", "list", "--owner", "alice")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no runtime")
}

func TestVersion_DoesNotBuildRuntime(t *testing.T) {
	_, err := execute(t, nil, "version")

	require.NoError(t, err)
	assert.Nil(t, rt)
}
