// Package cli is the studyrag command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
	"github.com/custodia-labs/studyrag/internal/core/ports/driving"
	"github.com/custodia-labs/studyrag/internal/logger"
)

// Exit codes by error kind.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitConflict   = 3
	ExitNotFound   = 4
	ExitExternal   = 5
	ExitStorage    = 6
)

var version = "dev"

// Services holds the driving ports the commands use.
type Services struct {
	Retrieval  driving.RetrievalService
	Answers    driving.AnswerService
	Flashcards driving.FlashcardService
	Documents  driving.DocumentService
	Watch      driving.WatchService

	// NewWatcher creates a watcher for a directory.
	NewWatcher func(dir string) driven.FileWatcher

	// ListPDFs returns the PDF files directly inside a directory.
	ListPDFs func(dir string) ([]string, error)
}

// Runtime builds the application for the CLI. Settings must be cheap to
// obtain; Services may open stores and contact providers.
type Runtime interface {
	Settings() driving.SettingsService
	Services(ctx context.Context) (*Services, error)
	Close() error
}

// RuntimeFactory creates a runtime for a config directory. An empty directory
// means the default.
type RuntimeFactory func(configDir string) (Runtime, error)

var (
	ownerFlag     string
	configDirFlag string
	verboseFlag   bool
	jsonFlag      bool

	newRuntime RuntimeFactory
	rt         Runtime
)

var rootCmd = &cobra.Command{
	Use:   "studyrag",
	Short: "Ask questions about your PDFs",
	Long: `studyrag ingests PDF study material, indexes it for semantic search and
answers questions using only the passages it finds.

Documents belong to an owner. Pass --owner or set STUDYRAG_OWNER.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		return loadDotEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ownerFlag, "owner", "", "owner identifier (default from STUDYRAG_OWNER or config)")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "configuration directory (default ~/.studyrag)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log pipeline stages to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output results as JSON")
}

// Execute runs the command line and returns the process exit code.
func Execute(ver string, factory RuntimeFactory) int {
	version = ver
	newRuntime = factory

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if rt != nil {
		if cerr := rt.Close(); cerr != nil {
			logger.Warn("close: %v", cerr)
		}
		rt = nil
	}
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitOK
}

// exitCode maps an error to the process exit code for its kind.
func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return ExitValidation
	case domain.KindConflict:
		return ExitConflict
	case domain.KindNotFound:
		return ExitNotFound
	case domain.KindExternalDependency:
		return ExitExternal
	case domain.KindStorage:
		return ExitStorage
	default:
		return ExitFailure
	}
}

// loadDotEnv loads .env from the working directory when present.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}

func runtimeFor() (Runtime, error) {
	if rt != nil {
		return rt, nil
	}
	if newRuntime == nil {
		return nil, errors.New("application not configured")
	}
	r, err := newRuntime(configDirFlag)
	if err != nil {
		return nil, err
	}
	rt = r
	return rt, nil
}

func settingsService() (driving.SettingsService, error) {
	r, err := runtimeFor()
	if err != nil {
		return nil, err
	}
	return r.Settings(), nil
}

func loadServices(cmd *cobra.Command) (*Services, error) {
	r, err := runtimeFor()
	if err != nil {
		return nil, err
	}
	return r.Services(cmd.Context())
}

// owner resolves the owner from the flag, then the environment and config.
func owner() (string, error) {
	if o := strings.TrimSpace(ownerFlag); o != "" {
		return o, nil
	}
	settings, err := settingsService()
	if err != nil {
		return "", err
	}
	s, err := settings.Get()
	if err != nil {
		return "", err
	}
	if o := strings.TrimSpace(s.Owner); o != "" {
		return o, nil
	}
	return "", domain.ValidationError("owner", "no owner given: pass --owner or set STUDYRAG_OWNER", domain.ErrInvalidInput)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
