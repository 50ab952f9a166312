package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/studyrag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure storage, AI providers, segmentation and retrieval.

Settings are stored in config.toml in the config directory. OPENAI_API_KEY
and STUDYRAG_OWNER override the stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  studyrag settings set llm.provider openai
  studyrag settings set retrieval.top_k 5

Run 'studyrag settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsAPIKeyCmd = &cobra.Command{
	Use:   "api-key [embedding|llm]",
	Short: "Store a provider API key",
	Long:  `Prompt for an API key without echoing it and store it in the settings.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsAPIKey,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured providers",
	Long:  `Check the settings and confirm the configured providers are reachable.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsAPIKeyCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	ownerID := settings.Owner
	if ownerID == "" {
		ownerID = "(not set)"
	}
	cmd.Printf("Owner: %s\n", ownerID)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data Dir: %s\n", settings.Storage.DataDir)
	}
	if settings.Storage.Backend == domain.StoragePostgres {
		cmd.Printf("  Postgres DSN: %s\n", maskDSN(settings.Storage.PostgresDSN))
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", describeAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", describeAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Segmenter]")
	cmd.Printf("  Max Chunk Size: %d\n", settings.Segmenter.MaxChunkSize)
	cmd.Printf("  Min Paragraph Length: %d\n", settings.Segmenter.MinParagraphLength)
	cmd.Printf("  Min Chunk Length: %d\n", settings.Segmenter.MinChunkLength)
	cmd.Printf("  Min Alpha Ratio: %.2f\n", settings.Segmenter.MinAlphaRatio)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Granularity: %s\n", settings.Retrieval.Granularity)
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Min Viable Length: %d\n", settings.Retrieval.MinViableLength)
	cmd.Printf("  Preview Length: %d\n", settings.Retrieval.PreviewLength)
	cmd.Printf("  Context Budget: %d\n", settings.Retrieval.ContextBudget)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	if err := svc.Set(args[0], args[1]); err != nil {
		return err
	}

	cmd.Printf("%s updated.\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	for _, key := range svc.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsAPIKey(cmd *cobra.Command, args []string) error {
	var key string
	switch args[0] {
	case "embedding":
		key = "embedding.api_key"
	case "llm":
		key = "llm.api_key"
	default:
		return domain.ValidationError("settings", fmt.Sprintf("unknown provider kind %q, want embedding or llm", args[0]), domain.ErrInvalidInput)
	}

	svc, err := settingsService()
	if err != nil {
		return err
	}

	cmd.Print("API Key: ")
	value, err := readSecret(cmd)
	cmd.Println()
	if err != nil {
		return fmt.Errorf("reading API key: %w", err)
	}
	if value == "" {
		return errors.New("no API key entered")
	}

	if err := svc.Set(key, value); err != nil {
		return err
	}

	cmd.Printf("%s stored (%s).\n", key, maskAPIKey(value))
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	if err := svc.Validate(cmd.Context()); err != nil {
		return err
	}

	cmd.Println("Configuration is valid.")
	return nil
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func describeAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

// maskAPIKey masks an API key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password in a connection string.
func maskDSN(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		creds = creds[:colon] + ":****"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}
