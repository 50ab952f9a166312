package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var flashcardCount int

var flashcardsCmd = &cobra.Command{
	Use:   "flashcards",
	Short: "Generate and list study flashcards",
}

var flashcardsGenerateCmd = &cobra.Command{
	Use:   "generate [doc-id]",
	Short: "Generate flashcards for a document",
	Long: `Ask the configured LLM for question and answer pairs drawn from a
document. The count is clamped to between 1 and 20.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlashcardsGenerate,
}

var flashcardsListCmd = &cobra.Command{
	Use:   "list [doc-id]",
	Short: "List stored flashcards for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlashcardsList,
}

func init() {
	flashcardsGenerateCmd.Flags().IntVarP(&flashcardCount, "count", "n", 5, "number of flashcards")
	flashcardsCmd.AddCommand(flashcardsGenerateCmd)
	flashcardsCmd.AddCommand(flashcardsListCmd)
	rootCmd.AddCommand(flashcardsCmd)
}

func flashcardServices(cmd *cobra.Command) (string, *Services, error) {
	ownerID, err := owner()
	if err != nil {
		return "", nil, err
	}
	svc, err := loadServices(cmd)
	if err != nil {
		return "", nil, err
	}
	if svc.Flashcards == nil {
		return "", nil, errors.New("flashcard service not configured")
	}
	return ownerID, svc, nil
}

func runFlashcardsGenerate(cmd *cobra.Command, args []string) error {
	ownerID, svc, err := flashcardServices(cmd)
	if err != nil {
		return err
	}

	set, err := svc.Flashcards.Generate(cmd.Context(), ownerID, args[0], flashcardCount)
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd, set)
	}

	cmd.Println(set.Message)
	cmd.Println()
	for i, card := range set.Cards {
		cmd.Printf("%d. Q: %s\n   A: %s\n\n", i+1, card.Question, card.Answer)
	}
	return nil
}

func runFlashcardsList(cmd *cobra.Command, args []string) error {
	ownerID, svc, err := flashcardServices(cmd)
	if err != nil {
		return err
	}

	cards, err := svc.Flashcards.List(cmd.Context(), ownerID, args[0])
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd, cards)
	}

	for i, card := range cards {
		cmd.Printf("%d. Q: %s\n   A: %s\n\n", i+1, card.Question, card.Answer)
	}
	cmd.Printf("Total: %d flashcards\n", len(cards))
	return nil
}
