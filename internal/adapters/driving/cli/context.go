package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var contextTopK int

var contextCmd = &cobra.Command{
	Use:   "context <question>",
	Short: "Show the passages that would ground an answer",
	Long: `Embed the question and print the closest passages from the owner's
documents, nearest first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().IntVarP(&contextTopK, "top-k", "k", 0, "number of passages (0 = configured default)")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	ownerID, err := owner()
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Retrieval == nil {
		return errors.New("retrieval service not configured")
	}

	question := strings.Join(args, " ")
	result, err := svc.Retrieval.AnswerableContext(cmd.Context(), ownerID, question, contextTopK)
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd, result)
	}

	if !result.ContextAvailable {
		cmd.Println("No matching passages found.")
		return nil
	}
	for i, m := range result.Matches {
		cmd.Printf("%d. %s (distance %.4f)\n", i+1, m.Title, m.Distance)
		cmd.Printf("   %s\n\n", m.Content)
	}
	return nil
}
