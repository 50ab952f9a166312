package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var historyLimit int

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from your documents",
	Long: `Retrieve the closest passages and ask the configured LLM to answer using
only that context. Questions with no matching passages are answered without
calling the LLM.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent questions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ownerID, err := owner()
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Answers == nil {
		return errors.New("answer service not configured")
	}

	answer, err := svc.Answers.Ask(cmd.Context(), ownerID, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	if len(answer.Matches) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		seen := make(map[string]bool)
		for _, m := range answer.Matches {
			if seen[m.DocumentID] {
				continue
			}
			seen[m.DocumentID] = true
			cmd.Printf("  - %s\n", m.Title)
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ownerID, err := owner()
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Answers == nil {
		return errors.New("answer service not configured")
	}

	records, err := svc.Answers.History(cmd.Context(), ownerID, historyLimit)
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No questions asked yet.")
		return nil
	}
	for _, r := range records {
		cmd.Printf("%s  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Question)
	}
	return nil
}
