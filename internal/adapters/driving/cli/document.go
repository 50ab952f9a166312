package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
	Long:  `List, view, or delete the owner's ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Removes a document, its vectors and its flashcards.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

type documentView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ChunkCount  int    `json:"chunkCount"`
	Granularity string `json:"granularity"`
	CreatedAt   string `json:"createdAt"`
}

func documentServices(cmd *cobra.Command) (string, *Services, error) {
	ownerID, err := owner()
	if err != nil {
		return "", nil, err
	}
	svc, err := loadServices(cmd)
	if err != nil {
		return "", nil, err
	}
	if svc.Documents == nil {
		return "", nil, errors.New("document service not configured")
	}
	return ownerID, svc, nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	ownerID, svc, err := documentServices(cmd)
	if err != nil {
		return err
	}

	docs, err := svc.Documents.List(cmd.Context(), ownerID)
	if err != nil {
		return err
	}

	if jsonFlag {
		views := make([]documentView, 0, len(docs))
		for i := range docs {
			views = append(views, documentView{
				ID:          docs[i].ID,
				Title:       docs[i].Title,
				ChunkCount:  docs[i].ChunkCount,
				Granularity: string(docs[i].Granularity),
				CreatedAt:   docs[i].CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		return printJSON(cmd, views)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Printf("Documents for %s:\n\n", ownerID)
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title: %s\n", docs[i].Title)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	ownerID, svc, err := documentServices(cmd)
	if err != nil {
		return err
	}

	doc, err := svc.Documents.Get(cmd.Context(), ownerID, args[0])
	if err != nil {
		return err
	}

	if jsonFlag {
		return printJSON(cmd, documentView{
			ID:          doc.ID,
			Title:       doc.Title,
			ChunkCount:  doc.ChunkCount,
			Granularity: string(doc.Granularity),
			CreatedAt:   doc.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:       %s\n", doc.Title)
	cmd.Printf("  Chunks:      %d\n", doc.ChunkCount)
	cmd.Printf("  Granularity: %s\n", doc.Granularity)
	cmd.Printf("  Created:     %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	ownerID, svc, err := documentServices(cmd)
	if err != nil {
		return err
	}

	content, err := svc.Documents.GetContent(cmd.Context(), ownerID, args[0])
	if err != nil {
		return err
	}

	cmd.Println(content)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	ownerID, svc, err := documentServices(cmd)
	if err != nil {
		return err
	}

	if err := svc.Documents.Delete(cmd.Context(), ownerID, args[0]); err != nil {
		return err
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}
