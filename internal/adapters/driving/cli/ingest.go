package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>...",
	Short: "Ingest PDF documents",
	Long: `Extract, segment and index one or more PDF files for the owner.

The file name becomes the document title. A title the owner already has is
rejected; delete the existing document first to replace it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

type ingestResult struct {
	File       string `json:"file"`
	DocumentID string `json:"documentId,omitempty"`
	Error      string `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	var (
		errs    []error
		results = make([]ingestResult, 0, len(args))
	)
	for _, path := range args {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		result := ingestResult{File: path}
		id, err := ingestFile(cmd, ownerID, path, svc)
		if err != nil {
			result.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		} else {
			result.DocumentID = id
		}
		results = append(results, result)
	}

	if jsonFlag {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
		return errors.Join(errs...)
	}

	for _, r := range results {
		if r.Error != "" {
			cmd.Printf("  failed   %s: %s\n", r.File, r.Error)
			continue
		}
		cmd.Printf("  ingested %s -> %s\n", r.File, r.DocumentID)
	}
	return errors.Join(errs...)
}

func ingestFile(cmd *cobra.Command, ownerID, path string, svc *Services) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return svc.Retrieval.IngestPDF(cmd.Context(), ownerID, filepath.Base(path), content)
}
