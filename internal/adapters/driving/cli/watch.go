package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var watchNoScan bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep a folder of PDFs in sync",
	Long: `Ingest every PDF in a directory, then watch it. New files are ingested,
changed files are re-ingested and removed files are deleted from the index.

Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "skip the initial scan of existing files")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ownerID, err := owner()
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd)
	if err != nil {
		return err
	}
	if svc.Watch == nil || svc.NewWatcher == nil {
		return errors.New("watch service not configured")
	}

	ctx := cmd.Context()
	dir := args[0]

	watcher := svc.NewWatcher(dir)
	defer watcher.Close()

	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	if !watchNoScan && svc.ListPDFs != nil {
		files, err := svc.ListPDFs(dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		n, err := svc.Watch.Scan(ctx, ownerID, files)
		if err != nil {
			return err
		}
		cmd.Printf("Ingested %d of %d files\n", n, len(files))
	}

	cmd.Printf("Watching %s\n", dir)
	if err := svc.Watch.Run(ctx, ownerID, changes); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
