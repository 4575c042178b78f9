package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Build the index from a folder of documents",
	Long: `Walks the corpus directory, extracts text from .txt, .md, .pdf and .docx
files, splits it into overlapping chunks, embeds every chunk and replaces the
persisted index in one step.

Files that cannot be read are skipped and reported. When the corpus yields
no text the existing index is left untouched.

With --watch the command keeps running and rebuilds after files change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("index", "", "index directory (overrides paths.index_dir)")
	ingestCmd.Flags().Int("chunk-size", 0, "maximum chunk length in characters")
	ingestCmd.Flags().Int("chunk-overlap", -1, "characters shared by adjacent chunks")
	ingestCmd.Flags().BoolP("watch", "w", false, "rebuild when files change")
	ingestCmd.Flags().Duration("debounce", 2*time.Second, "quiet period before a watch rebuild")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := applyIngestFlags(cmd, args, settings); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, release, err := backend.Ingester(ctx, settings)
	if err != nil {
		return err
	}
	defer release()

	report, err := svc.Rebuild(ctx, settings.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printReport(cmd, report, settings.Paths.IndexDir)

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		return nil
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", settings.Paths.DataDir)
	err = svc.Watch(ctx, settings.Paths.DataDir, debounce, func(r *domain.IngestReport, err error) {
		if err == nil {
			printReport(cmd, r, settings.Paths.IndexDir)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyIngestFlags overlays command-line values and revalidates.
func applyIngestFlags(cmd *cobra.Command, args []string, settings *domain.AppSettings) error {
	if len(args) == 1 {
		settings.Paths.DataDir = args[0]
	}
	if v, _ := cmd.Flags().GetString("index"); v != "" {
		settings.Paths.IndexDir = v
	}
	if v, _ := cmd.Flags().GetInt("chunk-size"); v > 0 {
		settings.Ingest.ChunkSize = v
	}
	if v, _ := cmd.Flags().GetInt("chunk-overlap"); v >= 0 {
		settings.Ingest.ChunkOverlap = v
	}
	return settings.Validate()
}

func printReport(cmd *cobra.Command, r *domain.IngestReport, indexDir string) {
	for _, s := range r.Skipped {
		cmd.Printf("  skipped %s: %v\n", s.Path, s.Err)
	}
	if r.Empty {
		cmd.Printf("No text found in %s (%d files); the index was not changed.\n", r.Root, r.Files)
		return
	}
	cmd.Printf("Indexed %d chunks from %d documents in %s\n",
		r.Chunks, r.Documents, r.Duration.Round(time.Millisecond))
	logger.Debug("Index written to %s", indexDir)
}
