package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/api"
	"github.com/custodia-labs/docqa/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP question-answering server",
	Long: `Loads the persisted index and serves questions over HTTP.

Endpoints:
  POST /query   {"question": "..."} -> {"answer": "...", "sources": [...]}
  GET  /health  readiness and index size
  GET  /        a small browser client

The server refuses to start when the LLM credential is missing or the index
has not been built.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, settings, release, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer release()

	addr := settings.Server.Addr
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}

	server, err := api.NewServer(&api.Ports{Query: engine, Status: engine})
	if err != nil {
		return err
	}

	logger.Info("Answering from %d indexed chunks", engine.Entries())
	cmd.Printf("Listening on %s\n", displayAddr(addr))
	if err := server.Run(ctx, addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// displayAddr turns ":8000" into a clickable URL.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
