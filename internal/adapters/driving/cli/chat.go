package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
)

var errNotTerminal = errors.New("chat needs an interactive terminal; use 'docqa ask' instead")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive terminal chat",
	Long: `Opens a full-screen chat over the indexed documents.

Controls:
  Enter       - Ask
  Ctrl+S      - Show / hide sources
  Ctrl+L      - Clear the transcript
  PgUp/PgDn   - Scroll
  Esc, Ctrl+C - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if !stdinIsTerminal(cmd.InOrStdin()) {
		return errNotTerminal
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	engine, _, release, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	app, err := tui.NewApp(&tui.Ports{Query: engine, Status: engine})
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
