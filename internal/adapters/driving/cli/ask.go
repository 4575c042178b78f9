package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the index",
	Long: `Answers a single question using only the indexed documents and prints
the answer followed by the chunks it was grounded on.

The question is read from standard input when no argument is given:
  echo "What is the refund policy?" | docqa ask`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Bool("json", false, "print the answer as JSON")
	askCmd.Flags().Bool("no-sources", false, "print only the answer")
	rootCmd.AddCommand(askCmd)
}

// askResult mirrors the HTTP response body.
type askResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question, err := readQuestion(cmd, args)
	if err != nil {
		return err
	}

	engine, _, release, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	answer, err := engine.Answer(cmd.Context(), question)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		result := askResult{Answer: answer.Answer, Sources: answer.Sources}
		if result.Sources == nil {
			result.Sources = []string{}
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Answer)
	if noSources, _ := cmd.Flags().GetBool("no-sources"); noSources || len(answer.Sources) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range answer.Sources {
		cmd.Printf("  [%d] %s\n", i+1, oneLine(src, 160))
	}
	return nil
}

// readQuestion takes the question from args or, when stdin is piped, from stdin.
func readQuestion(cmd *cobra.Command, args []string) (string, error) {
	var question string
	switch {
	case len(args) > 0:
		question = strings.Join(args, " ")
	case !stdinIsTerminal(cmd.InOrStdin()):
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
		if err != nil {
			return "", fmt.Errorf("read question: %w", err)
		}
		question = string(data)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: a question is required", domain.ErrInvalidInput)
	}
	return question, nil
}

func stdinIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// oneLine collapses whitespace and truncates s to at most n runes.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
