package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change docqa settings.

Settings are read from defaults, then the config file, then the environment.
DOCQA_DATA_DIR and DOCQA_INDEX_DIR override the corpus and index locations,
and the LLM key is read from the variable named by llm.api_key_env
(OPENROUTER_API_KEY by default).`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set one configuration key",
	Long: `Validates and saves one dotted configuration key, for example:
  docqa config set ingest.chunk_size 500
  docqa config set llm.provider ollama

API keys are prompted for without echo when the value is omitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that both AI providers are reachable",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive provider setup",
	Long:  `Choose the embedding and LLM providers step by step, then check them.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigWizard,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config file: %s\n", svc.ConfigPath())
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Data: %s\n", settings.Paths.DataDir)
	cmd.Printf("  Index: %s\n", settings.Paths.IndexDir)
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Chunk size: %d\n", settings.Ingest.ChunkSize)
	cmd.Printf("  Chunk overlap: %d\n", settings.Ingest.ChunkOverlap)
	cmd.Printf("  Batch size: %d\n", settings.Ingest.BatchSize)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top k: %d\n", settings.Retrieval.TopK)
	if settings.Retrieval.MinScore > 0 {
		cmd.Printf("  Min score: %.2f\n", settings.Retrieval.MinScore)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", describeKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", describeKey(settings.LLM.APIKey))
		if settings.LLM.APIKeyEnv != "" {
			cmd.Printf("  Key variable: %s\n", settings.LLM.APIKeyEnv)
		}
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Query timeout: %s\n", settings.Server.QueryTimeout)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func describeKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !isSecretKey(key) {
			return fmt.Errorf("%w: a value is required for %s", domain.ErrInvalidInput, key)
		}
		cmd.Printf("Enter value for %s: ", key)
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
	}

	if err := svc.Set(key, value); err != nil {
		return err
	}
	if isSecretKey(key) {
		cmd.Printf("Set %s = %s\n", key, maskAPIKey(value))
	} else {
		cmd.Printf("Set %s = %s\n", key, strings.TrimSpace(value))
	}
	return nil
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_key")
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	cmd.Println(svc.ConfigPath())
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	providerErr := checkProviders(cmd, settings)
	checkTools(cmd)
	checkIndex(cmd, settings)
	return providerErr
}

// checkProviders prints one line per provider and fails if any is unusable.
func checkProviders(cmd *cobra.Command, settings *domain.AppSettings) error {
	failed := 0
	for _, r := range backend.Check(cmd.Context(), settings) {
		if r.OK() {
			cmd.Printf("  %-9s %s (%s): OK\n", r.Component, r.Provider, r.Model)
			continue
		}
		failed++
		cmd.Printf("  %-9s %s (%s): FAILED: %v\n", r.Component, r.Provider, r.Model, r.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d provider check(s) failed", failed)
	}
	cmd.Println("All providers are reachable.")
	return nil
}

// checkTools reports missing extraction tools as warnings.
func checkTools(cmd *cobra.Command) {
	for _, t := range backend.Tools() {
		if t.OK() {
			cmd.Printf("  %-9s %s: OK\n", "tool", t.Name)
			continue
		}
		cmd.Printf("  %-9s %s: WARNING: %v; %s will be skipped\n", "tool", t.Name, t.Err, t.Usage)
		for _, line := range strings.Split(t.Hint, "\n") {
			if line != "" {
				cmd.Printf("  %-9s %s\n", "", line)
			}
		}
	}
}

// checkIndex describes the persisted index and warns when it was built
// with a different embedding model than the one configured.
func checkIndex(cmd *cobra.Command, settings *domain.AppSettings) {
	m, err := backend.IndexManifest(cmd.Context(), settings)
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		cmd.Printf("  %-9s not built; run 'docqa ingest'\n", "index")
	case err != nil:
		cmd.Printf("  %-9s FAILED: %v\n", "index", err)
	default:
		cmd.Printf("  %-9s %d entries, %s (%d dims), built %s\n", "index",
			m.Entries, m.EmbeddingModel, m.Dimensions, m.CreatedAt.Local().Format(time.DateTime))
		if m.EmbeddingModel != settings.Embedding.Model {
			cmd.Printf("  %-9s WARNING: built with %s but %s is configured; run 'docqa ingest' again\n",
				"", m.EmbeddingModel, settings.Embedding.Model)
		}
	}
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	cmd.Println("docqa Setup Wizard")
	cmd.Println("==================")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureProvider(cmd, in, reader, svc, embeddingStep); err != nil {
		return err
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	if err := configureProvider(cmd, in, reader, svc, llmStep); err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Validating configuration...")
	if err := checkProviders(cmd, settings); err != nil {
		cmd.Println("Settings were saved; fix the provider and run 'docqa config check'.")
		return err
	}
	return nil
}

// providerStep describes one wizard step.
type providerStep struct {
	providers   []domain.AIProvider
	keyPrefix   string
	modelFor    func(domain.AIProvider) string
	keyEnvFor   func(domain.AIProvider) string
	description string
}

var embeddingStep = providerStep{
	providers:   domain.AllEmbeddingProviders(),
	keyPrefix:   "embedding",
	modelFor:    func(p domain.AIProvider) string { return domain.DefaultEmbeddingSettings(p).Model },
	keyEnvFor:   func(domain.AIProvider) string { return domain.OpenAIAPIKeyEnv },
	description: "embedding",
}

var llmStep = providerStep{
	providers:   domain.AllLLMProviders(),
	keyPrefix:   "llm",
	modelFor:    func(p domain.AIProvider) string { return domain.DefaultLLMSettings(p).Model },
	keyEnvFor:   func(p domain.AIProvider) string { return domain.DefaultLLMSettings(p).APIKeyEnv },
	description: "LLM",
}

func configureProvider(
	cmd *cobra.Command, in io.Reader, reader *bufio.Reader, svc driving.SettingsService, step providerStep,
) error {
	for i, p := range step.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(step.providers), 1)
	provider := step.providers[idx-1]

	defaultModel := step.modelFor(provider)
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := svc.Set(step.keyPrefix+".provider", provider.String()); err != nil {
		return fmt.Errorf("failed to set %s provider: %w", step.description, err)
	}
	if err := svc.Set(step.keyPrefix+".model", model); err != nil {
		return fmt.Errorf("failed to set %s model: %w", step.description, err)
	}

	if provider.RequiresAPIKey() {
		env := step.keyEnvFor(provider)
		cmd.Printf("Enter API key (leave blank to read %s): ", env)
		apiKey := readPasswordFrom(in, reader)
		cmd.Println()
		if apiKey != "" {
			if err := svc.Set(step.keyPrefix+".api_key", apiKey); err != nil {
				return fmt.Errorf("failed to set %s API key: %w", step.description, err)
			}
		} else if os.Getenv(env) == "" {
			cmd.Printf("Remember to export %s before asking questions.\n", env)
		}
	}

	cmd.Printf("%s provider set: %s (%s)\n\n", step.description, provider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret from r without echo when r is a terminal.
func readPassword(r io.Reader) string {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(bufio.NewReader(r))
}

// readPasswordFrom is readPassword for input already wrapped in reader.
// Terminal input bypasses the buffer; piped input must keep using it.
func readPasswordFrom(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) && reader.Buffered() == 0 {
		if password, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
