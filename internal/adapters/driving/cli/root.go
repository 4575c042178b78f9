// Package cli implements the docqa command line with cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Engine answers questions and reports on the index it answers from.
type Engine interface {
	driving.QueryService
	driving.IndexStatus
}

// Backend builds the services each command needs from resolved settings.
// Every constructor returns a release func that must be called when done.
type Backend interface {
	// Settings opens the settings service. An empty path uses the default location.
	Settings(configPath string) (driving.SettingsService, error)

	// Ingester builds the offline ingestion pipeline.
	Ingester(ctx context.Context, settings *domain.AppSettings) (driving.IngestService, func(), error)

	// Engine opens the persisted index and connects both AI providers.
	// A missing credential is returned as domain.ErrMissingCredential.
	Engine(ctx context.Context, settings *domain.AppSettings) (Engine, func(), error)

	// Check pings each configured provider.
	Check(ctx context.Context, settings *domain.AppSettings) []domain.ProviderCheck

	// Tools looks up the external programs used by the loaders.
	Tools() []domain.ToolCheck

	// IndexManifest describes the persisted index without loading it.
	// Returns domain.ErrIndexNotFound when nothing has been ingested.
	IndexManifest(ctx context.Context, settings *domain.AppSettings) (domain.IndexManifest, error)
}

var errNoBackend = errors.New("backend not configured")

var (
	backend    Backend
	configPath string
	envFile    string
	verbose    bool
)

// SetBackend installs the service factory used by all commands.
func SetBackend(b Backend) {
	backend = b
}

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a folder of documents",
	Long: `docqa indexes a folder of text, PDF and Word documents and answers
natural-language questions using only what those documents say.

Build the index once with 'docqa ingest', then ask questions with
'docqa ask', the interactive 'docqa chat', the HTTP API started by
'docqa serve', or an MCP client via 'docqa mcp serve'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.docqa/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load credentials from")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if envFile == "" {
		return nil
	}
	// Variables already set in the environment win over the file.
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("No %s file found", envFile)
			return nil
		}
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	logger.Debug("Loaded environment from %s", envFile)
	return nil
}

// settingsService opens the settings service from the installed backend.
func settingsService() (driving.SettingsService, error) {
	if backend == nil {
		return nil, errNoBackend
	}
	return backend.Settings(configPath)
}

// loadSettings resolves and validates the effective settings.
func loadSettings() (*domain.AppSettings, error) {
	svc, err := settingsService()
	if err != nil {
		return nil, err
	}
	settings, err := svc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// openEngine resolves settings and builds a query engine from them.
func openEngine(ctx context.Context) (Engine, *domain.AppSettings, func(), error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, nil, err
	}
	engine, release, err := backend.Engine(ctx, settings)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, nil, nil, fmt.Errorf("%w; run 'docqa ingest' first", err)
		}
		return nil, nil, nil, err
	}
	return engine, settings, release, nil
}

// exitCode maps a command error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, domain.ErrMissingCredential):
		return 2
	default:
		return 1
	}
}

// Main runs the CLI and exits the process with a status derived from the error.
func Main(b Backend) {
	SetBackend(b)
	os.Exit(exitCode(Execute()))
}
