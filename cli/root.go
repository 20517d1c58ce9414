// Package cli implements the ingen command tree. Every command receives
// its configuration manager and logger through the command context, so
// there is no process-global state beyond the default logger.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ingenious-ai/ingenious/pkg/config"
	"github.com/ingenious-ai/ingenious/pkg/logger"
	"github.com/ingenious-ai/ingenious/pkg/version"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "ingen",
		Short:   "Chunk documents into stable, token-bounded records",
		Version: version.GetVersion(),
		Long: `ingen splits local documents into chunk records with stable identifiers,
ready for embedding and retrieval pipelines. Chunking strategy, sizing and
identifier derivation are driven by the config file, flags and environment
variables, in that order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCommandContext(cmd)
		},
	}
	addGlobalFlags(root)
	root.AddCommand(
		ChunkCmd(),
		ConfigCmd(),
		VersionCmd(),
	)
	return root
}

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Printf("ingen version %s\n", info.Version)
			fmt.Printf("commit: %s\n", info.CommitHash)
			fmt.Printf("built: %s\n", info.BuildDate)
		},
	}
}

func addGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("config", "c", "ingen.yaml", "Path to the config file")
	root.PersistentFlags().String("env-file", "", "Load environment variables from this file before configuration")
	root.PersistentFlags().String("cwd", "", "Run as if started from this directory")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "Include source locations in log output")
	root.PersistentFlags().Bool("debug", false, "Shorthand for --log-level debug")
	root.PersistentFlags().BoolP("quiet", "q", false, "Disable log output")
	root.PersistentFlags().Bool("json", false, "Force JSON output regardless of terminal detection")
}

// setupCommandContext prepares the context every command runs with: the
// working directory and env file are applied first because both feed the
// configuration load, then the loaded configuration decides the logger.
func setupCommandContext(cmd *cobra.Command) error {
	if err := applyWorkingDirectory(cmd); err != nil {
		return err
	}
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	manager, cfg, err := loadConfiguration(ctx, cmd)
	if err != nil {
		return err
	}
	ctx = config.ContextWithManager(ctx, manager)
	ctx = logger.ContextWithLogger(ctx, setupLoggerFromConfig(cmd, cfg))
	cmd.SetContext(ctx)
	return nil
}

func applyWorkingDirectory(cmd *cobra.Command) error {
	cwd, err := cmd.Flags().GetString("cwd")
	if err != nil {
		return fmt.Errorf("failed to get cwd flag: %w", err)
	}
	if cwd == "" {
		return nil
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return fmt.Errorf("failed to resolve working directory %q: %w", cwd, err)
	}
	if err := os.Chdir(abs); err != nil {
		return fmt.Errorf("failed to change working directory to %q: %w", abs, err)
	}
	return nil
}

// loadConfiguration builds the source chain and loads it through a fresh
// manager. Precedence from lowest to highest: defaults, YAML file, CLI
// flags, environment variables.
func loadConfiguration(ctx context.Context, cmd *cobra.Command) (*config.Manager, *config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	sources := []config.Source{
		config.NewEnvProvider(),
		config.NewYAMLProvider(configFile),
	}
	flags := make(map[string]any)
	extractCLIFlags(cmd, flags)
	if len(flags) > 0 {
		sources = append(sources, config.NewCLIProvider(flags))
	}
	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return manager, cfg, nil
}

func setupLoggerFromConfig(cmd *cobra.Command, cfg *config.Config) logger.Logger {
	level := cfg.Runtime.LogLevel
	if debug, err := cmd.Flags().GetBool("debug"); err == nil && debug {
		level = string(logger.DebugLevel)
	}
	if quiet, err := cmd.Flags().GetBool("quiet"); err == nil && quiet {
		level = string(logger.DisabledLevel)
	}
	logJSON := cfg.Runtime.LogJSON
	logSource, _ := cmd.Flags().GetBool("log-source")
	logger.SetupLogger(level, logJSON, logSource)
	return logger.GetDefault()
}
