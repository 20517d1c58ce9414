package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// extractCLIFlags extracts command line flags from a cobra command into a map.
// It processes only flags that have been explicitly changed by the user, so
// unset flags never mask file or environment values.
func extractCLIFlags(cmd *cobra.Command, flags map[string]any) {
	addFlag := func(flagName string, getter func(string) (any, error)) {
		if cmd.Flags().Changed(flagName) {
			if value, err := getter(flagName); err == nil {
				flags[flagName] = value
			}
		}
	}

	getString := func(name string) (any, error) { return cmd.Flags().GetString(name) }
	getInt := func(name string) (any, error) { return cmd.Flags().GetInt(name) }
	getBool := func(name string) (any, error) { return cmd.Flags().GetBool(name) }
	getStringSlice := func(name string) (any, error) { return cmd.Flags().GetStringSlice(name) }

	// Flag names double as provider keys; pkg/config maps them onto
	// configuration paths.
	flagDefs := []struct {
		flagName string
		getter   func(string) (any, error)
	}{
		// Chunking flags
		{"strategy", getString},
		{"chunk-size", getInt},
		{"chunk-overlap", getInt},
		{"overlap-unit", getString},
		{"encoding-name", getString},
		{"id-path-mode", getString},
		{"id-base", getString},
		{"id-hash-bits", getInt},
		{"semantic-threshold-percentile", getInt},
		{"separators", getStringSlice},

		// Embedding backend flags
		{"embed-model", getString},
		{"azure-deployment", getString},

		// Output flags
		{"output-dir", getString},
		{"output-format", getString},

		// Logging flags
		{"log-level", getString},
		{"log-json", getBool},
	}

	for _, def := range flagDefs {
		addFlag(def.flagName, def.getter)
	}
}

// loadEnvFile loads environment variables from a file with path validation.
// A missing file is tolerated so projects without an env file run cleanly.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return "", fmt.Errorf("env file path %q is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}
