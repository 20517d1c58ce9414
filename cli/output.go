package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB454"))
)

// isRunningInCI checks if we're running in a CI/CD environment.
func isRunningInCI() bool {
	ciVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"BUILDKITE",
		"JENKINS_URL",
		"CONTINUOUS_INTEGRATION",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// jsonOutput reports whether command results should be printed as JSON.
// The --json flag forces it; otherwise JSON is used whenever stdout is not
// an interactive terminal.
func jsonOutput(cmd *cobra.Command) bool {
	if forced, err := cmd.Flags().GetBool("json"); err == nil && forced {
		return true
	}
	if isRunningInCI() {
		return true
	}
	return !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// shouldUseColor reports whether styled output is safe for stdout.
func shouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if term := os.Getenv("TERM"); term == "dumb" || term == "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func printJSON(payload any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func printSuccess(message string) {
	if shouldUseColor() {
		fmt.Println(successStyle.Render("✔ " + message))
		return
	}
	fmt.Println(message)
}

func printDetail(label, value string) {
	if shouldUseColor() {
		fmt.Printf("  %s %s\n", labelStyle.Render(label+":"), value)
		return
	}
	fmt.Printf("  %s: %s\n", label, value)
}

func printWarning(message string) {
	if shouldUseColor() {
		fmt.Println(warnStyle.Render("⚠ " + message))
		return
	}
	fmt.Println("warning: " + message)
}
