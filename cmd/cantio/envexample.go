package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type envSection struct {
	title string
	flags []string
}

var envSections = []envSection{
	{"HTTP Server", []string{
		"server-host", "server-port", "server-read-timeout", "server-write-timeout", "server-rate-limit-per-minute",
	}},
	{"Resolver", []string{
		"resolver-attempt-budget", "resolver-fallback-attempt-budget", "resolver-retry-base-delay",
		"resolver-request-deadline", "resolver-extract-timeout", "resolver-same-url-limit-per-minute",
	}},
	{"Extractor (yt-dlp)", []string{"extractor-executable", "extractor-cookies-file"}},
	{"Fallback Search", []string{"fallback-platforms", "fallback-legacy-search-enabled"}},
	{"Proxy Rotation", []string{
		"proxy-enabled", "proxy-max-size", "proxy-reuse-probability", "proxy-discovery-timeout",
		"proxy-require-https", "proxy-list-url",
	}},
	{"Spotify Query Refinement (optional)", []string{"spotify-client-id", "spotify-client-secret"}},
	{"Logging", []string{"log-level", "log-format"}},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# Cantio Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SECTION>_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		generateSection(&content, cmd, section)
	}

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", section.title)
	content.WriteString("# -----------------------------------------------------------------------------\n")

	cliFlags := make([]string, 0, len(section.flags))
	for _, name := range section.flags {
		cliFlags = append(cliFlags, "--"+name)
	}
	fmt.Fprintf(content, "# CLI: %s\n", strings.Join(cliFlags, ", "))

	for _, name := range section.flags {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(content, "# %s\n", f.Usage)
		fmt.Fprintf(content, "%s=%s\n", flagToEnvVar(name), getDefaultValueString(cmd, name))
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// getDefaultValueString renders slice defaults without pflag's brackets.
func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	f := cmd.PersistentFlags().Lookup(flagName)
	if f == nil {
		return ""
	}
	if strings.HasSuffix(f.Value.Type(), "Slice") {
		return strings.Trim(f.DefValue, "[]")
	}
	return f.DefValue
}
