package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "mcp-zebrunner",
	Short: "MCP server for Zebrunner with failed-test video analysis",
	Long: "mcp-zebrunner exposes Zebrunner launches, logs and TCM test cases as MCP\n" +
		"tools, and analyzes session recordings of failed executions to predict\n" +
		"whether a failure is an application bug, an outdated test, an\n" +
		"infrastructure problem or bad test data.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "Path to YAML config file (env vars override)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(testCaseCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
