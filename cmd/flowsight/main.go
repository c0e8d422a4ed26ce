// Package main implements the flowsight CLI for running workflow pattern
// detection over a CRM export file.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version information (set via ldflags during build)
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "flowsight",
	Short: "Workflow pattern detection for CRM exports",
	Long: `flowsight ingests CRM deal/workflow records, discovers recurring
operational patterns among them, and reports each pattern's statistical
profile along with cross-pattern insights.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
