// Package cmd contains the mineblock command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Build and Log are set by main before Execute runs.
var (
	Build string
	Log   *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "mineblock",
	Short: "Mine a single blockweave block",
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}
