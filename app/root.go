// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "baseprojeto",
	Short: "Base Projeto is a web-based user and permission management panel",
	Long: `Base Projeto is a web-based administration panel for managing users,
access levels and granular permissions, with session-cached authorization
checks and soft-delete account lifecycle.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
