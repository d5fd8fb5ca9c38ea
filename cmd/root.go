package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-lsp-go/config"
)

// NewRootCommand creates the root command for the language server CLI.
func NewRootCommand(name, description string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: description,
		Long: description + `

This CLI runs the language server over stdio or TCP and checks files with
the same lint rules the server publishes as diagnostics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags available to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to "+config.Filename+" (default: search upward from the working directory)")

	return cmd
}

// loadConfig reads the file named by --config, or searches for one.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err := config.LoadFile(path)
		return cfg, path, err
	}
	return config.Load()
}
