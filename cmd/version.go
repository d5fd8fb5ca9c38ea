package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-lsp-go/version"
)

// NewVersionCommand creates a command that prints the build version.
func NewVersionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String(name))
			return err
		},
	}
}
