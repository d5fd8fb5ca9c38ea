// wetwire-lsp runs the wetwire language server.
//
// Usage:
//
//	wetwire-lsp serve                  # one session over stdio
//	wetwire-lsp serve --listen :7777   # TCP, one session per connection
//	wetwire-lsp check ./docs --fix
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/lex00/wetwire-lsp-go/cmd"
	"github.com/lex00/wetwire-lsp-go/session"
)

const name = "wetwire-lsp"

func main() {
	root := cmd.NewRootCommand(name, "Language server for wetwire projects")
	root.AddCommand(
		cmd.NewServeCommand(),
		cmd.NewCheckCommand(),
		cmd.NewVersionCommand(name),
	)

	if err := root.Execute(); err != nil {
		// Exit without shutdown is reported through the exit code alone.
		if !errors.Is(err, session.ErrExitWithoutShutdown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
