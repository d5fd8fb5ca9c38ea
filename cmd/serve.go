package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/assist"
	"github.com/lex00/wetwire-lsp-go/config"
	"github.com/lex00/wetwire-lsp-go/lint"
	"github.com/lex00/wetwire-lsp-go/logging"
	"github.com/lex00/wetwire-lsp-go/lsp"
	"github.com/lex00/wetwire-lsp-go/session"
	"github.com/lex00/wetwire-lsp-go/version"
)

// NewServeCommand creates the command that runs the language server.
func NewServeCommand() *cobra.Command {
	var (
		listen    string
		sync      string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the language server",
		Long: `Serve runs the language server.

By default a single session is served over stdin and stdout. With --listen
the server accepts TCP connections and runs one session per connection until
interrupted. Logs are written to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Listen = listen
			}
			if flags.Changed("sync") {
				cfg.Sync = sync
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			logger, err := logging.New(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cmd.ErrOrStderr(),
				Debug:  verbose,
			})
			if err != nil {
				return err
			}
			if path != "" {
				logger.Debug().Str("config", path).Msg("loaded config")
			}

			serverConfig, err := ServerConfig(cfg, logger)
			if err != nil {
				return err
			}
			factory := lsp.Factory(serverConfig)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Listen != "" {
				l, err := net.Listen("tcp", cfg.Listen)
				if err != nil {
					return fmt.Errorf("listen: %w", err)
				}
				return session.Serve(ctx, l, factory, logger, session.RequireInitialize())
			}

			s := session.New(cmd.InOrStdin(), cmd.OutOrStdout(), factory,
				session.WithLogger(logger),
				session.RequireInitialize(),
			)
			return s.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Accept TCP connections on this address instead of using stdio")
	cmd.Flags().StringVar(&sync, "sync", config.SyncIncremental, "Document sync mode (incremental, full)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")

	return cmd
}

// ServerConfig builds the provider set for cfg.
func ServerConfig(cfg *config.Config, logger zerolog.Logger) (lsp.Config, error) {
	lintOpts, err := cfg.LintOptions()
	if err != nil {
		return lsp.Config{}, err
	}
	linter := lsp.NewLintProvider(lint.DefaultRules(cfg.Lint.MaxLineLength), lintOpts)

	sc := lsp.Config{
		Name:      cfg.Name,
		Version:   version.Version(),
		Linter:    linter,
		Formatter: linter,
		Actions:   linter,
		Completer: &lsp.WordCompleter{MinPrefix: 1},
		Sync:      protocol.TextDocumentSyncKindIncremental,
		Logger:    logger,
	}
	if cfg.Sync == config.SyncFull {
		sc.Sync = protocol.TextDocumentSyncKindFull
	}

	if cfg.Assist.Enabled {
		hover, err := assist.New(assist.Config{
			Model:     cfg.Assist.Model,
			MaxTokens: cfg.Assist.MaxTokens,
			Logger:    logger,
		})
		if err != nil {
			return lsp.Config{}, fmt.Errorf("assist: %w", err)
		}
		sc.HoverDocs = hover
	}
	return sc, nil
}
