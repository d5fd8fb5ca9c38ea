package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-lsp-go/lint"
)

// NewCheckCommand creates a command that lints files with the server's rules.
func NewCheckCommand() *cobra.Command {
	var (
		fix       bool
		listRules bool
		exts      []string
	)

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Check files for issues",
		Long: `Check lints files with the same rules the server publishes as
diagnostics. Directories are searched recursively, skipping hidden ones.

Issues are reported as file:line:col: severity: message (rule). The command
fails when any error-severity issue remains.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lintCfg, err := cfg.LintOptions()
			if err != nil {
				return err
			}
			if listRules {
				return printRules(cmd.OutOrStdout(), lint.DefaultRegistry(cfg.Lint.MaxLineLength))
			}
			if !cmd.Flags().Changed("ext") {
				exts = cfg.Lint.Extensions
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			rules := lint.DefaultRules(cfg.Lint.MaxLineLength)
			out := cmd.OutOrStdout()

			issues, err := checkPaths(args, exts, rules, lintCfg)
			if err != nil {
				return fmt.Errorf("check failed: %w", err)
			}

			if fix {
				fixed := 0
				for _, file := range fixableFiles(issues) {
					results, err := lint.FixFile(file, rules, lintCfg)
					if err != nil {
						return fmt.Errorf("fix failed: %w", err)
					}
					for _, r := range results {
						if r.Fixed {
							fixed++
						}
					}
				}
				if fixed > 0 {
					_, _ = fmt.Fprintf(out, "Fixed %d issue(s)\n", fixed)
					if issues, err = checkPaths(args, exts, rules, lintCfg); err != nil {
						return fmt.Errorf("check failed: %w", err)
					}
				}
			}

			if len(issues) == 0 {
				_, _ = fmt.Fprintln(out, "No issues found")
				return nil
			}

			errorCount := 0
			for _, issue := range issues {
				_, _ = fmt.Fprintln(out, issue.String())
				if issue.Severity == lint.SeverityError {
					errorCount++
				}
			}

			if errorCount > 0 {
				return fmt.Errorf("check found %d error(s)", errorCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&fix, "fix", "f", false, "Automatically fix issues where possible")
	cmd.Flags().BoolVar(&listRules, "list-rules", false, "List the available rules and exit")
	cmd.Flags().StringSliceVarP(&exts, "ext", "e", nil, "Only check files with these extensions (default: lint.extensions from config, else all)")

	return cmd
}

func printRules(w io.Writer, registry *lint.RuleRegistry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, rule := range registry.All() {
		fixable := ""
		if _, ok := rule.(lint.FixableRule); ok {
			fixable = "fixable"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", rule.ID(), rule.Description(), fixable)
	}
	return tw.Flush()
}

func checkPaths(paths, exts []string, rules []lint.Rule, cfg *lint.Config) ([]lint.Issue, error) {
	var issues []lint.Issue
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		var found []lint.Issue
		if info.IsDir() {
			found, err = lint.LintDirRecursive(path, exts, rules, cfg)
		} else {
			found, err = lint.LintFile(path, rules, cfg)
		}
		if err != nil {
			return nil, err
		}
		issues = append(issues, found...)
	}
	return issues, nil
}

// fixableFiles returns the sorted set of files with at least one fixable issue.
func fixableFiles(issues []lint.Issue) []string {
	seen := make(map[string]bool)
	var files []string
	for _, issue := range issues {
		if issue.Fixable && !seen[issue.File] {
			seen[issue.File] = true
			files = append(files, issue.File)
		}
	}
	sort.Strings(files)
	return files
}
