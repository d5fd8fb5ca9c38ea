package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-lsp-go/lint"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, Filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `name: my-lsp
listen: 127.0.0.1:7777
sync: full
log:
  level: debug
lint:
  disabled_rules: [todo-comment]
  min_severity: warning
  extensions: [.md, .txt]
assist:
  enabled: true
  model: claude-test
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "my-lsp", cfg.Name)
	assert.Equal(t, "127.0.0.1:7777", cfg.Listen)
	assert.Equal(t, SyncFull, cfg.Sync)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "unset values keep defaults")
	assert.Equal(t, []string{"todo-comment"}, cfg.Lint.DisabledRules)
	assert.Equal(t, lint.DefaultMaxLineLength, cfg.Lint.MaxLineLength)
	assert.Equal(t, []string{".md", ".txt"}, cfg.Lint.Extensions)
	assert.True(t, cfg.Assist.Enabled)
	assert.Equal(t, "claude-test", cfg.Assist.Model)

	opts, err := cfg.LintOptions()
	require.NoError(t, err)
	assert.Equal(t, lint.SeverityWarning, opts.MinSeverity)
	assert.True(t, opts.IsRuleDisabled("todo-comment"))
}

func TestLoadFileEmpty(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid yaml", "name: [unclosed", "failed to parse config YAML"},
		{"unknown key", "nmae: typo\n", "failed to parse config YAML"},
		{"bad sync", "sync: partial\n", "sync"},
		{"bad severity", "lint:\n  min_severity: fatal\n", "lint.min_severity"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"unknown rule", "lint:\n  disabled_rules: [no-such-rule]\n", "lint.disabled_rules"},
		{"negative length", "lint:\n  max_line_length: -1\n", "lint.max_line_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadFromWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "name: from-root\n")
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	cfg, found, err := LoadFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)
	assert.Equal(t, "from-root", cfg.Name)
}

func TestLoadFromNotFound(t *testing.T) {
	cfg, found, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, Defaults(), cfg)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Defaults()
	cfg.Listen = ":9000"
	cfg.Lint.DisabledRules = []string{"line-length"}
	cfg.Assist.MaxTokens = 256

	path := filepath.Join(t.TempDir(), "nested", Filename)
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
}
