package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lispConfig = `
log_level: debug
workers: 2
watch_debounce: 250ms
languages:
  - name: lisp
    extensions: [".lisp", ".el"]
    skip_whitespace: true
    rules:
      - name: comment
        open: ";"
        close_regex: '^(?:\n|$)'
      - name: list
        open: "("
        close: ")"
        sub_parse: true
      - name: string
        open: '"'
        close: '"'
        close_escape: '\'
      - name: keyword
        open_regex: '^:\w+'
        word_start: true
        auto_close: true
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "omniparse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 100*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, ":8090", cfg.HTTPAddr)
	assert.Empty(t, cfg.Languages)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, lispConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce)
	require.Len(t, cfg.Languages, 1)
	assert.Equal(t, "lisp", cfg.Languages[0].Name)
	require.Len(t, cfg.Languages[0].Rules, 4)
	assert.Equal(t, `\`, cfg.Languages[0].Rules[2].CloseEscape)
	assert.True(t, cfg.Languages[0].Rules[1].SubParse)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("OMNIPARSE_WORKERS", "3")
	t.Setenv("OMNIPARSE_HTTP_ADDR", "127.0.0.1:9000")

	cfg, err := Load(writeConfig(t, "workers: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "workers: 0\n"))
	assert.ErrorContains(t, err, "workers")
}

func TestLanguageSet(t *testing.T) {
	cfg, err := Load(writeConfig(t, lispConfig))
	require.NoError(t, err)

	set, err := cfg.LanguageSet()
	require.NoError(t, err)
	assert.Equal(t, []string{"clike", "json", "lisp", "ruby"}, set.Names())

	l, ok := set.ForPath("init.el")
	require.True(t, ok)
	root, err := l.Parse("(defun f (x) ; note\n  (print \"a \\\" b\" :key))")
	require.NoError(t, err)

	list := root.FirstOfType("list")
	require.NotNil(t, list)
	var names []string
	for _, c := range list.Children() {
		names = append(names, c.TypeName())
	}
	assert.Equal(t, []string{"UNMATCHED", "list", "comment", "list"}, names)

	inner := list.Children()[3]
	var innerNames []string
	for _, c := range inner.Children() {
		innerNames = append(innerNames, c.TypeName())
	}
	assert.Equal(t, []string{"UNMATCHED", "string", "keyword"}, innerNames)
}

func TestRuleSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		spec RuleSpec
	}{
		{"open and regex", RuleSpec{Name: "a", Open: "(", OpenRegex: `^\(`, Close: ")"}},
		{"auto close with close", RuleSpec{Name: "a", Open: "(", Close: ")", AutoClose: true}},
		{"close and regex", RuleSpec{Name: "a", Open: "(", Close: ")", CloseRegex: `^\)`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Rule()
			assert.Error(t, err)
		})
	}
}

func TestLanguageSetInvalidRule(t *testing.T) {
	cfg := &Config{Workers: 1, Languages: []LanguageSpec{{
		Name:  "broken",
		Rules: []RuleSpec{{Name: "r", OpenRegex: "unanchored", Close: "x"}},
	}}}
	_, err := cfg.LanguageSet()
	assert.ErrorContains(t, err, `rule "r"`)
}
