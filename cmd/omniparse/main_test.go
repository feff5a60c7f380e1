package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{close: func() {}}
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error", "--log-file", filepath.Join(t.TempDir(), "omniparse.log")))
	err := cmd.Execute()
	a.close()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFormats(t *testing.T) {
	path := writeFile(t, t.TempDir(), "call.go", "f(x)")

	tests := []struct {
		format string
		want   string
	}{
		{"tree", "ROOT\n  UNMATCHED \"f\"\n  paren \"(\" ... \")\"\n    UNMATCHED \"x\"\n"},
		{"flat", "0\tROOT\n1\tUNMATCHED \"f\"\n1\tparen \"(\" ... \")\"\n2\tUNMATCHED \"x\"\n"},
		{"text", "f(x)"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := run(t, "parse", path, "--format", tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	out, err := run(t, "parse", path, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "paren"`)

	_, err = run(t, "parse", path, "--format", "xml")
	assert.ErrorContains(t, err, `unknown format "xml"`)
}

func TestParseOutline(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.rb", "module A\n  def b\n  end\nend\n")
	out, err := run(t, "parse", path, "--outline")
	require.NoError(t, err)
	assert.Equal(t, "1:8\tmodule\tA\n2:7\tdef\tA::b\n", out)
}

func TestParseUnterminated(t *testing.T) {
	path := writeFile(t, t.TempDir(), "open.rb", "def foo\n  bar\n")

	_, err := run(t, "parse", path)
	assert.ErrorContains(t, err, `unterminated segment "def"`)

	out, err := run(t, "parse", path, "--lenient", "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "def foo\n  bar\n", out)
}

func TestParseLanguageSelection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "(a)")

	_, err := run(t, "parse", path)
	assert.ErrorContains(t, err, "no language for")

	_, err = run(t, "parse", path, "--lang", "cobol")
	assert.ErrorContains(t, err, `unknown language "cobol"`)

	out, err := run(t, "parse", path, "--lang", "clike")
	require.NoError(t, err)
	assert.Contains(t, out, `paren "(" ... ")"`)
}

func TestConfiguredLanguage(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "omniparse.yaml", `languages:
  - name: lisp
    extensions: [".lisp"]
    rules:
      - name: list
        sub_parse: true
        open: "("
        close: ")"
`)
	path := writeFile(t, dir, "x.lisp", "(a (b))")

	out, err := run(t, "parse", path, "--config", cfg)
	require.NoError(t, err)
	assert.Equal(t, "ROOT\n  list \"(\" ... \")\"\n    UNMATCHED \"a \"\n    list \"(\" ... \")\"\n      UNMATCHED \"b\"\n", out)

	out, err = run(t, "languages", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "lisp")
	assert.Contains(t, out, "ruby")
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.go", `f("a")`)
	target := filepath.Join(dir, "out", "x.html")

	_, err := run(t, "render", path, "-o", target)
	require.NoError(t, err)
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<title>x.go</title>")
	assert.Contains(t, string(b), `<span class="segment string" title="string">`)
}

func TestJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "doc.json", `{"a": [1, {"b": null}], "c": "d"}`)

	out, err := run(t, "json", path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,{"b":null}],"c":"d"}`+"\n", out)

	out, err = run(t, "json", path, "--get", "a")
	require.NoError(t, err)
	assert.Equal(t, `[1,{"b":null}]`+"\n", out)

	_, err = run(t, "json", path, "--get", "missing")
	assert.ErrorContains(t, err, `no key "missing"`)
}

func TestINI(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ini", "name = demo\n\n[db]\nhost = localhost\n")

	out, err := run(t, "ini", path)
	require.NoError(t, err)
	assert.Equal(t, "name=demo\n\n[db]\nhost=localhost\n", out)

	_, err = run(t, "ini", path, "--set", "db.port=5432", "--set", ".name=prod")
	require.NoError(t, err)

	out, err = run(t, "ini", path, "--get", "db.port", "--get", ".name")
	require.NoError(t, err)
	assert.Equal(t, "5432\nprod\n", out)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name=prod\n\n[db]\nhost=localhost\nport=5432\n", string(b))

	// A missing file is only created by --set
	_, err = run(t, "ini", filepath.Join(dir, "new.ini"))
	assert.ErrorContains(t, err, "does not exist")
	_, err = run(t, "ini", filepath.Join(dir, "new.toml"), "--toml", "--set", "server.name=web one")
	require.NoError(t, err)
	b, err = os.ReadFile(filepath.Join(dir, "new.toml"))
	require.NoError(t, err)
	assert.Equal(t, "[server]\nname=\"web one\"\n", string(b))
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key      string
		category string
		name     string
		wantErr  bool
	}{
		{"db.host", "db", "host", false},
		{".name", "", "name", false},
		{"a.b.c", "a.b", "c", false},
		{"plain", "", "", true},
		{"db.", "", "", true},
	}
	for _, tt := range tests {
		category, name, err := splitKey(tt.key)
		if tt.wantErr {
			assert.Error(t, err, tt.key)
			continue
		}
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.category, category)
		assert.Equal(t, tt.name, name)
	}
}
