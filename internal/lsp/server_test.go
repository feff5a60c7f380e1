package lsp

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"

	"github.com/jarredhawkins/omniparse/internal/index"
	"github.com/jarredhawkins/omniparse/internal/lang"
	"github.com/jarredhawkins/omniparse/internal/parser"
)

const personSource = `class Person
  def validate_record!
    # This is the definition
    check_fields
  end

  def process
    validate_record!
  end
end
`

func newTestServer(t *testing.T, files map[string]string) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	idx := index.New(dir, lang.Defaults())
	require.NoError(t, idx.Build(context.Background()))
	return NewServer(idx), dir
}

// call runs one request through the handler and returns what it replied.
func call(t *testing.T, s *Server, method string, params any) (any, error) {
	t.Helper()
	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), method, params)
	require.NoError(t, err)

	var result any
	var replyErr error
	err = s.handler(context.Background(), func(_ context.Context, r any, e error) error {
		result, replyErr = r, e
		return nil
	}, req)
	require.NoError(t, err)
	return result, replyErr
}

func position(uri string, line, char uint32) TextDocumentPositionParams {
	return TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     Position{Line: line, Character: char},
	}
}

func TestInitialize(t *testing.T) {
	s, _ := newTestServer(t, nil)
	result, err := call(t, s, "initialize", map[string]any{})
	require.NoError(t, err)

	init, ok := result.(InitializeResult)
	require.True(t, ok)
	assert.True(t, init.Capabilities.DefinitionProvider)
	assert.True(t, init.Capabilities.FoldingRangeProvider)
	assert.True(t, init.Capabilities.DocumentSymbolProvider)
	assert.Equal(t, "omniparse", init.ServerInfo.Name)
}

func TestUnknownMethod(t *testing.T) {
	s, _ := newTestServer(t, nil)
	_, err := call(t, s, "workspace/symbol", map[string]any{})
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc2.MethodNotFound, rpcErr.Code)
}

func TestReferencesDeduplication(t *testing.T) {
	s, dir := newTestServer(t, map[string]string{"person.rb": personSource})
	uri := pathToURI(filepath.Join(dir, "person.rb"))

	// Cursor on the call in process (line 8, 1-indexed)
	params := ReferenceParams{
		TextDocumentPositionParams: position(uri, 7, 6),
		Context:                    ReferenceContext{IncludeDeclaration: true},
	}
	result, err := call(t, s, "textDocument/references", params)
	require.NoError(t, err)

	locations, ok := result.([]Location)
	require.True(t, ok)

	// The definition on line 2 and the call on line 8, the definition
	// found by both searches only once.
	require.Len(t, locations, 2)
	assert.Equal(t, uint32(1), locations[0].Range.Start.Line)
	assert.Equal(t, uint32(6), locations[0].Range.Start.Character)
	assert.Equal(t, uint32(22), locations[0].Range.End.Character)
	assert.Equal(t, uint32(7), locations[1].Range.Start.Line)
}

func TestReferencesUTF16Columns(t *testing.T) {
	s, dir := newTestServer(t, map[string]string{
		"mood.rb": "class Mood\n  def check_fields\n  end\nend\nx = \"😀\"; check_fields\n",
	})
	uri := pathToURI(filepath.Join(dir, "mood.rb"))

	// The emoji takes two UTF-16 units, so the call starts at character 10
	result, err := call(t, s, "textDocument/references", ReferenceParams{
		TextDocumentPositionParams: position(uri, 4, 11),
		Context:                    ReferenceContext{IncludeDeclaration: true},
	})
	require.NoError(t, err)
	locations := result.([]Location)
	require.Len(t, locations, 2)

	var hit *Location
	for i := range locations {
		if locations[i].Range.Start.Line == 4 {
			hit = &locations[i]
		}
	}
	require.NotNil(t, hit)
	assert.Equal(t, uint32(10), hit.Range.Start.Character)
	assert.Equal(t, uint32(22), hit.Range.End.Character)
}

func TestDiagnosticsUTF16Columns(t *testing.T) {
	text := "x = \"😀\"; y = \"open\n"
	l, ok := lang.Defaults().ByName("ruby")
	require.True(t, ok)
	_, err := l.Parse(text)
	var open *parser.UnterminatedError
	require.ErrorAs(t, err, &open)
	require.Equal(t, 14, open.Column)

	diags := diagnostics(open, text)
	require.Len(t, diags, 1)
	assert.Equal(t, uint32(0), diags[0].Range.Start.Line)
	assert.Equal(t, uint32(14), diags[0].Range.Start.Character)
	assert.Equal(t, uint32(15), diags[0].Range.End.Character)
}

func TestUTF16Column(t *testing.T) {
	tests := []struct {
		line string
		col  int
		want uint32
	}{
		{"abc", 2, 2},
		{"a😀b", 1, 1},
		{"a😀b", 2, 3},
		{"a😀b", 3, 4},
		{"héllo", 3, 3},
		{"ab", 5, 5},
		{"", 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utf16Column(tt.line, tt.col), "%q col %d", tt.line, tt.col)
	}
}

func TestDocumentHighlight(t *testing.T) {
	s, dir := newTestServer(t, map[string]string{"person.rb": personSource})
	uri := pathToURI(filepath.Join(dir, "person.rb"))

	result, err := call(t, s, "textDocument/documentHighlight", position(uri, 7, 6))
	require.NoError(t, err)
	highlights := result.([]DocumentHighlight)
	require.Len(t, highlights, 2)

	assert.Equal(t, uint32(1), highlights[0].Range.Start.Line)
	assert.Equal(t, uint32(6), highlights[0].Range.Start.Character)
	assert.Equal(t, uint32(22), highlights[0].Range.End.Character)
	assert.Equal(t, DocumentHighlightKindWrite, highlights[0].Kind)

	assert.Equal(t, uint32(7), highlights[1].Range.Start.Line)
	assert.Equal(t, DocumentHighlightKindRead, highlights[1].Kind)

	result, err = call(t, s, "textDocument/documentHighlight", position(uri, 40, 0))
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestReferencesSkipComments(t *testing.T) {
	s, dir := newTestServer(t, map[string]string{"jobs.rb": "# run cleanup nightly\ncleanup\n"})
	uri := pathToURI(filepath.Join(dir, "jobs.rb"))

	result, err := call(t, s, "textDocument/references", ReferenceParams{
		TextDocumentPositionParams: position(uri, 1, 2),
	})
	require.NoError(t, err)
	locations := result.([]Location)
	require.Len(t, locations, 1)
	assert.Equal(t, uint32(1), locations[0].Range.Start.Line)
}

func TestDefinitionQualified(t *testing.T) {
	s, dir := newTestServer(t, map[string]string{
		"checker.rb": "module Verification\n  module Matcher\n    class Checker\n    end\n  end\nend\n",
		"runner.rb":  "module Verification\n  class Runner\n    def run\n      Matcher::Checker.new\n    end\n  end\nend\n",
	})
	uri := pathToURI(filepath.Join(dir, "runner.rb"))

	// Cursor on Checker
	result, err := call(t, s, "textDocument/definition", position(uri, 3, 16))
	require.NoError(t, err)

	loc, ok := result.(Location)
	require.True(t, ok)
	assert.Equal(t, pathToURI(filepath.Join(dir, "checker.rb")), loc.URI)
	assert.Equal(t, uint32(2), loc.Range.Start.Line)
	assert.Equal(t, uint32(10), loc.Range.Start.Character)
	assert.Equal(t, uint32(17), loc.Range.End.Character)

	// Nothing under the cursor
	result, err = call(t, s, "textDocument/definition", position(uri, 4, 0))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDocumentSymbolAndFolding(t *testing.T) {
	s, dir := newTestServer(t, map[string]string{"person.rb": personSource})
	uri := pathToURI(filepath.Join(dir, "person.rb"))
	doc := TextDocumentIdentifier{URI: uri}

	result, err := call(t, s, "textDocument/documentSymbol", DocumentSymbolParams{TextDocument: doc})
	require.NoError(t, err)
	symbols := result.([]SymbolInformation)
	require.Len(t, symbols, 3)
	assert.Equal(t, "Person", symbols[0].Name)
	assert.Equal(t, SymbolKindClass, symbols[0].Kind)
	assert.Equal(t, uint32(9), symbols[0].Location.Range.End.Line)
	assert.Equal(t, "validate_record!", symbols[1].Name)
	assert.Equal(t, SymbolKindMethod, symbols[1].Kind)
	assert.Equal(t, "Person", symbols[1].ContainerName)

	result, err = call(t, s, "textDocument/foldingRange", FoldingRangeParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Equal(t, []FoldingRange{
		{StartLine: 0, EndLine: 9},
		{StartLine: 1, EndLine: 4},
		{StartLine: 6, EndLine: 8},
	}, result)
}

func TestFoldingUnknownDocument(t *testing.T) {
	s, dir := newTestServer(t, nil)
	uri := pathToURI(filepath.Join(dir, "missing.rb"))
	result, err := call(t, s, "textDocument/foldingRange", FoldingRangeParams{TextDocument: TextDocumentIdentifier{URI: uri}})
	require.NoError(t, err)
	assert.Equal(t, []FoldingRange{}, result)
}

func TestDiagnosticsOverConnection(t *testing.T) {
	s, dir := newTestServer(t, nil)
	uri := pathToURI(filepath.Join(dir, "draft.rb"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverSide, clientSide := net.Pipe()
	defer serverSide.Close()
	defer clientSide.Close()
	go s.Serve(ctx, serverSide, serverSide)

	notes := make(chan PublishDiagnosticsParams, 8)
	client := jsonrpc2.NewConn(jsonrpc2.NewStream(clientSide))
	client.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == "textDocument/publishDiagnostics" {
			var p PublishDiagnosticsParams
			if err := json.Unmarshal(req.Params(), &p); err == nil {
				notes <- p
			}
		}
		return reply(ctx, nil, nil)
	})

	var init InitializeResult
	_, err := client.Call(ctx, "initialize", map[string]any{}, &init)
	require.NoError(t, err)

	next := func() PublishDiagnosticsParams {
		select {
		case p := <-notes:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("no diagnostics published")
			return PublishDiagnosticsParams{}
		}
	}

	require.NoError(t, client.Notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "ruby", Version: 1, Text: "class Draft\n  def todo\nend\n"},
	}))
	p := next()
	assert.Equal(t, uri, p.URI)
	require.Len(t, p.Diagnostics, 1)
	assert.Equal(t, SeverityError, p.Diagnostics[0].Severity)
	assert.Equal(t, uint32(0), p.Diagnostics[0].Range.Start.Line)
	assert.Contains(t, p.Diagnostics[0].Message, `"class"`)

	require.NoError(t, client.Notify(ctx, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier{URI: uri}, 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "class Draft\n  def todo\n  end\nend\n"}},
	}))
	p = next()
	assert.Equal(t, 2, p.Version)
	assert.Empty(t, p.Diagnostics)
	assert.Len(t, s.index.FindDefinitions("todo"), 1)

	require.NoError(t, client.Notify(ctx, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	}))
	p = next()
	assert.Empty(t, p.Diagnostics)
	// The buffer was never saved, so closing drops it from the index.
	assert.Empty(t, s.index.FindDefinitions("Draft"))
}

func TestExtractQualifiedAt(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		char     int
		expected string
	}{
		{
			name:     "cursor on EinMatcher in EinLetter::EinMatcher.new",
			line:     "    EinLetter::EinMatcher.new",
			char:     18, // on 'E' of EinMatcher
			expected: "EinLetter::EinMatcher",
		},
		{
			name:     "cursor on EinLetter in EinLetter::EinMatcher",
			line:     "    EinLetter::EinMatcher",
			char:     6, // on 'e' of EinLetter
			expected: "EinLetter",
		},
		{
			name:     "leading :: preserved",
			line:     "  ::TopLevel::Foo.call",
			char:     16, // on 'o' of Foo
			expected: "::TopLevel::Foo",
		},
		{
			name:     "triple nested",
			line:     "A::B::C.new",
			char:     6, // on 'C'
			expected: "A::B::C",
		},
		{
			name:     "predicate suffix",
			line:     "  if Foo::ready?",
			char:     15, // on '?'
			expected: "Foo::ready?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractQualifiedAt(tt.line, 0, tt.char, "::"))
		})
	}
	assert.Equal(t, "Foo", extractQualifiedAt("A::Foo", 0, 4, ""))
}

func TestExtractWordAt(t *testing.T) {
	assert.Equal(t, "valid?", extractWordAt("  if valid?", 0, 10))
	assert.Equal(t, "save!", extractWordAt("x.save!", 0, 3))
	assert.Equal(t, "", extractWordAt("a\nb", 5, 0))
	assert.Equal(t, "b", extractWordAt("a\nb", 1, 9))
}

func TestExtractNonASCII(t *testing.T) {
	line := "héllo = Wörld::Ünit"
	// Character offsets count UTF-16 units, 16 is the n of Ünit
	assert.Equal(t, "Wörld::Ünit", extractQualifiedAt(line, 0, 16, "::"))
	assert.Equal(t, "héllo", extractWordAt(line, 0, 1))
	assert.Equal(t, 2, byteOffset("é!", 1))
	assert.Equal(t, 4, byteOffset("😀x", 2), "surrogate pair")
}

func TestLineAt(t *testing.T) {
	text, ok := lineAt("a\nbb\nccc", 1)
	assert.True(t, ok)
	assert.Equal(t, "bb", text)
	text, ok = lineAt("a\nbb\nccc", 2)
	assert.True(t, ok)
	assert.Equal(t, "ccc", text)
	_, ok = lineAt("a\n", 2)
	assert.False(t, ok)
}

func TestURIConversion(t *testing.T) {
	assert.Equal(t, "/tmp/a.rb", uriToPath("file:///tmp/a.rb"))
	assert.Equal(t, "/tmp/my app/a.rb", uriToPath("file:///tmp/my%20app/a.rb"))
	assert.Equal(t, "file:///tmp/a.rb", pathToURI("/tmp/a.rb"))
	assert.Equal(t, "file:///tmp/my%20app/a.rb", pathToURI("/tmp/my app/a.rb"))
	assert.Equal(t, "file:///tmp/a.rb", pathToURI("file:///tmp/a.rb"))
}
