package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.lsp.dev/jsonrpc2"

	"github.com/jarredhawkins/omniparse/internal/fileref"
	"github.com/jarredhawkins/omniparse/internal/index"
	"github.com/jarredhawkins/omniparse/internal/parser"
)

// Server implements the LSP server
type Server struct {
	index     *index.Index
	documents *DocumentStore

	mu   sync.Mutex
	conn jsonrpc2.Conn // Set by Serve, used for notifications
}

// NewServer creates a new LSP server
func NewServer(idx *index.Index) *Server {
	return &Server{
		index:     idx,
		documents: NewDocumentStore(),
	}
}

// Serve starts the LSP server on the given reader/writer
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.Go(ctx, s.handler)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-conn.Done():
		return conn.Err()
	}
}

func (s *Server) handler(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	log.Debug().Str("method", req.Method()).Msg("lsp request")

	switch req.Method() {
	case "initialize":
		return s.handleInitialize(ctx, reply, req)
	case "initialized":
		return reply(ctx, nil, nil)
	case "shutdown":
		return reply(ctx, nil, nil)
	case "exit":
		return nil
	case "textDocument/definition":
		return s.handleDefinition(ctx, reply, req)
	case "textDocument/references":
		return s.handleReferences(ctx, reply, req)
	case "textDocument/documentHighlight":
		return s.handleDocumentHighlight(ctx, reply, req)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(ctx, reply, req)
	case "textDocument/foldingRange":
		return s.handleFoldingRange(ctx, reply, req)
	case "textDocument/didOpen":
		return s.handleDidOpen(ctx, reply, req)
	case "textDocument/didChange":
		return s.handleDidChange(ctx, reply, req)
	case "textDocument/didSave":
		return s.handleDidSave(ctx, reply, req)
	case "textDocument/didClose":
		return s.handleDidClose(ctx, reply, req)
	default:
		// Method not found
		return reply(ctx, nil, &jsonrpc2.Error{
			Code:    jsonrpc2.MethodNotFound,
			Message: "method not supported: " + req.Method(),
		})
	}
}

func invalidParams(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    jsonrpc2.InvalidParams,
		Message: err.Error(),
	})
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
			},
			DefinitionProvider:        true,
			ReferencesProvider:        true,
			DocumentSymbolProvider:    true,
			FoldingRangeProvider:      true,
			DocumentHighlightProvider: true,
		},
		ServerInfo: &ServerInfo{
			Name:    "omniparse",
			Version: "0.1.0",
		},
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	uri := params.TextDocument.URI
	filePath := uriToPath(uri)
	line := int(params.Position.Line)
	char := int(params.Position.Character)

	// Get document content
	content := s.getDocumentContent(uri)
	if content == "" {
		return reply(ctx, nil, nil)
	}

	word := extractQualifiedAt(content, line, char, s.separator(filePath))
	if word == "" {
		return reply(ctx, nil, nil)
	}

	log.Debug().Str("word", word).Str("path", filePath).Int("line", line).Int("char", char).Msg("definition request")

	// line is 0-indexed from LSP, the index expects 1-indexed
	symbols := s.index.FindDefinitionsInContext(word, filePath, line+1)
	if len(symbols) == 0 {
		return reply(ctx, nil, nil)
	}

	// Convert to LSP locations
	lines := newSourceLines(s.indexedContent)
	if len(symbols) == 1 {
		sym := symbols[0]
		return reply(ctx, symbolToLocation(sym, lines.line(sym.FilePath, sym.Line)), nil)
	}

	locations := make([]Location, len(symbols))
	for i, sym := range symbols {
		locations[i] = symbolToLocation(sym, lines.line(sym.FilePath, sym.Line))
	}
	return reply(ctx, locations, nil)
}

func (s *Server) handleReferences(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params ReferenceParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	uri := params.TextDocument.URI
	line := int(params.Position.Line)
	char := int(params.Position.Character)

	content := s.getDocumentContent(uri)
	if content == "" {
		return reply(ctx, nil, nil)
	}

	word := extractWordAt(content, line, char)
	if word == "" {
		return reply(ctx, nil, nil)
	}

	log.Debug().Str("word", word).Msg("references request")

	// Use a map to deduplicate by location key (file:line:col)
	seen := make(map[string]struct{})
	locations := []Location{}

	// Find all references using trigram search, skipping comments
	for _, ref := range s.index.FindReferences(word) {
		if strings.Contains(ref.Segment, "comment") {
			continue
		}
		key := fmt.Sprintf("%s:%d:%d", ref.FilePath, ref.Line, ref.Column)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		locations = append(locations, Location{
			URI: pathToURI(ref.FilePath),
			Range: Range{
				Start: Position{
					Line:      uint32(ref.Line - 1),
					Character: utf16Column(ref.LineText, ref.Column),
				},
				End: Position{
					Line:      uint32(ref.Line - 1),
					Character: utf16Column(ref.LineText, ref.Column+ref.Length),
				},
			},
		})
	}

	// Include declarations if requested - deduplication prevents double-adding
	if params.Context.IncludeDeclaration {
		lines := newSourceLines(s.indexedContent)
		for _, sym := range s.index.FindDefinitions(word) {
			key := fmt.Sprintf("%s:%d:%d", sym.FilePath, sym.Line, sym.Column)
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			locations = append(locations, symbolToLocation(sym, lines.line(sym.FilePath, sym.Line)))
		}
	}

	return reply(ctx, locations, nil)
}

// handleDocumentHighlight marks every occurrence of the word under the
// cursor in the same document. Declarations are written, the rest read.
func (s *Server) handleDocumentHighlight(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	uri := params.TextDocument.URI
	path := uriToPath(uri)
	content := s.getDocumentContent(uri)
	word := extractWordAt(content, int(params.Position.Line), int(params.Position.Character))
	if word == "" {
		return reply(ctx, []DocumentHighlight{}, nil)
	}

	declared := make(map[[2]int]bool)
	for _, sym := range s.index.SymbolsInFile(path) {
		if sym.Name == word {
			declared[[2]int{sym.Line, sym.Column}] = true
		}
	}

	highlights := []DocumentHighlight{}
	for _, ref := range s.index.FindReferencesInFile(path, word) {
		if strings.Contains(ref.Segment, "comment") {
			continue
		}
		kind := DocumentHighlightKindRead
		if declared[[2]int{ref.Line, ref.Column}] {
			kind = DocumentHighlightKindWrite
		}
		highlights = append(highlights, DocumentHighlight{
			Range: Range{
				Start: Position{Line: uint32(ref.Line - 1), Character: utf16Column(ref.LineText, ref.Column)},
				End:   Position{Line: uint32(ref.Line - 1), Character: utf16Column(ref.LineText, ref.Column+ref.Length)},
			},
			Kind: kind,
		})
	}
	return reply(ctx, highlights, nil)
}

func (s *Server) handleDocumentSymbol(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DocumentSymbolParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	f, ok := s.file(params.TextDocument.URI)
	if !ok {
		return reply(ctx, []SymbolInformation{}, nil)
	}

	l, _ := s.index.Languages().ForPath(f.Path)
	sep := "."
	if l != nil && l.Separator != "" {
		sep = l.Separator
	}

	lines := newSourceLines(s.indexedContent)
	lines.add(f.Path, f.Root.Text())
	result := make([]SymbolInformation, 0, len(f.Symbols))
	for _, sym := range f.Symbols {
		loc := symbolToLocation(sym, lines.line(f.Path, sym.Line))
		loc.Range.End = Position{
			Line:      uint32(sym.EndLine - 1),
			Character: utf16Column(lines.line(f.Path, sym.EndLine), sym.EndColumn),
		}
		result = append(result, SymbolInformation{
			Name:          sym.Name,
			Kind:          symbolKind(sym.Kind),
			Location:      loc,
			ContainerName: strings.Join(sym.Scope, sep),
		})
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleFoldingRange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params FoldingRangeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return invalidParams(ctx, reply, err)
	}

	f, ok := s.file(params.TextDocument.URI)
	if !ok {
		return reply(ctx, []FoldingRange{}, nil)
	}
	return reply(ctx, foldingRanges(f), nil)
}

func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	doc := params.TextDocument
	s.documents.Open(doc.URI, doc.Version, doc.Text)
	s.reindex(ctx, doc.URI, doc.Version, doc.Text)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	if len(params.ContentChanges) > 0 {
		// Full sync mode - just take the last content
		uri, version := params.TextDocument.URI, params.TextDocument.Version
		text := params.ContentChanges[len(params.ContentChanges)-1].Text
		if s.documents.Update(uri, version, text) {
			s.reindex(ctx, uri, version, text)
		} else {
			log.Debug().Str("uri", uri).Int("version", version).Msg("ignoring stale change")
		}
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidSave(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	uri := params.TextDocument.URI
	if !s.documents.IsOpen(uri) {
		if err := s.index.UpdateFile(uriToPath(uri)); err != nil {
			log.Warn().Err(err).Str("uri", uri).Msg("failed to reindex saved file")
		}
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}

	uri := params.TextDocument.URI
	if !s.documents.Close(uri) {
		return reply(ctx, nil, nil)
	}

	// Drop unsaved edits: the index goes back to what is on disk.
	path := uriToPath(uri)
	if err := s.index.UpdateFile(path); err != nil {
		s.index.RemoveFile(path)
	}
	s.publish(ctx, PublishDiagnosticsParams{URI: uri, Diagnostics: []Diagnostic{}})
	return reply(ctx, nil, nil)
}

// reindex parses an open buffer, updates the index and reports
// unterminated segments as diagnostics.
func (s *Server) reindex(ctx context.Context, uri string, version int, text string) {
	path := uriToPath(uri)
	if !s.index.Languages().Handles(path) {
		return
	}

	f, err := s.index.AddContent(path, text)
	if err != nil {
		log.Warn().Err(err).Str("uri", uri).Msg("failed to parse document")
		return
	}
	s.documents.SetParsed(uri, version, f)
	s.publish(ctx, PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diagnostics(f.Unterminated, text),
	})
}

func (s *Server) publish(ctx context.Context, params PublishDiagnosticsParams) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
		log.Warn().Err(err).Str("uri", params.URI).Msg("failed to publish diagnostics")
	}
}

// file returns the indexed parse of a document, indexing it on demand.
func (s *Server) file(uri string) (*index.File, bool) {
	if f, ok := s.documents.Parsed(uri); ok {
		return f, true
	}
	path := uriToPath(uri)
	if f, ok := s.index.File(path); ok {
		return f, true
	}
	content := s.getDocumentContent(uri)
	if content == "" {
		return nil, false
	}
	f, err := s.index.ParseContent(path, content)
	if err != nil {
		return nil, false
	}
	return f, true
}

func (s *Server) separator(path string) string {
	if l, ok := s.index.Languages().ForPath(path); ok {
		return l.Separator
	}
	return ""
}

// indexedContent returns the text the index holds for path, which is what
// symbol and reference columns were counted in.
func (s *Server) indexedContent(path string) string {
	if f, ok := s.index.File(path); ok {
		return f.Root.Text()
	}
	return s.getDocumentContent(pathToURI(path))
}

func (s *Server) getDocumentContent(uri string) string {
	// Check open documents first
	if content, ok := s.documents.Get(uri); ok {
		return content
	}

	// Fall back to reading from disk
	path := uriToPath(uri)
	content, err := fileref.Read(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("failed to read file")
		return ""
	}
	return content
}

// diagnostics turns an unterminated segment of text into an error spanning
// its open position.
func diagnostics(err *parser.UnterminatedError, text string) []Diagnostic {
	if err == nil {
		return []Diagnostic{}
	}
	line, _ := lineAt(text, err.Line-1)
	start := Position{Line: uint32(err.Line - 1), Character: utf16Column(line, err.Column-1)}
	return []Diagnostic{{
		Range:    Range{Start: start, End: Position{Line: start.Line, Character: start.Character + 1}},
		Severity: SeverityError,
		Source:   "omniparse",
		Message:  err.Error(),
	}}
}

// foldingRanges offers every segment that spans more than one line.
func foldingRanges(f *index.File) []FoldingRange {
	ranges := []FoldingRange{}
	for _, hit := range index.Hits(f.Path, f.Root, "") {
		endLine := hit.EndLine
		if strings.HasSuffix(hit.Text, "\n") {
			endLine-- // Closed by the line break itself
		}
		if endLine <= hit.Line {
			continue
		}
		r := FoldingRange{StartLine: uint32(hit.Line - 1), EndLine: uint32(endLine - 1)}
		if strings.Contains(hit.Type, "comment") {
			r.Kind = "comment"
		}
		ranges = append(ranges, r)
	}
	return ranges
}

func symbolKind(ruleName string) SymbolKind {
	switch ruleName {
	case "class", "singleton_class":
		return SymbolKindClass
	case "module":
		return SymbolKindModule
	case "def", "method":
		return SymbolKindMethod
	case "function", "func":
		return SymbolKindFunction
	case "constant":
		return SymbolKindConstant
	case "relation":
		return SymbolKindProperty
	default:
		return SymbolKindVariable
	}
}

// readWriteCloser wraps reader and writer into a ReadWriteCloser
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	return nil
}
