package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jarredhawkins/omniparse/internal/fileref"
	"github.com/jarredhawkins/omniparse/internal/lang"
	"github.com/jarredhawkins/omniparse/internal/parser"
	"github.com/jarredhawkins/omniparse/internal/segment"
)

// DefaultWorkers bounds how many files Build parses at once.
const DefaultWorkers = 8

// File is the parse result kept for one indexed file.
type File struct {
	Path     string
	Language string
	Root     *segment.Segment
	Symbols  []*Symbol

	// Unterminated is set when the strict parse failed. Root then holds
	// the lenient parse, with open segments closed at the end of the file.
	Unterminated *parser.UnterminatedError
}

// Index provides symbol lookup, segment queries and text search
type Index struct {
	mu sync.RWMutex

	// Primary index: FullName -> definitions
	symbols map[string][]*Symbol

	// Short name index: Name -> FullNames (for fuzzy lookup)
	shortNames map[string][]string

	// File index: FilePath -> parse result
	byFile map[string]*File

	// Trigram index for text search
	trigram *TrigramIndex

	rootPath string
	langs    *lang.Set
	workers  int
}

// Option configures an Index.
type Option func(*Index)

// WithWorkers sets how many files Build parses concurrently.
func WithWorkers(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// New creates a new index for the given root path
func New(rootPath string, langs *lang.Set, opts ...Option) *Index {
	idx := &Index{
		symbols:    make(map[string][]*Symbol),
		shortNames: make(map[string][]string),
		byFile:     make(map[string]*File),
		trigram:    NewTrigramIndex(),
		rootPath:   rootPath,
		langs:      langs,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build indexes every file under the root that some language handles
func (idx *Index) Build(ctx context.Context) error {
	log.Info().Str("root", idx.rootPath).Msg("building index")

	files, err := idx.collect(ctx)
	if err != nil {
		return err
	}
	log.Debug().Int("files", len(files)).Msg("found files to index")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := idx.AddFile(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to index file")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stats := idx.Stats()
	log.Info().
		Int("files", stats.Files).
		Int("symbols", stats.Symbols).
		Int("unterminated", stats.Unterminated).
		Msg("index built")
	return nil
}

func (idx *Index) collect(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(idx.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		// Check for cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Skip hidden directories and vendor
		if d.IsDir() {
			name := d.Name()
			if path != idx.rootPath && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		if idx.langs.Handles(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Parse reads and parses a file without adding it to the index. An
// unterminated segment does not fail the parse: the lenient tree is
// returned together with the error in File.Unterminated.
func (idx *Index) Parse(path string) (*File, error) {
	content, err := fileref.Read(path)
	if err != nil {
		return nil, err
	}
	return idx.ParseContent(path, content)
}

// ParseContent parses content as if it were stored at path.
func (idx *Index) ParseContent(path, content string) (*File, error) {
	l, ok := idx.langs.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: no language for file", path)
	}

	f := &File{Path: path, Language: l.Name}
	root, err := l.Parse(content)
	var unterminated *parser.UnterminatedError
	switch {
	case err == nil:
	case errors.As(err, &unterminated):
		f.Unterminated = unterminated
		root, err = l.ParseLenient(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	f.Root = root
	f.Symbols = l.Outline(root, path)
	return f, nil
}

// AddFile parses and indexes a single file, replacing an earlier parse
func (idx *Index) AddFile(path string) error {
	f, err := idx.Parse(path)
	if err != nil {
		return err
	}
	idx.put(f)
	return nil
}

// AddContent indexes content for path without reading the disk, e.g. an
// unsaved editor buffer.
func (idx *Index) AddContent(path, content string) (*File, error) {
	f, err := idx.ParseContent(path, content)
	if err != nil {
		return nil, err
	}
	idx.put(f)
	return f, nil
}

// put stores f, replacing any earlier parse of the same path. Readers see
// either the old file or the new one, never neither.
func (idx *Index) put(f *File) {
	if f.Unterminated != nil {
		log.Debug().Str("path", f.Path).Err(f.Unterminated).Msg("indexed lenient parse")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeSymbols(f.Path)

	// Store in file index
	idx.byFile[f.Path] = f

	// Store in symbol indexes
	for _, sym := range f.Symbols {
		// Primary index by full name
		idx.symbols[sym.FullName] = append(idx.symbols[sym.FullName], sym)

		// Short name index
		if !slices.Contains(idx.shortNames[sym.Name], sym.FullName) {
			idx.shortNames[sym.Name] = append(idx.shortNames[sym.Name], sym.FullName)
		}
	}

	// Add to trigram index, replacing the old text
	idx.trigram.AddFile(f.Path, f.Root)
}

// RemoveFile removes all symbols from a file
func (idx *Index) RemoveFile(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeSymbols(path)
	idx.trigram.RemoveFile(path)
}

// removeSymbols drops path from the file and symbol indexes. idx.mu must
// be held for writing.
func (idx *Index) removeSymbols(path string) {
	f, ok := idx.byFile[path]
	if !ok {
		return
	}
	delete(idx.byFile, path)

	for _, sym := range f.Symbols {
		// Remove from primary index
		existing := idx.symbols[sym.FullName]
		filtered := make([]*Symbol, 0, len(existing))
		for _, s := range existing {
			if s.FilePath != path {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			delete(idx.symbols, sym.FullName)
		} else {
			idx.symbols[sym.FullName] = filtered
		}

		// Clean up short name index
		if len(idx.symbols[sym.FullName]) == 0 {
			fullNames := slices.DeleteFunc(slices.Clone(idx.shortNames[sym.Name]), func(fn string) bool {
				return fn == sym.FullName
			})
			if len(fullNames) == 0 {
				delete(idx.shortNames, sym.Name)
			} else {
				idx.shortNames[sym.Name] = fullNames
			}
		}
	}
}

// UpdateFile re-reads a file. A file that can no longer be read or parsed
// is dropped from the index.
func (idx *Index) UpdateFile(path string) error {
	f, err := idx.Parse(path)
	if err != nil {
		idx.RemoveFile(path)
		return err
	}
	idx.put(f)
	return nil
}

// File returns the parse result of an indexed file.
func (idx *Index) File(path string) (*File, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	f, ok := idx.byFile[path]
	return f, ok
}

// Files returns the indexed paths, sorted.
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	paths := make([]string, 0, len(idx.byFile))
	for path := range idx.byFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// FindDefinitions returns definitions matching the symbol name
// Supports both short names ("MyClass") and full names ("MyModule::MyClass")
func (idx *Index) FindDefinitions(name string) []*Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// Try exact full name match first
	if syms, ok := idx.symbols[name]; ok {
		return slices.Clone(syms)
	}

	// Try short name lookup
	fullNames, ok := idx.shortNames[name]
	if !ok {
		return nil
	}

	var result []*Symbol
	for _, fullName := range fullNames {
		result = append(result, idx.symbols[fullName]...)
	}
	return result
}

// FindDefinitionsInFile returns definitions matching the name, preferring those in the given file
func (idx *Index) FindDefinitionsInFile(name, filePath string) []*Symbol {
	all := idx.FindDefinitions(name)
	if len(all) == 0 {
		return nil
	}

	// Sort: same file first
	var sameFile, otherFiles []*Symbol
	for _, sym := range all {
		if sym.FilePath == filePath {
			sameFile = append(sameFile, sym)
		} else {
			otherFiles = append(otherFiles, sym)
		}
	}

	return append(sameFile, otherFiles...)
}

// FindDefinitionsInContext resolves name as seen from a line of a file.
// Partially qualified names are tried against each enclosing scope from
// the innermost outwards; a leading separator makes the name absolute.
func (idx *Index) FindDefinitionsInContext(name, filePath string, line int) []*Symbol {
	sep := idx.separator(filePath)
	if rest, ok := strings.CutPrefix(name, sep); ok {
		idx.mu.RLock()
		defer idx.mu.RUnlock()
		return slices.Clone(idx.symbols[rest])
	}

	scope := idx.scopeAt(filePath, line)
	for i := len(scope); i > 0; i-- {
		candidate := strings.Join(scope[:i], sep) + sep + name
		idx.mu.RLock()
		syms := slices.Clone(idx.symbols[candidate])
		idx.mu.RUnlock()
		if len(syms) > 0 {
			return syms
		}
	}
	return idx.FindDefinitionsInFile(name, filePath)
}

// scopeAt returns the full path of the innermost symbol spanning line.
func (idx *Index) scopeAt(filePath string, line int) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	f, ok := idx.byFile[filePath]
	if !ok {
		return nil
	}
	var inner *Symbol
	for _, sym := range f.Symbols {
		if sym.Line <= line && sym.EndLine >= line {
			// Symbols are in source order, so later matches are nested deeper.
			inner = sym
		}
	}
	if inner == nil {
		return nil
	}
	return append(slices.Clone(inner.Scope), inner.Name)
}

func (idx *Index) separator(filePath string) string {
	if l, ok := idx.langs.ForPath(filePath); ok && l.Separator != "" {
		return l.Separator
	}
	return "."
}

// FindReferences finds all references to the given name using trigram
// search. Matches inside segments of the excluded types are dropped.
func (idx *Index) FindReferences(name string, exclude ...string) []*Reference {
	refs := idx.trigram.Search(name)
	if len(exclude) == 0 {
		return refs
	}
	return slices.DeleteFunc(refs, func(ref *Reference) bool {
		return slices.Contains(exclude, ref.Segment)
	})
}

// FindReferencesInFile is FindReferences limited to one indexed file.
func (idx *Index) FindReferencesInFile(path, name string, exclude ...string) []*Reference {
	refs := idx.trigram.SearchFile(path, name)
	if len(exclude) == 0 {
		return refs
	}
	return slices.DeleteFunc(refs, func(ref *Reference) bool {
		return slices.Contains(exclude, ref.Segment)
	})
}

// SymbolsInFile returns all symbols defined in a file
func (idx *Index) SymbolsInFile(path string) []*Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	f, ok := idx.byFile[path]
	if !ok {
		return nil
	}
	return slices.Clone(f.Symbols)
}

// FindSegments lists every segment of the given rule name across the
// index, ordered by file and position.
func (idx *Index) FindSegments(typeName string) []Hit {
	idx.mu.RLock()
	files := make([]*File, 0, len(idx.byFile))
	for _, f := range idx.byFile {
		files = append(files, f)
	}
	idx.mu.RUnlock()

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var hits []Hit
	for _, f := range files {
		hits = append(hits, Hits(f.Path, f.Root, typeName)...)
	}
	return hits
}

// SymbolCount returns the total number of indexed symbols
func (idx *Index) SymbolCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	count := 0
	for _, syms := range idx.symbols {
		count += len(syms)
	}
	return count
}

// Stats summarizes the index.
type Stats struct {
	Files        int            `json:"files"`
	Symbols      int            `json:"symbols"`
	Segments     int            `json:"segments"`
	Unterminated int            `json:"unterminated"`
	Languages    map[string]int `json:"languages"`
}

// Stats counts files, symbols and matched segments.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := Stats{Files: len(idx.byFile), Languages: make(map[string]int)}
	for _, syms := range idx.symbols {
		s.Symbols += len(syms)
	}
	for _, f := range idx.byFile {
		s.Languages[f.Language]++
		if f.Unterminated != nil {
			s.Unterminated++
		}
		for _, span := range f.Root.Spans() {
			if span.Node.IsCode() && span.Node != f.Root {
				s.Segments++
			}
		}
	}
	return s
}

// RootPath returns the root path of the index
func (idx *Index) RootPath() string {
	return idx.rootPath
}

// Languages returns the language set used to pick parsers.
func (idx *Index) Languages() *lang.Set {
	return idx.langs
}
