package lang

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Set is a registry of languages looked up by name or by file path.
type Set struct {
	mu sync.RWMutex

	byName map[string]*Language
	byExt  map[string]*Language // lowercased extension -> language
	byBase map[string]*Language // exact file name -> language
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{
		byName: make(map[string]*Language),
		byExt:  make(map[string]*Language),
		byBase: make(map[string]*Language),
	}
}

// Defaults returns a set holding the built-in languages.
func Defaults() *Set {
	s := NewSet()
	for _, l := range []*Language{CLike(), Ruby(), JSON()} {
		if err := s.Register(l); err != nil {
			panic(err)
		}
	}
	return s
}

// Register compiles l and adds it to the set. A language registered later
// replaces an earlier one with the same name and takes over its extensions.
func (s *Set) Register(l *Language) error {
	if err := l.Compile(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byName[l.Name]; ok {
		s.forget(old)
	}
	s.byName[l.Name] = l
	for _, ext := range l.Extensions {
		s.byExt[strings.ToLower(ext)] = l
	}
	for _, base := range l.Filenames {
		s.byBase[base] = l
	}
	return nil
}

func (s *Set) forget(l *Language) {
	for ext, owner := range s.byExt {
		if owner == l {
			delete(s.byExt, ext)
		}
	}
	for base, owner := range s.byBase {
		if owner == l {
			delete(s.byBase, base)
		}
	}
}

// ByName returns the language registered under name.
func (s *Set) ByName(name string) (*Language, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byName[name]
	return l, ok
}

// ForPath picks a language by file name first, then by extension.
func (s *Set) ForPath(path string) (*Language, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.byBase[filepath.Base(path)]; ok {
		return l, true
	}
	l, ok := s.byExt[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// Handles reports whether some language applies to path.
func (s *Set) Handles(path string) bool {
	_, ok := s.ForPath(path)
	return ok
}

// Names returns the registered language names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
