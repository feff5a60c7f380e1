// Package ini reads and writes line oriented configuration files made of
// [category] headers and key=value lines.
//
// Values pass through a Flavor on the way in and out, which is how the TOML
// flavor handles quoting. Keys that appear before the first header belong
// to the unnamed root category, written without a header.
package ini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jarredhawkins/omniparse/internal/fileref"
)

// ErrNoPath is returned by Save when the file was not loaded from disk.
var ErrNoPath = errors.New("ini: file has no path")

// SyntaxError reports a line that is neither a header, a key=value pair,
// a comment nor blank.
type SyntaxError struct {
	Line int // 1-indexed
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ini: line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Variable is a key and its decoded value.
type Variable struct {
	Name  string
	Value string
}

// Category is a named group of variables in file order.
type Category struct {
	Name string
	Vars []Variable
}

// Get returns the value of key.
func (c *Category) Get(key string) (string, bool) {
	for _, v := range c.Vars {
		if v.Name == key {
			return v.Value, true
		}
	}
	return "", false
}

// Set replaces the value of key, appending it when missing.
func (c *Category) Set(key, value string) {
	for i := range c.Vars {
		if c.Vars[i].Name == key {
			c.Vars[i].Value = value
			return
		}
	}
	c.Vars = append(c.Vars, Variable{Name: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (c *Category) Delete(key string) bool {
	for i := range c.Vars {
		if c.Vars[i].Name == key {
			c.Vars = append(c.Vars[:i], c.Vars[i+1:]...)
			return true
		}
	}
	return false
}

// File is a parsed configuration file.
type File struct {
	flavor     Flavor
	categories []*Category
	path       string
}

// New returns an empty file using flavor.
func New(flavor Flavor) *File {
	return &File{flavor: flavor}
}

// Parse reads contents using flavor.
func Parse(contents string, flavor Flavor) (*File, error) {
	f := New(flavor)
	var current *Category

	lines := strings.Split(strings.ReplaceAll(contents, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, ";"), strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "["):
			if !strings.HasSuffix(line, "]") {
				return nil, &SyntaxError{Line: i + 1, Text: raw, Msg: "unclosed category header"}
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, &SyntaxError{Line: i + 1, Text: raw, Msg: "empty category name"}
			}
			current = f.Ensure(name)
		default:
			key, value, ok := strings.Cut(line, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return nil, &SyntaxError{Line: i + 1, Text: raw, Msg: "expected key=value"}
			}
			if current == nil {
				current = f.Ensure("")
			}
			current.Set(key, f.flavor.Decode(strings.TrimSpace(value)))
		}
	}
	return f, nil
}

// Load reads the file at path and remembers the path for Save.
func Load(path string, flavor Flavor) (*File, error) {
	contents, err := fileref.Read(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(contents, flavor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// Flavor returns the flavor used to read and write values.
func (f *File) Flavor() Flavor { return f.flavor }

// Path returns the path the file was loaded from or last saved to.
func (f *File) Path() string { return f.path }

// Categories returns the categories in file order.
func (f *File) Categories() []*Category { return f.categories }

// Category returns the category called name.
func (f *File) Category(name string) (*Category, bool) {
	for _, c := range f.categories {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Ensure returns the category called name, creating it when missing.
func (f *File) Ensure(name string) *Category {
	if c, ok := f.Category(name); ok {
		return c
	}
	c := &Category{Name: name}
	if name == "" {
		// The root category is always written first.
		f.categories = append([]*Category{c}, f.categories...)
	} else {
		f.categories = append(f.categories, c)
	}
	return c
}

// Get returns a value by category and key.
func (f *File) Get(category, key string) (string, bool) {
	c, ok := f.Category(category)
	if !ok {
		return "", false
	}
	return c.Get(key)
}

// Set stores a value, creating its category when needed.
func (f *File) Set(category, key, value string) {
	f.Ensure(category).Set(key, value)
}

// String renders the file with encoded values. Categories are separated
// by a blank line and there is no trailing newline.
func (f *File) String() string {
	blocks := make([]string, 0, len(f.categories))
	for _, c := range f.categories {
		var lines []string
		if c.Name != "" {
			lines = append(lines, "["+c.Name+"]")
		}
		for _, v := range c.Vars {
			lines = append(lines, v.Name+"="+f.flavor.Encode(v.Value))
		}
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// Save writes the file back to the path it was loaded from.
func (f *File) Save() error {
	if f.path == "" {
		return ErrNoPath
	}
	return f.SaveTo(f.path)
}

// SaveTo writes the file to path and makes it the path used by Save.
func (f *File) SaveTo(path string) error {
	if err := fileref.Write(path, f.String()+"\n"); err != nil {
		return err
	}
	f.path = path
	return nil
}
