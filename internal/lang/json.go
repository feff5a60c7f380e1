package lang

import (
	"github.com/jarredhawkins/omniparse/internal/jsonreader"
	"github.com/jarredhawkins/omniparse/internal/parser"
)

// JSON returns the language used by the JSON reader.
func JSON() *Language {
	return &Language{
		Name:       "json",
		Extensions: []string{".json"},
		Rules:      jsonreader.Rules(),
		Options:    []parser.Option{parser.WithoutWhitespaceLeaves()},
	}
}
