package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jarredhawkins/omniparse/internal/fileref"
	"github.com/jarredhawkins/omniparse/internal/lang"
	"github.com/jarredhawkins/omniparse/internal/parser"
	"github.com/jarredhawkins/omniparse/internal/segment"
)

// readInput returns the contents of the file named by args, or of stdin
// when there is none.
func readInput(args []string) (path, text string, err error) {
	if len(args) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "", string(b), nil
	}
	text, err = fileref.Read(args[0])
	if err != nil {
		return "", "", err
	}
	return args[0], text, nil
}

// pickLanguage resolves --lang, or else the language of path.
func pickLanguage(langs *lang.Set, name, path string) (*lang.Language, error) {
	if name != "" {
		l, ok := langs.ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown language %q (have %v)", name, langs.Names())
		}
		return l, nil
	}
	if path == "" {
		return nil, errors.New("--lang is required when reading stdin")
	}
	l, ok := langs.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("no language for %s, use --lang", path)
	}
	return l, nil
}

// parseText parses strictly, or with lenient closes unterminated segments
// at the end of the text and reports them as a warning.
func parseText(l *lang.Language, text string, lenient bool) (*segment.Segment, *parser.UnterminatedError, error) {
	root, err := l.Parse(text)
	if err == nil || !lenient {
		return root, nil, err
	}
	var open *parser.UnterminatedError
	if !errors.As(err, &open) {
		return nil, nil, err
	}
	root, err = l.ParseLenient(text)
	return root, open, err
}
