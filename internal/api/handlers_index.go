package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jarredhawkins/omniparse/internal/index"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.index.Stats())
}

// handleSegments lists every indexed segment of one type.
func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	hits := s.index.FindSegments(typeName)
	if hits == nil {
		hits = []index.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": typeName, "segments": hits})
}

// handleDefinitions looks a symbol up by name. With file and line the name is
// resolved from the scope at that position.
func (s *Server) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		jsonError(w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	var symbols []*index.Symbol
	if file := q.Get("file"); file != "" {
		line, err := strconv.Atoi(q.Get("line"))
		if err != nil || line < 1 {
			jsonError(w, "line must be a positive number", http.StatusBadRequest)
			return
		}
		symbols = s.index.FindDefinitionsInContext(name, file, line)
	} else {
		symbols = s.index.FindDefinitions(name)
	}
	if symbols == nil {
		symbols = []*index.Symbol{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "definitions": symbols})
}

// handleReferences finds whole-word occurrences of name, in one file when
// file is given. exclude is a comma separated list of segment types to
// skip, e.g. "comment,string".
func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		jsonError(w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	var exclude []string
	for _, t := range strings.Split(q.Get("exclude"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			exclude = append(exclude, t)
		}
	}
	var refs []*index.Reference
	if file := q.Get("file"); file != "" {
		refs = s.index.FindReferencesInFile(file, name, exclude...)
	} else {
		refs = s.index.FindReferences(name, exclude...)
	}
	if refs == nil {
		refs = []*index.Reference{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "references": refs})
}
