package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jarredhawkins/omniparse/internal/jsonreader"
	"github.com/jarredhawkins/omniparse/internal/lang"
	"github.com/jarredhawkins/omniparse/internal/parser"
	"github.com/jarredhawkins/omniparse/internal/render"
	"github.com/jarredhawkins/omniparse/internal/segment"
	"github.com/jarredhawkins/omniparse/internal/types"
)

type parseRequest struct {
	Language string `json:"language"` // Name of a registered language
	Path     string `json:"path"`     // Picks the language when Language is empty
	Text     string `json:"text"`
	Lenient  bool   `json:"lenient"`
	Format   string `json:"format"` // tree (default), flat or text
}

type parseResponse struct {
	Language     string            `json:"language"`
	Tree         *render.Node      `json:"tree,omitempty"`
	Flat         []render.FlatNode `json:"flat,omitempty"`
	Text         string            `json:"text,omitempty"`
	Symbols      []*types.Symbol   `json:"symbols,omitempty"`
	Unterminated *unterminated     `json:"unterminated,omitempty"`
}

type unterminated struct {
	Error  string `json:"error"`
	Rule   string `json:"rule"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func newUnterminated(err *parser.UnterminatedError) *unterminated {
	return &unterminated{Error: err.Error(), Rule: err.Rule, Line: err.Line, Column: err.Column}
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, l, ok := s.decodeParse(w, r)
	if !ok {
		return
	}
	root, open, ok := s.parse(w, l, req)
	if !ok {
		return
	}

	resp := parseResponse{
		Language: l.Name,
		Symbols:  l.Outline(root, req.Path),
	}
	if open != nil {
		resp.Unterminated = newUnterminated(open)
	}
	switch req.Format {
	case "", "tree":
		resp.Tree = render.JSONTree(root)
	case "flat":
		resp.Flat = render.JSONFlat(root)
	case "text":
		resp.Text = render.Tree(root, false)
	default:
		jsonError(w, fmt.Sprintf("unknown format %q", req.Format), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, l, ok := s.decodeParse(w, r)
	if !ok {
		return
	}
	root, _, ok := s.parse(w, l, req)
	if !ok {
		return
	}

	title := req.Path
	if title == "" {
		title = l.Name
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.HTML(w, root, render.HTMLOptions{Title: title}); err != nil {
		s.log.Warn().Err(err).Msg("failed to write html")
	}
}

// handleJSON reads the request body as a JSON document and answers with its
// compact form.
func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	v, err := jsonreader.Parse(string(body))
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) decodeParse(w http.ResponseWriter, r *http.Request) (parseRequest, *lang.Language, bool) {
	var req parseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return req, nil, false
	}

	var (
		l  *lang.Language
		ok bool
	)
	switch {
	case req.Language != "":
		l, ok = s.langs.ByName(req.Language)
	case req.Path != "":
		l, ok = s.langs.ForPath(req.Path)
	default:
		jsonError(w, "language or path is required", http.StatusBadRequest)
		return req, nil, false
	}
	if !ok {
		jsonError(w, "no language for "+strings.TrimSpace(req.Language+" "+req.Path), http.StatusBadRequest)
		return req, nil, false
	}
	return req, l, true
}

// parse runs the strict parser and, for lenient requests, falls back to
// closing unterminated segments at the end of the text.
func (s *Server) parse(w http.ResponseWriter, l *lang.Language, req parseRequest) (*segment.Segment, *parser.UnterminatedError, bool) {
	root, err := l.Parse(req.Text)
	if err == nil {
		return root, nil, true
	}

	var open *parser.UnterminatedError
	if !errors.As(err, &open) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return nil, nil, false
	}
	if !req.Lenient {
		writeJSON(w, http.StatusUnprocessableEntity, newUnterminated(open))
		return nil, nil, false
	}
	root, err = l.ParseLenient(req.Text)
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return nil, nil, false
	}
	return root, open, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
