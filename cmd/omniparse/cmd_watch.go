package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jarredhawkins/omniparse/internal/fileref"
	"github.com/jarredhawkins/omniparse/internal/index"
	"github.com/jarredhawkins/omniparse/internal/render"
)

func newWatchCmd(a *app) *cobra.Command {
	var renderDir string

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Keep a directory indexed and report unterminated segments",
		Long: `Index a directory and re-parse files as they change. Files with an
unterminated segment are reported in the log.

With --render-dir every indexed file is also rendered to HTML under that
directory, mirroring the source layout, and kept up to date.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			idx, err := a.openWorkspace(ctx, root)
			if err != nil {
				return err
			}

			stats := idx.Stats()
			log.Info().Int("files", stats.Files).Int("symbols", stats.Symbols).Int("unterminated", stats.Unterminated).Msg("watching")

			out := &htmlMirror{idx: idx, dir: renderDir}
			for _, path := range idx.Files() {
				out.report(path)
				out.write(path)
			}

			w, err := a.watchWorkspace(idx, func(changed, removed []string) {
				for _, path := range removed {
					out.remove(path)
				}
				for _, path := range changed {
					out.report(path)
					out.write(path)
				}
			})
			if err != nil {
				return err
			}
			defer w.Close()

			<-ctx.Done()
			log.Info().Msg("watch stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		},
	}

	cmd.Flags().StringVar(&renderDir, "render-dir", "", "keep an HTML rendering of every file in this directory")

	return cmd
}

// htmlMirror keeps dir/<relative path>.html in step with the index.
type htmlMirror struct {
	idx *index.Index
	dir string
}

func (m *htmlMirror) report(path string) {
	f, ok := m.idx.File(path)
	if !ok || f.Unterminated == nil {
		return
	}
	log.Warn().
		Str("path", path).
		Str("rule", f.Unterminated.Rule).
		Int("line", f.Unterminated.Line).
		Int("column", f.Unterminated.Column).
		Msg("unterminated segment")
}

func (m *htmlMirror) target(path string) (string, bool) {
	if m.dir == "" {
		return "", false
	}
	rel, err := filepath.Rel(m.idx.RootPath(), path)
	if err != nil {
		return "", false
	}
	return filepath.Join(m.dir, rel+".html"), true
}

func (m *htmlMirror) write(path string) {
	target, ok := m.target(path)
	if !ok {
		return
	}
	f, ok := m.idx.File(path)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.HTML(&buf, f.Root, render.HTMLOptions{Title: filepath.Base(path)}); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to render")
		return
	}
	if err := fileref.Write(target, buf.String()); err != nil {
		log.Warn().Err(err).Str("path", target).Msg("failed to write html")
		return
	}
	log.Debug().Str("path", target).Msg("rendered")
}

func (m *htmlMirror) remove(path string) {
	target, ok := m.target(path)
	if !ok {
		return
	}
	if err := fileref.FS.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", target).Msg("failed to remove html")
	}
}
