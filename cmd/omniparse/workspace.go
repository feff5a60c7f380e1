package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/jarredhawkins/omniparse/internal/index"
	"github.com/jarredhawkins/omniparse/internal/watcher"
)

// openWorkspace indexes every supported file below root, the working
// directory by default.
func (a *app) openWorkspace(ctx context.Context, root string) (*index.Index, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	idx := index.New(root, a.langs, index.WithWorkers(a.cfg.Workers))
	if err := idx.Build(ctx); err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	return idx, nil
}

// watchWorkspace keeps idx in sync with the files on disk. then, when set,
// runs after each batch has been applied.
func (a *app) watchWorkspace(idx *index.Index, then watcher.ChangeHandler) (*watcher.Watcher, error) {
	w, err := watcher.New(idx.RootPath(), idx.Languages(), func(changed, removed []string) {
		for _, path := range removed {
			idx.RemoveFile(path)
		}
		for _, path := range changed {
			if err := idx.UpdateFile(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to update file")
			}
		}
		if then != nil {
			then(changed, removed)
		}
	}, watcher.WithDebounce(a.cfg.WatchDebounce))
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	return w, nil
}
