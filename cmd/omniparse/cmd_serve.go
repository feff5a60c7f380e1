package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jarredhawkins/omniparse/internal/api"
	"github.com/jarredhawkins/omniparse/internal/index"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		rootPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scanner over HTTP",
		Long: `Serve the scanner over HTTP. With --root the directory is indexed and
watched, which enables the /api/stats, /api/segments, /api/definitions and
/api/references endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}

			var idx *index.Index
			if rootPath != "" {
				var err error
				if idx, err = a.openWorkspace(ctx, rootPath); err != nil {
					return err
				}
				w, err := a.watchWorkspace(idx, nil)
				if err != nil {
					return err
				}
				defer w.Close()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(a.langs, idx, log.Logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Msgf("start HTTP server at %s", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info().Msg("HTTP server: graceful shutdown")

				toCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(toCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to http_addr from the config)")
	cmd.Flags().StringVar(&rootPath, "root", "", "index and watch this directory")

	return cmd
}
